package entities

import (
	"database/sql"

	"github.com/lib/pq"
)

type Document struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Type        string         `db:"type"`
	Size        int64          `db:"size"`
	UserID      string         `db:"user_id"`
	URL         string         `db:"url"`
	StoragePath string         `db:"storage_path"`
	Status      string         `db:"status"`
	UploadedAt  int64          `db:"uploaded_at"`
	ChunkCount  sql.NullInt64  `db:"chunk_count"`
	Metadata    []byte         `db:"metadata"`
	Tags        pq.StringArray `db:"tags"`
}
