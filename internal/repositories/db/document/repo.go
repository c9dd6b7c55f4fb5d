package documentrepo

import (
	"context"
	"database/sql"
	"docingest/internal/entities"
	"docingest/internal/models"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pkg = "documentRepo/"

const selectDocument = `SELECT
			d.id AS id,
			d.name AS name,
			d.type AS type,
			d.size AS size,
			d.user_id AS user_id,
			d.url AS url,
			d.storage_path AS storage_path,
			d.status AS status,
			d.uploaded_at AS uploaded_at,
			d.chunk_count AS chunk_count,
			d.metadata AS metadata,
			d.tags AS tags
		FROM documents d`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *repository {
	return &repository{db: db}
}

func (r *repository) CreateDocument(ctx context.Context, doc *models.Document) error {
	op := pkg + "CreateDocument"

	metadata, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tags := pq.StringArray(doc.Tags)
	if tags == nil {
		tags = pq.StringArray{}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, type, size, user_id, url, storage_path, status, uploaded_at, chunk_count, metadata, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		doc.ID, doc.Name, doc.Type, doc.Size, doc.UserID, doc.URL, doc.StoragePath,
		string(doc.Status), doc.UploadedAt, nullInt(doc.ChunkCount), metadata, tags)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%s: %w", op, &models.UniqueConstraintError{Constraint: pqErr.Constraint, Err: err})
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *repository) DocumentByID(ctx context.Context, id string) (*models.Document, error) {
	op := pkg + "DocumentByID"

	rawDoc := entities.Document{}

	err := r.db.GetContext(ctx, &rawDoc, selectDocument+`
		WHERE d.id = $1`,
		id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	doc, err := toModel(rawDoc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc, nil
}

func (r *repository) ListByUser(ctx context.Context, query models.DocumentQuery) ([]*models.Document, error) {
	op := pkg + "ListByUser"

	rawDocs := make([]entities.Document, 0)

	q := selectDocument + `
		WHERE d.user_id = $1
		ORDER BY d.uploaded_at DESC, d.id DESC`

	args := []any{query.UserID}

	if query.Limit > 0 {
		args = append(args, query.Limit)

		q += ` LIMIT $2`
	}

	if err := r.db.SelectContext(ctx, &rawDocs, q, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	docs := make([]*models.Document, 0, len(rawDocs))

	for _, rawDoc := range rawDocs {
		doc, err := toModel(rawDoc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// UpdateStatus overwrites the status, sets the chunk count when given and
// merges metadata keys into the stored object.
func (r *repository) UpdateStatus(ctx context.Context, id string, upd models.StatusUpdate) (*models.Document, error) {
	op := pkg + "UpdateStatus"

	metadata, err := marshalMetadata(upd.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE documents
		SET status = $2,
			chunk_count = COALESCE($3, chunk_count),
			metadata = metadata || $4::jsonb
		WHERE id = $1`,
		id, string(upd.Status), nullInt(upd.ChunkCount), metadata)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if affected == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrDocumentNotFound)
	}

	return r.DocumentByID(ctx, id)
}

func toModel(raw entities.Document) (*models.Document, error) {
	doc := &models.Document{
		ID:          raw.ID,
		Name:        raw.Name,
		Type:        raw.Type,
		Size:        raw.Size,
		UserID:      raw.UserID,
		URL:         raw.URL,
		StoragePath: raw.StoragePath,
		Status:      models.Status(raw.Status),
		UploadedAt:  raw.UploadedAt,
		Tags:        []string(raw.Tags),
	}

	if raw.ChunkCount.Valid {
		n := int(raw.ChunkCount.Int64)
		doc.ChunkCount = &n
	}

	if len(raw.Metadata) > 0 {
		if err := json.Unmarshal(raw.Metadata, &doc.Metadata); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
