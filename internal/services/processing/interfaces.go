package processingservice

import (
	"context"
	"docingest/internal/models"
	"io"
)

type DocumentStore interface {
	Document(ctx context.Context, docID string) (*models.Document, error)
	UpdateStatus(ctx context.Context, docID string, upd models.StatusUpdate) (*models.Document, error)
}

type ObjectOpener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
