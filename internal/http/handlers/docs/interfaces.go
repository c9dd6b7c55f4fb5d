package docs

import (
	"context"
	"docingest/internal/models"
	"docingest/internal/repositories/reactive"
	"io"
)

const pkg = "docsHandler/"

const (
	msgMissingFields   = "File and userId are required"
	msgUnsupportedType = "File type not supported"
	msgUploadFailed    = "Failed to upload file"
	msgInternal        = "Internal server error"
	msgInvalidBody     = "Invalid request body"
	msgInvalidStatus   = "Invalid status"
	msgInvalidChunks   = "Invalid chunkCount"
)

type DocumentUploader interface {
	UploadDocument(ctx context.Context, file models.UploadedFile, content io.Reader) (*models.Document, error)
}

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, docID string, upd models.StatusUpdate) (*models.Document, error)
}

type DocumentProvider interface {
	ListDocuments(ctx context.Context, requester *models.User, limit int) ([]*models.Document, error)
	DocumentByID(ctx context.Context, docID string, requester *models.User) (*models.Document, error)
}

type DocumentSubscriber interface {
	Subscribe(ctx context.Context, requester *models.User, limit int) (*reactive.Subscription, error)
}
