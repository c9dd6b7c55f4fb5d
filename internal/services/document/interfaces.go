package documentservice

import (
	"context"
	"docingest/internal/models"
	"docingest/internal/repositories/reactive"
	"docingest/internal/repositories/storage"
	"io"
)

type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	DocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListByUser(ctx context.Context, query models.DocumentQuery) ([]*models.Document, error)
	UpdateStatus(ctx context.Context, id string, upd models.StatusUpdate) (*models.Document, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, path string, contentType string, size int64, content io.Reader) (*storage.Object, error)
	Delete(ctx context.Context, path string) error
}

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}) error
	Del(ctx context.Context, keys ...string) error
}

type ChangeNotifier interface {
	NotifyChanged(ctx context.Context, doc *models.Document) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, query models.DocumentQuery) (*reactive.Subscription, error)
}

type TaskPublisher interface {
	PublishProcessTask(ctx context.Context, documentID string) error
}
