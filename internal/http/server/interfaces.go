package server

import (
	"context"
	"docingest/internal/models"
	"docingest/internal/repositories/reactive"
	"io"
)

type AuthService interface {
	ExchangeToken(ctx context.Context, providerToken string) (string, *models.User, error)
	UserByToken(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string) error
}

type DocumentService interface {
	UploadDocument(ctx context.Context, file models.UploadedFile, content io.Reader) (*models.Document, error)
	UpdateStatus(ctx context.Context, docID string, upd models.StatusUpdate) (*models.Document, error)
	DocumentByID(ctx context.Context, docID string, requester *models.User) (*models.Document, error)
	ListDocuments(ctx context.Context, requester *models.User, limit int) ([]*models.Document, error)
	Subscribe(ctx context.Context, requester *models.User, limit int) (*reactive.Subscription, error)
}
