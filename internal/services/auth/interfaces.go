package authservice

import (
	"context"
	"docingest/internal/models"
)

type IdentityProvider interface {
	UserByToken(ctx context.Context, accessToken string) (*models.User, error)
}

type SessionStorer interface {
	SaveSession(ctx context.Context, sessionID string, sessionJSON string) error
	DeleteSession(ctx context.Context, sessionID string) error
	SessionByID(ctx context.Context, sessionID string) (string, error)
}
