package auth

import (
	"context"
	"docingest/internal/models"
)

const pkg = "authHandler/"

type TokenExchanger interface {
	ExchangeToken(ctx context.Context, providerToken string) (string, *models.User, error)
}
