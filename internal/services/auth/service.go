package authservice

import (
	"context"
	"crypto/rand"
	"docingest/internal/models"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	uuid "github.com/satori/go.uuid"
	"golang.org/x/crypto/bcrypt"
)

const pkg = "authService/"

const secretBytes = 32

type AuthService struct {
	log           *slog.Logger
	identity      IdentityProvider
	sessionStorer SessionStorer
	hashCost      int
}

func New(
	log *slog.Logger,
	identity IdentityProvider,
	sessionStorer SessionStorer,
	hashCost int,
) *AuthService {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}

	return &AuthService{
		log:           log,
		identity:      identity,
		sessionStorer: sessionStorer,
		hashCost:      hashCost,
	}
}

// ExchangeToken verifies an identity provider token and mints a session
// token of the form "<sessionID>.<secret>" bound to that user.
func (a *AuthService) ExchangeToken(ctx context.Context, providerToken string) (string, *models.User, error) {
	op := pkg + "ExchangeToken"

	log := a.log.With(slog.String("op", op))

	log.Debug("attempting to exchange token")

	user, err := a.identity.UserByToken(ctx, providerToken)
	if err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			log.Info("identity token rejected")
			return "", nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
		}

		log.Error("failed to verify identity token", slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	secret, err := randomSecret()
	if err != nil {
		log.Error("failed to generate secret", slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), a.hashCost)
	if err != nil {
		log.Error("failed to hash secret", slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	sessionID := uuid.NewV4().String()

	sessionJSON, err := json.Marshal(models.Session{User: *user, SecretHash: hash})
	if err != nil {
		log.Error("failed to marshal session", slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	if err := a.sessionStorer.SaveSession(ctx, sessionID, string(sessionJSON)); err != nil {
		log.Error("failed to store session", slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	log.Debug("token minted", slog.String("user_id", user.ID))

	return sessionID + "." + secret, user, nil
}

func (a *AuthService) UserByToken(ctx context.Context, token string) (*models.User, error) {
	op := pkg + "UserByToken"

	log := a.log.With(slog.String("op", op))

	sessionID, secret, ok := strings.Cut(token, ".")
	if !ok || sessionID == "" || secret == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	}

	sessionJSON, err := a.sessionStorer.SessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			log.Warn("session not found", slog.String("session_id", sessionID))
			return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
		}
		log.Error("failed to get session", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	var session models.Session

	if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
		log.Error("failed to unmarshal session", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	if err := bcrypt.CompareHashAndPassword(session.SecretHash, []byte(secret)); err != nil {
		log.Warn("session secret mismatch", slog.String("session_id", sessionID))
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	}

	return &session.User, nil
}

func (a *AuthService) Logout(ctx context.Context, token string) error {
	op := pkg + "Logout"

	log := a.log.With(slog.String("op", op))

	if _, err := a.UserByToken(ctx, token); err != nil {
		return err
	}

	sessionID, _, _ := strings.Cut(token, ".")

	if err := a.sessionStorer.DeleteSession(ctx, sessionID); err != nil {
		log.Error("failed to delete session", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	log.Debug("session revoked", slog.String("session_id", sessionID))

	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
