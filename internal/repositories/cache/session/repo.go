package cachesessionrepo

import (
	"context"
	"docingest/internal/models"
	cacherepo "docingest/internal/repositories/cache"
	"time"
)

type repository struct {
	cache      cacherepo.Cache
	namespace  string
	sessionTTL time.Duration
}

func New(cache cacherepo.Cache, namespace string, sessionTTL time.Duration) *repository {
	return &repository{
		cache:      cache,
		namespace:  namespace,
		sessionTTL: sessionTTL,
	}
}

func (r *repository) SaveSession(ctx context.Context, sessionID string, sessionJSON string) error {
	return r.cache.Set(ctx, r.key(sessionID), sessionJSON, r.sessionTTL).Err()
}

func (r *repository) DeleteSession(ctx context.Context, sessionID string) error {
	return r.cache.Del(ctx, r.key(sessionID)).Err()
}

func (r *repository) SessionByID(ctx context.Context, sessionID string) (string, error) {
	sessionJSON, err := r.cache.Get(ctx, r.key(sessionID)).Result()
	if err != nil {
		return "", err
	}

	if sessionJSON == "" {
		return "", models.ErrSessionNotFound
	}

	return sessionJSON, nil
}

func (r *repository) key(sessionID string) string {
	return r.namespace + ":session:" + sessionID
}
