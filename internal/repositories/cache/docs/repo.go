package cachedocsrepo

import (
	"context"
	cacherepo "docingest/internal/repositories/cache"
	"time"
)

// repository stores serialized documents and document lists under the
// application namespace so several deployments can share one Redis.
type repository struct {
	cache       cacherepo.Cache
	namespace   string
	documentTTL time.Duration
}

func New(cache cacherepo.Cache, namespace string, documentTTL time.Duration) *repository {
	return &repository{
		cache:       cache,
		namespace:   namespace,
		documentTTL: documentTTL,
	}
}

func (r *repository) Get(ctx context.Context, key string) (string, error) {
	docJSON, err := r.cache.Get(ctx, r.key(key)).Result()
	if err != nil {
		return "", err
	}

	return docJSON, nil
}

func (r *repository) Set(ctx context.Context, key string, value interface{}) error {
	return r.cache.Set(ctx, r.key(key), value, r.documentTTL).Err()
}

func (r *repository) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	namespaced := make([]string, 0, len(keys))
	for _, k := range keys {
		namespaced = append(namespaced, r.key(k))
	}

	return r.cache.Del(ctx, namespaced...).Err()
}

func (r *repository) key(k string) string {
	if r.namespace == "" {
		return k
	}

	return r.namespace + ":" + k
}
