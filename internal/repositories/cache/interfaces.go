package cacherepo

import (
	"context"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) CacheResponse[string]
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) CacheResponse[string]
	Del(ctx context.Context, keys ...string) CacheResponse[int64]
}

type CacheResponse[T any] interface {
	Err() error
	Result() (T, error)
}

type PubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) CacheResponse[int64]
	Subscribe(ctx context.Context, channel string) (Listener, error)
}

// Listener delivers message payloads until Close is called.
type Listener interface {
	Messages() <-chan string
	Close() error
}
