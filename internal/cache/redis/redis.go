package redis

import (
	"context"
	cacherepo "docingest/internal/repositories/cache"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const pkg = "redis/"

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Client struct {
	redisClient *redis.Client
}

type redisResponse[T any] struct {
	cmd redis.Cmder
	get func() (T, error)
}

func (r redisResponse[T]) Err() error {
	err := r.cmd.Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r redisResponse[T]) Result() (T, error) {
	res, err := r.get()
	if errors.Is(err, redis.Nil) {
		var zero T
		return zero, nil
	}

	return res, err
}

func (c *Client) Get(ctx context.Context, key string) cacherepo.CacheResponse[string] {
	cmd := c.redisClient.Get(ctx, key)
	return redisResponse[string]{
		cmd: cmd,
		get: cmd.Result,
	}
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) cacherepo.CacheResponse[string] {
	cmd := c.redisClient.Set(ctx, key, value, expiration)
	return redisResponse[string]{
		cmd: cmd,
		get: cmd.Result,
	}
}

func (c *Client) Del(ctx context.Context, keys ...string) cacherepo.CacheResponse[int64] {
	cmd := c.redisClient.Del(ctx, keys...)
	return redisResponse[int64]{
		cmd: cmd,
		get: cmd.Result,
	}
}

func (c *Client) Publish(ctx context.Context, channel string, message interface{}) cacherepo.CacheResponse[int64] {
	cmd := c.redisClient.Publish(ctx, channel, message)
	return redisResponse[int64]{
		cmd: cmd,
		get: cmd.Result,
	}
}

func (c *Client) Subscribe(ctx context.Context, channel string) (cacherepo.Listener, error) {
	op := pkg + "Subscribe"

	ps := c.redisClient.Subscribe(ctx, channel)

	// wait for the subscription confirmation so no publish is missed after return
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	l := &listener{
		ps:       ps,
		messages: make(chan string),
		done:     make(chan struct{}),
	}

	go l.forward()

	return l, nil
}

func (c *Client) Close() error {
	return c.redisClient.Close()
}

type listener struct {
	ps        *redis.PubSub
	messages  chan string
	done      chan struct{}
	closeOnce sync.Once
}

func (l *listener) forward() {
	defer close(l.messages)

	for msg := range l.ps.Channel() {
		select {
		case l.messages <- msg.Payload:
		case <-l.done:
			return
		}
	}
}

func (l *listener) Messages() <-chan string {
	return l.messages
}

func (l *listener) Close() error {
	var err error

	l.closeOnce.Do(func() {
		close(l.done)
		err = l.ps.Close()
	})

	return err
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	op := pkg + "New"

	client := &Client{
		redisClient: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}

	if err := client.redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: redis: ping failed: %w", op, err)
	}

	return client, nil
}
