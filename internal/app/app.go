package app

import (
	"context"
	natsbroker "docingest/internal/broker/nats"
	"docingest/internal/cache/redis"
	"docingest/internal/config"
	"docingest/internal/dbs/postgres"
	"docingest/internal/identity/supabase"
	cachedocsrepo "docingest/internal/repositories/cache/docs"
	cachesessionrepo "docingest/internal/repositories/cache/session"
	documentrepo "docingest/internal/repositories/db/document"
	firestoredocrepo "docingest/internal/repositories/firestore/document"
	"docingest/internal/repositories/reactive"
	"docingest/internal/repositories/storage"
	gcsstorage "docingest/internal/repositories/storage/gcs"
	miniostorage "docingest/internal/repositories/storage/minio"
	authservice "docingest/internal/services/auth"
	documentservice "docingest/internal/services/document"
	processingservice "docingest/internal/services/processing"
	"errors"
	"fmt"
	"log/slog"
)

type App struct {
	AuthService     *authservice.AuthService
	DocumentService *documentservice.DocumentService
	// Worker is nil unless processing runs through the task queue.
	Worker *Worker

	closers []func() error
}

// Worker drains processing tasks from the queue.
type Worker struct {
	broker  *natsbroker.Broker
	handler *processingservice.ProcessingService
}

func (w *Worker) Run(ctx context.Context) error {
	return w.broker.Consume(ctx, w.handler)
}

type records struct {
	repo       documentservice.DocumentRepository
	notifier   documentservice.ChangeNotifier
	subscriber documentservice.Subscriber
}

func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (_ *App, err error) {
	a := &App{}

	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	cache, err := redis.New(ctx, redis.Config{Addr: cfg.Cache.Addr, Password: cfg.Cache.Password, DB: cfg.Cache.DB})
	if err != nil {
		log.Error("failed connect to cache", "err", err)
		return nil, fmt.Errorf("failed connect to cache: %w", err)
	}
	a.closers = append(a.closers, cache.Close)

	namespace := cfg.ReactiveDB.AppID

	recs, err := a.newRecords(ctx, log, cfg, cache)
	if err != nil {
		return nil, err
	}

	objects, err := a.newObjectStore(ctx, log, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var publisher documentservice.TaskPublisher

	queued := cfg.Processing.Mode == config.ProcessingQueue

	var broker *natsbroker.Broker
	if queued {
		broker, err = natsbroker.New(ctx, natsbroker.Config{
			URL:          cfg.Processing.NATSURL,
			StreamName:   cfg.Processing.StreamName,
			Subject:      cfg.Processing.Subject,
			ConsumerName: cfg.Processing.ConsumerName,
		}, log)
		if err != nil {
			log.Error("failed connect to task queue", "err", err)
			return nil, fmt.Errorf("failed connect to task queue: %w", err)
		}
		a.closers = append(a.closers, broker.Close)
		publisher = broker
	}

	identity := supabase.New(log, supabase.Config{
		URL:        cfg.Identity.URL,
		ServiceKey: cfg.Identity.ServiceKey,
		Timeout:    cfg.Identity.Timeout,
	})

	sessionCacheRepo := cachesessionrepo.New(cache, namespace, cfg.Cache.SessionTTL)

	documentCacheRepo := cachedocsrepo.New(cache, namespace, cfg.Cache.DocumentsTTL)

	a.AuthService = authservice.New(log, identity, sessionCacheRepo, 0)

	a.DocumentService = documentservice.New(log, recs.repo, documentCacheRepo, objects, recs.notifier, recs.subscriber, publisher, documentservice.Options{
		QueueProcessing:  queued,
		AllowedMimeTypes: cfg.Storage.AllowedMimeTypes,
		ListLimit:        cfg.ReactiveDB.ListLimit,
	})

	if queued {
		a.Worker = &Worker{
			broker:  broker,
			handler: processingservice.New(log, a.DocumentService, objects, processingservice.CountPDFPages),
		}
	}

	return a, nil
}

func (a *App) newRecords(ctx context.Context, log *slog.Logger, cfg *config.Config, cache *redis.Client) (*records, error) {
	switch cfg.ReactiveDB.Backend {
	case config.RecordsFirestore:
		client, err := firestoredocrepo.NewClient(ctx, cfg.ReactiveDB.FirestoreProject)
		if err != nil {
			log.Error("failed connect to firestore", "err", err)
			return nil, fmt.Errorf("failed connect to firestore: %w", err)
		}
		a.closers = append(a.closers, client.Close)

		repo := firestoredocrepo.NewRepository(log, client, cfg.ReactiveDB.Collection)

		return &records{repo: repo, notifier: repo, subscriber: repo}, nil
	case config.RecordsPostgres, "":
		db, err := postgres.New(ctx, postgres.Config{
			Addr:     cfg.DB.Addr,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			DB:       cfg.DB.DB})
		if err != nil {
			log.Error("failed connect to db", "err", err)
			return nil, fmt.Errorf("failed connect to db: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		repo := documentrepo.NewRepository(db)
		store := reactive.NewStore(log, repo, cache, cfg.ReactiveDB.AppID)

		return &records{repo: repo, notifier: store, subscriber: store}, nil
	default:
		return nil, fmt.Errorf("unknown record store backend %q", cfg.ReactiveDB.Backend)
	}
}

func (a *App) newObjectStore(ctx context.Context, log *slog.Logger, cfg config.Storage) (storage.ObjectStore, error) {
	policy := storage.Policy{AllowedMimeTypes: cfg.AllowedMimeTypes, MaxSize: cfg.MaxFileSize}

	switch cfg.Backend {
	case config.StorageGCS:
		adapter, err := gcsstorage.New(ctx, gcsstorage.Config{
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.GCSEndpoint,
			PublicURL: cfg.PublicURL,
		}, policy, log)
		if err != nil {
			log.Error("failed connect to gcs", "err", err)
			return nil, fmt.Errorf("failed connect to gcs: %w", err)
		}
		a.closers = append(a.closers, adapter.Close)

		return adapter, nil
	case config.StorageMinio, "":
		adapter, err := miniostorage.New(ctx, miniostorage.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
			PublicURL: cfg.PublicURL,
		}, policy, log)
		if err != nil {
			log.Error("failed connect to object storage", "err", err)
			return nil, fmt.Errorf("failed connect to object storage: %w", err)
		}

		return adapter, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	return errors.Join(errs...)
}
