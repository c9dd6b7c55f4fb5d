package gcs

import (
	"context"
	"docingest/internal/models"
	"docingest/internal/repositories/storage"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const pkg = "gcsStorage/"

const defaultPublicURL = "https://storage.googleapis.com"

type Config struct {
	Bucket string
	// Endpoint points the client at an emulator; credentials are skipped when set.
	Endpoint  string
	PublicURL string
}

type Adapter struct {
	client *gcstorage.Client
	bucket *gcstorage.BucketHandle
	cfg    Config
	policy storage.Policy
	log    *slog.Logger
}

func New(ctx context.Context, cfg Config, policy storage.Policy, log *slog.Logger) (*Adapter, error) {
	op := pkg + "New"

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create storage client: %w", op, err)
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = defaultPublicURL
	}

	return &Adapter{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		cfg:    cfg,
		policy: policy,
		log:    log,
	}, nil
}

// Upload writes the object only if it does not exist yet.
func (a *Adapter) Upload(ctx context.Context, path string, contentType string, size int64, content io.Reader) (*storage.Object, error) {
	op := pkg + "Upload"

	log := a.log.With(slog.String("op", op), slog.String("path", path))

	if err := a.policy.Check(contentType, size); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Closing the writer commits whatever was written, so a failed copy
	// cancels the upload instead.
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := a.bucket.Object(path).If(gcstorage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
	writer.ContentType = contentType
	writer.CacheControl = storage.CacheControl

	if _, err := io.Copy(writer, content); err != nil {
		cancel()
		log.Warn("upload aborted", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, mapWriteError(err))
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapWriteError(err))
	}

	attrs := writer.Attrs()

	log.Debug("object stored", slog.Int64("size", attrs.Size))

	return &storage.Object{
		Path: path,
		URL:  storage.PublicURL(a.cfg.PublicURL, a.cfg.Bucket, path),
		Size: attrs.Size,
	}, nil
}

func (a *Adapter) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	op := pkg + "Open"

	reader, err := a.bucket.Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return reader, nil
}

func (a *Adapter) Delete(ctx context.Context, path string) error {
	op := pkg + "Delete"

	if err := a.bucket.Object(path).Delete(ctx); err != nil && !errors.Is(err, gcstorage.ErrObjectNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *Adapter) Close() error {
	return a.client.Close()
}

func mapWriteError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return models.ErrObjectExists
	}

	return err
}
