package minio

import (
	"context"
	"docingest/internal/models"
	"docingest/internal/repositories/storage"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const pkg = "minioStorage/"

const publicReadPolicy = `{
	"Version": "2012-10-17",
	"Statement": [{
		"Effect": "Allow",
		"Principal": {"AWS": ["*"]},
		"Action": ["s3:GetObject"],
		"Resource": ["arn:aws:s3:::%s/*"]
	}]
}`

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// Adapter stores documents in an S3 compatible bucket.
type Adapter struct {
	client *minio.Client
	cfg    Config
	policy storage.Policy
	log    *slog.Logger
}

// New connects to the endpoint and makes sure the bucket exists and is publicly readable.
func New(ctx context.Context, cfg Config, policy storage.Policy, log *slog.Logger) (*Adapter, error) {
	op := pkg + "New"

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create minio client: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to check if bucket exists: %w", op, err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%s: failed to create bucket: %w", op, err)
		}

		if err := client.SetBucketPolicy(ctx, cfg.Bucket, fmt.Sprintf(publicReadPolicy, cfg.Bucket)); err != nil {
			return nil, fmt.Errorf("%s: failed to set bucket policy: %w", op, err)
		}
	}

	if cfg.PublicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		cfg.PublicURL = scheme + "://" + cfg.Endpoint
	}

	return &Adapter{
		client: client,
		cfg:    cfg,
		policy: policy,
		log:    log,
	}, nil
}

func (a *Adapter) Upload(ctx context.Context, path string, contentType string, size int64, content io.Reader) (*storage.Object, error) {
	op := pkg + "Upload"

	log := a.log.With(slog.String("op", op), slog.String("path", path))

	if err := a.policy.Check(contentType, size); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// S3 has no conditional create, so refuse to overwrite after a stat.
	_, err := a.client.StatObject(ctx, a.cfg.Bucket, path, minio.StatObjectOptions{})
	if err == nil {
		log.Warn("object already exists")
		return nil, fmt.Errorf("%s: %w", op, models.ErrObjectExists)
	}

	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return nil, fmt.Errorf("%s: failed to stat object: %w", op, err)
	}

	info, err := a.client.PutObject(ctx, a.cfg.Bucket, path, content, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: storage.CacheControl,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to put object: %w", op, err)
	}

	log.Debug("object stored", slog.Int64("size", info.Size))

	return &storage.Object{
		Path: path,
		URL:  storage.PublicURL(a.cfg.PublicURL, a.cfg.Bucket, path),
		Size: info.Size,
	}, nil
}

func (a *Adapter) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	op := pkg + "Open"

	object, err := a.client.GetObject(ctx, a.cfg.Bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get object: %w", op, err)
	}

	// GetObject is lazy; stat surfaces a missing key before the caller reads.
	if _, err := object.Stat(); err != nil {
		_ = object.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", op, models.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("%s: failed to stat object: %w", op, err)
	}

	return object, nil
}

func (a *Adapter) Delete(ctx context.Context, path string) error {
	op := pkg + "Delete"

	if err := a.client.RemoveObject(ctx, a.cfg.Bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: failed to remove object: %w", op, err)
	}

	return nil
}
