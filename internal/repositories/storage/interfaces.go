package storage

import (
	"context"
	"io"
)

const CacheControl = "max-age=3600"

// Object describes a stored blob after a successful upload.
type Object struct {
	Path string
	URL  string
	Size int64
}

type ObjectStore interface {
	Upload(ctx context.Context, path string, contentType string, size int64, content io.Reader) (*Object, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
