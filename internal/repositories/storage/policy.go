package storage

import (
	"docingest/internal/models"
	"docingest/internal/validator"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const pkg = "storage/"

// Policy mirrors the bucket rules: allowed media types and a size ceiling.
type Policy struct {
	AllowedMimeTypes []string
	MaxSize          int64
}

func (p Policy) Check(contentType string, size int64) error {
	op := pkg + "Policy.Check"

	if len(p.AllowedMimeTypes) > 0 && !validator.IsAllowedMediaType(contentType, p.AllowedMimeTypes) {
		return fmt.Errorf("%s: %w", op, models.ErrUnsupportedType)
	}

	if p.MaxSize > 0 && size > p.MaxSize {
		return fmt.Errorf("%s: %w", op, models.ErrFileTooLarge)
	}

	return nil
}

// ObjectPath builds "<userID>/<unixMillis>-<suffix>.<ext>".
func ObjectPath(userID string, ext string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s.%s", userID, now.UnixMilli(), randomSuffix(), ext)
}

func randomSuffix() string {
	s := strconv.FormatUint(rand.Uint64(), 36)
	if len(s) > 8 {
		s = s[:8]
	}

	return strings.ToLower(s)
}

// PublicURL joins the public base, bucket and object path.
func PublicURL(base string, bucket string, path string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + path
}
