package validator

import (
	"mime"
	"path/filepath"
	"slices"
	"strings"
)

const unknownType = "unknown"

// MediaType returns the lowercased media type with any parameters dropped.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}

	return strings.ToLower(strings.TrimSpace(mt))
}

func IsAllowedMediaType(contentType string, allowed []string) bool {
	mt := MediaType(contentType)
	if mt == "" {
		return false
	}

	return slices.ContainsFunc(allowed, func(a string) bool {
		return strings.EqualFold(a, mt)
	})
}

// Extension returns the text after the last dot of name, or "unknown".
func Extension(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return unknownType
	}

	return ext
}

func IsValidChunkCount(v float64) bool {
	return v >= 0 && v == float64(int64(v)) && v <= float64(1<<31-1)
}
