package humanize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2_000_000, "1.91 MB"},
		{10 << 20, "10 MB"},
		{3 << 30, "3 GB"},
		{5 << 40, "5120 GB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FileSize(tt.in), "size %d", tt.in)
	}
}

func TestDate(t *testing.T) {
	t.Parallel()

	ms := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.Local).UnixMilli()

	assert.Equal(t, "Mar 5, 2024", Date(ms))
}
