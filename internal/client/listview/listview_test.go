package listview

import (
	"bytes"
	"context"
	"docingest/internal/models"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	snaps  []models.Snapshot
	err    error
	block  chan struct{}
	closed bool
}

func (f *fakeSource) Next() (models.Snapshot, error) {
	f.mu.Lock()
	if len(f.snaps) > 0 {
		s := f.snaps[0]
		f.snaps = f.snaps[1:]
		f.mu.Unlock()
		return s, nil
	}
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
		return models.Snapshot{}, errors.New("stream closed")
	}

	return models.Snapshot{}, f.err
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed && f.block != nil {
		close(f.block)
	}
	f.closed = true

	return nil
}

func at(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 12, 0, 0, 0, time.Local).UnixMilli()
}

func TestRender_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Documents: 0  |  Storage Used: 0 Bytes  |  Last Active: Never\n\n"+EmptyText+"\n", Render(nil))
}

func TestStats(t *testing.T) {
	t.Parallel()

	out := Stats([]*models.Document{
		{Name: "old.pdf", Size: 1024, UploadedAt: at(2024, time.January, 2)},
		{Name: "new.docx", Size: 2048, UploadedAt: at(2024, time.June, 9)},
		{Name: "mid.txt", Size: 1024, UploadedAt: at(2024, time.March, 1)},
	})

	assert.Equal(t, "Documents: 3  |  Storage Used: 4 KB  |  Last Active: Jun 9, 2024\n", out)
}

func TestRender_Cards(t *testing.T) {
	t.Parallel()

	chunks := 2000
	out := Render([]*models.Document{
		{Name: "report.pdf", Size: 2_000_000, Status: models.StatusReady, UploadedAt: at(2024, time.March, 5), ChunkCount: &chunks},
		{Name: "notes.txt", Size: 1536, Status: models.StatusProcessing, UploadedAt: at(2024, time.March, 4)},
	})

	assert.True(t, strings.HasPrefix(out, "Documents: 2  |  Storage Used: 1.91 MB  |  Last Active: Mar 5, 2024\n\nDocuments (2)\n"))
	assert.Contains(t, out, "report.pdf [Ready]")
	assert.Contains(t, out, "1.91 MB • Mar 5, 2024")
	assert.Contains(t, out, "2000 chunks")
	assert.Contains(t, out, "notes.txt [Processing]")
	assert.Contains(t, out, "1.5 KB • Mar 4, 2024")
	assert.Contains(t, out, "No chunks yet")
	assert.Equal(t, 1, strings.Count(out, "Ready to chat"))
	assert.Less(t, strings.Index(out, "report.pdf"), strings.Index(out, "notes.txt"))
}

func TestRun_RendersEachSnapshot(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		snaps: []models.Snapshot{
			{},
			{Documents: []*models.Document{{Name: "a.pdf", Status: models.StatusUploading}}},
		},
		err: io.EOF,
	}

	var buf bytes.Buffer
	v := New(&buf)

	require.NoError(t, v.Run(context.Background(), src))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, LoadingText))
	assert.Contains(t, out, EmptyText)
	assert.Contains(t, out, "a.pdf [Uploading]")
	assert.NotContains(t, out, clearScreen)
	assert.True(t, src.closed)
}

func TestRun_SubscriptionError(t *testing.T) {
	t.Parallel()

	src := &fakeSource{snaps: []models.Snapshot{{Err: errors.New("subscription closed")}}}

	var buf bytes.Buffer
	err := New(&buf).Run(context.Background(), src)

	assert.EqualError(t, err, "subscription closed")
	assert.Contains(t, buf.String(), "Error loading documents: subscription closed")
}

func TestRun_CancelReleasesSource(t *testing.T) {
	t.Parallel()

	src := &fakeSource{block: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- New(io.Discard).Run(ctx, src)
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("view did not stop after cancel")
	}

	assert.True(t, src.closed)
}
