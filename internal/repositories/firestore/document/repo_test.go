package firestoredocrepo

import (
	"context"
	"docingest/internal/models"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func intPtr(v int) *int {
	return &v
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	doc := &models.Document{
		ID:          "doc-1",
		Name:        "report.pdf",
		Type:        "pdf",
		Size:        2048,
		UserID:      "user-1",
		URL:         "https://storage.googleapis.com/documents/user-1/1-a.pdf",
		StoragePath: "user-1/1-a.pdf",
		Status:      models.StatusReady,
		UploadedAt:  1700000000000,
		ChunkCount:  intPtr(2),
	}

	rec := toRecord(doc)
	assert.Equal(t, "ready", rec.Status)
	require.NotNil(t, rec.ChunkCount)
	assert.Equal(t, int64(2), *rec.ChunkCount)
	assert.NotNil(t, rec.Metadata)
	assert.NotNil(t, rec.Tags)

	back := fromRecord("doc-1", rec)
	assert.Equal(t, doc.ID, back.ID)
	assert.Equal(t, doc.Status, back.Status)
	assert.Equal(t, 2, *back.ChunkCount)
	assert.Equal(t, doc.StoragePath, back.StoragePath)
}

func TestRecord_NoChunkCount(t *testing.T) {
	t.Parallel()

	rec := toRecord(&models.Document{ID: "d", Status: models.StatusUploading})
	assert.Nil(t, rec.ChunkCount)
	assert.Nil(t, fromRecord("d", rec).ChunkCount)
}

func TestStatusUpdates(t *testing.T) {
	t.Parallel()

	updates := statusUpdates(models.StatusUpdate{
		Status:     models.StatusReady,
		ChunkCount: intPtr(7),
		Metadata:   map[string]any{"pages": 3},
	})

	require.Len(t, updates, 3)
	assert.Equal(t, firestore.Update{Path: "status", Value: "ready"}, updates[0])
	assert.Equal(t, firestore.Update{Path: "chunkCount", Value: int64(7)}, updates[1])
	assert.Equal(t, firestore.Update{FieldPath: firestore.FieldPath{"metadata", "pages"}, Value: 3}, updates[2])

	onlyStatus := statusUpdates(models.StatusUpdate{Status: models.StatusError})
	assert.Len(t, onlyStatus, 1)
}

func TestSubscribe_CloseWithoutSnapshot(t *testing.T) {
	t.Parallel()

	// Accepts connections but never answers, so the listener waits forever.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	ctx := context.Background()

	client, err := firestore.NewClient(ctx, "test-project",
		option.WithEndpoint(lis.Addr().String()),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	require.NoError(t, err)
	defer client.Close()

	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), client, "documents")

	sub, err := repo.Subscribe(ctx, models.DocumentQuery{UserID: "user-1"})
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		_ = sub.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return")
	}
}

// Runs against the Firestore emulator when FIRESTORE_EMULATOR_HOST is set.
func TestRepository_Emulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()

	client, err := NewClient(ctx, "docingest-test")
	require.NoError(t, err)
	defer client.Close()

	collection := fmt.Sprintf("documents-%d", time.Now().UnixNano())
	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), client, collection)

	query := models.DocumentQuery{UserID: "user-1"}

	sub, err := repo.Subscribe(ctx, query)
	require.NoError(t, err)
	defer sub.Close()

	initial := <-sub.Snapshots()
	require.NoError(t, initial.Err)
	assert.Empty(t, initial.Documents)

	doc := &models.Document{
		ID:         "doc-1",
		Name:       "a.txt",
		Type:       "txt",
		UserID:     "user-1",
		Status:     models.StatusUploading,
		UploadedAt: time.Now().UnixMilli(),
	}
	require.NoError(t, repo.CreateDocument(ctx, doc))

	created := <-sub.Snapshots()
	require.NoError(t, created.Err)
	require.Len(t, created.Documents, 1)
	assert.Equal(t, models.StatusUploading, created.Documents[0].Status)

	updated, err := repo.UpdateStatus(ctx, "doc-1", models.StatusUpdate{Status: models.StatusReady, ChunkCount: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, updated.Status)

	_, err = repo.UpdateStatus(ctx, "missing", models.StatusUpdate{Status: models.StatusReady})
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)

	_, err = repo.DocumentByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}
