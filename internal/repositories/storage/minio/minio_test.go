package minio_test

import (
	"context"
	"docingest/internal/models"
	"docingest/internal/repositories/storage"
	"docingest/internal/repositories/storage/minio"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAccessKey = "minioadmin"
	testSecretKey = "minioadmin"
	testBucket    = "documents"
)

func setupContainer(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     testAccessKey,
			"MINIO_ROOT_PASSWORD": testSecretKey,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func createAdapter(t *testing.T, ctx context.Context, endpoint string) *minio.Adapter {
	t.Helper()

	cfg := minio.Config{
		Endpoint:  endpoint,
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
		Bucket:    testBucket,
	}

	policy := storage.Policy{
		AllowedMimeTypes: []string{"application/pdf", "text/plain"},
		MaxSize:          10 << 20,
	}

	adapter, err := minio.New(ctx, cfg, policy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return adapter
}

func TestAdapter_UploadOpenDelete(t *testing.T) {
	endpoint := setupContainer(t)
	ctx := context.Background()
	adapter := createAdapter(t, ctx, endpoint)

	content := "hello documents"
	path := storage.ObjectPath("user-1", "txt", time.Now())

	obj, err := adapter.Upload(ctx, path, "text/plain", int64(len(content)), strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, path, obj.Path)
	assert.Equal(t, int64(len(content)), obj.Size)
	assert.Equal(t, "http://"+endpoint+"/"+testBucket+"/"+path, obj.URL)

	// the bucket is public so the URL is directly readable
	resp, err := http.Get(obj.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, storage.CacheControl, resp.Header.Get("Cache-Control"))

	rc, err := adapter.Open(ctx, path)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, content, string(body))

	require.NoError(t, adapter.Delete(ctx, path))

	_, err = adapter.Open(ctx, path)
	assert.ErrorIs(t, err, models.ErrObjectNotFound)
}

func TestAdapter_UploadRefusesOverwrite(t *testing.T) {
	endpoint := setupContainer(t)
	ctx := context.Background()
	adapter := createAdapter(t, ctx, endpoint)

	path := "user-1/1-fixed.txt"

	_, err := adapter.Upload(ctx, path, "text/plain", 3, strings.NewReader("one"))
	require.NoError(t, err)

	_, err = adapter.Upload(ctx, path, "text/plain", 3, strings.NewReader("two"))
	assert.ErrorIs(t, err, models.ErrObjectExists)
}

func TestAdapter_UploadEnforcesPolicy(t *testing.T) {
	endpoint := setupContainer(t)
	ctx := context.Background()
	adapter := createAdapter(t, ctx, endpoint)

	_, err := adapter.Upload(ctx, "user-1/1-a.png", "image/png", 3, strings.NewReader("png"))
	assert.ErrorIs(t, err, models.ErrUnsupportedType)

	_, err = adapter.Upload(ctx, "user-1/1-a.pdf", "application/pdf", 11<<20, strings.NewReader("big"))
	assert.ErrorIs(t, err, models.ErrFileTooLarge)
}
