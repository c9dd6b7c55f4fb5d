package docs

import (
	"context"
	"docingest/internal/dto"
	"docingest/internal/models"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStatusUpdater struct {
	mock.Mock
}

func (m *mockStatusUpdater) UpdateStatus(ctx context.Context, docID string, upd models.StatusUpdate) (*models.Document, error) {
	args := m.Called(ctx, docID, upd)
	doc, _ := args.Get(0).(*models.Document)
	return doc, args.Error(1)
}

func patch(body string) *http.Request {
	return httptest.NewRequest(http.MethodPatch, "/api/documents/doc-1/status", strings.NewReader(body))
}

func TestUpdateStatus_Success(t *testing.T) {
	t.Parallel()

	chunks := 12
	su := new(mockStatusUpdater)
	su.On("UpdateStatus", mock.Anything, "doc-1", models.StatusUpdate{Status: models.StatusReady, ChunkCount: &chunks}).
		Return(&models.Document{ID: "doc-1", Status: models.StatusReady}, nil)

	req := patch(`{"status":"ready","chunkCount":12}`)
	w := httptest.NewRecorder()

	UpdateStatus(req.Context(), discardLogger(), w, req, "doc-1", su)

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed dto.StatusUpdateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.True(t, parsed.Success)
	assert.Equal(t, "doc-1", parsed.DocumentID)
	assert.Equal(t, models.StatusReady, parsed.Status)
	require.NotNil(t, parsed.ChunkCount)
	assert.Equal(t, 12, *parsed.ChunkCount)

	su.AssertExpectations(t)
}

func TestUpdateStatus_WithoutChunkCount(t *testing.T) {
	t.Parallel()

	su := new(mockStatusUpdater)
	su.On("UpdateStatus", mock.Anything, "doc-1", models.StatusUpdate{Status: models.StatusError}).
		Return(&models.Document{ID: "doc-1", Status: models.StatusError}, nil)

	req := patch(`{"status":"error"}`)
	w := httptest.NewRecorder()

	UpdateStatus(req.Context(), discardLogger(), w, req, "doc-1", su)

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.NotContains(t, raw, "chunkCount")
	assert.Equal(t, "error", raw["status"])
}

func TestUpdateStatus_BadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"status":`, msgInvalidBody},
		{"unknown status", `{"status":"done"}`, msgInvalidStatus},
		{"empty status", `{}`, msgInvalidStatus},
		{"negative chunk count", `{"status":"ready","chunkCount":-1}`, msgInvalidChunks},
		{"fractional chunk count", `{"status":"ready","chunkCount":1.5}`, msgInvalidChunks},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			su := new(mockStatusUpdater)
			req := patch(tt.body)
			w := httptest.NewRecorder()

			UpdateStatus(req.Context(), discardLogger(), w, req, "doc-1", su)

			resp := w.Result()
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.message, decodeError(t, resp.Body))
			su.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateStatus_ServiceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", models.ErrDocumentNotFound, http.StatusNotFound},
		{"store failure", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			su := new(mockStatusUpdater)
			su.On("UpdateStatus", mock.Anything, "doc-1", mock.Anything).Return(nil, tt.err)

			req := patch(`{"status":"processing"}`)
			w := httptest.NewRecorder()

			UpdateStatus(req.Context(), discardLogger(), w, req, "doc-1", su)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
