package processingservice

import (
	"context"
	"docingest/internal/models"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Document(ctx context.Context, docID string) (*models.Document, error) {
	args := m.Called(ctx, docID)
	doc, _ := args.Get(0).(*models.Document)
	return doc, args.Error(1)
}

func (m *MockDocumentStore) UpdateStatus(ctx context.Context, docID string, upd models.StatusUpdate) (*models.Document, error) {
	args := m.Called(ctx, docID, upd)
	doc, _ := args.Get(0).(*models.Document)
	return doc, args.Error(1)
}

type MockObjectOpener struct {
	mock.Mock
}

func (m *MockObjectOpener) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func newTestService(countPages PageCounter) (*ProcessingService, *MockDocumentStore, *MockObjectOpener) {
	docs := new(MockDocumentStore)
	objects := new(MockObjectOpener)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(log, docs, objects, countPages), docs, objects
}

func withStatus(status models.Status) interface{} {
	return mock.MatchedBy(func(u models.StatusUpdate) bool { return u.Status == status })
}

func TestHandleMessage_PDFBecomesReady(t *testing.T) {
	t.Parallel()

	ps, docs, objects := newTestService(func(rs io.ReadSeeker) (int, error) { return 7, nil })

	doc := &models.Document{ID: "doc-1", UserID: "u1", Type: "pdf", Size: 2_000_000, StoragePath: "u1/1-a.pdf"}

	docs.On("Document", mock.Anything, "doc-1").Return(doc, nil)
	docs.On("UpdateStatus", mock.Anything, "doc-1", withStatus(models.StatusProcessing)).Return(doc, nil).Once()
	objects.On("Open", mock.Anything, "u1/1-a.pdf").Return(io.NopCloser(strings.NewReader("%PDF-1.7")), nil)
	docs.On("UpdateStatus", mock.Anything, "doc-1", mock.MatchedBy(func(u models.StatusUpdate) bool {
		return u.Status == models.StatusReady &&
			u.ChunkCount != nil && *u.ChunkCount == 2000 &&
			u.Metadata["pages"] == 7
	})).Return(doc, nil).Once()

	err := ps.HandleMessage(context.Background(), []byte(`{"documentId":"doc-1"}`))
	require.NoError(t, err)

	docs.AssertExpectations(t)
	objects.AssertExpectations(t)
}

func TestHandleMessage_TextSkipsPageCount(t *testing.T) {
	t.Parallel()

	ps, docs, objects := newTestService(func(rs io.ReadSeeker) (int, error) {
		t.Fatal("page counter must not be called for text files")
		return 0, nil
	})

	doc := &models.Document{ID: "doc-2", UserID: "u1", Type: "txt", Size: 5, StoragePath: "u1/1-b.txt"}

	docs.On("Document", mock.Anything, "doc-2").Return(doc, nil)
	docs.On("UpdateStatus", mock.Anything, "doc-2", withStatus(models.StatusProcessing)).Return(doc, nil)
	objects.On("Open", mock.Anything, "u1/1-b.txt").Return(io.NopCloser(strings.NewReader("hello")), nil)
	docs.On("UpdateStatus", mock.Anything, "doc-2", mock.MatchedBy(func(u models.StatusUpdate) bool {
		_, hasPages := u.Metadata["pages"]
		return u.Status == models.StatusReady && !hasPages && u.Metadata["bytes"] == 5
	})).Return(doc, nil)

	require.NoError(t, ps.HandleMessage(context.Background(), []byte(`{"documentId":"doc-2"}`)))

	docs.AssertExpectations(t)
}

func TestHandleMessage_UnreadablePDFBecomesError(t *testing.T) {
	t.Parallel()

	ps, docs, objects := newTestService(nil)

	doc := &models.Document{ID: "doc-3", UserID: "u1", Type: "pdf", Size: 9, StoragePath: "u1/1-c.pdf"}

	docs.On("Document", mock.Anything, "doc-3").Return(doc, nil)
	docs.On("UpdateStatus", mock.Anything, "doc-3", withStatus(models.StatusProcessing)).Return(doc, nil)
	objects.On("Open", mock.Anything, "u1/1-c.pdf").Return(io.NopCloser(strings.NewReader("not a pdf")), nil)
	docs.On("UpdateStatus", mock.Anything, "doc-3", mock.MatchedBy(func(u models.StatusUpdate) bool {
		return u.Status == models.StatusError && u.Metadata["error"] != nil
	})).Return(doc, nil)

	require.NoError(t, ps.HandleMessage(context.Background(), []byte(`{"documentId":"doc-3"}`)))

	docs.AssertExpectations(t)
}

func TestHandleMessage_MissingObjectBecomesError(t *testing.T) {
	t.Parallel()

	ps, docs, objects := newTestService(nil)

	doc := &models.Document{ID: "doc-4", Type: "pdf", StoragePath: "u1/gone.pdf"}

	docs.On("Document", mock.Anything, "doc-4").Return(doc, nil)
	docs.On("UpdateStatus", mock.Anything, "doc-4", withStatus(models.StatusProcessing)).Return(doc, nil)
	objects.On("Open", mock.Anything, "u1/gone.pdf").Return(nil, models.ErrObjectNotFound)
	docs.On("UpdateStatus", mock.Anything, "doc-4", withStatus(models.StatusError)).Return(doc, nil)

	require.NoError(t, ps.HandleMessage(context.Background(), []byte(`{"documentId":"doc-4"}`)))

	docs.AssertExpectations(t)
}

func TestHandleMessage_StatusWriteFailureIsRetried(t *testing.T) {
	t.Parallel()

	ps, docs, _ := newTestService(nil)

	doc := &models.Document{ID: "doc-5", Type: "pdf", StoragePath: "u1/e.pdf"}

	docs.On("Document", mock.Anything, "doc-5").Return(doc, nil)
	docs.On("UpdateStatus", mock.Anything, "doc-5", mock.Anything).Return(nil, models.ErrInternal)

	err := ps.HandleMessage(context.Background(), []byte(`{"documentId":"doc-5"}`))
	assert.ErrorIs(t, err, models.ErrInternal)
}

func TestHandleMessage_DroppedTasks(t *testing.T) {
	t.Parallel()

	ps, docs, _ := newTestService(nil)

	docs.On("Document", mock.Anything, "missing").Return(nil, models.ErrDocumentNotFound)

	assert.NoError(t, ps.HandleMessage(context.Background(), []byte(`not json`)))
	assert.NoError(t, ps.HandleMessage(context.Background(), []byte(`{}`)))
	assert.NoError(t, ps.HandleMessage(context.Background(), []byte(`{"documentId":"missing"}`)))

	docs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_LookupFailureIsRetried(t *testing.T) {
	t.Parallel()

	ps, docs, _ := newTestService(nil)

	docs.On("Document", mock.Anything, "doc-6").Return(nil, errors.New("db down"))

	assert.Error(t, ps.HandleMessage(context.Background(), []byte(`{"documentId":"doc-6"}`)))
}
