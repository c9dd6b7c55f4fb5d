package docs

import (
	"context"
	"docingest/internal/models"
	"docingest/internal/repositories/reactive"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSubscriber struct {
	mock.Mock
}

func (m *mockSubscriber) Subscribe(ctx context.Context, requester *models.User, limit int) (*reactive.Subscription, error) {
	args := m.Called(ctx, requester, limit)
	sub, _ := args.Get(0).(*reactive.Subscription)
	return sub, args.Error(1)
}

func TestStream_WritesSnapshotsUntilClosed(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: "u1"}

	sub := reactive.Start(context.Background(), func(ctx context.Context, emit reactive.Emit) {
		emit(models.Snapshot{Documents: nil})
		emit(models.Snapshot{Documents: []*models.Document{{ID: "d1", Status: models.StatusReady}}})
	})

	ds := new(mockSubscriber)
	ds.On("Subscribe", mock.Anything, user, 0).Return(sub, nil)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/documents/stream", nil), user)
	w := httptest.NewRecorder()

	Stream(req.Context(), discardLogger(), w, req, ds)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	events := strings.Split(strings.TrimSpace(body), "\n\n")
	if assert.Len(t, events, 2) {
		assert.Equal(t, "event: snapshot\ndata: {\"documents\":[]}", events[0])
		assert.True(t, strings.HasPrefix(events[1], "event: snapshot\ndata: {\"documents\":[{\"id\":\"d1\""))
	}
}

func TestStream_WritesErrorEvent(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: "u1"}

	sub := reactive.Start(context.Background(), func(ctx context.Context, emit reactive.Emit) {
		emit(models.Snapshot{Err: models.ErrSubscriptionClosed})
		<-ctx.Done()
	})

	ds := new(mockSubscriber)
	ds.On("Subscribe", mock.Anything, user, 0).Return(sub, nil)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/documents/stream", nil), user)
	w := httptest.NewRecorder()

	Stream(req.Context(), discardLogger(), w, req, ds)

	assert.Equal(t, "event: error\ndata: {\"error\":\"subscription closed\"}\n\n", w.Body.String())
}

func TestStream_StopsWhenClientLeaves(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: "u1"}

	sub := reactive.Start(context.Background(), func(ctx context.Context, emit reactive.Emit) {
		<-ctx.Done()
	})

	ds := new(mockSubscriber)
	ds.On("Subscribe", mock.Anything, user, 0).Return(sub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/documents/stream", nil).WithContext(ctx), user)
	w := httptest.NewRecorder()

	Stream(req.Context(), discardLogger(), w, req, ds)

	_, open := <-sub.Snapshots()
	assert.False(t, open)
}

func TestStream_SubscribeFailure(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: "u1"}
	ds := new(mockSubscriber)
	ds.On("Subscribe", mock.Anything, user, 0).Return(nil, errors.New("redis down"))

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/documents/stream", nil), user)
	w := httptest.NewRecorder()

	Stream(req.Context(), discardLogger(), w, req, ds)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
