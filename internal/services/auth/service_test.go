package authservice

import (
	"context"
	"docingest/internal/models"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) UserByToken(ctx context.Context, accessToken string) (*models.User, error) {
	args := m.Called(ctx, accessToken)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

// memorySessions is a SessionStorer that keeps sessions in a map.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]string
	saveErr  error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]string)}
}

func (m *memorySessions) SaveSession(ctx context.Context, sessionID string, sessionJSON string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = sessionJSON
	return nil
}

func (m *memorySessions) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *memorySessions) SessionByID(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return "", models.ErrSessionNotFound
	}
	return s, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExchangeToken_Success(t *testing.T) {
	t.Parallel()

	identity := new(MockIdentity)
	identity.On("UserByToken", mock.Anything, "supa").Return(&models.User{ID: "u-1", Email: "a@example.com"}, nil)

	sessions := newMemorySessions()
	service := New(newTestLogger(), identity, sessions, bcrypt.MinCost)

	token, user, err := service.ExchangeToken(context.Background(), "supa")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	sessionID, secret, ok := strings.Cut(token, ".")
	require.True(t, ok)
	assert.NotEmpty(t, secret)
	assert.Contains(t, sessions.sessions, sessionID)
	assert.NotContains(t, sessions.sessions[sessionID], secret)

	resolved, err := service.UserByToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user, resolved)
}

func TestExchangeToken_InvalidIdentityToken(t *testing.T) {
	t.Parallel()

	identity := new(MockIdentity)
	identity.On("UserByToken", mock.Anything, "bad").Return(nil, models.ErrInvalidToken)

	sessions := newMemorySessions()
	service := New(newTestLogger(), identity, sessions, bcrypt.MinCost)

	token, user, err := service.ExchangeToken(context.Background(), "bad")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	assert.Empty(t, token)
	assert.Nil(t, user)
	assert.Empty(t, sessions.sessions)
}

func TestExchangeToken_IdentityUnavailable(t *testing.T) {
	t.Parallel()

	identity := new(MockIdentity)
	identity.On("UserByToken", mock.Anything, "tok").Return(nil, models.ErrIdentityUnavailable)

	service := New(newTestLogger(), identity, newMemorySessions(), bcrypt.MinCost)

	_, _, err := service.ExchangeToken(context.Background(), "tok")
	assert.ErrorIs(t, err, models.ErrInternal)
}

func TestExchangeToken_StoreFailure(t *testing.T) {
	t.Parallel()

	identity := new(MockIdentity)
	identity.On("UserByToken", mock.Anything, "tok").Return(&models.User{ID: "u-1"}, nil)

	sessions := newMemorySessions()
	sessions.saveErr = errors.New("redis down")

	service := New(newTestLogger(), identity, sessions, bcrypt.MinCost)

	_, _, err := service.ExchangeToken(context.Background(), "tok")
	assert.ErrorIs(t, err, models.ErrInternal)
}

func TestUserByToken_TamperedSecret(t *testing.T) {
	t.Parallel()

	identity := new(MockIdentity)
	identity.On("UserByToken", mock.Anything, "supa").Return(&models.User{ID: "u-1"}, nil)

	service := New(newTestLogger(), identity, newMemorySessions(), bcrypt.MinCost)

	token, _, err := service.ExchangeToken(context.Background(), "supa")
	require.NoError(t, err)

	sessionID, _, _ := strings.Cut(token, ".")

	_, err = service.UserByToken(context.Background(), sessionID+".forged")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestUserByToken_Malformed(t *testing.T) {
	t.Parallel()

	service := New(newTestLogger(), new(MockIdentity), newMemorySessions(), bcrypt.MinCost)

	for _, token := range []string{"", "no-dot", ".secret", "id."} {
		_, err := service.UserByToken(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrInvalidToken, token)
	}
}

func TestUserByToken_UnknownSession(t *testing.T) {
	t.Parallel()

	service := New(newTestLogger(), new(MockIdentity), newMemorySessions(), bcrypt.MinCost)

	_, err := service.UserByToken(context.Background(), "missing.secret")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	identity := new(MockIdentity)
	identity.On("UserByToken", mock.Anything, "supa").Return(&models.User{ID: "u-1"}, nil)

	service := New(newTestLogger(), identity, newMemorySessions(), bcrypt.MinCost)

	token, _, err := service.ExchangeToken(context.Background(), "supa")
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), token))

	_, err = service.UserByToken(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}
