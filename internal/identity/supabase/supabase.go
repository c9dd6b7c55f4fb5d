package supabase

import (
	"context"
	"docingest/internal/models"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const pkg = "supabase/"

type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// AdminUser is the identity record returned by the admin API.
type AdminUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	CreatedAt        time.Time      `json:"created_at"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at"`
	AppMetadata      map[string]any `json:"app_metadata"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

type UserPage struct {
	Users []AdminUser
	// Total is zero when the server does not report it.
	Total int
}

// Client talks to the Supabase auth REST API.
type Client struct {
	log  *slog.Logger
	cfg  Config
	base *http.Client
}

func New(log *slog.Logger, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &Client{
		log:  log,
		cfg:  cfg,
		base: &http.Client{Timeout: timeout},
	}
}

// UserByToken verifies an access token and returns its user.
func (c *Client) UserByToken(ctx context.Context, accessToken string) (*models.User, error) {
	op := pkg + "UserByToken"

	log := c.log.With(slog.String("op", op))

	if accessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	}

	resp, err := c.do(ctx, accessToken, http.MethodGet, "/auth/v1/user", nil)
	if err != nil {
		log.Error("identity request failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, models.ErrIdentityUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		log.Warn("identity provider rejected token", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	case resp.StatusCode != http.StatusOK:
		log.Error("unexpected identity status", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%s: %w", op, models.ErrIdentityUnavailable)
	}

	var user AdminUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		log.Error("failed to decode user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, models.ErrIdentityUnavailable)
	}

	if user.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	}

	return &models.User{ID: user.ID, Email: user.Email}, nil
}

// ListUsers returns one page of users. It requires the service role key.
func (c *Client) ListUsers(ctx context.Context, page int, perPage int) (*UserPage, error) {
	op := pkg + "ListUsers"

	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}

	path := "/auth/v1/admin/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.do(ctx, c.cfg.ServiceKey, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", op, statusError(resp))
	}

	var body struct {
		Users []AdminUser `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	total, _ := strconv.Atoi(resp.Header.Get("X-Total-Count"))

	return &UserPage{Users: body.Users, Total: total}, nil
}

// UserByEmail scans the admin listing for an exact email match.
func (c *Client) UserByEmail(ctx context.Context, email string) (*AdminUser, error) {
	op := pkg + "UserByEmail"

	page, err := c.ListUsers(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range page.Users {
		if strings.EqualFold(page.Users[i].Email, email) {
			return &page.Users[i], nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	op := pkg + "DeleteUser"

	resp, err := c.do(ctx, c.cfg.ServiceKey, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%s: %w", op, statusError(resp))
	}

	return nil
}

func (c *Client) do(ctx context.Context, bearer string, method string, path string, body io.Reader) (*http.Response, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: bearer,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.cfg.ServiceKey)
	req.Header.Set("Accept", "application/json")

	return client.Do(req)
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("identity provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
