package api

import (
	"bytes"
	"context"
	"docingest/internal/dto"
	"docingest/internal/models"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const pkg = "apiClient/"

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.Status, e.Message)
}

type Config struct {
	BaseURL string
	// Token is a minted session token. Empty for anonymous calls.
	Token   string
	Timeout time.Duration
}

type Client struct {
	base   string
	plain  *http.Client
	authed *http.Client
}

func New(cfg Config) *Client {
	plain := &http.Client{Timeout: cfg.Timeout}

	c := &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		plain:  plain,
		authed: plain,
	}

	if cfg.Token != "" {
		// no timeout here, event streams stay open
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{})
		c.authed = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	}

	return c
}

// ContentType guesses the declared media type from the file extension.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

func (c *Client) ExchangeToken(ctx context.Context, providerToken string) (*dto.TokenResponse, error) {
	op := pkg + "ExchangeToken"

	body, err := json.Marshal(dto.TokenRequest{SupabaseToken: providerToken})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var resp dto.TokenResponse
	if err := c.doJSON(ctx, c.plain, http.MethodPost, "/api/auth/instant-token", "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &resp, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	op := pkg + "Logout"

	if err := c.doJSON(ctx, c.plain, http.MethodDelete, "/api/auth/"+url.PathEscape(token), "", nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) Upload(ctx context.Context, userID string, name string, content io.Reader) (*dto.DocumentResponse, error) {
	op := pkg + "Upload"

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("userId", userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	h.Set("Content-Type", ContentType(name))

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var resp dto.UploadResponse
	if err := c.doJSON(ctx, c.plain, http.MethodPost, "/api/documents/upload", writer.FormDataContentType(), body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &resp.Document, nil
}

func (c *Client) UpdateStatus(ctx context.Context, docID string, status models.Status, chunkCount *int) error {
	op := pkg + "UpdateStatus"

	req := dto.StatusUpdateRequest{Status: string(status)}
	if chunkCount != nil {
		v := float64(*chunkCount)
		req.ChunkCount = &v
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.doJSON(ctx, c.authed, http.MethodPatch, "/api/documents/"+url.PathEscape(docID)+"/status", "application/json", bytes.NewReader(body), nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) ListDocuments(ctx context.Context, limit int) ([]*models.Document, error) {
	op := pkg + "ListDocuments"

	path := "/api/documents"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var resp dto.DocumentListResponse
	if err := c.doJSON(ctx, c.authed, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp.Documents, nil
}

// Watch opens the document event stream. The caller must Close it.
func (c *Client) Watch(ctx context.Context, limit int) (*Stream, error) {
	op := pkg + "Watch"

	path := "/api/documents/stream"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.authed.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%s: %w", op, decodeError(resp))
	}

	return newStream(resp.Body, cancel), nil
}

func (c *Client) doJSON(ctx context.Context, hc *http.Client, method string, path string, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var body dto.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return &Error{Status: resp.StatusCode, Message: body.Error}
}
