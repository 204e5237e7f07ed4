// Package api is the authenticated HTTP client for the status-tracking
// service. Every call attaches the stored bearer token and transparently
// performs at most one refresh-and-retry cycle when the server answers 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/statusboard/internal/apperrors"
	"github.com/nkiryanov/statusboard/internal/logger"
	"github.com/nkiryanov/statusboard/internal/models"
	"github.com/nkiryanov/statusboard/internal/tokenstore"
)

const defaultRequestTimeout = 10 * time.Second

type Client struct {
	// BaseURL is the versioned API prefix, e.g. "http://localhost:8000/api".
	BaseURL string

	store  tokenstore.Store
	client *http.Client
	logger logger.Logger

	// onSessionExpired fires when a terminal auth failure wiped the stored
	// session: no refresh token, or the refresh call itself failed.
	onSessionExpired func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSessionExpiredHook registers the callback invoked after the client
// cleared the stored credentials on an irrecoverable auth failure.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

func New(baseURL string, store tokenstore.Store, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		store:   store,
		client:  &http.Client{},
		logger:  logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// refreshURL lives at the sibling of the versioned prefix: the "/api" suffix
// of the base URL is stripped before appending the auth path.
func (c *Client) refreshURL() string {
	return strings.TrimSuffix(c.BaseURL, "/api") + "/api/auth/refresh/"
}

// do performs one call with the stored access token. On 401 it runs exactly
// one refresh attempt and replays the request once with the new token; the
// replay result is surfaced as is, so a second 401 is terminal for this call.
// Retry accounting is structural here: the replay happens on a separate code
// path that never refreshes again.
func (c *Client) do(ctx context.Context, method string, path string, body any) ([]byte, http.Header, error) {
	requestID := uuid.NewString()
	log := c.logger.With("request_id", requestID, "method", method, "path", path)

	data, header, statusCode, err := c.send(ctx, method, path, body, c.store.Access(), requestID)
	if err != nil {
		log.Warn("Request failed", "error", err)
		return nil, nil, err
	}

	if statusCode != http.StatusUnauthorized {
		return c.finish(log, data, header, statusCode)
	}

	originalErr := newStatusError(statusCode, data)

	access, err := c.refresh(ctx)
	if err != nil {
		log.Warn("Token refresh failed, surfacing original failure", "error", err)
		return nil, nil, originalErr
	}

	log.Debug("Access token refreshed, replaying request")
	data, header, statusCode, err = c.send(ctx, method, path, body, access, requestID)
	if err != nil {
		return nil, nil, err
	}
	return c.finish(log, data, header, statusCode)
}

func (c *Client) finish(log logger.Logger, data []byte, header http.Header, statusCode int) ([]byte, http.Header, error) {
	if statusCode >= 400 {
		apiErr := newStatusError(statusCode, data)
		log.Warn("Request rejected", "status_code", statusCode, "code", apiErr.Code)
		return nil, nil, apiErr
	}

	log.Debug("Request completed", "status_code", statusCode)
	return data, header, nil
}

// send dispatches a single request attempt. The JSON body is marshaled per
// attempt so a replay never reuses a drained reader.
func (c *Client) send(ctx context.Context, method string, path string, body any, access string, requestID string) ([]byte, http.Header, int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	url := path
	if strings.HasPrefix(path, "/") {
		url = c.BaseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, 0, newTransportError(err)
	}
	defer resp.Body.Close() // nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, 0, newTransportError(err)
	}

	return data, resp.Header, resp.StatusCode, nil
}

// refresh renews the access token with the stored refresh token and persists
// the new pair before returning, so in-flight requests issued afterwards pick
// it up. Any failure wipes the stored session and notifies the expiry hook.
func (c *Client) refresh(ctx context.Context) (string, error) {
	refresh := c.store.Refresh()
	if refresh == "" {
		c.expireSession()
		return "", apperrors.ErrNoRefreshToken
	}

	type refreshRequest struct {
		Refresh string `json:"refresh"`
	}

	data, _, statusCode, err := c.send(ctx, http.MethodPost, c.refreshURL(), refreshRequest{Refresh: refresh}, "", uuid.NewString())
	if err != nil {
		c.expireSession()
		return "", fmt.Errorf("refresh request failed: %w", err)
	}
	if statusCode != http.StatusOK {
		c.expireSession()
		return "", fmt.Errorf("refresh rejected: %w", newStatusError(statusCode, data))
	}

	var pair models.TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		c.expireSession()
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}

	if err := c.store.Save(pair.Access, pair.Refresh); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	return pair.Access, nil
}

func (c *Client) expireSession() {
	_ = c.store.Clear()
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}
