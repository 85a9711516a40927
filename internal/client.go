package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend is the session API consumed by SessionSync
type Backend interface {
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	FetchSession(ctx context.Context, id string) ([]byte, error)
	DeleteSession(ctx context.Context, id string) error
}

// Client talks to the exchange-logging backend over HTTP
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an API client for baseURL
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API base the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListSessions fetches the session list, newest first
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	endpoint := c.baseURL + "/api/sessions"
	body, err := c.do(ctx, "list", http.MethodGet, endpoint, http.StatusOK)
	if err != nil {
		return nil, err
	}

	sessions, err := ParseSessionList(body)
	if err != nil {
		return nil, &ParseError{Source: "session list", Key: endpoint, Err: err}
	}
	return sessions, nil
}

// FetchSession fetches the raw detail payload of a session
func (c *Client) FetchSession(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, "detail", http.MethodGet, c.sessionURL(id), http.StatusOK)
}

// DeleteSession deletes a session; only 200 and 204 count as success
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, c.sessionURL(id), http.StatusOK, http.StatusNoContent)
	return err
}

func (c *Client) sessionURL(id string) string {
	return c.baseURL + "/api/sessions/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, okStatus ...int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: op, URL: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	LogDebug("%s %s (request %s)", method, endpoint, requestID)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	for _, status := range okStatus {
		if resp.StatusCode == status {
			return data, nil
		}
	}
	return nil, &TransportError{
		Op:     op,
		URL:    endpoint,
		Status: resp.StatusCode,
		Err:    errors.New(strings.TrimSpace(Truncate(string(data), 200))),
	}
}

// ParseSessionList decodes a session list. The payload must be an array (or an
// object with a "sessions" array); malformed entries are skipped.
func ParseSessionList(data []byte) ([]SessionSummary, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	items, ok := raw.([]any)
	if !ok {
		items, ok = asMap(raw)["sessions"].([]any)
		if !ok {
			return nil, fmt.Errorf("expected a JSON array of sessions")
		}
	}

	sessions := make([]SessionSummary, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sessions = append(sessions, SessionSummary{
			ID:             asString(firstOf(obj, "id", "session_id", "sessionId")),
			Name:           asString(firstOf(obj, "name", "title")),
			CreatedAt:      normalizeTimestamp(firstOf(obj, "createdAt", "created_at")),
			LastActivityAt: normalizeTimestamp(firstOf(obj, "lastActivityAt", "last_activity_at", "updatedAt", "updated_at")),
		})
	}
	return NewDeduplicator().Deduplicate(sessions), nil
}
