package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIBind   = "127.0.0.1:7490"
	defaultUserAgent = "octowatch-cli"
	requestTimeout   = 30 * time.Second
)

// StatusError is returned for non-2xx replies from the daemon.
type StatusError struct {
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// IsUnauthorized reports whether err is a 401 from the daemon.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusUnauthorized
}

// Client talks to the octowatch daemon HTTP API.
type Client struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	userAgent string
}

// NewClient builds a Client for apiBind (host:port or a full URL). token is
// sent as a bearer token when non-empty.
func NewClient(apiBind, token string) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var payload HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &payload)
	return payload, err
}

// Status retrieves daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var payload DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &payload)
	return payload, err
}

// State retrieves the State Store snapshot.
func (c *Client) State(ctx context.Context) ([]StateRecord, error) {
	var payload StateResponse
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Records, nil
}

// Printers lists the registered printers.
func (c *Client) Printers(ctx context.Context) ([]PrinterInfo, error) {
	var payload PrintersResponse
	if err := c.do(ctx, http.MethodGet, "/api/printers", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Printers, nil
}

// Push submits a push payload and returns the refresh outcome.
func (c *Client) Push(ctx context.Context, payload map[string]any) (string, error) {
	var resp OutcomeResponse
	if err := c.do(ctx, http.MethodPost, "/api/push", payload, &resp); err != nil {
		return "", err
	}
	return resp.Outcome, nil
}

// Poll runs one background poll tick in the daemon.
func (c *Client) Poll(ctx context.Context) (string, error) {
	var resp OutcomeResponse
	if err := c.do(ctx, http.MethodPost, "/api/poll", nil, &resp); err != nil {
		return "", err
	}
	return resp.Outcome, nil
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification(ctx context.Context) (TestNotificationResponse, error) {
	var resp TestNotificationResponse
	err := c.do(ctx, http.MethodPost, "/api/test-notification", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Path: path, Code: resp.StatusCode}
		var apiErr ErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr) == nil {
			statusErr.Message = apiErr.Error
		}
		return statusErr
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if strings.HasPrefix(trimmed, ":") {
		trimmed = "127.0.0.1" + trimmed
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
