package octoprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"octowatch/internal/printers"
)

const (
	defaultUserAgent = "octowatch/0.1"
	defaultTimeout   = 20 * time.Second
	maxErrorBody     = 512
)

// JobFetcher is implemented by *Client and faked in tests.
type JobFetcher interface {
	FetchCurrentJob(ctx context.Context, printer printers.Printer) (JobInfo, error)
}

var _ JobFetcher = (*Client)(nil)

// JobInfo is the subset of GET /api/job the poll path reads. Either field may
// be absent.
type JobInfo struct {
	State      *string  `json:"state"`
	Completion *float64 `json:"completion"`
}

// Session is the result of a passive login, used to authenticate the socket.
type Session struct {
	Name    string `json:"name"`
	Session string `json:"session"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("octoprint %s %s returned status %d", e.Method, e.URL, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsAuthError reports whether err is an API key rejection.
func IsAuthError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusForbidden
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

// Client is a small OctoPrint REST client.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient builds a Client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}
}

// FetchCurrentJob retrieves the printer's current job state and progress.
func (c *Client) FetchCurrentJob(ctx context.Context, printer printers.Printer) (JobInfo, error) {
	var payload struct {
		State    *string `json:"state"`
		Progress *struct {
			Completion *float64 `json:"completion"`
		} `json:"progress"`
	}
	if err := c.do(ctx, printer, http.MethodGet, "/api/job", nil, &payload); err != nil {
		return JobInfo{}, err
	}
	info := JobInfo{State: payload.State}
	if payload.Progress != nil {
		info.Completion = payload.Progress.Completion
	}
	return info, nil
}

// Login performs a passive login so the websocket can be authenticated
// without a browser session.
func (c *Client) Login(ctx context.Context, printer printers.Printer) (Session, error) {
	var session Session
	body := map[string]any{"passive": true}
	if err := c.do(ctx, printer, http.MethodPost, "/api/login", body, &session); err != nil {
		return Session{}, err
	}
	if session.Name == "" || session.Session == "" {
		return Session{}, fmt.Errorf("octoprint login for %s returned no session", printer.Name)
	}
	return session, nil
}

func (c *Client) do(ctx context.Context, printer printers.Printer, method, path string, body any, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	base := strings.TrimRight(strings.TrimSpace(printer.URL), "/")
	if base == "" {
		return fmt.Errorf("printer %q has no url", printer.Name)
	}
	endpoint := base + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if printer.APIKey != "" {
		req.Header.Set("X-Api-Key", printer.APIKey)
	}
	if printer.HasBasicAuth() {
		req.SetBasicAuth(printer.Username, printer.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: method,
			URL:    endpoint,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
