package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"octowatch/internal/config"
)

const userAgent = "octowatch/0.1"

// Message is the transport-neutral notification content.
type Message struct {
	Title      string
	Body       string
	Tags       []string
	Priority   string
	Attachment string
}

// Notifier delivers a Message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NewNotifier builds an ntfy notifier when a topic is configured. When no ntfy
// topic is configured, a noop implementation is returned.
func NewNotifier(cfg config.Notifications) Notifier {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopNotifier{}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyNotifier{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type ntfyNotifier struct {
	endpoint string
	client   *http.Client
}

// Send posts the message body, or PUTs the attachment with the body in the
// Message header so ntfy shows the image inline.
func (n *ntfyNotifier) Send(ctx context.Context, msg Message) error {
	if n == nil || n.client == nil {
		return nil
	}

	method := http.MethodPost
	var body io.Reader = strings.NewReader(msg.Body)
	if msg.Attachment != "" {
		file, err := os.Open(msg.Attachment)
		if err != nil {
			return fmt.Errorf("open attachment: %w", err)
		}
		defer file.Close()
		method = http.MethodPut
		body = file
	}

	req, err := http.NewRequestWithContext(ctx, method, n.endpoint, body)
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if msg.Attachment != "" {
		req.Header.Set("Filename", filepath.Base(msg.Attachment))
		req.Header.Set("Message", msg.Body)
	} else {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Priority != "" && msg.Priority != "default" {
		req.Header.Set("Priority", msg.Priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, Message) error { return nil }
