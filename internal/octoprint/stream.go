package octoprint

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"octowatch/internal/logging"
	"octowatch/internal/printers"
)

const (
	socketPath         = "/sockjs/websocket"
	initialBackoff     = time.Second
	defaultMaxBackoff  = 60 * time.Second
	handshakeTimeout   = 10 * time.Second
	socketReadDeadline = 90 * time.Second
)

// CurrentState is a live status observation. State is nil when the frame
// carried no state text.
type CurrentState struct {
	State      *string
	Completion *float64
}

// StateHandler receives decoded live observations.
type StateHandler func(ctx context.Context, printer printers.Printer, current CurrentState)

// PrinterSource returns the printer the stream should follow.
type PrinterSource func() (printers.Printer, bool)

// Stream follows the websocket of the selected printer, reconnecting with
// capped exponential backoff.
type Stream struct {
	client     *Client
	source     PrinterSource
	dialer     *websocket.Dialer
	logger     *slog.Logger
	maxBackoff time.Duration
}

// NewStream builds a stream. source is consulted on every (re)connect so a
// registry reload moves the stream to the new default printer.
func NewStream(client *Client, source PrinterSource, logger *slog.Logger, maxBackoff time.Duration) *Stream {
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	return &Stream{
		client: client,
		source: source,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger:     logging.NewComponentLogger(logger, "stream"),
		maxBackoff: maxBackoff,
	}
}

// Run blocks until ctx is cancelled.
func (s *Stream) Run(ctx context.Context, handler StateHandler) error {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}
		printer, ok := s.source()
		if !ok {
			s.logger.Debug("no default printer; stream idle")
		} else {
			connected, err := s.session(ctx, printer, handler)
			if ctx.Err() != nil {
				return nil
			}
			if connected {
				backoff = initialBackoff
			}
			if err != nil {
				logging.WarnWithContext(s.logger, "printer stream disconnected", "stream_disconnected",
					logging.String(logging.FieldPrinter, printer.Name),
					logging.Error(err),
					logging.Duration("retry_in", backoff),
					logging.String(logging.FieldErrorHint, "check the printer url and api key"),
					logging.String(logging.FieldImpact, "live updates paused; poll fallback still runs"),
				)
			}
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// session runs one connection. connected reports whether the socket was
// authenticated before it ended.
func (s *Stream) session(ctx context.Context, printer printers.Printer, handler StateHandler) (connected bool, err error) {
	login, err := s.client.Login(ctx, printer)
	if err != nil {
		return false, fmt.Errorf("login: %w", err)
	}
	target, err := SocketURL(printer.URL)
	if err != nil {
		return false, err
	}

	header := http.Header{}
	header.Set("User-Agent", defaultUserAgent)
	if printer.HasBasicAuth() {
		creds := base64.StdEncoding.EncodeToString([]byte(printer.Username + ":" + printer.Password))
		header.Set("Authorization", "Basic "+creds)
	}
	conn, resp, err := s.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	auth := map[string]string{"auth": login.Name + ":" + login.Session}
	if err := conn.WriteJSON(auth); err != nil {
		return false, fmt.Errorf("authenticate socket: %w", err)
	}
	s.logger.Info("printer stream connected", logging.String(logging.FieldPrinter, printer.Name))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(socketReadDeadline))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, fmt.Errorf("read: %w", err)
		}
		current, ok, err := DecodeFrame(data)
		if err != nil {
			s.logger.Debug("skipping undecodable frame", logging.Error(err))
			continue
		}
		if !ok {
			continue
		}
		handler(ctx, printer, current)
	}
}

// SocketURL maps a printer base URL onto its websocket endpoint.
func SocketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(base), "/"))
	if err != nil {
		return "", fmt.Errorf("parse printer url %q: %w", base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("printer url %q must use http or https", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + socketPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

type stateFrame struct {
	State *struct {
		Text *string `json:"text"`
	} `json:"state"`
	Progress *struct {
		Completion *float64 `json:"completion"`
	} `json:"progress"`
}

// DecodeFrame extracts a CurrentState from a socket message. ok is false for
// frames that are not "current" or "history" updates.
func DecodeFrame(data []byte) (CurrentState, bool, error) {
	var envelope struct {
		Current *stateFrame `json:"current"`
		History *stateFrame `json:"history"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return CurrentState{}, false, fmt.Errorf("decode frame: %w", err)
	}
	frame := envelope.Current
	if frame == nil {
		frame = envelope.History
	}
	if frame == nil {
		return CurrentState{}, false, nil
	}
	var current CurrentState
	if frame.State != nil {
		current.State = frame.State.Text
	}
	if frame.Progress != nil {
		current.Completion = frame.Progress.Completion
	}
	return current, true, nil
}
