package companion

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

	"golang.org/x/time/rate"

	"octowatch/internal/config"
)

const (
	userAgent      = "octowatch/0.1"
	defaultBudget  = 50
	defaultTimeout = 10 * time.Second
	budgetWindow   = 24 * time.Hour
)

// ErrBudgetExhausted is returned when the daily update budget is spent.
var ErrBudgetExhausted = errors.New("companion daily budget exhausted")

// Update is one status message for the companion display.
type Update struct {
	Printer    string    `json:"printer"`
	State      string    `json:"state"`
	Completion *float64  `json:"completion"`
	SentAt     time.Time `json:"sent_at"`
}

// Channel delivers companion updates.
type Channel interface {
	Update(ctx context.Context, update Update) error
}

// New returns the webhook channel, or a noop channel when no endpoint is set.
func New(cfg config.Companion) Channel {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return noopChannel{}
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &webhookChannel{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		limiter:  NewBudget(cfg.DailyBudget),
		now:      time.Now,
	}
}

// NewBudget builds a limiter that refills budget tokens evenly over a day and
// allows the whole budget as a burst.
func NewBudget(budget int) *rate.Limiter {
	if budget <= 0 {
		budget = defaultBudget
	}
	return rate.NewLimiter(rate.Every(budgetWindow/time.Duration(budget)), budget)
}

type webhookChannel struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	now      func() time.Time
}

func (w *webhookChannel) Update(ctx context.Context, update Update) error {
	if !w.limiter.AllowN(w.now(), 1) {
		return ErrBudgetExhausted
	}
	if update.SentAt.IsZero() {
		update.SentAt = w.now().UTC()
	}
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode companion update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build companion request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send companion update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("companion endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopChannel struct{}

func (noopChannel) Update(context.Context, Update) error { return nil }
