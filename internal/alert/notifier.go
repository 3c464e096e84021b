// Package alert delivers operational alerts (log write failures, repository
// timeouts) to an external channel. Alerting is strictly best-effort: a lost
// alert must never affect a live call.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

type Event struct {
	Kind    string    `json:"kind"`
	CallID  string    `json:"call_id,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const (
	KindLogWriteFailure   = "log_write_failure"
	KindRepositoryTimeout = "repository_timeout"
	KindSweeperFailure    = "sweeper_failure"
)

type Notifier interface {
	// Notify reports ev. Implementations must not block beyond their own
	// bounded timeout and must swallow their own failures.
	Notify(ctx context.Context, ev Event)
}

// SlogNotifier writes alerts to the process log. It is the fallback when no
// alert webhook is configured.
type SlogNotifier struct{}

func (SlogNotifier) Notify(_ context.Context, ev Event) {
	slog.Error("operational alert", "kind", ev.Kind, "call_id", ev.CallID, "msg", ev.Message)
}

// WebhookNotifier POSTs alerts to an HTTP endpoint behind a circuit
// breaker, so a dead alerting channel cannot slow the webhook path down
// with per-request connect timeouts.
type WebhookNotifier struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker

	// dropped counts alerts lost to an open breaker or send failure.
	mu      sync.Mutex
	dropped int64
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	settings := gobreaker.Settings{
		Name:     "alert-webhook",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("alert breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	_, err := n.cb.Execute(func() (any, error) {
		return nil, n.send(ctx, ev)
	})
	if err != nil {
		n.mu.Lock()
		n.dropped++
		dropped := n.dropped
		n.mu.Unlock()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Warn("alert dropped, breaker open", "kind", ev.Kind, "dropped_total", dropped)
			return
		}
		slog.Warn("alert delivery failed", "kind", ev.Kind, "err", err, "dropped_total", dropped)
	}
}

func (n *WebhookNotifier) send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Dropped reports how many alerts were lost; exposed for tests and health
// reporting.
func (n *WebhookNotifier) Dropped() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}
