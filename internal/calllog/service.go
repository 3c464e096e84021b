package calllog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ivr-engine/internal/alert"
)

// Recorder wraps the repository with the engine's logging policy: every
// webhook branch records exactly one upsert, writes are bounded by a
// timeout, and a write failure never strands a live call — it is reported
// to the alert channel instead.
type Recorder struct {
	repo    Repository
	alerts  alert.Notifier
	timeout time.Duration
	clock   func() time.Time
}

func NewRecorder(repo Repository, alerts alert.Notifier, timeout time.Duration) *Recorder {
	if alerts == nil {
		alerts = alert.SlogNotifier{}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Recorder{repo: repo, alerts: alerts, timeout: timeout, clock: time.Now}
}

// WithClock overrides the clock; tests only.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	r.clock = clock
	return r
}

// Get returns the stored entry for callID. ErrNotFound is an expected
// outcome for the first event of a call.
func (r *Recorder) Get(ctx context.Context, callID string) (Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.repo.Get(ctx, callID)
}

// Record merges u into the call's row. The returned error is informational:
// callers log it and keep going, the alert channel carries the failure.
func (r *Recorder) Record(ctx context.Context, callID string, u Update) (Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	e, err := r.repo.Upsert(ctx, callID, u, r.clock().UTC())
	if err != nil {
		slog.Warn("call log write failed", "call_id", callID, "err", err)
		r.alerts.Notify(context.WithoutCancel(ctx), alert.Event{
			Kind:    alert.KindLogWriteFailure,
			CallID:  callID,
			Message: fmt.Sprintf("upsert failed: %v", err),
		})
		return Entry{}, err
	}
	return e, nil
}

// Close finalizes the call's row. Idempotent: a missing row is created,
// and re-delivery overwrites the same terminal fields with the same values.
func (r *Recorder) Close(ctx context.Context, callID string, durationSeconds int, recordingRef string, status Status) (Entry, error) {
	ended := r.clock().UTC()
	u := Update{
		Status:          &status,
		DurationSeconds: &durationSeconds,
		EndedAt:         &ended,
	}
	if recordingRef != "" {
		u.RecordingRef = &recordingRef
	}
	return r.Record(ctx, callID, u)
}

// CloseStale drops in-progress rows older than maxAge. Used by the sweeper.
func (r *Recorder) CloseStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	now := r.clock().UTC()
	n, err := r.repo.CloseStale(ctx, now.Add(-maxAge), now)
	if err != nil {
		r.alerts.Notify(ctx, alert.Event{
			Kind:    alert.KindSweeperFailure,
			Message: fmt.Sprintf("close stale failed: %v", err),
		})
	}
	return n, err
}
