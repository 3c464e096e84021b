package calllog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ivr-engine/internal/alert"
)

var t0 = time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

func newTestRecorder() (*Recorder, *MemoryRepo) {
	repo := NewMemoryRepo()
	rec := NewRecorder(repo, alert.SlogNotifier{}, time.Second).WithClock(func() time.Time { return t0 })
	return rec, repo
}

func TestRecord_CreatesAndMerges(t *testing.T) {
	rec, _ := newTestRecorder()
	ctx := context.Background()

	e, err := rec.Record(ctx, "CA1", Update{
		MenuID:       String("main"),
		CallerNumber: String("+15550001111"),
		DialedNumber: String("+15559990000"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if e.Status != StatusInProgress || e.InvalidAttempts != 0 {
		t.Fatalf("unexpected new entry: %+v", e)
	}

	e, err = rec.Record(ctx, "CA1", Update{InvalidAttempts: Int(2)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if e.InvalidAttempts != 2 {
		t.Fatalf("expected counter merged, got %+v", e)
	}
	if e.MenuID != "main" || e.CallerNumber != "+15550001111" {
		t.Fatalf("partial update must not clobber other fields: %+v", e)
	}
}

func TestRecord_IdempotentReDelivery(t *testing.T) {
	rec, repo := newTestRecorder()
	ctx := context.Background()

	u := Update{MenuID: String("main"), InvalidAttempts: Int(0)}
	first, err := rec.Record(ctx, "CA1", u)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := rec.Record(ctx, "CA1", u)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected one row per call id, got %d", repo.Len())
	}
	if first != second {
		t.Fatalf("re-delivery must converge: %+v vs %+v", first, second)
	}
}

func TestRecord_AppendsSelections(t *testing.T) {
	rec, _ := newTestRecorder()
	ctx := context.Background()

	rec.Record(ctx, "CA1", Update{AppendSelection: Int(1)})
	rec.Record(ctx, "CA1", Update{AppendSelection: Int(9)})
	e, _ := rec.Record(ctx, "CA1", Update{AppendSelection: Int(2)})
	if e.Selections != "1,9,2" {
		t.Fatalf("expected ordered selection path, got %q", e.Selections)
	}
}

func TestClose_CreatesMissingEntry(t *testing.T) {
	rec, _ := newTestRecorder()

	e, err := rec.Close(context.Background(), "CA-lost", 42, "rec.wav", StatusCompleted)
	if err != nil {
		t.Fatalf("expected close to create the row, got %v", err)
	}
	if e.Status != StatusCompleted || e.DurationSeconds != 42 || e.RecordingRef != "rec.wav" {
		t.Fatalf("unexpected closed entry: %+v", e)
	}
	if e.EndedAt == nil || !e.EndedAt.Equal(t0) {
		t.Fatalf("expected ended_at set, got %+v", e.EndedAt)
	}
	if !e.Closed() {
		t.Fatalf("expected entry closed")
	}
}

func TestClose_ReDeliveryIsNoOp(t *testing.T) {
	rec, _ := newTestRecorder()
	ctx := context.Background()

	first, _ := rec.Close(ctx, "CA1", 30, "", StatusCompleted)
	second, _ := rec.Close(ctx, "CA1", 30, "", StatusCompleted)
	if first.Status != second.Status || first.DurationSeconds != second.DurationSeconds ||
		!first.EndedAt.Equal(*second.EndedAt) {
		t.Fatalf("closing twice must converge: %+v vs %+v", first, second)
	}
}

type failingRepo struct{ MemoryRepo }

func (f *failingRepo) Upsert(ctx context.Context, callID string, u Update, now time.Time) (Entry, error) {
	return Entry{}, errors.New("disk on fire")
}

type captureNotifier struct {
	mu     sync.Mutex
	events []alert.Event
}

func (c *captureNotifier) Notify(_ context.Context, ev alert.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func TestRecord_WriteFailureRaisesAlert(t *testing.T) {
	notifier := &captureNotifier{}
	rec := NewRecorder(&failingRepo{}, notifier, time.Second)

	_, err := rec.Record(context.Background(), "CA1", Update{MenuID: String("main")})
	if err == nil {
		t.Fatalf("expected error surfaced to caller for logging")
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.events) != 1 || notifier.events[0].Kind != alert.KindLogWriteFailure {
		t.Fatalf("expected one log_write_failure alert, got %+v", notifier.events)
	}
	if notifier.events[0].CallID != "CA1" {
		t.Fatalf("alert must carry the call id: %+v", notifier.events[0])
	}
}

func TestCloseStale(t *testing.T) {
	repo := NewMemoryRepo()
	now := t0
	rec := NewRecorder(repo, alert.SlogNotifier{}, time.Second).WithClock(func() time.Time { return now })
	ctx := context.Background()

	rec.Record(ctx, "old", Update{MenuID: String("main")})
	now = t0.Add(5 * time.Hour)
	rec.Record(ctx, "fresh", Update{MenuID: String("main")})

	n, err := rec.CloseStale(ctx, 4*time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stale row closed, got %d", n)
	}
	old, _ := rec.Get(ctx, "old")
	if old.Status != StatusDropped {
		t.Fatalf("expected stale call dropped, got %+v", old)
	}
	fresh, _ := rec.Get(ctx, "fresh")
	if fresh.Status != StatusInProgress {
		t.Fatalf("fresh call must stay open, got %+v", fresh)
	}
}
