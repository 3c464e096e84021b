package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Closer is the call-log operation the sweeper drives.
type Closer interface {
	CloseStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Sweeper periodically closes call-log rows stuck in progress. A provider
// that never delivers call_ended (crash, network partition) would otherwise
// leave rows open forever and skew reporting.
type Sweeper struct {
	cron    *cron.Cron
	closer  Closer
	maxAge  time.Duration
	timeout time.Duration
}

func New(closer Closer, maxAge time.Duration) *Sweeper {
	if maxAge <= 0 {
		maxAge = 6 * time.Hour
	}
	return &Sweeper{
		cron:    cron.New(),
		closer:  closer,
		maxAge:  maxAge,
		timeout: time.Minute,
	}
}

// Start schedules the sweep and begins the cron loop.
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("stale call sweeper started", "schedule", schedule, "max_age", s.maxAge.String())
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.closer.CloseStale(ctx, s.maxAge)
	if err != nil {
		slog.Error("stale call sweep failed", "err", err, "duration", time.Since(start).String())
		return
	}
	if n > 0 {
		slog.Info("closed stale calls", "count", n, "duration", time.Since(start).String())
	}
}
