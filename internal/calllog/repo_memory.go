package calllog

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: make(map[string]Entry)}
}

func (r *MemoryRepo) Get(ctx context.Context, callID string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, callID string, u Update, now time.Time) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok {
		e = newEntry(callID, now)
	}
	e = merge(e, u, now)
	r.entries[callID] = e
	return e, nil
}

func (r *MemoryRepo) CloseStale(ctx context.Context, cutoff time.Time, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.entries {
		if e.Status == StatusInProgress && e.UpdatedAt.Before(cutoff) {
			e.Status = StatusDropped
			e.UpdatedAt = now
			ended := now
			e.EndedAt = &ended
			r.entries[id] = e
			n++
		}
	}
	return n, nil
}

// Len reports how many entries exist; test helper.
func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
