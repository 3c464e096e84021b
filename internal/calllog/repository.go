package calllog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Repository persists call log entries keyed by call id alone.
//
// Upsert must be atomic per call id: concurrent deliveries for the same
// call converge via read-merge-write, and delivering the same event twice
// leaves the row unchanged.
type Repository interface {
	Get(ctx context.Context, callID string) (Entry, error)

	// Upsert merges u into the row for callID, creating it if absent.
	// It returns the merged entry.
	Upsert(ctx context.Context, callID string, u Update, now time.Time) (Entry, error)

	// CloseStale marks in-progress entries not updated since cutoff as
	// dropped and returns how many rows changed.
	CloseStale(ctx context.Context, cutoff time.Time, now time.Time) (int64, error)
}

var ErrNotFound = errors.New("calllog: not found")

// merge applies u to e. Shared by the memory and Postgres repositories so
// both have identical semantics.
func merge(e Entry, u Update, now time.Time) Entry {
	if u.MenuID != nil {
		e.MenuID = *u.MenuID
	}
	if u.CallerNumber != nil {
		e.CallerNumber = *u.CallerNumber
	}
	if u.DialedNumber != nil {
		e.DialedNumber = *u.DialedNumber
	}
	if u.InvalidAttempts != nil {
		e.InvalidAttempts = *u.InvalidAttempts
	}
	if u.AppendSelection != nil {
		if e.Selections == "" {
			e.Selections = fmt.Sprintf("%d", *u.AppendSelection)
		} else {
			e.Selections = fmt.Sprintf("%s,%d", e.Selections, *u.AppendSelection)
		}
	}
	if u.Status != nil {
		e.Status = *u.Status
	}
	if u.TransferredTo != nil {
		e.TransferredTo = *u.TransferredTo
	}
	if u.RecordingRef != nil {
		e.RecordingRef = *u.RecordingRef
	}
	if u.DurationSeconds != nil {
		e.DurationSeconds = *u.DurationSeconds
	}
	if u.LastError != nil {
		e.LastError = *u.LastError
	}
	if u.EndedAt != nil {
		e.EndedAt = u.EndedAt
	}
	e.UpdatedAt = now
	return e
}

func newEntry(callID string, now time.Time) Entry {
	return Entry{
		CallID:    callID,
		Status:    StatusInProgress,
		StartedAt: now,
		UpdatedAt: now,
	}
}
