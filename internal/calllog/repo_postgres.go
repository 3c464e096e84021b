package calllog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ivr-engine/pkg/utils"
)

// PostgresRepo persists entries in the call_log table (see migrations/).
//
// Upsert runs read-merge-write inside a transaction with the row locked,
// so partial updates never clobber fields written by an earlier delivery.
// call_id is the primary key: at most one row per call, no matter how many
// webhook deliveries reference it.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const entryColumns = `
call_id, menu_id, caller_number, dialed_number,
invalid_attempts, selections, status,
transferred_to, recording_ref, duration_seconds, last_error,
started_at, updated_at, ended_at
`

func (r *PostgresRepo) Get(ctx context.Context, callID string) (Entry, error) {
	const q = `
SELECT ` + entryColumns + `
FROM call_log
WHERE call_id = $1
`
	return scanEntry(r.db.QueryRowContext(ctx, q, callID))
}

func (r *PostgresRepo) Upsert(ctx context.Context, callID string, u Update, now time.Time) (Entry, error) {
	var out Entry
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const sel = `
SELECT ` + entryColumns + `
FROM call_log
WHERE call_id = $1
FOR UPDATE
`
		e, err := scanEntry(tx.QueryRowContext(ctx, sel, callID))
		switch {
		case errors.Is(err, ErrNotFound):
			e = newEntry(callID, now)
			e = merge(e, u, now)
			const ins = `
INSERT INTO call_log (` + entryColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (call_id) DO NOTHING
`
			res, err := tx.ExecContext(ctx, ins,
				e.CallID, nullStr(e.MenuID), nullStr(e.CallerNumber), nullStr(e.DialedNumber),
				e.InvalidAttempts, nullStr(e.Selections), e.Status,
				nullStr(e.TransferredTo), nullStr(e.RecordingRef), e.DurationSeconds, nullStr(e.LastError),
				e.StartedAt, e.UpdatedAt, e.EndedAt,
			)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				// Lost an insert race; retry as a plain update.
				e2, err := scanEntry(tx.QueryRowContext(ctx, sel, callID))
				if err != nil {
					return err
				}
				e = merge(e2, u, now)
				return updateEntry(ctx, tx, e, &out)
			}
			out = e
			return nil
		case err != nil:
			return err
		}

		e = merge(e, u, now)
		return updateEntry(ctx, tx, e, &out)
	})
	if err != nil {
		return Entry{}, err
	}
	return out, nil
}

func updateEntry(ctx context.Context, tx *sql.Tx, e Entry, out *Entry) error {
	const q = `
UPDATE call_log
SET menu_id = $2, caller_number = $3, dialed_number = $4,
    invalid_attempts = $5, selections = $6, status = $7,
    transferred_to = $8, recording_ref = $9, duration_seconds = $10,
    last_error = $11, updated_at = $12, ended_at = $13
WHERE call_id = $1
`
	_, err := tx.ExecContext(ctx, q,
		e.CallID, nullStr(e.MenuID), nullStr(e.CallerNumber), nullStr(e.DialedNumber),
		e.InvalidAttempts, nullStr(e.Selections), e.Status,
		nullStr(e.TransferredTo), nullStr(e.RecordingRef), e.DurationSeconds,
		nullStr(e.LastError), e.UpdatedAt, e.EndedAt,
	)
	if err != nil {
		return err
	}
	*out = e
	return nil
}

func (r *PostgresRepo) CloseStale(ctx context.Context, cutoff time.Time, now time.Time) (int64, error) {
	const q = `
UPDATE call_log
SET status = $1, updated_at = $2, ended_at = $2
WHERE status = $3 AND updated_at < $4
`
	res, err := r.db.ExecContext(ctx, q, StatusDropped, now, StatusInProgress, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanEntry(row *sql.Row) (Entry, error) {
	var (
		e                       Entry
		menuID, caller, dialed  sql.NullString
		selections, transferred sql.NullString
		recordingRef, lastError sql.NullString
		endedAt                 sql.NullTime
	)
	err := row.Scan(
		&e.CallID, &menuID, &caller, &dialed,
		&e.InvalidAttempts, &selections, &e.Status,
		&transferred, &recordingRef, &e.DurationSeconds, &lastError,
		&e.StartedAt, &e.UpdatedAt, &endedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	e.MenuID = menuID.String
	e.CallerNumber = caller.String
	e.DialedNumber = dialed.String
	e.Selections = selections.String
	e.TransferredTo = transferred.String
	e.RecordingRef = recordingRef.String
	e.LastError = lastError.String
	if endedAt.Valid {
		t := endedAt.Time
		e.EndedAt = &t
	}
	return e, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
