package calllog

import "time"

// Entry is the audit trail row for one call. There is exactly one row per
// call id: webhook re-delivery and out-of-order delivery converge onto the
// same row instead of duplicating it.
//
// The entry doubles as the engine's session state between webhook
// deliveries — the engine itself is stateless per invocation.
type Entry struct {
	CallID string `json:"call_id" db:"call_id"`

	// MenuID is the menu the caller is currently on.
	MenuID string `json:"menu_id,omitempty" db:"menu_id"`

	CallerNumber string `json:"caller_number,omitempty" db:"caller_number"`
	DialedNumber string `json:"dialed_number,omitempty" db:"dialed_number"`

	// InvalidAttempts counts consecutive invalid selections. It resets to
	// zero on any valid selection or on entering a new menu.
	InvalidAttempts int `json:"invalid_attempts" db:"invalid_attempts"`

	// Selections is the ordered digit path, comma separated ("1,9,2").
	Selections string `json:"selections,omitempty" db:"selections"`

	Status Status `json:"status" db:"status"`

	TransferredTo   string `json:"transferred_to,omitempty" db:"transferred_to"`
	RecordingRef    string `json:"recording_ref,omitempty" db:"recording_ref"`
	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`

	// LastError tags operational anomalies on the row (e.g.
	// "repository_timeout") without failing the live call.
	LastError string `json:"last_error,omitempty" db:"last_error"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDropped    Status = "dropped"
)

// Closed reports whether the call has reached a terminal status.
func (e Entry) Closed() bool {
	return e.Status == StatusCompleted || e.Status == StatusDropped
}

// Update is a partial change merged into an entry. Nil fields keep the
// stored value, so concurrent or repeated deliveries never clobber data
// they don't carry.
type Update struct {
	MenuID          *string
	CallerNumber    *string
	DialedNumber    *string
	InvalidAttempts *int
	AppendSelection *int
	Status          *Status
	TransferredTo   *string
	RecordingRef    *string
	DurationSeconds *int
	LastError       *string
	EndedAt         *time.Time
}

func String(s string) *string { return &s }
func Int(n int) *int          { return &n }

func StatusOf(s Status) *Status { return &s }
