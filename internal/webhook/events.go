package webhook

import (
	"errors"
	"fmt"
)

// EventKind is the closed set of webhook events the engine accepts. The
// kind is carried in the request body and validated at the boundary; each
// kind has exactly one handler registered in the Handler's lookup table.
type EventKind string

const (
	EventCallStarted    EventKind = "call_started"
	EventOptionSelected EventKind = "option_selected"
	EventCallEnded      EventKind = "call_ended"
)

// envelope is the first-pass decode used only to pick the handler.
type envelope struct {
	Event EventKind `json:"event"`
}

var ErrBadEvent = errors.New("webhook: bad event")

// CallStartedEvent announces a new inbound call.
type CallStartedEvent struct {
	CallID       string `json:"call_id"`
	DialedNumber string `json:"dialed_number"`
	CallerNumber string `json:"caller_number"`
}

func (e CallStartedEvent) Validate() error {
	if e.CallID == "" {
		return fmt.Errorf("%w: call_id required", ErrBadEvent)
	}
	if e.DialedNumber == "" {
		return fmt.Errorf("%w: dialed_number required", ErrBadEvent)
	}
	return nil
}

// OptionSelectedEvent reports one gathered digit.
//
// InvalidAttemptsSoFar is the provider echoing our own counter back. The
// stored log entry is authoritative; the echo is only a fallback when the
// entry is missing, so a buggy or malicious provider cannot reset retries.
type OptionSelectedEvent struct {
	CallID               string `json:"call_id"`
	MenuID               string `json:"menu_id"`
	Digit                string `json:"digit"`
	InvalidAttemptsSoFar int    `json:"invalid_attempts_so_far"`
}

func (e OptionSelectedEvent) Validate() error {
	if e.CallID == "" {
		return fmt.Errorf("%w: call_id required", ErrBadEvent)
	}
	if e.MenuID == "" {
		return fmt.Errorf("%w: menu_id required", ErrBadEvent)
	}
	return nil
}

// CallEndedEvent closes the call.
type CallEndedEvent struct {
	CallID          string `json:"call_id"`
	DurationSeconds int    `json:"duration_seconds"`
	RecordingRef    string `json:"recording_ref"`
	FinalStatus     string `json:"final_status"`
}

func (e CallEndedEvent) Validate() error {
	if e.CallID == "" {
		return fmt.Errorf("%w: call_id required", ErrBadEvent)
	}
	if e.DurationSeconds < 0 {
		return fmt.Errorf("%w: duration_seconds must be >= 0", ErrBadEvent)
	}
	return nil
}

// ParseDigit accepts exactly one character 0-9. Anything else ("a", "10",
// "") is a non-match before any option lookup happens.
func ParseDigit(s string) (int, bool) {
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '0'), true
}
