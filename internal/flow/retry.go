package flow

import "ivr-engine/internal/menu"

// RetryOutcome is the retry policy's decision after one more invalid
// selection.
type RetryOutcome struct {
	// NewCount is the invalid-attempt counter to persist.
	NewCount int
	// Fallback is true when the menu's fallback action must fire instead
	// of a re-prompt.
	Fallback bool
}

// NextAttempt applies the bounded-retry policy. The counter increments by
// exactly one per invalid event; the fallback fires when it reaches the
// menu's limit, never before.
//
// Resetting the counter on a valid selection is the router's job, not the
// policy's: reset is a side effect of a different code path.
func NextAttempt(m menu.Menu, previousInvalid int) RetryOutcome {
	if previousInvalid < 0 {
		previousInvalid = 0
	}
	n := previousInvalid + 1
	return RetryOutcome{NewCount: n, Fallback: n >= m.MaxInvalidAttempts}
}

// FallbackDirective renders the menu's configured fallback action.
func FallbackDirective(m menu.Menu) Directive {
	switch m.Fallback {
	case menu.FallbackTransfer:
		return TransferDirective{
			Directive:       KindTransfer,
			DestinationKind: DestinationExtension,
			Destination:     m.DefaultExtension,
			PreMessage:      m.FallbackMessage,
			WaitForAnswer:   true,
		}
	case menu.FallbackVoicemail:
		return VoicemailDirective{Directive: KindVoicemail, Message: m.FallbackMessage}
	default:
		// Hangup is the safe terminal default for fallback; unlike action
		// dispatch, the fallback set is validated at authoring time.
		return TerminateDirective{Directive: KindHangup, Message: m.FallbackMessage}
	}
}
