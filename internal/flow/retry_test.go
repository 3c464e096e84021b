package flow

import (
	"testing"

	"ivr-engine/internal/menu"
)

func TestNextAttempt_IncrementsByOne(t *testing.T) {
	m := mainMenu() // MaxInvalidAttempts = 3

	out := NextAttempt(m, 0)
	if out.NewCount != 1 || out.Fallback {
		t.Fatalf("first invalid: got %+v", out)
	}
	out = NextAttempt(m, 1)
	if out.NewCount != 2 || out.Fallback {
		t.Fatalf("second invalid: got %+v", out)
	}
}

func TestNextAttempt_FallbackExactlyAtLimit(t *testing.T) {
	m := mainMenu()

	out := NextAttempt(m, 2)
	if out.NewCount != 3 || !out.Fallback {
		t.Fatalf("third invalid must trigger fallback: got %+v", out)
	}
}

func TestNextAttempt_SingleAttemptMenu(t *testing.T) {
	m := mainMenu()
	m.MaxInvalidAttempts = 1

	out := NextAttempt(m, 0)
	if !out.Fallback {
		t.Fatalf("max=1 must fall back on the first invalid selection")
	}
}

func TestNextAttempt_NegativeCounterClamped(t *testing.T) {
	// A buggy or malicious provider echoing a negative counter must not
	// buy itself extra attempts.
	out := NextAttempt(mainMenu(), -5)
	if out.NewCount != 1 {
		t.Fatalf("expected clamp to 0 before increment, got %d", out.NewCount)
	}
}

func TestFallbackDirective_PerAction(t *testing.T) {
	m := mainMenu()
	m.Fallback = menu.FallbackHangup
	if d, ok := FallbackDirective(m).(TerminateDirective); !ok || d.Message != "Goodbye." {
		t.Fatalf("expected hangup fallback with message, got %#v", FallbackDirective(m))
	}

	m.Fallback = menu.FallbackTransfer
	m.DefaultExtension = "0"
	d, ok := FallbackDirective(m).(TransferDirective)
	if !ok || d.Destination != "0" || d.DestinationKind != DestinationExtension || !d.WaitForAnswer {
		t.Fatalf("unexpected transfer fallback: %#v", d)
	}

	m.Fallback = menu.FallbackVoicemail
	if _, ok := FallbackDirective(m).(VoicemailDirective); !ok {
		t.Fatalf("expected voicemail fallback")
	}
}
