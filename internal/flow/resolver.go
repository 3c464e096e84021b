package flow

import (
	"time"

	"ivr-engine/internal/menu"
)

// Resolve finds the option bound to digit among a menu's options. It
// returns the first active, time-available match; ok=false means no match,
// which is the normal re-prompt path, not an error.
//
// Digits outside 0-9 never match; callers should reject those before even
// loading options (see webhook.ParseDigit).
func Resolve(digit int, opts []menu.Option, now time.Time) (menu.Option, bool) {
	if digit < 0 || digit > 9 {
		return menu.Option{}, false
	}
	for _, o := range opts {
		if o.Digit == digit && o.Available(now) {
			return o, true
		}
	}
	return menu.Option{}, false
}
