package flow

import (
	"sort"
	"time"

	"ivr-engine/internal/menu"
)

// Render builds the "present menu" directive for a menu. Inactive options
// and options outside their availability window at now are excluded; the
// rest keep their authored order (position, then digit).
//
// Pure: deterministic for a given (menu, options, now), no side effects.
func Render(m menu.Menu, opts []menu.Option, now time.Time) PresentMenuDirective {
	available := make([]menu.Option, 0, len(opts))
	for _, o := range opts {
		if o.Available(now) {
			available = append(available, o)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		if available[i].Position != available[j].Position {
			return available[i].Position < available[j].Position
		}
		return available[i].Digit < available[j].Digit
	})

	rendered := make([]MenuOption, 0, len(available))
	for _, o := range available {
		rendered = append(rendered, MenuOption{Digit: o.Digit, Title: o.Title, Action: o.Action})
	}

	return PresentMenuDirective{
		Directive:      KindPresentMenu,
		MenuID:         m.ID,
		Welcome:        promptFor(m),
		TimeoutSeconds: m.TimeoutSeconds,
		Options:        rendered,
	}
}

func promptFor(m menu.Menu) Prompt {
	p := Prompt{Kind: m.WelcomeKind, Voice: m.VoiceID}
	if m.WelcomeKind == menu.MessageKindAudio {
		p.AudioRef = m.WelcomeMessage
	} else {
		p.Text = m.WelcomeMessage
	}
	return p
}
