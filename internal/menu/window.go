package menu

import (
	"fmt"
	"time"
)

// Window is an availability window: a set of weekdays plus a start/end time
// of day, evaluated against wall-clock time. It is a plain value object,
// independent of how the authoring tool stores it.
//
// Start and End are minutes since midnight. Start == End means the whole
// day; Start > End wraps past midnight (e.g. 22:00-06:00).
type Window struct {
	Days  WeekdaySet  `json:"days"`
	Start MinuteOfDay `json:"start"`
	End   MinuteOfDay `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Days.Has(t.Weekday()) {
		return false
	}
	m := MinuteOfDay(t.Hour()*60 + t.Minute())
	switch {
	case w.Start == w.End:
		return true
	case w.Start < w.End:
		return m >= w.Start && m < w.End
	default:
		// Overnight window: the weekday check applies to the day the
		// window starts on and the early hours of the next day alike.
		return m >= w.Start || m < w.End
	}
}

// MinuteOfDay is minutes since midnight, 0-1439.
type MinuteOfDay int

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// WeekdaySet is a bitmask over time.Weekday (bit 0 = Sunday).
type WeekdaySet uint8

func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// EveryDay covers all seven weekdays.
const EveryDay WeekdaySet = 0x7F

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}
