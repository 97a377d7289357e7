// Package agenda turns raw calendar events into the dashboard's day buckets
// and all-day grid. Everything here is pure: callers pass the clock, the
// display location and the event snapshot explicitly.
package agenda

import (
	"time"

	"dashcal/internal/model"
)

// DefaultDays is the window length used when none is configured.
const DefaultDays = 5

// Window is a run of consecutive calendar dates shown side by side.
type Window struct {
	days []model.Date
}

// NewWindow returns the window of n days that starts yesterday relative to
// now in loc. n <= 0 falls back to DefaultDays.
func NewWindow(now time.Time, loc *time.Location, n int) Window {
	if loc == nil {
		loc = time.UTC
	}
	today := model.DateOf(now.In(loc))
	return WindowFrom(today.AddDays(-1), n)
}

// WindowFrom returns the window of n days beginning at start.
func WindowFrom(start model.Date, n int) Window {
	if n <= 0 {
		n = DefaultDays
	}
	days := make([]model.Date, n)
	for i := range days {
		days[i] = start.AddDays(i)
	}
	return Window{days: days}
}

// Days returns a copy of the window's dates in order.
func (w Window) Days() []model.Date {
	out := make([]model.Date, len(w.days))
	copy(out, w.days)
	return out
}

func (w Window) Len() int { return len(w.days) }

// Start is the first visible date.
func (w Window) Start() model.Date {
	if len(w.days) == 0 {
		return model.Date{}
	}
	return w.days[0]
}

// End is the exclusive upper bound: the day after the last visible date.
func (w Window) End() model.Date {
	if len(w.days) == 0 {
		return model.Date{}
	}
	return w.days[len(w.days)-1].AddDays(1)
}

// Overlaps reports whether the half-open range [start, end) intersects the window.
func (w Window) Overlaps(start, end model.Date) bool {
	if len(w.days) == 0 {
		return false
	}
	return start.Before(w.End()) && end.After(w.Start())
}
