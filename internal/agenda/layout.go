package agenda

import (
	"slices"

	"dashcal/internal/model"
)

// DateFormatter renders a date for the all-day range label ("Jun 9").
type DateFormatter interface {
	MonthDay(d model.Date) string
}

type isoFormatter struct{}

func (isoFormatter) MonthDay(d model.Date) string { return d.String() }

// Layout is the all-day grid for one window.
type Layout struct {
	Placements []model.Placement
	// Rows is the number of lanes used.
	Rows int
}

// VisibleAllDay keeps the events whose [Start, End) overlaps the window.
// Input order is preserved.
func VisibleAllDay(events []model.AllDayEvent, w Window) []model.AllDayEvent {
	out := make([]model.AllDayEvent, 0, len(events))
	for _, ev := range events {
		if w.Overlaps(ev.Start, ev.End) {
			out = append(out, ev)
		}
	}
	return out
}

// SortAllDay orders events by start date, longest first on equal starts.
// The sort is stable so identical events keep their input order.
func SortAllDay(events []model.AllDayEvent) {
	slices.SortStableFunc(events, func(a, b model.AllDayEvent) int {
		if c := a.Start.DaysUntil(b.Start); c != 0 {
			if c > 0 {
				return -1
			}
			return 1
		}
		return b.Start.DaysUntil(b.End) - a.Start.DaysUntil(a.End)
	})
}

// LayoutAllDay filters events to the window and packs them into the fewest
// rows such that no two events in a row overlap. f may be nil, in which
// case labels use ISO dates.
func LayoutAllDay(events []model.AllDayEvent, w Window, f DateFormatter) Layout {
	if f == nil {
		f = isoFormatter{}
	}

	visible := VisibleAllDay(events, w)
	SortAllDay(visible)

	rows, rowCount := assignRows(visible)

	placements := make([]model.Placement, 0, len(visible))
	for i, ev := range visible {
		p := place(ev, w)
		p.Row = rows[i] + 1
		p.DateRange = DateRangeLabel(ev.Start, ev.End, f)
		placements = append(placements, p)
	}

	return Layout{Placements: placements, Rows: rowCount}
}

// assignRows gives every event (already sorted by SortAllDay) the first row
// whose last event ends on or before the event's start, opening a new row
// when none fits. For interval sets sorted by start this is optimal.
func assignRows(sorted []model.AllDayEvent) ([]int, int) {
	assigned := make([]int, len(sorted))
	rowEnds := make([]model.Date, 0)

	for i, ev := range sorted {
		row := -1
		for r, end := range rowEnds {
			if !ev.Start.Before(end) {
				row = r
				break
			}
		}
		if row == -1 {
			rowEnds = append(rowEnds, ev.End)
			row = len(rowEnds) - 1
		} else {
			rowEnds[row] = ev.End
		}
		assigned[i] = row
	}

	return assigned, len(rowEnds)
}

// place computes the grid columns and continuation flags of ev in w.
func place(ev model.AllDayEvent, w Window) model.Placement {
	p := model.Placement{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Color:       ev.Color,
	}

	viewStart, viewEnd := w.Start(), w.End()

	if ev.Start.Before(viewStart) {
		p.ColStart = 1
		p.ContinuesLeft = true
	} else {
		p.ColStart = viewStart.DaysUntil(ev.Start) + 1
	}

	colEnd := viewStart.DaysUntil(ev.End) + 1
	if ev.End.After(viewEnd) {
		colEnd = w.Len() + 1
		p.ContinuesRight = true
	}

	p.ColSpan = colEnd - p.ColStart
	return p
}

// DateRangeLabel formats [start, end) as an inclusive range, collapsing
// single-day events to one date.
func DateRangeLabel(start, end model.Date, f DateFormatter) string {
	if f == nil {
		f = isoFormatter{}
	}
	last := end.AddDays(-1)
	if last == start {
		return f.MonthDay(start)
	}
	return f.MonthDay(start) + " - " + f.MonthDay(last)
}
