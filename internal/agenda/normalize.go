package agenda

import (
	"errors"
	"fmt"
	"time"

	appLog "dashcal/internal/log"
	"dashcal/internal/model"
)

const (
	clockLayout = "15:04"
	// defaultTimedDuration applies to timed events without an end.
	defaultTimedDuration = time.Hour
)

var (
	// ErrMalformedEvent wraps every per-event validation failure.
	ErrMalformedEvent = errors.New("malformed event")
	ErrMissingStart   = errors.New("missing start")
)

// Normalized holds the canonical form of one raw event. Exactly one of
// Timed / AllDay is meaningful, selected by IsAllDay.
type Normalized struct {
	IsAllDay bool
	Timed    model.TimedEvent
	AllDay   model.AllDayEvent
}

// Snapshot is the result of normalizing a whole fetch.
type Snapshot struct {
	Timed    []model.TimedEvent
	AllDay   []model.AllDayEvent
	Rejected int
}

// Normalizer resolves raw events into the display timezone.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer returns a Normalizer for the given display location (UTC if nil).
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize classifies raw as timed or all-day and produces its canonical form.
func (n *Normalizer) Normalize(raw model.RawEvent) (Normalized, error) {
	if raw.Start == nil {
		return Normalized{}, fmt.Errorf("%w: %w", ErrMalformedEvent, ErrMissingStart)
	}
	if raw.Start.DateOnly {
		return Normalized{IsAllDay: true, AllDay: n.allDay(raw)}, nil
	}
	return Normalized{Timed: n.timed(raw)}, nil
}

// NormalizeAll normalizes every event, skipping (and logging) malformed
// ones. Input order is preserved within each output slice.
func (n *Normalizer) NormalizeAll(raws []model.RawEvent) Snapshot {
	snap := Snapshot{
		Timed:  make([]model.TimedEvent, 0, len(raws)),
		AllDay: make([]model.AllDayEvent, 0),
	}
	for _, raw := range raws {
		ev, err := n.Normalize(raw)
		if err != nil {
			snap.Rejected++
			appLog.Error("normalize: skipping event", err,
				"calendar", raw.CalendarID,
				"uid", raw.UID,
				"summary", raw.Summary,
			)
			continue
		}
		if ev.IsAllDay {
			snap.AllDay = append(snap.AllDay, ev.AllDay)
		} else {
			snap.Timed = append(snap.Timed, ev.Timed)
		}
	}
	return snap
}

func (n *Normalizer) timed(raw model.RawEvent) model.TimedEvent {
	start := raw.Start.Instant.In(n.loc)

	var endStr string
	switch {
	case raw.End == nil:
		endStr = start.Add(defaultTimedDuration).Format(clockLayout)
	case raw.End.DateOnly:
		// A bare date cannot be placed on the clock.
		endStr = ""
	default:
		endStr = raw.End.Instant.In(n.loc).Format(clockLayout)
	}

	return model.TimedEvent{
		CalendarID:  raw.CalendarID,
		Summary:     raw.Summary,
		Description: raw.Description,
		Location:    raw.Location,
		Day:         model.DateOf(start),
		StartTime:   start.Format(clockLayout),
		EndTime:     endStr,
		SortKey:     start,
		Color:       raw.Color,
	}
}

func (n *Normalizer) allDay(raw model.RawEvent) model.AllDayEvent {
	start := raw.Start.Date
	end := start.AddDays(1)
	if raw.End != nil {
		candidate := raw.End.Date
		if !raw.End.DateOnly {
			candidate = model.DateOf(raw.End.Instant.In(n.loc))
		}
		// Zero-length (and inverted) ranges collapse to a single day.
		if candidate.After(start) {
			end = candidate
		}
	}

	return model.AllDayEvent{
		CalendarID:  raw.CalendarID,
		Summary:     raw.Summary,
		Description: raw.Description,
		Location:    raw.Location,
		Start:       start,
		End:         end,
		Color:       raw.Color,
	}
}
