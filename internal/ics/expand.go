package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "dashcal/internal/log"
	"dashcal/internal/metrics"
	"dashcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// RangeStart / RangeEnd bound the occurrences that are produced.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single rule's expansion. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the flat occurrence list and the UIDs whose rules
// hit the cap.
type ExpandResult struct {
	Events          []model.RawEvent
	TruncatedEvents []string
}

// ExpandOccurrences flattens parsed events into one RawEvent per occurrence
// inside the configured range. It handles:
//
//   - Single events (passed through when they touch the range)
//   - RRULE recurrence, with EXDATE removal
//   - RECURRENCE-ID overrides replacing individual instances
//   - All-day rules, whose occurrences stay date-only
//
// Events without a start are passed through untouched so that the caller's
// validation can reject and report them.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Overrides are keyed by UID and consumed by the matching base rule.
	overridesByUID := make(map[string][]ParsedEvent)
	hasBase := make(map[string]bool)
	for _, ev := range events {
		if ev.IsOverride && ev.UID != "" {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else if ev.RawRRule != "" {
			hasBase[ev.UID] = true
		}
	}

	out := make([]model.RawEvent, 0, len(events))
	for _, ev := range events {
		switch {
		case ev.Start == nil:
			out = append(out, toRaw(ev, nil, nil))
		case ev.IsOverride && hasBase[ev.UID]:
			// Emitted together with its base rule below.
		case ev.RawRRule == "":
			if touchesRange(ev, cfg) {
				out = append(out, toRaw(ev, ev.Start, ev.End))
			}
		default:
			overrides := overridesByUID[ev.UID]
			occ, used, hitCap := expandRecurring(ev, overrides, cfg)
			out = append(out, occ...)
			// Instances moved into the range from outside it have no base
			// occurrence to replace.
			for i, o := range overrides {
				if used[i] || o.Start == nil || !touchesRange(o, cfg) || excluded(ev, o) {
					continue
				}
				out = append(out, toRaw(o, o.Start, o.End))
			}
			if hitCap {
				result.TruncatedEvents = append(result.TruncatedEvents, ev.UID)
				metrics.TruncatedRecurrences.WithLabelValues(ev.Source.ID).Inc()
				appLog.Error("expand: truncated occurrences for UID due to cap",
					errors.New("max occurrences reached"),
					"uid", ev.UID,
					"cap", cfg.MaxOccurrencesPerEvent,
				)
			}
		}
	}

	result.Events = out
	return result, nil
}

// expandRecurring returns the occurrences of ev in range and marks which
// overrides replaced one of them.
func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.RawEvent, []bool, bool) {
	out := make([]model.RawEvent, 0)
	used := make([]bool, len(overrides))

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE; using first instance only", err, "uid", ev.UID, "rrule", ev.RawRRule)
		if touchesRange(ev, cfg) {
			out = append(out, toRaw(ev, ev.Start, ev.End))
		}
		return out, used, false
	}

	dtstart := instant(*ev.Start)
	r.DTStart(dtstart)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(instant(ex).In(dtstart.Location()))
	}

	// Widen the lower bound by the event length so that instances which
	// started earlier but are still running are included.
	length := duration(ev)
	rangeStart := cfg.RangeStart.Add(-length).In(dtstart.Location())
	rangeEnd := cfg.RangeEnd.In(dtstart.Location())

	times := set.Between(rangeStart, rangeEnd, true)
	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range times {
		if i, ok := findOverride(overrides, ev.Start.DateOnly, occStart); ok {
			used[i] = true
			o := overrides[i]
			out = append(out, toRaw(o, o.Start, o.End))
			continue
		}

		start, end := shift(ev, occStart)
		out = append(out, toRaw(ev, &start, end))
	}

	return out, used, hitCap
}

// shift moves ev to begin at occStart, preserving its length and kind.
func shift(ev ParsedEvent, occStart time.Time) (model.When, *model.When) {
	if ev.Start.DateOnly {
		startDate := model.DateOf(occStart)
		start := model.OnDate(startDate)
		if ev.End == nil {
			return start, nil
		}
		end := model.OnDate(startDate.AddDays(ev.Start.Date.DaysUntil(endDate(*ev.End, ev.Start.Date))))
		return start, &end
	}

	start := model.At(occStart)
	if ev.End == nil {
		return start, nil
	}
	if ev.End.DateOnly {
		end := *ev.End
		return start, &end
	}
	end := model.At(occStart.Add(ev.End.Instant.Sub(ev.Start.Instant)))
	return start, &end
}

// findOverride returns the index of the override whose RECURRENCE-ID
// matches occStart.
func findOverride(overrides []ParsedEvent, dateOnly bool, occStart time.Time) (int, bool) {
	for i, ov := range overrides {
		if ov.Recurrence == nil || ov.Start == nil {
			continue
		}
		if sameInstance(*ov.Recurrence, occStart, dateOnly) {
			return i, true
		}
	}
	return -1, false
}

// excluded reports whether the instance o overrides is listed in the
// EXDATEs of its rule.
func excluded(rule, o ParsedEvent) bool {
	if o.Recurrence == nil {
		return false
	}
	for _, ex := range rule.ExDates {
		if sameInstance(*o.Recurrence, instant(ex), rule.Start.DateOnly) {
			return true
		}
	}
	return false
}

func sameInstance(rid model.When, occStart time.Time, dateOnly bool) bool {
	if dateOnly {
		return model.DateOf(instant(rid)) == model.DateOf(occStart)
	}
	return instant(rid).Equal(occStart)
}

func touchesRange(ev ParsedEvent, cfg ExpandConfig) bool {
	start := instant(*ev.Start)
	end := start.Add(duration(ev))
	return timeRangesOverlap(start, end, cfg.RangeStart, cfg.RangeEnd)
}

// duration is the event's length, with the defaults the normalizer applies
// to missing ends (one day for all-day, zero for timed).
func duration(ev ParsedEvent) time.Duration {
	if ev.Start == nil {
		return 0
	}
	if ev.Start.DateOnly {
		end := ev.Start.Date.AddDays(1)
		if ev.End != nil {
			if d := endDate(*ev.End, ev.Start.Date); d.After(ev.Start.Date) {
				end = d
			}
		}
		return time.Duration(ev.Start.Date.DaysUntil(end)) * 24 * time.Hour
	}
	if ev.End == nil || ev.End.DateOnly {
		return 0
	}
	if d := ev.End.Instant.Sub(ev.Start.Instant); d > 0 {
		return d
	}
	return 0
}

func endDate(end model.When, fallback model.Date) model.Date {
	if end.DateOnly {
		return end.Date
	}
	if end.Instant.IsZero() {
		return fallback
	}
	return model.DateOf(end.Instant)
}

// instant maps a When onto the time line; dates become midnight UTC.
func instant(w model.When) time.Time {
	if w.DateOnly {
		return w.Date.In(time.UTC)
	}
	return w.Instant
}

func toRaw(ev ParsedEvent, start, end *model.When) model.RawEvent {
	return model.RawEvent{
		CalendarID:  ev.Source.ID,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       start,
		End:         end,
		Color:       ev.Source.Color,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
