package ics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashcal/internal/metrics"
	"dashcal/internal/model"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func TestExpandOccurrences(t *testing.T) {
	loc := berlin(t)
	parsed, err := ParseICS(Source{ID: "work", Color: "#d50000"}, loadSample(t))
	require.NoError(t, err)

	res, err := ExpandOccurrences(parsed, ExpandConfig{
		RangeStart: time.Date(2025, time.June, 4, 0, 0, 0, 0, loc),
		RangeEnd:   time.Date(2025, time.June, 9, 0, 0, 0, 0, loc),
	})
	require.NoError(t, err)
	assert.Empty(t, res.TruncatedEvents)

	counts := map[string]int{}
	var gymStarts []time.Time
	var moved *model.RawEvent
	for i, ev := range res.Events {
		counts[ev.UID]++
		assert.Equal(t, "work", ev.CalendarID)
		assert.Equal(t, "#d50000", ev.Color)
		if ev.UID == "gym" {
			require.NotNil(t, ev.Start)
			gymStarts = append(gymStarts, ev.Start.Instant)
			if ev.Summary == "Gym (moved)" {
				moved = &res.Events[i]
			}
		}
	}

	assert.Equal(t, map[string]int{
		"standup":  1,
		"trip":     1,
		"lunch":    1,
		"floating": 1,
		"broken":   1,
		"gym":      4,
	}, counts)

	require.Len(t, gymStarts, 4)
	assert.Equal(t, 4, gymStarts[0].In(loc).Day())
	assert.Equal(t, 5, gymStarts[1].In(loc).Day())
	assert.Equal(t, 7, gymStarts[2].In(loc).Day())
	assert.Equal(t, 8, gymStarts[3].In(loc).Day())

	require.NotNil(t, moved)
	assert.Equal(t, 10, moved.Start.Instant.In(loc).Hour())

	for _, ev := range res.Events {
		if ev.UID == "gym" && ev.Summary == "Gym" {
			require.NotNil(t, ev.End)
			assert.Equal(t, 30*time.Minute, ev.End.Instant.Sub(ev.Start.Instant))
			assert.Equal(t, 8, ev.Start.Instant.In(loc).Hour())
		}
	}
}

func weeklyWithOverride(movedTo time.Time) (ParsedEvent, ParsedEvent) {
	start := model.At(time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC))
	end := model.At(time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))
	base := ParsedEvent{
		Source:   Source{ID: "work"},
		UID:      "weekly",
		Summary:  "Weekly",
		Start:    &start,
		End:      &end,
		RawRRule: "FREQ=WEEKLY;COUNT=4",
	}

	rid := start
	oStart := model.At(movedTo)
	oEnd := model.At(movedTo.Add(time.Hour))
	override := ParsedEvent{
		Source:     Source{ID: "work"},
		UID:        "weekly",
		Summary:    "Weekly (moved)",
		Start:      &oStart,
		End:        &oEnd,
		Recurrence: &rid,
		IsOverride: true,
	}
	return base, override
}

func TestExpandOccurrences_OverrideMovedIntoRange(t *testing.T) {
	movedTo := time.Date(2025, time.June, 11, 9, 0, 0, 0, time.UTC)
	base, override := weeklyWithOverride(movedTo)

	res, err := ExpandOccurrences([]ParsedEvent{base, override}, ExpandConfig{
		RangeStart: time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, time.June, 13, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	got := res.Events[0]
	assert.Equal(t, "Weekly (moved)", got.Summary)
	assert.True(t, movedTo.Equal(got.Start.Instant))
	assert.Equal(t, "work", got.CalendarID)
}

func TestExpandOccurrences_OverrideOfExcludedInstance(t *testing.T) {
	base, override := weeklyWithOverride(time.Date(2025, time.June, 11, 9, 0, 0, 0, time.UTC))
	base.ExDates = []model.When{*override.Recurrence}

	res, err := ExpandOccurrences([]ParsedEvent{base, override}, ExpandConfig{
		RangeStart: time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, time.June, 13, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
}

func TestExpandOccurrences_OverrideNotDuplicated(t *testing.T) {
	// Base instance and its replacement both fall inside the range.
	base, override := weeklyWithOverride(time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC))

	res, err := ExpandOccurrences([]ParsedEvent{base, override}, ExpandConfig{
		RangeStart: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	assert.Equal(t, "Weekly (moved)", res.Events[0].Summary)
	assert.Equal(t, 3, res.Events[0].Start.Instant.Day())
}

func TestExpandOccurrences_AllDayRule(t *testing.T) {
	start := model.OnDate(model.NewDate(2025, time.May, 30))
	end := model.OnDate(model.NewDate(2025, time.June, 1))
	ev := ParsedEvent{
		Source:   Source{ID: "home"},
		UID:      "weekly",
		Summary:  "Weekend",
		Start:    &start,
		End:      &end,
		RawRRule: "FREQ=WEEKLY;COUNT=3",
	}

	res, err := ExpandOccurrences([]ParsedEvent{ev}, ExpandConfig{
		RangeStart: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// The May 30 instance ends exactly at the range start and is kept;
	// visibility against the day window is decided later.
	require.Len(t, res.Events, 2)
	assert.Equal(t, model.NewDate(2025, time.May, 30), res.Events[0].Start.Date)
	got := res.Events[1]
	require.NotNil(t, got.Start)
	require.NotNil(t, got.End)
	assert.True(t, got.Start.DateOnly)
	assert.Equal(t, model.NewDate(2025, time.June, 6), got.Start.Date)
	assert.Equal(t, model.NewDate(2025, time.June, 8), got.End.Date)
}

func TestExpandOccurrences_Cap(t *testing.T) {
	start := model.At(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	ev := ParsedEvent{Source: Source{ID: "busy"}, UID: "hourly", Start: &start, RawRRule: "FREQ=HOURLY"}
	before := testutil.ToFloat64(metrics.TruncatedRecurrences.WithLabelValues("busy"))

	res, err := ExpandOccurrences([]ParsedEvent{ev}, ExpandConfig{
		RangeStart:             time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 10,
	})
	require.NoError(t, err)
	assert.Len(t, res.Events, 10)
	assert.Equal(t, []string{"hourly"}, res.TruncatedEvents)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TruncatedRecurrences.WithLabelValues("busy")))
}

func TestExpandOccurrences_BadRuleKeepsFirstInstance(t *testing.T) {
	start := model.At(time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC))
	ev := ParsedEvent{UID: "bad", Start: &start, RawRRule: "FREQ=SOMETIMES"}

	res, err := ExpandOccurrences([]ParsedEvent{ev}, ExpandConfig{
		RangeStart: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)
}

func TestExpandOccurrences_InvalidRange(t *testing.T) {
	_, err := ExpandOccurrences(nil, ExpandConfig{
		RangeStart: time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}
