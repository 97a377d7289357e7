package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashcal/internal/i18n"
	"dashcal/internal/metrics"
	"dashcal/internal/model"
	"dashcal/internal/theme"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func at(w model.When) *model.When { return &w }

func TestBuild_Empty(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, time.June, 5, 12, 0, 0, 0, loc)

	v := NewAssembler(loc, 5, nil, nil).Build(now, nil, true)

	require.Len(t, v.Columns, 5)
	for _, c := range v.Columns {
		assert.NotNil(t, c.Events)
		assert.Empty(t, c.Events)
	}
	assert.Empty(t, v.AllDay)
	assert.Zero(t, v.AllDayRows)
	assert.True(t, v.Stale)
	assert.Equal(t, theme.Dark, v.Theme)
	assert.Equal(t, "No events", v.NoEventsText)
	assert.NotEmpty(t, v.RenderID)
}

func TestBuild_Columns(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, time.June, 5, 12, 0, 0, 0, loc) // Thursday

	raws := []model.RawEvent{
		{Summary: "Later", Start: at(model.At(time.Date(2025, time.June, 5, 15, 0, 0, 0, loc))), Color: "#d50000"},
		{Summary: "Earlier", Start: at(model.At(time.Date(2025, time.June, 5, 9, 0, 0, 0, loc)))},
		{Summary: "Broken"},
		{Summary: "Trip", Start: at(model.OnDate(model.NewDate(2025, time.June, 3))), End: at(model.OnDate(model.NewDate(2025, time.June, 6)))},
		{Summary: "Holiday", Start: at(model.OnDate(model.NewDate(2025, time.June, 5)))},
	}

	v := NewAssembler(loc, 5, i18n.New("en"), theme.NewResolver("light", "", "", loc)).Build(now, raws, false)

	require.Len(t, v.Columns, 5)
	assert.Equal(t, model.NewDate(2025, time.June, 4), v.Columns[0].Date)
	assert.Equal(t, "WEDNESDAY", v.Columns[0].DayName)
	assert.True(t, v.Columns[1].IsToday)
	assert.Equal(t, "TODAY", v.Columns[1].DayName)
	assert.Equal(t, "Jun 5", v.Columns[1].DateLabel)
	assert.Equal(t, "FRIDAY", v.Columns[2].DayName)

	today := v.Columns[1].Events
	require.Len(t, today, 2)
	assert.Equal(t, "Earlier", today[0].Summary)
	assert.Equal(t, "10:00", today[0].EndTime)
	assert.Equal(t, "Later", today[1].Summary)
	assert.Equal(t, "#d50000", today[1].Color)

	require.Len(t, v.AllDay, 2)
	trip := v.AllDay[0]
	assert.Equal(t, "Trip", trip.Summary)
	assert.Equal(t, 1, trip.ColStart)
	assert.Equal(t, 2, trip.ColSpan)
	assert.True(t, trip.ContinuesLeft)
	assert.False(t, trip.ContinuesRight)
	assert.Equal(t, "Jun 3 - Jun 5", trip.DateRange)
	assert.Equal(t, "All Day", trip.TimeLabel)
	assert.Equal(t, 1, trip.Row)

	holiday := v.AllDay[1]
	assert.Equal(t, 2, holiday.ColStart)
	assert.Equal(t, 1, holiday.ColSpan)
	assert.Equal(t, 2, holiday.Row)
	assert.Equal(t, "Jun 5", holiday.DateRange)

	assert.Equal(t, 2, v.AllDayRows)
	assert.Equal(t, theme.Light, v.Theme)
	assert.Equal(t, "Europe/Berlin", v.Timezone)
}

func TestBuild_German(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, time.June, 5, 12, 0, 0, 0, loc)

	v := NewAssembler(loc, 3, i18n.New("de_DE.UTF-8"), nil).Build(now, nil, false)

	require.Len(t, v.Columns, 3)
	assert.Equal(t, "MITTWOCH", v.Columns[0].DayName)
	assert.Equal(t, "HEUTE", v.Columns[1].DayName)
	assert.Equal(t, "Keine Termine", v.NoEventsText)
}

func TestBuild_RecordsMetrics(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, time.June, 5, 12, 0, 0, 0, loc)
	raws := []model.RawEvent{
		{Summary: "A", Start: at(model.OnDate(model.NewDate(2025, time.June, 4))), End: at(model.OnDate(model.NewDate(2025, time.June, 7)))},
		{Summary: "B", Start: at(model.OnDate(model.NewDate(2025, time.June, 5)))},
		{Summary: "C", Start: at(model.OnDate(model.NewDate(2025, time.June, 6)))},
		{Summary: "Broken"},
	}

	staleBefore := testutil.ToFloat64(metrics.StaleRenders)
	rejectedBefore := testutil.ToFloat64(metrics.NormalizedEvents.WithLabelValues(metrics.KindRejected))

	v := NewAssembler(loc, 5, nil, nil).Build(now, raws, true)

	assert.Equal(t, 2, v.AllDayRows)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.AllDayRows))
	assert.Equal(t, staleBefore+1, testutil.ToFloat64(metrics.StaleRenders))
	assert.Equal(t, rejectedBefore+1, testutil.ToFloat64(metrics.NormalizedEvents.WithLabelValues(metrics.KindRejected)))
}

type stubSource struct {
	calls  int
	events []model.RawEvent
	err    error
}

func (s *stubSource) Events(context.Context) ([]model.RawEvent, error) {
	s.calls++
	return s.events, s.err
}

func TestService_CachesAndDegrades(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, time.June, 5, 12, 0, 0, 0, loc)
	clock := func() time.Time { return now }

	src := &stubSource{events: []model.RawEvent{
		{Summary: "Standup", Start: at(model.At(now.Add(time.Hour)))},
	}}
	svc := NewService(src, 15*time.Minute, NewAssembler(loc, 5, nil, nil), clock)

	v := svc.Current(context.Background())
	assert.False(t, v.Stale)
	require.Len(t, v.Columns[1].Events, 1)

	_ = svc.Current(context.Background())
	assert.Equal(t, 1, src.calls)

	src.err = errors.New("caldav down")
	n, stale := svc.Refresh(context.Background())
	assert.True(t, stale)
	assert.Equal(t, 1, n)

	v = svc.Current(context.Background())
	require.Len(t, v.Columns[1].Events, 1)
}

func TestService_UpstreamNeverReachable(t *testing.T) {
	loc := berlin(t)
	src := &stubSource{err: errors.New("unreachable")}
	svc := NewService(src, time.Minute, NewAssembler(loc, 5, nil, nil), nil)

	v := svc.Current(context.Background())

	assert.True(t, v.Stale)
	require.Len(t, v.Columns, 5)
	assert.Empty(t, v.AllDay)
}
