package ics

import (
	"context"
	"errors"
	"time"

	appLog "dashcal/internal/log"
	"dashcal/internal/metrics"
	"dashcal/internal/model"
)

// ErrAllSourcesFailed is returned when no configured calendar produced data.
var ErrAllSourcesFailed = errors.New("all calendar sources failed")

// Provider is the fetch side of the dashboard: it turns the configured
// subscriptions into one flat, recurrence-expanded list of raw events.
type Provider struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location
	days    int
	now     func() time.Time
}

// NewProvider builds a Provider fetching days days ahead in loc. now
// defaults to time.Now.
func NewProvider(fetcher *Fetcher, sources []Source, loc *time.Location, days int, now func() time.Time) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Provider{fetcher: fetcher, sources: sources, loc: loc, days: days, now: now}
}

// Range returns the fetch window for now: from the start of yesterday in
// the display zone up to now plus the configured number of days.
func (p *Provider) Range(now time.Time) (time.Time, time.Time) {
	local := now.In(p.loc)
	y, m, d := local.Date()
	start := time.Date(y, m, d-1, 0, 0, 0, 0, p.loc)
	return start, local.AddDate(0, 0, p.days)
}

// Events fetches, parses and expands all sources. Individual source
// failures are logged and skipped; an error is returned only when there
// were sources and none of them produced events.
func (p *Provider) Events(ctx context.Context) ([]model.RawEvent, error) {
	if len(p.sources) == 0 {
		appLog.Warn("no calendars configured; returning empty event list")
		return []model.RawEvent{}, nil
	}

	rangeStart, rangeEnd := p.Range(p.now())

	results, fetchErrs := p.fetcher.FetchAll(ctx, p.sources)
	if len(results) == 0 {
		return nil, errors.Join(append([]error{ErrAllSourcesFailed}, fetchErrs...)...)
	}

	parsed := make([]ParsedEvent, 0)
	parseFailures := 0
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			parseFailures++
			continue
		}
		parsed = append(parsed, events...)
	}
	if parseFailures == len(results) {
		return nil, ErrAllSourcesFailed
	}

	expanded, err := ExpandOccurrences(parsed, ExpandConfig{
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
	})
	if err != nil {
		return nil, err
	}

	metrics.RawEvents.Set(float64(len(expanded.Events)))
	if len(expanded.TruncatedEvents) > 0 {
		appLog.Warn("recurring events truncated at occurrence cap", "uids", expanded.TruncatedEvents)
	}
	appLog.Info("calendar events fetched",
		"sources", len(p.sources),
		"failed_sources", len(fetchErrs)+parseFailures,
		"events", len(expanded.Events),
		"truncated_rules", len(expanded.TruncatedEvents),
		"range_start", rangeStart.Format(time.RFC3339),
		"range_end", rangeEnd.Format(time.RFC3339),
	)

	return expanded.Events, nil
}
