// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dashcal"

// Fetch results.
const (
	ResultFresh  = "fresh"
	ResultCached = "cached"
	ResultError  = "error"
)

// Event kinds.
const (
	KindTimed    = "timed"
	KindAllDay   = "all_day"
	KindRejected = "rejected"
)

var (
	// ICSFetches counts ICS fetch outcomes per calendar.
	ICSFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ics_fetch_total",
		Help:      "ICS fetches by calendar and result (fresh, cached, error).",
	}, []string{"calendar", "result"})

	// RawEvents is the number of raw events in the last fetch snapshot.
	RawEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "raw_events",
		Help:      "Raw events produced by the last successful fetch.",
	})

	// NormalizedEvents counts normalized events by kind.
	NormalizedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_normalized_total",
		Help:      "Normalized events by kind (timed, all_day, rejected).",
	}, []string{"kind"})

	// StaleRenders counts renders that used stale or empty fallback data.
	StaleRenders = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_renders_total",
		Help:      "Renders served from stale or empty data after a failed fetch.",
	})

	// RenderDuration observes view assembly latency.
	RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "render_duration_seconds",
		Help:      "Time spent assembling the dashboard view.",
		Buckets:   prometheus.DefBuckets,
	})

	// AllDayRows is the number of all-day lanes in the last render.
	AllDayRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "all_day_rows",
		Help:      "All-day rows used by the last render.",
	})

	// TruncatedRecurrences counts recurrence rules cut off at the
	// per-event occurrence cap.
	TruncatedRecurrences = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recurrence_truncated_total",
		Help:      "Recurring events whose expansion hit the occurrence cap, by calendar.",
	}, []string{"calendar"})
)
