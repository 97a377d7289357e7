package model

import "time"

// When is a resolved start or end value of a raw event: either a calendar
// date (all-day semantics) or a zone-aware instant.
//
// Floating (zone-less) source values are never represented here: they are
// pinned to UTC once, at ingestion, via Floating.
type When struct {
	// DateOnly reports whether the value carries no time-of-day.
	DateOnly bool
	// Date is set when DateOnly is true.
	Date Date
	// Instant is set when DateOnly is false. Its Location is meaningful.
	Instant time.Time
}

// OnDate builds a date-only When.
func OnDate(d Date) When {
	return When{DateOnly: true, Date: d}
}

// At builds a When from a zone-aware instant.
func At(t time.Time) When {
	return When{Instant: t}
}

// Floating builds a When from a wall-clock value that had no zone
// information in the source; the wall clock is interpreted as UTC.
func Floating(wall time.Time) When {
	y, mo, d := wall.Date()
	h, mi, s := wall.Clock()
	return When{Instant: time.Date(y, mo, d, h, mi, s, wall.Nanosecond(), time.UTC)}
}

// RawEvent is one provider-agnostic source record, already expanded (one
// record per occurrence) and with optional text fields resolved to "".
type RawEvent struct {
	// CalendarID identifies the source calendar (config calendar ID).
	CalendarID string
	// UID is the source identifier of the event, if any.
	UID string

	Summary     string
	Description string
	Location    string

	// Start is nil when the source record had no usable start; such
	// records are rejected by the normalizer.
	Start *When
	// End is nil when the source record had no end.
	End *When

	// Color is the display color of the source calendar.
	Color string
}

// TimedEvent is the canonical form of an event with a time-of-day.
type TimedEvent struct {
	CalendarID  string `json:"calendar_id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`

	// Day is the calendar date of the start in the display timezone.
	Day Date `json:"day"`

	// StartTime / EndTime are "HH:MM" in the display timezone. EndTime is
	// empty when the source end was a bare date.
	StartTime string `json:"time"`
	EndTime   string `json:"end_time"`

	// SortKey is the start instant in the display timezone. Ordering only.
	SortKey time.Time `json:"-"`

	Color string `json:"color"`
}

// AllDayEvent is the canonical form of a date-only event. End is exclusive
// and always after Start.
type AllDayEvent struct {
	CalendarID  string `json:"calendar_id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`

	Start Date `json:"start"`
	End   Date `json:"end"`

	Color string `json:"color"`
}

// Placement is an all-day event positioned on the day grid.
type Placement struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Color       string `json:"color"`

	// ColStart is the 1-based first grid column, ColSpan the number of
	// columns covered (>= 1), Row the 1-based lane.
	ColStart int `json:"col_start"`
	ColSpan  int `json:"col_span"`
	Row      int `json:"row"`

	// ContinuesLeft / ContinuesRight report that the event extends past
	// the start / end of the visible window.
	ContinuesLeft  bool `json:"is_left"`
	ContinuesRight bool `json:"is_right"`

	// DateRange is the localized inclusive date label, e.g. "Jun 9 - Jun 11".
	DateRange string `json:"date_range"`
	// TimeLabel is the localized "All Day" text, filled by the view assembler.
	TimeLabel string `json:"time_str"`
}

// DayColumn is one day of the rendered window.
type DayColumn struct {
	Date      Date         `json:"date"`
	IsToday   bool         `json:"is_today"`
	DayName   string       `json:"day_name"`
	DateLabel string       `json:"date_str"`
	Events    []TimedEvent `json:"events"`
}

// View is the render-ready dashboard for one request.
type View struct {
	RenderID     string      `json:"render_id"`
	GeneratedAt  time.Time   `json:"generated_at"`
	Timezone     string      `json:"timezone"`
	Theme        string      `json:"theme"`
	Stale        bool        `json:"stale"`
	Columns      []DayColumn `json:"columns"`
	AllDay       []Placement `json:"all_day_events"`
	AllDayRows   int         `json:"all_day_rows"`
	NoEventsText string      `json:"no_events_text"`
}
