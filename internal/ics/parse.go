package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "dashcal/internal/log"
	"dashcal/internal/model"
)

const (
	layoutDate     = "20060102"
	layoutDateTime = "20060102T150405"
	layoutUTC      = "20060102T150405Z"
)

var errEmptyValue = errors.New("empty date/time value")

// ParsedEvent is one VEVENT with its start/end resolved into model.When
// values. Recurrence is recorded but not expanded here; see expand.go.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string

	// Start is nil if DTSTART was missing or unreadable.
	Start *model.When
	// End is nil if DTEND was missing or unreadable.
	End *model.When

	RawRRule   string
	ExDates    []model.When
	Recurrence *model.When // RECURRENCE-ID, if present
	IsOverride bool        // true if this VEVENT overrides one recurring instance
}

// ParseICS parses a single ICS payload into a list of ParsedEvent.
//
//   - DTSTART/DTEND are read from the raw property value and its VALUE and
//     TZID parameters. UTC ("Z") values and TZID values become zone-aware
//     instants; values with neither are floating and pinned to UTC.
//   - A VEVENT without a usable DTSTART is still returned (Start == nil) so
//     that it is rejected and logged by the normalizer like any other
//     malformed record.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		events = append(events, parseVEvent(src, ve))
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) ParsedEvent {
	out := ParsedEvent{Source: src}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}

	out.Summary = textProp(ve, ical.ComponentPropertySummary)
	out.Description = textProp(ve, ical.ComponentPropertyDescription)
	out.Location = textProp(ve, ical.ComponentPropertyLocation)

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		w, err := parseWhen(p.Value, p.ICalParameters)
		if err != nil {
			appLog.Error("ics: unreadable DTSTART", err, "id", src.ID, "uid", out.UID, "value", p.Value)
		} else {
			out.Start = &w
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		w, err := parseWhen(p.Value, p.ICalParameters)
		if err != nil {
			appLog.Error("ics: unreadable DTEND; treating as absent", err, "id", src.ID, "uid", out.UID, "value", p.Value)
		} else {
			out.End = &w
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = strings.TrimSpace(p.Value)
	}

	// EXDATE can appear multiple times and hold comma-separated values.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			w, err := parseWhen(part, p.ICalParameters)
			if err != nil {
				continue
			}
			out.ExDates = append(out.ExDates, w)
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if w, err := parseWhen(p.Value, p.ICalParameters); err == nil {
			out.Recurrence = &w
			out.IsOverride = true
		}
	}

	return out
}

func textProp(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// parseWhen turns an ICS DATE or DATE-TIME value into a model.When.
func parseWhen(value string, params map[string][]string) (model.When, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return model.When{}, errEmptyValue
	}

	if strings.EqualFold(param(params, "VALUE"), "DATE") || !strings.Contains(v, "T") {
		t, err := time.Parse(layoutDate, v)
		if err != nil {
			return model.When{}, fmt.Errorf("parse date %q: %w", v, err)
		}
		return model.OnDate(model.DateOf(t)), nil
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse(layoutUTC, v)
		if err != nil {
			return model.When{}, fmt.Errorf("parse utc date-time %q: %w", v, err)
		}
		return model.At(t), nil
	}

	if tzid := strings.Trim(param(params, "TZID"), `"`); tzid != "" {
		loc, err := time.LoadLocation(tzid)
		if err == nil {
			t, err := time.ParseInLocation(layoutDateTime, v, loc)
			if err != nil {
				return model.When{}, fmt.Errorf("parse date-time %q in %s: %w", v, tzid, err)
			}
			return model.At(t), nil
		}
		appLog.Warn("ics: unknown TZID; reading time as UTC", "tzid", tzid)
	}

	t, err := time.Parse(layoutDateTime, v)
	if err != nil {
		return model.When{}, fmt.Errorf("parse floating date-time %q: %w", v, err)
	}
	return model.Floating(t), nil
}

func param(params map[string][]string, key string) string {
	if params == nil {
		return ""
	}
	if vs, ok := params[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}
