// Package view assembles the render-ready dashboard from a raw event snapshot.
package view

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"dashcal/internal/agenda"
	"dashcal/internal/i18n"
	appLog "dashcal/internal/log"
	"dashcal/internal/metrics"
	"dashcal/internal/model"
	"dashcal/internal/theme"
)

// ThemeResolver picks the theme for a point in time.
type ThemeResolver interface {
	Resolve(now time.Time) string
}

// Assembler combines normalization, bucketing and the all-day layout with
// day labels and theme.
type Assembler struct {
	loc   *time.Location
	days  int
	tr    *i18n.Translator
	theme ThemeResolver
}

// NewAssembler builds an Assembler. A nil translator means English and a
// nil theme resolver always yields the dark theme.
func NewAssembler(loc *time.Location, days int, tr *i18n.Translator, themes ThemeResolver) *Assembler {
	if loc == nil {
		loc = time.UTC
	}
	if tr == nil {
		tr = i18n.New(i18n.DefaultLanguage)
	}
	if themes == nil {
		themes = theme.NewResolver(theme.Dark, "", "", loc)
	}
	return &Assembler{loc: loc, days: days, tr: tr, theme: themes}
}

// Build renders raws as seen at now. It never fails: malformed events are
// dropped and an empty snapshot yields empty columns.
func (a *Assembler) Build(now time.Time, raws []model.RawEvent, stale bool) model.View {
	started := time.Now()
	renderID := uuid.NewString()

	window := agenda.NewWindow(now, a.loc, a.days)
	snap := agenda.NewNormalizer(a.loc).NormalizeAll(raws)

	metrics.NormalizedEvents.WithLabelValues(metrics.KindTimed).Add(float64(len(snap.Timed)))
	metrics.NormalizedEvents.WithLabelValues(metrics.KindAllDay).Add(float64(len(snap.AllDay)))
	metrics.NormalizedEvents.WithLabelValues(metrics.KindRejected).Add(float64(snap.Rejected))

	buckets := agenda.BucketByDay(snap.Timed)
	layout := agenda.LayoutAllDay(snap.AllDay, window, a.tr)

	allDayText := a.tr.Text(i18n.KeyAllDay)
	for i := range layout.Placements {
		layout.Placements[i].TimeLabel = allDayText
	}

	v := model.View{
		RenderID:     renderID,
		GeneratedAt:  now.In(a.loc),
		Timezone:     a.loc.String(),
		Theme:        a.theme.Resolve(now),
		Stale:        stale,
		Columns:      a.columns(now, window, buckets),
		AllDay:       layout.Placements,
		AllDayRows:   layout.Rows,
		NoEventsText: a.tr.Text(i18n.KeyNoEvents),
	}

	if stale {
		metrics.StaleRenders.Inc()
	}
	metrics.AllDayRows.Set(float64(layout.Rows))
	metrics.RenderDuration.Observe(time.Since(started).Seconds())

	appLog.Debug("view assembled",
		"render_id", renderID,
		"window_start", window.Start().String(),
		"days", window.Len(),
		"timed", len(snap.Timed),
		"all_day", len(layout.Placements),
		"rejected", snap.Rejected,
		"stale", stale,
	)

	return v
}

func (a *Assembler) columns(now time.Time, w agenda.Window, buckets map[model.Date][]model.TimedEvent) []model.DayColumn {
	today := model.DateOf(now.In(a.loc))
	perDay := agenda.AlignToWindow(w, buckets)

	cols := make([]model.DayColumn, 0, w.Len())
	for i, day := range w.Days() {
		col := model.DayColumn{
			Date:      day,
			IsToday:   day == today,
			DateLabel: a.tr.MonthDay(day),
			Events:    perDay[i],
		}
		if col.IsToday {
			col.DayName = a.tr.Text(i18n.KeyToday)
		} else {
			col.DayName = strings.ToUpper(a.tr.Weekday(day))
		}
		cols = append(cols, col)
	}
	return cols
}
