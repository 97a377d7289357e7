package main

import (
	"net/http"
	"time"

	"dashcal/internal/config"
	"dashcal/internal/i18n"
	"dashcal/internal/ics"
	appLog "dashcal/internal/log"
	"dashcal/internal/theme"
	"dashcal/internal/view"
)

const fetchTimeout = 20 * time.Second

// app is the assembled event pipeline: ICS provider behind the view service.
type app struct {
	cfg *config.Config
	loc *time.Location
	svc *view.Service
}

func newApp(cfg *config.Config) *app {
	loc := cfg.Location()

	fetcher := ics.NewFetcher(cfg.CacheDir, &http.Client{Timeout: fetchTimeout})
	provider := ics.NewProvider(fetcher, buildSources(cfg.Calendars), loc, cfg.DaysToShow, nil)

	asm := view.NewAssembler(
		loc,
		cfg.DaysToShow,
		i18n.New(cfg.Language),
		theme.NewResolver(cfg.Theme, cfg.Latitude, cfg.Longitude, loc),
	)

	return &app{
		cfg: cfg,
		loc: loc,
		svc: view.NewService(provider, cfg.CacheTTL(), asm, nil),
	}
}

// buildSources converts configured calendars into fetch sources. Entries
// without a URL are skipped.
func buildSources(cals []config.CalendarConfig) []ics.Source {
	sources := make([]ics.Source, 0, len(cals))
	for i, cal := range cals {
		if cal.URL == "" {
			appLog.Warn("skipping calendar without url", "index", i, "id", cal.ID)
			continue
		}
		sources = append(sources, ics.Source{ID: cal.ID, URL: cal.URL, Color: cal.Color})
	}
	return sources
}
