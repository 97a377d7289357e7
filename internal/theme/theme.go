// Package theme picks the light or dark dashboard theme.
package theme

import (
	"errors"
	"strconv"
	"strings"
	"time"

	sunrise "github.com/nathan-osman/go-sunrise"

	appLog "dashcal/internal/log"
)

const (
	Light = "light"
	Dark  = "dark"
	Auto  = "auto"
)

// Light mode runs from sunrise+lightAfterSunrise until sunset-lightBeforeSunset.
const (
	lightAfterSunrise = 45 * time.Minute
	lightBeforeSunset = 30 * time.Minute
)

var errNoSun = errors.New("no sunrise/sunset at this location and date")

// Resolver decides the theme for a point in time.
type Resolver struct {
	mode     string
	lat, lon string
	loc      *time.Location
}

// NewResolver builds a Resolver. mode is "light", "dark" or "auto"
// (anything else is treated as auto). lat/lon are only used in auto mode.
func NewResolver(mode, lat, lon string, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{
		mode: strings.ToLower(strings.TrimSpace(mode)),
		lat:  strings.TrimSpace(lat),
		lon:  strings.TrimSpace(lon),
		loc:  loc,
	}
}

// Resolve returns Light or Dark. Every failure path yields Dark.
func (r *Resolver) Resolve(now time.Time) string {
	if r.mode == Light || r.mode == Dark {
		return r.mode
	}
	if r.lat == "" || r.lon == "" {
		return Dark
	}

	lat, err := strconv.ParseFloat(r.lat, 64)
	if err != nil {
		appLog.Error("theme: invalid latitude", err, "latitude", r.lat)
		return Dark
	}
	lon, err := strconv.ParseFloat(r.lon, 64)
	if err != nil {
		appLog.Error("theme: invalid longitude", err, "longitude", r.lon)
		return Dark
	}

	light, err := isLight(now.In(r.loc), lat, lon)
	if err != nil {
		appLog.Error("theme: sun calculation failed", err, "latitude", lat, "longitude", lon)
		return Dark
	}
	if light {
		return Light
	}
	return Dark
}

func isLight(now time.Time, lat, lon float64) (bool, error) {
	rise, set := sunrise.SunriseSunset(lat, lon, now.Year(), now.Month(), now.Day())
	if rise.IsZero() || set.IsZero() {
		return false, errNoSun
	}
	start := rise.Add(lightAfterSunrise)
	end := set.Add(-lightBeforeSunset)
	return now.After(start) && now.Before(end), nil
}
