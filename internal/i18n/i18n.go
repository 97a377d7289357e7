// Package i18n holds the dashboard's UI strings and locale-aware date labels.
package i18n

import (
	"strings"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"

	"dashcal/internal/model"
)

const DefaultLanguage = "en"

// Text keys.
const (
	KeyToday    = "today"
	KeyNoEvents = "no_events"
	KeyAllDay   = "all_day"
)

var translations = map[string]map[string]string{
	"en": {
		KeyToday:    "TODAY",
		KeyNoEvents: "No events",
		KeyAllDay:   "All Day",
	},
	"de": {
		KeyToday:    "HEUTE",
		KeyNoEvents: "Keine Termine",
		KeyAllDay:   "Ganztägig",
	},
}

var (
	supported = []language.Tag{language.English, language.German}
	locales   = []monday.Locale{monday.LocaleEnUS, monday.LocaleDeDE}
	matcher   = language.NewMatcher(supported)
)

// Translator resolves UI strings and date labels for one language.
type Translator struct {
	lang   string
	locale monday.Locale
}

// New returns a Translator for lang, which may be a bare code ("de"), a
// tag ("de-AT") or a POSIX locale ("de_DE.UTF-8"). Anything unsupported
// resolves to English.
func New(lang string) *Translator {
	idx := match(lang)
	base, _ := supported[idx].Base()
	return &Translator{lang: base.String(), locale: locales[idx]}
}

func match(lang string) int {
	lang = strings.TrimSpace(lang)
	if i := strings.IndexByte(lang, '.'); i >= 0 {
		lang = lang[:i]
	}
	lang = strings.ReplaceAll(lang, "_", "-")
	if lang == "" {
		return 0
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return 0
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return 0
	}
	return idx
}

// Lang is the resolved base language code.
func (t *Translator) Lang() string { return t.lang }

// Text returns the translated string for key.
func (t *Translator) Text(key string) string {
	return Text(t.lang, key)
}

// MonthDay formats d like "Jun 5".
func (t *Translator) MonthDay(d model.Date) string {
	return monday.Format(d.In(time.UTC), "Jan 2", t.locale)
}

// Weekday returns the full weekday name of d, e.g. "Thursday".
func (t *Translator) Weekday(d model.Date) string {
	return monday.Format(d.In(time.UTC), "Monday", t.locale)
}

// Text looks key up for lang, falling back to English and finally to the
// key itself.
func Text(lang, key string) string {
	dict, ok := translations[lang]
	if !ok {
		dict = translations[DefaultLanguage]
	}
	if s, ok := dict[key]; ok {
		return s
	}
	if s, ok := translations[DefaultLanguage][key]; ok {
		return s
	}
	return key
}
