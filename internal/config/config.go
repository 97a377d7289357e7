package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	appLog "dashcal/internal/log"
)

// NOTE: the YAML file is the source of truth and is created with 0600
// permissions on first run. Environment variables prefixed with DASHCAL_
// override file values; a double underscore separates nested keys, e.g.
// DASHCAL_BASIC_AUTH__PASSWORD.

const envPrefix = "DASHCAL_"

// DefaultPalette colors calendars that have no explicit color, by index.
var DefaultPalette = []string{
	"#2962ff", // blue
	"#d50000", // red
	"#00c853", // green
	"#ff6d00", // orange
	"#aa00ff", // purple
	"#00bfa5", // teal
	"#c51162", // pink
}

// CalendarConfig describes a single ICS subscription.
type CalendarConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url" koanf:"url"`
	// ID is an internal identifier used for logging and event attribution.
	ID string `yaml:"id" json:"id" koanf:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name" koanf:"name"`
	// Color is the CSS color of this calendar's events. Empty means
	// "pick from DefaultPalette".
	Color string `yaml:"color" json:"color" koanf:"color"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the dashboard.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" koanf:"username"`
	Password string `yaml:"password" json:"password" koanf:"password"`
}

// CaptureConfig controls the periodic PNG screenshot of the dashboard.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" koanf:"enabled"`
	// URL to capture; empty means the dashboard served by this process.
	URL string `yaml:"url" json:"url" koanf:"url"`
	// Output is where preview.png is written.
	Output string `yaml:"output" json:"output" koanf:"output"`
	Width  int    `yaml:"width" json:"width" koanf:"width"`
	Height int    `yaml:"height" json:"height" koanf:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the dashboard.
	Listen string `yaml:"listen" json:"listen" koanf:"listen"`

	// Timezone is the IANA zone events are displayed in (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone" koanf:"timezone"`

	// DaysToShow is the number of day columns, starting yesterday.
	DaysToShow int `yaml:"days_to_show" json:"days_to_show" koanf:"days_to_show"`

	// Language selects UI strings and date labels ("en", "de", "de_DE.UTF-8").
	Language string `yaml:"language" json:"language" koanf:"language"`

	// Theme is "light", "dark" or "auto". Auto needs Latitude/Longitude.
	Theme     string `yaml:"theme" json:"theme" koanf:"theme"`
	Latitude  string `yaml:"latitude" json:"latitude" koanf:"latitude"`
	Longitude string `yaml:"longitude" json:"longitude" koanf:"longitude"`

	// CacheMinutes is how long fetched events are reused.
	CacheMinutes int `yaml:"cache_minutes" json:"cache_minutes" koanf:"cache_minutes"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for background cache refresh and capture.
	RefreshCron string `yaml:"refresh" json:"refresh" koanf:"refresh"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" koanf:"cache_dir"`

	LogLevel string `yaml:"log_level" json:"log_level" koanf:"log_level"`

	// Calendars is the list of subscribed ICS calendars.
	Calendars []CalendarConfig `yaml:"calendars" json:"calendars" koanf:"calendars"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" koanf:"basic_auth"`

	Capture CaptureConfig `yaml:"capture" json:"capture" koanf:"capture"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:5000",
		Timezone:     "Europe/Berlin",
		DaysToShow:   5,
		Language:     "en",
		Theme:        "auto",
		CacheMinutes: 15,
		RefreshCron:  "*/15 * * * *",
		CacheDir:     "/var/lib/dashcal/ics-cache",
		LogLevel:     "info",
		Calendars:    []CalendarConfig{},
		BasicAuth:    nil,
		Capture: CaptureConfig{
			Output: "/var/lib/dashcal/preview.png",
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.DaysToShow <= 0 {
		c.DaysToShow = def.DaysToShow
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	switch strings.ToLower(c.Theme) {
	case "light", "dark", "auto":
		c.Theme = strings.ToLower(c.Theme)
	default:
		// Unknown value; auto degrades to dark without coordinates.
		c.Theme = def.Theme
	}
	if c.CacheMinutes <= 0 {
		c.CacheMinutes = def.CacheMinutes
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Capture.Output == "" {
		c.Capture.Output = def.Capture.Output
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	for i := range c.Calendars {
		cal := &c.Calendars[i]
		cal.Name = strings.TrimSpace(cal.Name)
		cal.Color = strings.TrimSpace(cal.Color)
		if cal.Color == "" {
			cal.Color = DefaultPalette[i%len(DefaultPalette)]
		}
		if cal.ID == "" {
			if cal.Name != "" {
				cal.ID = cal.Name
			} else {
				cal.ID = cal.URL
			}
		}
	}
}

// CacheTTL returns the event cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheMinutes) * time.Minute
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", c.Timezone)
		return time.UTC
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - Layers are then applied in order: defaults, YAML file, DASHCAL_*
//     environment variables.
//   - The result is normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		// First run: create default config file.
		cfg := DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Even if save fails, return cfg with error so caller can decide.
			return cfg, err
		}
		appLog.Info("created default config", "path", path)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// envKey maps DASHCAL_BASIC_AUTH__USERNAME to basic_auth.username.
func envKey(k, v string) (string, any) {
	k = strings.ToLower(strings.TrimPrefix(k, envPrefix))
	k = strings.ReplaceAll(k, "__", ".")
	return k, v
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".dashcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
