package main

import (
	"github.com/spf13/cobra"

	"dashcal/internal/config"
	appLog "dashcal/internal/log"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	listen     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "dashcal",
		Short: "Multi-day calendar dashboard",
		Long: `dashcal fetches ICS calendar subscriptions and serves a multi-day
dashboard with timed events per day and a packed all-day lane.

Without a subcommand it runs the server (same as "dashcal serve").`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.SetVersionTemplate(`{{printf "dashcal version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "/etc/dashcal/config.yaml", "Path to config file")
	pf.StringVar(&opts.listen, "listen", "", "HTTP listen address (overrides config if set)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newRenderCmd(opts))

	return root
}

// load reads the config file and applies flag overrides and the log level.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", o.configPath)
		return nil, err
	}

	if o.listen != "" {
		cfg.Listen = o.listen
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	appLog.Info("effective config",
		"config_path", o.configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"days_to_show", cfg.DaysToShow,
		"language", cfg.Language,
		"theme", cfg.Theme,
		"cache_minutes", cfg.CacheMinutes,
		"refresh", cfg.RefreshCron,
		"calendars", len(cfg.Calendars),
		"capture", cfg.Capture.Enabled,
	)
	return cfg, nil
}
