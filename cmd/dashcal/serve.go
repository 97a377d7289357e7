package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"dashcal/internal/capture"
	appLog "dashcal/internal/log"
	"dashcal/internal/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard server and the refresh scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg)
	srv := web.NewServer(cfg, a.svc)

	sched, err := newScheduler(cfg.RefreshCron, a.loc, func() { a.refresh(ctx) })
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	// Warm the cache (and the preview) once the listener is up.
	go func() {
		time.Sleep(time.Second)
		a.refresh(ctx)
	}()

	appLog.Info("dashcal starting", "version", version)
	if err := srv.Run(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		return err
	}
	appLog.Info("dashcal exiting")
	return nil
}

// refresh forces a new fetch and, when enabled, captures the dashboard.
func (a *app) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	events, stale := a.svc.Refresh(ctx)
	if stale {
		appLog.Warn("refresh served stale events", "events", events)
	} else {
		appLog.Info("events refreshed", "events", events)
	}

	if !a.cfg.Capture.Enabled {
		return
	}
	if err := capture.PNG(ctx, capture.OptionsFromConfig(a.cfg)); err != nil {
		appLog.Error("dashboard capture failed", err)
	}
}

// newScheduler runs job on schedule in loc. Overlapping runs are skipped.
func newScheduler(schedule string, loc *time.Location, job func()) (*cron.Cron, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(schedule, job); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return c, nil
}

// cronLogger routes scheduler logs through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
