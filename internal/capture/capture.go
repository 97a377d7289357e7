// Package capture renders the dashboard page to a PNG with headless Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"dashcal/internal/config"
	appLog "dashcal/internal/log"
)

// Default viewport of the captured dashboard.
const (
	DefaultWidth   = 1200
	DefaultHeight  = 825
	DefaultTimeout = 30 * time.Second
)

// readySelector matches the root element once the page finished rendering.
const readySelector = `[data-ready="true"]`

var (
	ErrNoURL    = errors.New("capture: URL is required")
	ErrNoOutput = errors.New("capture: output path is required")
)

// Options describes a single screenshot.
type Options struct {
	// URL of the dashboard, e.g. "http://127.0.0.1:5000/".
	URL string
	// OutputPath receives the PNG.
	OutputPath string
	// Width and Height of the viewport; zero means the defaults.
	Width  int
	Height int
	// Timeout bounds the whole capture; zero means DefaultTimeout.
	Timeout time.Duration
}

// OptionsFromConfig derives capture options from cfg. An empty capture URL
// points at the dashboard served on cfg.Listen, carrying the basic auth
// credentials when they are configured.
func OptionsFromConfig(cfg *config.Config) Options {
	target := cfg.Capture.URL
	if target == "" {
		u := url.URL{Scheme: "http", Host: cfg.Listen, Path: "/"}
		if ba := cfg.BasicAuth; ba != nil && ba.Username != "" && ba.Password != "" {
			u.User = url.UserPassword(ba.Username, ba.Password)
		}
		target = u.String()
	}
	return Options{
		URL:        target,
		OutputPath: cfg.Capture.Output,
		Width:      cfg.Capture.Width,
		Height:     cfg.Capture.Height,
	}
}

// withDefaults validates opts and fills zero values.
func (o Options) withDefaults() (Options, error) {
	if o.URL == "" {
		return o, ErrNoURL
	}
	if o.OutputPath == "" {
		return o, ErrNoOutput
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o, nil
}

// PNG navigates to opts.URL, waits for the page to mark itself ready and
// writes a full screenshot to opts.OutputPath. The file is replaced
// atomically so /preview.png never serves a partial image.
func PNG(parentCtx context.Context, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	started := time.Now()
	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Let web fonts finish painting.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writeAtomic(opts.OutputPath, png); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("dashboard captured",
		"output", opts.OutputPath,
		"bytes", len(png),
		"duration", time.Since(started).String(),
	)
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".preview-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
