// Package capture screenshots the rendered dashboard page with headless
// Chromium so the e-ink device can pull a static PNG instead of running a
// browser itself.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// The Kindle panel is exactly 600×800; no device pixel ratio scaling.
const (
	DefaultWidth   = 600
	DefaultHeight  = 800
	DefaultTimeout = 30 * time.Second
)

// Options defines parameters for one screenshot capture.
type Options struct {
	// URL of the dashboard page, e.g. "http://127.0.0.1:8080/".
	URL string

	// OutputPath is where the PNG is written, e.g.
	// "/var/lib/kindledash/screen.png".
	OutputPath string

	// Width/Height are the viewport dimensions; zero means the defaults.
	Width  int
	Height int

	// Timeout bounds the entire capture operation.
	Timeout time.Duration
}

// ScreenPNG navigates headless Chromium to opts.URL, waits for the page's
// #dashboard root to be visible, and writes a PNG screenshot at the panel
// resolution. The write is atomic (temp file + rename) so the HTTP handler
// never serves a half-written image.
func ScreenPNG(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`#dashboard`, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	dir := filepath.Dir(opts.OutputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".screen-*.png")
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	return os.Rename(tmpName, opts.OutputPath)
}
