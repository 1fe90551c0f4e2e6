package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/v0xg/pagegif/internal/browser"
	"github.com/v0xg/pagegif/internal/config"
	"github.com/v0xg/pagegif/internal/frames"
)

// ErrEmptyRegion is returned when the bounding element has no visible area
var ErrEmptyRegion = errors.New("capture region is empty")

// Page is the slice of browser automation a capture session needs
type Page interface {
	SetViewport(ctx context.Context, width, height int, scale float64) error
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitElement(ctx context.Context, selector string, timeout time.Duration) error
	ElementRect(ctx context.Context, selector string) (browser.Rect, error)
	Screenshot(ctx context.Context, clip *browser.Rect) ([]byte, error)
	Close() error
}

// LaunchFunc acquires a fresh page for one session
type LaunchFunc func(ctx context.Context, opts browser.Options) (Page, error)

// Options configures how a session reports and waits.
// Zero values fall back to a real browser and wall-clock sleeps.
type Options struct {
	Launch  LaunchFunc
	Sleep   func(ctx context.Context, d time.Duration) error
	OnFrame func(index, total int, path string)
	Logf    func(format string, args ...interface{})
	Warnf   func(format string, args ...interface{})
}

// Result describes a finished session
type Result struct {
	Dir     string
	Files   []string
	Region  *browser.Rect // nil when the full viewport was captured
	Removed int           // stale frames cleared before capturing
}

// Run captures cfg.FrameCount() evenly spaced screenshots of cfg.URL into cfg.OutputDir.
// The browser is released on every path; the first error is returned as is.
func Run(ctx context.Context, cfg config.Capture, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts = opts.withDefaults()

	target, err := cfg.TargetURL()
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	removed, err := frames.Prepare(dir)
	if err != nil {
		return nil, fmt.Errorf("prepare output dir: %w", err)
	}
	opts.Logf("Output %s (%d stale frames removed)", dir, removed)

	page, err := opts.Launch(ctx, browser.Options{Bin: cfg.BrowserBin, NoSandbox: cfg.NoSandbox})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			opts.Warnf("closing browser: %v", err)
		}
	}()

	if err := page.SetViewport(ctx, cfg.Width, cfg.Height, cfg.Scale); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	opts.Logf("Navigating to %s", target)
	if err := page.Navigate(ctx, target, cfg.NavTimeout); err != nil {
		return nil, err
	}

	result := &Result{Dir: dir, Removed: removed}

	if cfg.Selector != "" {
		region, err := measureRegion(ctx, page, cfg, opts)
		if err != nil {
			return nil, err
		}
		result.Region = &region
	}

	if err := opts.Sleep(ctx, cfg.Settle); err != nil {
		return nil, err
	}

	total := cfg.FrameCount()
	interval := cfg.FrameInterval()
	result.Files = make([]string, 0, total)

	for i := 0; i < total; i++ {
		path := frames.Path(dir, i)
		if err := captureFrame(ctx, page, result.Region, path); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		result.Files = append(result.Files, path)
		opts.OnFrame(i, total, path)

		if i < total-1 {
			if err := opts.Sleep(ctx, interval); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// measureRegion waits for the bounding element, grows the viewport around it
// and measures it again since the layout shifts after a resize
func measureRegion(ctx context.Context, page Page, cfg config.Capture, opts Options) (browser.Rect, error) {
	if err := page.WaitElement(ctx, cfg.Selector, cfg.SelectorTimeout); err != nil {
		return browser.Rect{}, err
	}

	first, err := page.ElementRect(ctx, cfg.Selector)
	if err != nil {
		return browser.Rect{}, err
	}
	opts.Logf("Element %s: %s", cfg.Selector, first)

	width, height := FitViewport(first, cfg.Margin, cfg.MinWidth, cfg.MinHeight)
	if err := page.SetViewport(ctx, width, height, cfg.Scale); err != nil {
		return browser.Rect{}, fmt.Errorf("resize viewport: %w", err)
	}
	opts.Logf("Viewport resized to %dx%d", width, height)

	region, err := page.ElementRect(ctx, cfg.Selector)
	if err != nil {
		return browser.Rect{}, err
	}
	if region.Empty() {
		return browser.Rect{}, fmt.Errorf("%w: %s measured %s", ErrEmptyRegion, cfg.Selector, region)
	}
	opts.Logf("Capture area: %s", region)

	return region, nil
}

// FitViewport returns a viewport that holds r plus margin, never smaller than the minimum
func FitViewport(r browser.Rect, margin, minWidth, minHeight int) (int, int) {
	return max(r.Width+margin, minWidth), max(r.Height+margin, minHeight)
}

func captureFrame(ctx context.Context, page Page, clip *browser.Rect, path string) error {
	data, err := page.Screenshot(ctx, clip)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if len(data) == 0 {
		return errors.New("screenshot returned no data")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Launch == nil {
		o.Launch = func(ctx context.Context, opts browser.Options) (Page, error) {
			return browser.Launch(ctx, opts)
		}
	}
	if o.Sleep == nil {
		o.Sleep = Sleep
	}
	if o.OnFrame == nil {
		o.OnFrame = func(int, int, string) {}
	}
	if o.Logf == nil {
		o.Logf = func(string, ...interface{}) {}
	}
	if o.Warnf == nil {
		o.Warnf = func(string, ...interface{}) {}
	}
	return o
}

// Sleep pauses for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
