package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// ErrElementNotFound is returned when a selector does not show up in time
var ErrElementNotFound = errors.New("element not found")

// ErrNavigationTimeout is returned when the page does not load and settle in time
var ErrNavigationTimeout = errors.New("navigation timed out")

// requestIdle is how long the network must stay quiet before the page counts as settled
const requestIdle = 500 * time.Millisecond

// Options configures the headless browser
type Options struct {
	Bin       string // Chrome/Chromium binary, looked up when empty
	NoSandbox bool
}

// Rect is an axis-aligned rectangle in CSS pixels
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d at (%d,%d)", r.Width, r.Height, r.X, r.Y)
}

// Session wraps a Rod browser with the single page a capture drives
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// Launch starts a headless browser and opens a blank page in it
func Launch(ctx context.Context, opts Options) (*Session, error) {
	bin := opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}

	l := launcher.New().Headless(true)
	if bin != "" {
		l = l.Bin(bin)
	}
	if opts.NoSandbox {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	s := &Session{launcher: l}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	s.browser = b

	if err := ctx.Err(); err != nil {
		s.Close()
		return nil, err
	}

	s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return s, nil
}

// Close releases the page, the browser and the launcher's temp profile.
// It is safe to call on a partially launched session.
func (s *Session) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

// SetViewport resizes the page's viewport
func (s *Session) SetViewport(ctx context.Context, width, height int, scale float64) error {
	return s.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: scale,
	})
}

// Navigate opens url and blocks until the load event fired and the network went idle.
// A page still loading or busy on the network when timeout passes is an error.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page := s.page.Context(ctx)
	if timeout > 0 {
		page = page.Timeout(timeout)
		defer page.CancelTimeout()
	}

	wait := page.WaitRequestIdle(requestIdle, nil, nil, nil)
	if err := page.Navigate(url); err != nil {
		return navigationError(ctx, url, timeout, err)
	}
	if err := page.WaitLoad(); err != nil {
		return navigationError(ctx, url, timeout, err)
	}
	// wait returns quietly when the deadline hits, so check the page context afterwards
	wait()

	return navigationError(ctx, url, timeout, page.GetContext().Err())
}

func navigationError(ctx context.Context, url string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s did not settle within %s", ErrNavigationTimeout, url, timeout)
	}
	return fmt.Errorf("navigate to %s: %w", url, err)
}

// WaitElement blocks until selector matches an element or timeout passes
func (s *Session) WaitElement(ctx context.Context, selector string, timeout time.Duration) error {
	page := s.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	_, err := page.Element(selector)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s", ErrElementNotFound, selector, timeout)
	}
	return err
}

// ElementRect returns the rounded bounding client rect of the first element matching selector
func (s *Session) ElementRect(ctx context.Context, selector string) (Rect, error) {
	res, err := s.page.Context(ctx).Eval(`(selector) => {
		const el = document.querySelector(selector);
		if (!el) return null;
		const r = el.getBoundingClientRect();
		return {
			x: Math.round(r.x),
			y: Math.round(r.y),
			width: Math.round(r.width),
			height: Math.round(r.height)
		};
	}`, selector)
	if err != nil {
		return Rect{}, fmt.Errorf("measure %s: %w", selector, err)
	}
	return parseRect(selector, res.Value)
}

func parseRect(selector string, v gson.JSON) (Rect, error) {
	if v.Nil() {
		return Rect{}, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return Rect{
		X:      v.Get("x").Int(),
		Y:      v.Get("y").Int(),
		Width:  v.Get("width").Int(),
		Height: v.Get("height").Int(),
	}, nil
}

// Screenshot captures the viewport as PNG, cropped to clip when it is not nil
func (s *Session) Screenshot(ctx context.Context, clip *Rect) ([]byte, error) {
	req := &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	}
	if clip != nil {
		req.Clip = &proto.PageViewport{
			X:      float64(clip.X),
			Y:      float64(clip.Y),
			Width:  float64(clip.Width),
			Height: float64(clip.Height),
			Scale:  1,
		}
	}
	return s.page.Context(ctx).Screenshot(false, req)
}
