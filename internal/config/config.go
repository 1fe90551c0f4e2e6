package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "PAGEGIF_"

// DefaultFrames is used when neither a frame count nor a duration is configured
const DefaultFrames = 60

// Capture configures a single capture session
type Capture struct {
	URL       string
	OutputDir string
	Frames    int     // Explicit frame count, wins over Duration when > 0
	Duration  float64 // Capture duration in seconds
	FPS       int

	Width  int
	Height int
	Scale  float64 // Device scale factor

	Selector        string        // Optional CSS selector bounding the capture region
	SelectorTimeout time.Duration
	Margin          int // Added to the element size when resizing the viewport
	MinWidth        int
	MinHeight       int

	Settle     time.Duration // Delay before the first frame
	NavTimeout time.Duration

	BrowserBin string // Chrome/Chromium binary, looked up when empty
	NoSandbox  bool
}

// Encode configures a single encoder run
type Encode struct {
	FramesDir  string
	Output     string
	Palette    string
	FPS        int
	FFmpeg     string
	Dither     string
	BayerScale int
	StatsMode  string
	Backend    string // ffmpeg or native
	MaxWidth   uint   // Native backend only; 0 keeps the captured size
}

// Backends understood by the encode command
const (
	BackendFFmpeg = "ffmpeg"
	BackendNative = "native"
)

// DefaultCapture returns the capture settings used when nothing is overridden
func DefaultCapture() Capture {
	return Capture{
		URL:             "index.html",
		OutputDir:       "frames",
		FPS:             15,
		Width:           390,
		Height:          844,
		Scale:           2,
		SelectorTimeout: 5 * time.Second,
		Margin:          40,
		MinWidth:        600,
		MinHeight:       800,
		Settle:          time.Second,
		NavTimeout:      30 * time.Second,
	}
}

// DefaultEncode returns the encoder settings used when nothing is overridden
func DefaultEncode() Encode {
	return Encode{
		FramesDir:  "frames",
		Output:     "out.gif",
		Palette:    "palette.png",
		FPS:        15,
		FFmpeg:     "ffmpeg",
		Dither:     "bayer",
		BayerScale: 5,
		StatsMode:  "diff",
		Backend:    BackendFFmpeg,
	}
}

// LoadEnv loads .env style files into the process environment.
// Missing files are ignored; variables already set are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// CaptureFromEnv applies PAGEGIF_* overrides on top of the defaults
func CaptureFromEnv() (Capture, error) {
	c := DefaultCapture()
	e := envReader{}

	e.getString("URL", &c.URL)
	e.getString("OUT", &c.OutputDir)
	e.getInt("FRAMES", &c.Frames)
	e.getFloat("DURATION", &c.Duration)
	e.getInt("FPS", &c.FPS)
	e.getInt("WIDTH", &c.Width)
	e.getInt("HEIGHT", &c.Height)
	e.getFloat("SCALE", &c.Scale)
	e.getString("SELECTOR", &c.Selector)
	e.getDuration("SELECTOR_TIMEOUT", &c.SelectorTimeout)
	e.getInt("MARGIN", &c.Margin)
	e.getInt("MIN_WIDTH", &c.MinWidth)
	e.getInt("MIN_HEIGHT", &c.MinHeight)
	e.getDuration("SETTLE", &c.Settle)
	e.getDuration("NAV_TIMEOUT", &c.NavTimeout)
	e.getString("BROWSER", &c.BrowserBin)
	e.getBool("NO_SANDBOX", &c.NoSandbox)

	return c, e.err
}

// EncodeFromEnv applies PAGEGIF_* overrides on top of the defaults
func EncodeFromEnv() (Encode, error) {
	c := DefaultEncode()
	e := envReader{}

	e.getString("OUT", &c.FramesDir)
	e.getString("OUTPUT", &c.Output)
	e.getString("PALETTE", &c.Palette)
	e.getInt("FPS", &c.FPS)
	e.getString("FFMPEG", &c.FFmpeg)
	e.getString("DITHER", &c.Dither)
	e.getInt("BAYER_SCALE", &c.BayerScale)
	e.getString("STATS_MODE", &c.StatsMode)
	e.getString("BACKEND", &c.Backend)

	var maxWidth int
	e.getInt("MAX_WIDTH", &maxWidth)
	if maxWidth > 0 {
		c.MaxWidth = uint(maxWidth)
	}

	return c, e.err
}

// FrameCount returns the number of frames the session captures.
// Without an explicit count it is duration*fps rounded toward zero.
func (c Capture) FrameCount() int {
	if c.Frames > 0 {
		return c.Frames
	}
	if c.Duration > 0 {
		// Small epsilon so 2.3s at 10fps yields 23, not 22
		return int(c.Duration*float64(c.FPS) + 1e-9)
	}
	return DefaultFrames
}

// FrameInterval is the pause between two consecutive captures
func (c Capture) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FPS)
}

// Validate checks the capture settings
func (c Capture) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("url must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output directory must not be empty")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.FPS > 1000 {
		return fmt.Errorf("fps must be at most 1000, got %d", c.FPS)
	}
	if c.Frames < 0 {
		return fmt.Errorf("frames must not be negative, got %d", c.Frames)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %g", c.Duration)
	}
	if c.FrameCount() < 1 {
		return fmt.Errorf("%gs at %d fps yields no frames", c.Duration, c.FPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale factor must be positive, got %g", c.Scale)
	}
	if c.Margin < 0 || c.MinWidth < 0 || c.MinHeight < 0 {
		return errors.New("margin and minimum viewport size must not be negative")
	}
	if c.Selector != "" && c.SelectorTimeout <= 0 {
		return errors.New("selector timeout must be positive")
	}
	if c.Settle < 0 || c.NavTimeout < 0 {
		return errors.New("delays must not be negative")
	}
	return nil
}

// TargetURL turns the configured target into something the browser can open.
// Local paths become absolute file:// URLs.
func (c Capture) TargetURL() (string, error) {
	raw := strings.TrimSpace(c.URL)
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return raw, nil
	}

	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", raw, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// Validate checks the encoder settings
func (c Encode) Validate() error {
	if strings.TrimSpace(c.FramesDir) == "" {
		return errors.New("frames directory must not be empty")
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output path must not be empty")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	switch c.Backend {
	case BackendFFmpeg:
		if strings.TrimSpace(c.FFmpeg) == "" {
			return errors.New("ffmpeg binary must not be empty")
		}
		if strings.TrimSpace(c.Palette) == "" {
			return errors.New("palette path must not be empty")
		}
	case BackendNative:
	default:
		return fmt.Errorf("unknown backend %q (supported: %s, %s)", c.Backend, BackendFFmpeg, BackendNative)
	}
	if c.Dither == "bayer" && (c.BayerScale < 0 || c.BayerScale > 5) {
		return fmt.Errorf("bayer scale must be between 0 and 5, got %d", c.BayerScale)
	}
	return nil
}

// envReader collects PAGEGIF_* values, keeping the first parse error
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, v, err)
	}
}

func (e *envReader) getString(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) getInt(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) getFloat(key string, dst *float64) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) getBool(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

// getDuration accepts Go durations ("1.5s") or plain milliseconds ("800")
func (e *envReader) getDuration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	if ms, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}
