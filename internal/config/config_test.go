package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCount(t *testing.T) {
	cases := []struct {
		name string
		cfg  Capture
		want int
	}{
		{"explicit", Capture{Frames: 5, Duration: 10, FPS: 15}, 5},
		{"duration", Capture{Duration: 10, FPS: 15}, 150},
		{"fractional truncates", Capture{Duration: 1.25, FPS: 10}, 12},
		{"float noise", Capture{Duration: 2.3, FPS: 10}, 23},
		{"default", Capture{FPS: 15}, DefaultFrames},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.FrameCount())
		})
	}
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Capture{FPS: 10}.FrameInterval())
	assert.Equal(t, time.Second, Capture{FPS: 1}.FrameInterval())
	assert.Zero(t, Capture{}.FrameInterval())
}

func TestCaptureValidate(t *testing.T) {
	require.NoError(t, DefaultCapture().Validate())

	bad := map[string]func(c *Capture){
		"empty url":        func(c *Capture) { c.URL = " " },
		"empty out":        func(c *Capture) { c.OutputDir = "" },
		"zero fps":         func(c *Capture) { c.FPS = 0 },
		"negative frames":  func(c *Capture) { c.Frames = -1 },
		"no frames":        func(c *Capture) { c.Duration = 0.05; c.FPS = 10 },
		"zero viewport":    func(c *Capture) { c.Width = 0 },
		"zero scale":       func(c *Capture) { c.Scale = 0 },
		"negative margin":  func(c *Capture) { c.Margin = -1 },
		"selector timeout": func(c *Capture) { c.Selector = ".x"; c.SelectorTimeout = 0 },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			c := DefaultCapture()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestEncodeValidate(t *testing.T) {
	require.NoError(t, DefaultEncode().Validate())

	c := DefaultEncode()
	c.Backend = "magick"
	assert.ErrorContains(t, c.Validate(), "unknown backend")

	c = DefaultEncode()
	c.BayerScale = 9
	assert.Error(t, c.Validate())

	c = DefaultEncode()
	c.Backend = BackendNative
	c.FFmpeg = ""
	assert.NoError(t, c.Validate())
}

func TestTargetURL(t *testing.T) {
	c := DefaultCapture()
	c.URL = "https://example.com/demo"
	u, err := c.TargetURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/demo", u)

	c.URL = "file:///tmp/index.html"
	u, err = c.TargetURL()
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/index.html", u)

	c.URL = "index.html"
	u, err = c.TargetURL()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"), u)
	assert.True(t, strings.HasSuffix(u, "/index.html"), u)
}

func TestCaptureFromEnv(t *testing.T) {
	t.Setenv("PAGEGIF_URL", "https://example.com")
	t.Setenv("PAGEGIF_FPS", "10")
	t.Setenv("PAGEGIF_DURATION", "2.5")
	t.Setenv("PAGEGIF_SETTLE", "800")
	t.Setenv("PAGEGIF_SELECTOR_TIMEOUT", "2s")
	t.Setenv("PAGEGIF_NO_SANDBOX", "true")

	c, err := CaptureFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", c.URL)
	assert.Equal(t, 10, c.FPS)
	assert.Equal(t, 25, c.FrameCount())
	assert.Equal(t, 800*time.Millisecond, c.Settle)
	assert.Equal(t, 2*time.Second, c.SelectorTimeout)
	assert.True(t, c.NoSandbox)
	assert.Equal(t, "frames", c.OutputDir)
}

func TestCaptureFromEnvInvalid(t *testing.T) {
	t.Setenv("PAGEGIF_FPS", "fast")

	_, err := CaptureFromEnv()
	assert.ErrorContains(t, err, "PAGEGIF_FPS")
}

func TestEncodeFromEnv(t *testing.T) {
	t.Setenv("PAGEGIF_OUTPUT", "demo.gif")
	t.Setenv("PAGEGIF_BACKEND", "native")
	t.Setenv("PAGEGIF_MAX_WIDTH", "480")

	c, err := EncodeFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "demo.gif", c.Output)
	assert.Equal(t, BackendNative, c.Backend)
	assert.Equal(t, uint(480), c.MaxWidth)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAGEGIF_TEST_LOADED=yes\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PAGEGIF_TEST_LOADED") })

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "yes", os.Getenv("PAGEGIF_TEST_LOADED"))
}
