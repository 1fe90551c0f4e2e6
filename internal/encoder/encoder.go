package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/v0xg/pagegif/internal/config"
	"github.com/v0xg/pagegif/internal/frames"
)

// MinFrames is the smallest sequence worth animating
const MinFrames = 2

var (
	// ErrMissingDependency means the encoder binary cannot be run
	ErrMissingDependency = errors.New("missing dependency")
	// ErrFramesDirMissing means the frames directory does not exist
	ErrFramesDirMissing = errors.New("frames directory not found")
	// ErrNotEnoughFrames means fewer than MinFrames frames were found
	ErrNotEnoughFrames = errors.New("not enough frames")
	// ErrProcess means the encoder exited with an error
	ErrProcess = errors.New("encoder failed")
	// ErrMissingArtifact means the encoder exited cleanly but did not write its output
	ErrMissingArtifact = errors.New("expected output not produced")
)

// InstallHints tells the operator how to get ffmpeg
var InstallHints = []string{
	"Windows: winget install FFmpeg",
	"macOS:   brew install ffmpeg",
	"Linux:   sudo apt install ffmpeg",
}

// outputTail is how much of a failed process's output ends up in the error
const outputTail = 600

// Options configures how an encode run executes and reports
type Options struct {
	Runner Runner
	Step   func(name string) // Called before each pipeline step
	Logf   func(format string, args ...interface{})
	Warnf  func(format string, args ...interface{})
}

// Result describes the encoded file
type Result struct {
	Output string
	Size   int64
	Frames int
}

// Run turns the numbered frames in cfg.FramesDir into an animated GIF at cfg.Output.
// Steps run strictly in order and the first failure aborts the pipeline.
func Run(ctx context.Context, cfg config.Encode, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts = opts.withDefaults()

	if cfg.Backend == config.BackendNative {
		return runNative(ctx, cfg, opts)
	}

	opts.Step("check " + cfg.FFmpeg)
	bin, err := checkDependency(ctx, opts.Runner, cfg.FFmpeg)
	if err != nil {
		return nil, err
	}
	opts.Logf("Using %s", bin)

	opts.Step("check frames")
	count, err := CountFrames(cfg.FramesDir)
	if err != nil {
		return nil, err
	}
	opts.Logf("Found %d frames in %s", count, cfg.FramesDir)

	// A stale palette would hide a palettegen run that wrote nothing
	removeFile(cfg.Palette, opts)

	opts.Step("generate palette")
	if err := invoke(ctx, opts.Runner, bin, "palettegen", cfg.Palette, PaletteGenArgs(cfg)); err != nil {
		removeFile(cfg.Palette, opts)
		return nil, err
	}

	opts.Step("encode GIF")
	removeFile(cfg.Output, opts)
	if err := invoke(ctx, opts.Runner, bin, "paletteuse", cfg.Output, PaletteUseArgs(cfg)); err != nil {
		removeFile(cfg.Palette, opts)
		removeFile(cfg.Output, opts)
		return nil, err
	}

	opts.Step("clean up")
	removeFile(cfg.Palette, opts)

	info, err := os.Stat(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}
	return &Result{Output: cfg.Output, Size: info.Size(), Frames: count}, nil
}

// PaletteGenArgs builds the ffmpeg arguments for the palette pass
func PaletteGenArgs(cfg config.Encode) []string {
	filter := "palettegen"
	if cfg.StatsMode != "" {
		filter += "=stats_mode=" + cfg.StatsMode
	}
	return []string{"-y", "-i", frames.Pattern(cfg.FramesDir), "-vf", filter, cfg.Palette}
}

// PaletteUseArgs builds the ffmpeg arguments for the final encode
func PaletteUseArgs(cfg config.Encode) []string {
	filter := "paletteuse"
	if cfg.Dither != "" {
		filter += "=dither=" + cfg.Dither
		if cfg.Dither == "bayer" {
			filter += ":bayer_scale=" + strconv.Itoa(cfg.BayerScale)
		}
	}
	return []string{
		"-y",
		"-i", frames.Pattern(cfg.FramesDir),
		"-i", cfg.Palette,
		"-lavfi", filter,
		"-r", strconv.Itoa(cfg.FPS),
		cfg.Output,
	}
}

// CountFrames checks that dir holds enough frames to animate.
// Only the unbroken frame000, frame001, ... run counts since that is what gets encoded.
func CountFrames(dir string) (int, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return 0, fmt.Errorf("%w: %s", ErrFramesDirMissing, dir)
	}
	if err != nil {
		return 0, err
	}

	paths, err := frames.Sequence(dir)
	if err != nil {
		return 0, err
	}
	if len(paths) < MinFrames {
		return len(paths), fmt.Errorf("%w: need at least %d, found %d in %s", ErrNotEnoughFrames, MinFrames, len(paths), dir)
	}
	return len(paths), nil
}

func checkDependency(ctx context.Context, r Runner, name string) (string, error) {
	bin, err := r.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not installed: %v", ErrMissingDependency, name, err)
	}
	if out, err := r.Run(ctx, bin, "-version"); err != nil {
		return "", fmt.Errorf("%w: %s -version failed: %v%s", ErrMissingDependency, name, err, tail(out))
	}
	return bin, nil
}

// invoke runs one encoder pass and makes sure it left its artifact behind
func invoke(ctx context.Context, r Runner, bin, step, artifact string, args []string) error {
	out, err := r.Run(ctx, bin, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", step, ctxErr)
		}
		return fmt.Errorf("%w: %s: %v%s", ErrProcess, step, err, tail(out))
	}
	if _, err := os.Stat(artifact); err != nil {
		return fmt.Errorf("%w: %s did not write %s", ErrMissingArtifact, step, artifact)
	}
	return nil
}

func removeFile(path string, opts Options) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		opts.Warnf("could not remove %s: %v", path, err)
	}
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if s == "" {
		return ""
	}
	if len(s) > outputTail {
		s = "..." + s[len(s)-outputTail:]
	}
	return "\n" + s
}

func (o Options) withDefaults() Options {
	if o.Runner == nil {
		o.Runner = ExecRunner{}
	}
	if o.Step == nil {
		o.Step = func(string) {}
	}
	if o.Logf == nil {
		o.Logf = func(string, ...interface{}) {}
	}
	if o.Warnf == nil {
		o.Warnf = func(string, ...interface{}) {}
	}
	return o
}
