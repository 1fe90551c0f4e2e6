package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/v0xg/pagegif/internal/capture"
	"github.com/v0xg/pagegif/internal/config"
)

func newCaptureCmd(cfg *config.Capture) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture [url]",
		Short: "Screenshot a page into numbered frames",
		Long: `capture opens the page in a headless browser, optionally crops to an element,
and writes frame000.png, frame001.png, ... at the configured frame rate.

Frames from a previous run in the output directory are removed first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.URL = args[0]
			}
			_, err := runCapture(cmd, *cfg)
			if err == nil {
				fmt.Println("\nNow create the GIF with:")
				fmt.Printf("  pagegif encode --frames-dir %s --fps %d\n", cfg.OutputDir, cfg.FPS)
			}
			return err
		},
	}
	bindCaptureFlags(cmd.Flags(), cfg)
	return cmd
}

func bindCaptureFlags(fs *pflag.FlagSet, cfg *config.Capture) {
	fs.StringVarP(&cfg.OutputDir, "out", "o", cfg.OutputDir, "Frames output directory")
	fs.IntVarP(&cfg.Frames, "frames", "f", cfg.Frames, "Number of frames (wins over --duration)")
	fs.Float64VarP(&cfg.Duration, "duration", "d", cfg.Duration, "Capture duration in seconds")
	fs.IntVarP(&cfg.FPS, "fps", "r", cfg.FPS, "Frames per second")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "Viewport width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Viewport height")
	fs.Float64Var(&cfg.Scale, "scale", cfg.Scale, "Device scale factor")
	fs.StringVarP(&cfg.Selector, "selector", "s", cfg.Selector, "CSS selector of the element to crop to")
	fs.DurationVar(&cfg.SelectorTimeout, "selector-timeout", cfg.SelectorTimeout, "How long to wait for --selector")
	fs.IntVar(&cfg.Margin, "margin", cfg.Margin, "Extra viewport space around the element")
	fs.IntVar(&cfg.MinWidth, "min-width", cfg.MinWidth, "Minimum viewport width when cropping")
	fs.IntVar(&cfg.MinHeight, "min-height", cfg.MinHeight, "Minimum viewport height when cropping")
	fs.DurationVar(&cfg.Settle, "settle", cfg.Settle, "Delay before the first frame")
	fs.DurationVar(&cfg.NavTimeout, "nav-timeout", cfg.NavTimeout, "Navigation timeout")
	fs.StringVar(&cfg.BrowserBin, "browser", cfg.BrowserBin, "Chrome/Chromium binary (default: auto-detect)")
	fs.BoolVar(&cfg.NoSandbox, "no-sandbox", cfg.NoSandbox, "Disable the Chromium sandbox (containers, root)")
}

// printCaptureSummary shows the settings, with the url as the browser will open it
func printCaptureSummary(w io.Writer, cfg config.Capture) error {
	target, err := cfg.TargetURL()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  - URL: %s\n", target)
	fmt.Fprintf(w, "  - Resolution: %dx%d @%gx\n", cfg.Width, cfg.Height, cfg.Scale)
	if cfg.Frames == 0 && cfg.Duration > 0 {
		fmt.Fprintf(w, "  - Duration: %gs\n", cfg.Duration)
	}
	fmt.Fprintf(w, "  - FPS: %d\n", cfg.FPS)
	fmt.Fprintf(w, "  - Total frames: %d\n", cfg.FrameCount())
	if cfg.Selector != "" {
		fmt.Fprintf(w, "  - Element: %s\n", cfg.Selector)
	}
	return nil
}

func runCapture(cmd *cobra.Command, cfg config.Capture) (*capture.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := printCaptureSummary(os.Stdout, cfg); err != nil {
		return nil, err
	}

	fmt.Println("→ Capturing frames...")
	res, err := capture.Run(cmd.Context(), cfg, capture.Options{
		OnFrame: func(i, total int, path string) {
			progress := float64(i+1) / float64(total) * 100
			fmt.Printf("\r  Progress: %.1f%% (%d/%d frames)", progress, i+1, total)
			if i == total-1 {
				fmt.Println()
			}
		},
		Logf:  logVerbose,
		Warnf: warn,
	})
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}

	if res.Region != nil {
		logVerbose("Capture area: %s", res.Region)
	}
	fmt.Printf("✓ Saved %d frames to %s\n", len(res.Files), res.Dir)
	return res, nil
}
