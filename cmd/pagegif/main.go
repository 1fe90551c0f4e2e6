package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/v0xg/pagegif/internal/config"
	"github.com/v0xg/pagegif/internal/encoder"
)

var verbose bool

func main() {
	// Load .env file if present
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	rootCmd, err := newRootCmd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, error) {
	captureCfg, err := config.CaptureFromEnv()
	if err != nil {
		return nil, err
	}
	encodeCfg, err := config.EncodeFromEnv()
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:   "pagegif",
		Short: "Turn an animated web page into a GIF",
		Long: `pagegif screenshots a web page at a fixed frame rate with a headless browser,
then assembles the frames into an animated GIF with ffmpeg.

Example:
  pagegif capture index.html --selector .invitation --frames 60 --fps 15
  pagegif encode --frames-dir frames --output out.gif`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(
		newCaptureCmd(&captureCfg),
		newEncodeCmd(&encodeCfg),
		newRecordCmd(&captureCfg, &encodeCfg),
	)
	return rootCmd, nil
}

func reportError(err error) {
	fmt.Fprintf(os.Stderr, "\n✗ Error: %v\n", err)

	switch {
	case errors.Is(err, encoder.ErrMissingDependency):
		fmt.Fprintln(os.Stderr, "\nPlease install FFmpeg first:")
		for _, hint := range encoder.InstallHints {
			fmt.Fprintf(os.Stderr, "  - %s\n", hint)
		}
		fmt.Fprintln(os.Stderr, "Or encode without it: pagegif encode --backend native")
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Interrupted; partial frames are removed on the next capture")
	}
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

func warn(format string, args ...interface{}) {
	fmt.Printf("⚠ "+format+"\n", args...)
}

// formatSize prints bytes as MB from 1 MB up, KB below
func formatSize(size int64) string {
	mb := float64(size) / (1024 * 1024)
	if mb >= 1 {
		return fmt.Sprintf("%.2f MB", mb)
	}
	return fmt.Sprintf("%.2f KB", float64(size)/1024)
}
