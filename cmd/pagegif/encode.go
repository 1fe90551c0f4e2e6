package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/v0xg/pagegif/internal/config"
	"github.com/v0xg/pagegif/internal/encoder"
	"github.com/v0xg/pagegif/internal/frames"
)

func newEncodeCmd(cfg *config.Encode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Assemble numbered frames into an animated GIF",
		Long: `encode runs ffmpeg twice: once to build an optimized palette from all frames,
once to encode the GIF with that palette and ordered dithering.

Use --backend native to encode without ffmpeg.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, *cfg)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&cfg.FramesDir, "frames-dir", cfg.FramesDir, "Directory holding frame000.png, frame001.png, ...")
	fs.IntVarP(&cfg.FPS, "fps", "r", cfg.FPS, "Output frame rate")
	bindEncodeFlags(fs, cfg)
	return cmd
}

// bindEncodeFlags registers the flags encode shares with record
func bindEncodeFlags(fs *pflag.FlagSet, cfg *config.Encode) {
	fs.StringVar(&cfg.Output, "output", cfg.Output, "Output GIF path")
	fs.StringVar(&cfg.Palette, "palette", cfg.Palette, "Intermediate palette path")
	fs.StringVar(&cfg.FFmpeg, "ffmpeg", cfg.FFmpeg, "ffmpeg binary")
	fs.StringVar(&cfg.Dither, "dither", cfg.Dither, "paletteuse dither mode")
	fs.IntVar(&cfg.BayerScale, "bayer-scale", cfg.BayerScale, "Bayer pattern scale 0-5 (higher is fainter)")
	fs.StringVar(&cfg.StatsMode, "stats-mode", cfg.StatsMode, "palettegen stats mode (full, diff, single)")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Encoder backend: ffmpeg, native")
	fs.UintVar(&cfg.MaxWidth, "max-width", cfg.MaxWidth, "Downscale frames wider than this (native backend)")
}

func runEncode(cmd *cobra.Command, cfg config.Encode) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Println("Configuration:")
	fmt.Printf("  - Input: %s\n", frames.Pattern(cfg.FramesDir))
	fmt.Printf("  - Frame rate: %d fps\n", cfg.FPS)
	fmt.Printf("  - Backend: %s\n", cfg.Backend)
	fmt.Printf("  - Output: %s\n", cfg.Output)

	var pending string
	finishStep := func(result string) {
		if pending != "" {
			fmt.Println(result)
			pending = ""
		}
	}

	res, err := encoder.Run(cmd.Context(), cfg, encoder.Options{
		Step: func(name string) {
			finishStep("done")
			pending = name
			fmt.Printf("→ %s... ", name)
		},
		Logf:  logVerbose,
		Warnf: warn,
	})
	if err != nil {
		finishStep("failed")
		return fmt.Errorf("GIF generation failed: %w", err)
	}
	finishStep("done")

	fmt.Printf("✓ Saved to %s (%s, %d frames)\n", res.Output, formatSize(res.Size), res.Frames)
	return nil
}
