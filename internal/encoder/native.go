package encoder

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/v0xg/pagegif/internal/config"
	"github.com/v0xg/pagegif/internal/frames"
	"github.com/v0xg/pagegif/internal/gifgen"
)

// runNative encodes in-process with gifgen; no palette file is written
func runNative(ctx context.Context, cfg config.Encode, opts Options) (*Result, error) {
	opts.Step("check frames")
	count, err := CountFrames(cfg.FramesDir)
	if err != nil {
		return nil, err
	}

	opts.Step("load frames")
	images, err := loadFrames(ctx, cfg.FramesDir)
	if err != nil {
		return nil, err
	}
	opts.Logf("Loaded %d frames from %s", count, cfg.FramesDir)

	opts.Step("encode GIF")
	size, err := gifgen.Generate(images, cfg.Output, gifgen.Options{
		FPS:        cfg.FPS,
		MaxWidth:   cfg.MaxWidth,
		BayerScale: cfg.BayerScale,
	})
	if err != nil {
		return nil, fmt.Errorf("native encode: %w", err)
	}

	return &Result{Output: cfg.Output, Size: size, Frames: count}, nil
}

func loadFrames(ctx context.Context, dir string) ([]image.Image, error) {
	paths, err := frames.Sequence(dir)
	if err != nil {
		return nil, err
	}

	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := decodePNG(p)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
		}
		images = append(images, img)
	}
	return images, nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
