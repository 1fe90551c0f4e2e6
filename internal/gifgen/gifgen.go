package gifgen

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"math"
	"os"
	"sort"

	"github.com/nfnt/resize"
)

// Options configures GIF generation
type Options struct {
	FPS        int
	MaxWidth   uint // 0 keeps the frame width
	BayerScale int  // 0 (strong pattern) to 5 (faint pattern)
}

// Generate encodes frames into an infinitely looping GIF at outputPath and returns its size
func Generate(frames []image.Image, outputPath string, opts Options) (int64, error) {
	if len(frames) == 0 {
		return 0, errors.New("no frames to encode")
	}
	if opts.FPS <= 0 {
		return 0, errors.New("fps must be positive")
	}

	// Delay is in 100ths of a second
	delay := int(math.Round(100 / float64(opts.FPS)))
	if delay < 1 {
		delay = 1
	}

	scaled := make([]image.Image, len(frames))
	for i, frame := range frames {
		scaled[i] = scale(frame, opts.MaxWidth)
	}

	palette := DiffPalette(scaled, 256)

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(scaled)),
		Delay:     make([]int, len(scaled)),
		LoopCount: 0, // Infinite loop
	}
	for i, frame := range scaled {
		g.Image[i] = Dither(frame, palette, opts.BayerScale)
		g.Delay[i] = delay
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := gif.EncodeAll(f, g); err != nil {
		os.Remove(outputPath)
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func scale(img image.Image, maxWidth uint) image.Image {
	if maxWidth == 0 || uint(img.Bounds().Dx()) <= maxWidth {
		return img
	}
	// Height 0 keeps the aspect ratio
	return resize.Resize(maxWidth, 0, img, resize.Lanczos3)
}

// bucket accumulates the colors that fall into one quantized cell
type bucket struct {
	r, g, b uint64
	count   uint64
}

// DiffPalette builds a palette of up to size colors across the whole sequence.
// Pixels of the first frame all count; later frames only count pixels that
// changed since the previous frame, so moving parts get palette entries.
func DiffPalette(frames []image.Image, size int) color.Palette {
	buckets := make(map[uint16]*bucket)

	var prev image.Image
	for _, frame := range frames {
		b := frame.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := frame.At(x, y).RGBA()
				if prev != nil && prev.Bounds().Eq(b) {
					pr, pg, pb, _ := prev.At(x, y).RGBA()
					if pr == r && pg == g && pb == bl {
						continue
					}
				}
				r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(bl>>8)
				// 5 bits per channel
				key := uint16(r8>>3)<<10 | uint16(g8>>3)<<5 | uint16(b8>>3)
				c := buckets[key]
				if c == nil {
					c = &bucket{}
					buckets[key] = c
				}
				c.r += uint64(r8)
				c.g += uint64(g8)
				c.b += uint64(b8)
				c.count++
			}
		}
		prev = frame
	}

	ranked := make([]*bucket, 0, len(buckets))
	for _, c := range buckets {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].r+ranked[i].g+ranked[i].b < ranked[j].r+ranked[j].g+ranked[j].b
	})

	palette := make(color.Palette, 0, size)
	for _, c := range ranked {
		if len(palette) == size {
			break
		}
		palette = append(palette, color.RGBA{
			R: uint8(c.r / c.count),
			G: uint8(c.g / c.count),
			B: uint8(c.b / c.count),
			A: 255,
		})
	}

	// Pad with grays so Index always has something sensible to pick
	for i := 0; len(palette) < size && i < 256; i += 17 {
		gray := uint8(i)
		palette = append(palette, color.RGBA{R: gray, G: gray, B: gray, A: 255})
	}

	return palette
}

// bayer8 is the 8x8 ordered dithering matrix
var bayer8 = [8][8]int{
	{0, 32, 8, 40, 2, 34, 10, 42},
	{48, 16, 56, 24, 50, 18, 58, 26},
	{12, 44, 4, 36, 14, 46, 6, 38},
	{60, 28, 52, 20, 62, 30, 54, 22},
	{3, 35, 11, 43, 1, 33, 9, 41},
	{51, 19, 59, 27, 49, 17, 57, 25},
	{15, 47, 7, 39, 13, 45, 5, 37},
	{63, 31, 55, 23, 61, 29, 53, 21},
}

// Dither maps img onto palette with an ordered Bayer pattern.
// Higher scale values shrink the pattern amplitude.
func Dither(img image.Image, palette color.Palette, scale int) *image.Paletted {
	scale = min(max(scale, 0), 5)
	offset := 1<<(5-scale) - 1

	b := img.Bounds()
	out := image.NewPaletted(b, palette)
	cache := make(map[uint32]uint8)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := bayer8[y&7][x&7]>>scale - offset
			r, g, bl, _ := img.At(x, y).RGBA()
			c := color.RGBA{
				R: clamp(int(r>>8) + d),
				G: clamp(int(g>>8) + d),
				B: clamp(int(bl>>8) + d),
				A: 255,
			}
			key := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
			idx, ok := cache[key]
			if !ok {
				idx = uint8(palette.Index(c))
				cache[key] = idx
			}
			out.SetColorIndex(x, y, idx)
		}
	}
	return out
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
