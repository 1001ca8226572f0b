package raster

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Default preprocessing parameters, tuned for camera photos of printed
// splice-tray labels.
const (
	DefaultMinWidth          = 1500
	DefaultContrastFactor    = 1.5
	DefaultThresholdBlock    = 15
	DefaultThresholdConstant = 10
)

// Config holds the tunable preprocessing parameters.
type Config struct {
	// Upscale target: images narrower than this are scaled up uniformly.
	// Zero disables upscaling.
	MinWidth int `json:"min_width" toml:"min_width"`

	// Contrast boost factor; 1.0 leaves the image untouched.
	ContrastFactor float64 `json:"contrast_factor" toml:"contrast_factor"`

	// Adaptive threshold window size in pixels (odd number).
	ThresholdBlock int `json:"threshold_block" toml:"threshold_block"`

	// Constant subtracted from the local mean before comparison.
	ThresholdConstant int `json:"threshold_constant" toml:"threshold_constant"`

	// Enable the sharpen convolution stage.
	Sharpen bool `json:"sharpen" toml:"sharpen"`

	// Enable the adaptive threshold (binarization) stage.
	Threshold bool `json:"threshold" toml:"threshold"`
}

// DefaultConfig returns the standard label-photo parameters.
func DefaultConfig() Config {
	return Config{
		MinWidth:          DefaultMinWidth,
		ContrastFactor:    DefaultContrastFactor,
		ThresholdBlock:    DefaultThresholdBlock,
		ThresholdConstant: DefaultThresholdConstant,
		Sharpen:           true,
		Threshold:         true,
	}
}

// Validate rejects parameter combinations the pipeline cannot honor.
func (c Config) Validate() error {
	if c.MinWidth < 0 {
		return fmt.Errorf("min width must not be negative, got %d", c.MinWidth)
	}
	if c.ContrastFactor <= 0 {
		return fmt.Errorf("contrast factor must be positive, got %g", c.ContrastFactor)
	}
	if c.ThresholdBlock < 1 {
		return fmt.Errorf("threshold block must be at least 1, got %d", c.ThresholdBlock)
	}
	if c.ThresholdBlock%2 == 0 {
		return fmt.Errorf("threshold block must be odd, got %d", c.ThresholdBlock)
	}
	return nil
}

// sanitized returns a copy with out-of-range knobs forced to usable values,
// so a zero or hand-built Config can never corrupt the pixel math.
func (c Config) sanitized() Config {
	if c.MinWidth < 0 {
		c.MinWidth = 0
	}
	if c.ContrastFactor <= 0 {
		c.ContrastFactor = 1
	}
	if c.ThresholdBlock < 1 {
		c.ThresholdBlock = DefaultThresholdBlock
	}
	if c.ThresholdBlock%2 == 0 {
		c.ThresholdBlock++
	}
	return c
}

// Preprocess runs the full stage chain on a copy of img and returns the
// result. The input buffer is never modified, so distinct images may be
// preprocessed concurrently. Stage order is fixed: upscale, grayscale,
// polarity correction, histogram stretch, contrast boost, sharpen, adaptive
// threshold. The first four stages always run; the rest honor cfg.
func Preprocess(img *image.NRGBA, cfg Config) *image.NRGBA {
	cfg = cfg.sanitized()

	out := imaging.Clone(img)
	out = Upscale(out, cfg.MinWidth)
	Grayscale(out)
	PolarityCorrect(out)
	StretchHistogram(out)
	if cfg.ContrastFactor != 1 {
		BoostContrast(out, cfg.ContrastFactor)
	}
	if cfg.Sharpen {
		SharpenImage(out)
	}
	if cfg.Threshold {
		AdaptiveThreshold(out, cfg.ThresholdBlock, cfg.ThresholdConstant)
	}
	return out
}

// Upscale scales the image up uniformly so its width reaches minWidth.
// Recognition accuracy on photos of small printed labels is dominated by the
// absolute pixel count of character strokes, so small captures are enlarged
// rather than processed as-is. Images already at least minWidth wide are
// returned unchanged. The height is rounded to the nearest pixel, preserving
// aspect ratio.
func Upscale(img *image.NRGBA, minWidth int) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if minWidth <= 0 || w == 0 || w >= minWidth {
		return img
	}

	scale := float64(minWidth) / float64(w)
	newH := int(math.Round(float64(h) * scale))
	if newH < 1 {
		newH = 1
	}
	return imaging.Resize(img, minWidth, newH, imaging.CatmullRom)
}

// Grayscale replaces each pixel's channels with its ITU-R BT.709 luminance.
// The 709 weights match print contrast perception better than a plain
// average, which improves stroke/background separation downstream.
func Grayscale(img *image.NRGBA) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	for y := 0; y < h; y++ {
		i := y * img.Stride
		for x := 0; x < w; x++ {
			l := uint8(luminance709(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) + 0.5)
			img.Pix[i] = l
			img.Pix[i+1] = l
			img.Pix[i+2] = l
			i += 4
		}
	}
}

// PolarityCorrect inverts the image when its mean luminance is below 128,
// i.e. when it is dark-dominant (light text on a dark label). Later stages
// and the recognition engine assume dark text on a light background.
// Expects a grayscale buffer. Returns true if the image was inverted.
func PolarityCorrect(img *image.NRGBA) bool {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return false
	}

	var sum uint64
	for y := 0; y < h; y++ {
		i := y * img.Stride
		for x := 0; x < w; x++ {
			sum += uint64(img.Pix[i])
			i += 4
		}
	}

	mean := float64(sum) / float64(w*h)
	if mean >= 128 {
		return false
	}

	for y := 0; y < h; y++ {
		i := y * img.Stride
		for x := 0; x < w; x++ {
			img.Pix[i] = 255 - img.Pix[i]
			img.Pix[i+1] = 255 - img.Pix[i+1]
			img.Pix[i+2] = 255 - img.Pix[i+2]
			i += 4
		}
	}
	return true
}

// StretchHistogram remaps luminance linearly so the darkest observed value
// becomes 0 and the brightest becomes 255. A flat image has no contrast to
// stretch and passes through unchanged.
func StretchHistogram(img *image.NRGBA) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return
	}

	lo, hi := 255, 0
	for y := 0; y < h; y++ {
		i := y * img.Stride
		for x := 0; x < w; x++ {
			v := int(img.Pix[i])
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
			i += 4
		}
	}

	span := hi - lo
	if span == 0 {
		return
	}

	for y := 0; y < h; y++ {
		i := y * img.Stride
		for x := 0; x < w; x++ {
			img.Pix[i] = clampU8((int(img.Pix[i]) - lo) * 255 / span)
			img.Pix[i+1] = clampU8((int(img.Pix[i+1]) - lo) * 255 / span)
			img.Pix[i+2] = clampU8((int(img.Pix[i+2]) - lo) * 255 / span)
			i += 4
		}
	}
}

// BoostContrast applies v' = v*factor + 128*(1-factor) to every channel,
// pushing values away from mid-gray. A factor of 1 is a no-op.
func BoostContrast(img *image.NRGBA, factor float64) {
	if factor == 1 {
		return
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	offset := 128 * (1 - factor)

	for y := 0; y < h; y++ {
		i := y * img.Stride
		for x := 0; x < w; x++ {
			for c := 0; c < 3; c++ {
				img.Pix[i+c] = clampU8(int(float64(img.Pix[i+c])*factor + offset + 0.5))
			}
			i += 4
		}
	}
}

// SharpenImage convolves the image with the 3x3 kernel
//
//	 0 -1  0
//	-1  5 -1
//	 0 -1  0
//
// Every output pixel is computed from the pre-sharpen values of its
// neighbors, never from already-sharpened ones. The outermost 1px ring is
// left untouched since its 3x3 neighborhood is incomplete.
func SharpenImage(img *image.NRGBA) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w < 3 || h < 3 {
		return
	}

	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*img.Stride + x*4
			for c := 0; c < 3; c++ {
				v := 5*int(src[i+c]) -
					int(src[i-4+c]) - int(src[i+4+c]) -
					int(src[i-img.Stride+c]) - int(src[i+img.Stride+c])
				img.Pix[i+c] = clampU8(v)
			}
		}
	}
}

// AdaptiveThreshold binarizes the image: a pixel becomes black when its
// luminance falls below the mean of its blockSize x blockSize neighborhood
// minus constant, else white. The local mean comes from an integral image,
// so the cost per pixel is constant regardless of block size; block windows
// are clipped at the image edges. This adapts to uneven lighting across a
// label far better than one global cutoff.
func AdaptiveThreshold(img *image.NRGBA, blockSize, constant int) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return
	}

	if blockSize < 1 {
		blockSize = DefaultThresholdBlock
	}
	// The window must center on the pixel, so the block size has to be odd.
	if blockSize%2 == 0 {
		blockSize++
	}

	ii := NewIntegral(img)
	r := blockSize / 2
	cut := float64(constant)

	for y := 0; y < h; y++ {
		y0 := max(0, y-r)
		y1 := min(h-1, y+r)
		i := y * img.Stride
		for x := 0; x < w; x++ {
			x0 := max(0, x-r)
			x1 := min(w-1, x+r)

			var out uint8
			if float64(img.Pix[i]) < ii.Mean(x0, y0, x1, y1)-cut {
				out = 0
			} else {
				out = 255
			}
			img.Pix[i] = out
			img.Pix[i+1] = out
			img.Pix[i+2] = out
			i += 4
		}
	}
}

// luminance709 returns the ITU-R BT.709 luminance of an RGB triple.
func luminance709(r, g, b uint8) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

// clampU8 clamps an int to the 0-255 pixel range.
func clampU8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
