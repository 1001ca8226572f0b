package raster

import (
	"image"

	"gonum.org/v1/gonum/stat"

	"splice-scan/pkg/geometry"
)

// Resolution classes reported by Assess.
const (
	ResolutionLow    = "low"
	ResolutionMedium = "medium"
	ResolutionHigh   = "high"
)

// Assessment summarizes how suitable a capture is for text recognition.
// It is advisory: a poor assessment never blocks the pipeline, it only
// lets callers warn the operator before recognition is attempted.
type Assessment struct {
	Size          geometry.Size `json:"size"`
	MeanLuminance float64       `json:"mean_luminance"`
	StdDev        float64       `json:"std_dev"`
	Resolution    string        `json:"resolution"`
	Flat          bool          `json:"flat"`
	LowContrast   bool          `json:"low_contrast"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// Luminance spread below which a label photo is unlikely to binarize well.
const lowContrastStdDev = 12.0

// Assess measures the capture quality of an image before preprocessing.
// Large images are sampled rather than fully scanned.
func Assess(img *image.NRGBA) Assessment {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	a := Assessment{
		Size:       geometry.NewSize(w, h),
		Resolution: classifyResolution(w),
	}
	if w == 0 || h == 0 {
		a.Flat = true
		a.Warnings = append(a.Warnings, "image has no pixels")
		return a
	}

	// Cap the sample count so megapixel captures stay cheap to assess.
	step := 1
	if total := w * h; total > 250000 {
		step = total/250000 + 1
	}

	lums := make([]float64, 0, w*h/step+1)
	minL, maxL := 255.0, 0.0
	for idx := 0; idx < w*h; idx += step {
		i := (idx/w)*img.Stride + (idx%w)*4
		l := luminance709(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		if l < minL {
			minL = l
		}
		if l > maxL {
			maxL = l
		}
		lums = append(lums, l)
	}

	a.MeanLuminance = stat.Mean(lums, nil)
	if len(lums) > 1 {
		a.StdDev = stat.StdDev(lums, nil)
	}

	if minL == maxL {
		a.Flat = true
		a.Warnings = append(a.Warnings, "image is a single flat color; nothing to recognize")
	} else if a.StdDev < lowContrastStdDev {
		a.LowContrast = true
		a.Warnings = append(a.Warnings, "low contrast; recognition may be unreliable")
	}
	if a.Resolution == ResolutionLow {
		a.Warnings = append(a.Warnings, "low resolution; image will be upscaled before recognition")
	}
	return a
}

// classifyResolution buckets the capture width against the upscale target.
func classifyResolution(width int) string {
	switch {
	case width < 700:
		return ResolutionLow
	case width < DefaultMinWidth:
		return ResolutionMedium
	default:
		return ResolutionHigh
	}
}
