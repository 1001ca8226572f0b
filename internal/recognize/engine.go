// Package recognize runs text-recognition engines over preprocessed label
// images and reports ordered line predictions with confidence scores.
//
// Two interchangeable engines implement the same contract: the embedded
// Tesseract library (primary) and the tesseract command-line binary
// (fallback). A Selector owns the lazy, memoized choice between them.
package recognize

import (
	"context"
	"image"
	"strings"
	"time"

	"splice-scan/pkg/geometry"
)

// DefaultMinConfidence is the floor beneath which a recognized line is
// treated as noise rather than label text.
const DefaultMinConfidence = 0.30

// Line is a single line prediction from an engine.
type Line struct {
	Text       string           `json:"text"`
	Confidence float64          `json:"confidence"` // 0.0 - 1.0
	Bounds     geometry.RectInt `json:"bounds"`
}

// Result is the output of one recognition pass. Lines keep the engine's
// reading order.
type Result struct {
	Lines    []Line        `json:"lines"`
	Engine   string        `json:"engine"`
	Duration time.Duration `json:"duration"`
}

// Text joins the line texts with newlines for the canonicalizer.
func (r *Result) Text() string {
	texts := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}

// FilterConfidence returns the lines whose confidence is at least min,
// preserving order.
func (r *Result) FilterConfidence(min float64) []Line {
	kept := make([]Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.Confidence >= min {
			kept = append(kept, l)
		}
	}
	return kept
}

// Engine produces line-level text plus confidence from an image.
// Init must be cheap to call repeatedly; engines are expected to probe their
// backing facility there so a broken installation surfaces before any image
// work. Recognize blocks until the engine answers or ctx is done.
type Engine interface {
	Name() string
	Init() error
	Recognize(ctx context.Context, img image.Image) (*Result, error)
	Close() error
}
