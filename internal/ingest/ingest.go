// Package ingest runs the full label pipeline: assess the capture, preprocess
// it for recognition, run the engine, and canonicalize the recovered text
// into circuit identifiers.
package ingest

import (
	"context"
	"image"
	"strings"
	"time"

	"splice-scan/internal/circuitid"
	"splice-scan/internal/raster"
	"splice-scan/internal/recognize"
)

// Options control one ingestion pass.
type Options struct {
	// Preprocessing parameters applied before recognition.
	Preprocess raster.Config

	// Minimum per-line confidence (0-1); lower-scoring lines are discarded
	// before canonicalization. Zero keeps everything.
	MinConfidence float64

	// Clockwise rotation in degrees (0, 90, 180 or 270) applied at load
	// time, for photos taken with the tray sideways.
	Rotate int
}

// DefaultOptions returns the standard ingestion parameters.
func DefaultOptions() Options {
	return Options{
		Preprocess:    raster.DefaultConfig(),
		MinConfidence: recognize.DefaultMinConfidence,
	}
}

// Record is the outcome of ingesting one label image.
type Record struct {
	// Parsed circuit identifiers, in reading order. A canonical line that
	// fails to parse (a normalization no-op) appears in Canonical only.
	IDs []circuitid.CircuitID `json:"ids"`

	// Canonicalizer output, one entry per surviving line.
	Canonical []string `json:"canonical"`

	// Raw engine text before any cleaning, for operator review.
	RawText string `json:"raw_text"`

	// Lines the canonicalizer could not recover an identifier from.
	Dropped []string `json:"dropped,omitempty"`

	// Name of the engine that produced the text.
	Engine string `json:"engine"`

	// Capture quality assessment of the original image.
	Quality raster.Assessment `json:"quality"`

	// Total pipeline time.
	Duration time.Duration `json:"duration"`
}

// Recognizer is the slice of the engine stack the pipeline needs. Both a
// single engine and the fallback selector satisfy it.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (*recognize.Result, error)
}

// Ingestor binds a recognizer to the pipeline. One Ingestor can process any
// number of images; the underlying engine is reused across calls.
type Ingestor struct {
	rec Recognizer
}

// New returns an Ingestor backed by the given recognizer.
func New(rec Recognizer) *Ingestor {
	return &Ingestor{rec: rec}
}

// IngestImage runs the pipeline on an already-decoded image.
func (in *Ingestor) IngestImage(ctx context.Context, img *image.NRGBA, opts Options) (*Record, error) {
	start := time.Now()

	quality := raster.Assess(img)
	processed := raster.Preprocess(img, opts.Preprocess)

	res, err := in.rec.Recognize(ctx, processed)
	if err != nil {
		return nil, err
	}

	kept := res.FilterConfidence(opts.MinConfidence)
	texts := make([]string, len(kept))
	for i, line := range kept {
		texts[i] = line.Text
	}

	canonical, dropped := circuitid.CleanLines(strings.Join(texts, "\n"))

	rec := &Record{
		RawText: res.Text(),
		Dropped: dropped,
		Engine:  res.Engine,
		Quality: quality,
	}
	for _, line := range canonical {
		norm := circuitid.Normalize(line)
		rec.Canonical = append(rec.Canonical, norm)
		if id := circuitid.Parse(norm); id != nil {
			rec.IDs = append(rec.IDs, *id)
		}
	}
	rec.Duration = time.Since(start)
	return rec, nil
}

// IngestFile loads an image from disk and runs the pipeline on it.
// Undecodable files report raster.ErrUnreadable.
func (in *Ingestor) IngestFile(ctx context.Context, path string, opts Options) (*Record, error) {
	img, _, err := raster.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.Rotate != 0 {
		img = raster.Rotate(img, opts.Rotate)
	}
	return in.IngestImage(ctx, img, opts)
}
