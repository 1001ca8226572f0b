package recognize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"splice-scan/pkg/geometry"
)

// LabelChars is the character set for cable-label OCR.
// Lowercase is excluded to reduce confusion (0/O, 1/l); the noise characters
// the canonicalizer understands (@, parentheses, angle brackets) stay
// recognizable so they can be stripped downstream rather than misread into
// something else.
const LabelChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ,-@()<> "

// tessClient is the slice of the gosseract client the engine needs.
// It is an interface so tests can substitute a fake without the cgo stack.
type tessClient interface {
	SetLanguage(langs ...string) error
	SetVariable(key gosseract.SettableVariable, value string) error
	SetPageSegMode(mode gosseract.PageSegMode) error
	SetWhitelist(whitelist string) error
	SetImageFromBytes(data []byte) error
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// TesseractEngine recognizes text with the embedded Tesseract library.
// It is the primary engine: fast, in-process, but dependent on the native
// library and language data being installed.
type TesseractEngine struct {
	newClient func() tessClient
	client    tessClient
	lang      string
}

// NewTesseractEngine creates the library-backed engine. No native resources
// are touched until Init.
func NewTesseractEngine(lang string) *TesseractEngine {
	if lang == "" {
		lang = "eng"
	}
	return &TesseractEngine{
		newClient: func() tessClient { return gosseract.NewClient() },
		lang:      lang,
	}
}

// Name identifies the engine in results and logs.
func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// Init creates and configures the client on first use. A failure here means
// the native stack is unusable and the caller should fall back.
func (e *TesseractEngine) Init() error {
	if e.client != nil {
		return nil
	}

	client := e.newClient()
	if err := client.SetLanguage(e.lang); err != nil {
		client.Close()
		return fmt.Errorf("failed to set language %q: %w", e.lang, err)
	}

	// Disable dictionary-based word correction - circuit identifiers are
	// not English words and must not be "corrected" into them.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	// PSM 6 = assume a single uniform block of text, which is what a
	// cropped label photo is.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(LabelChars); err != nil {
		client.Close()
		return fmt.Errorf("failed to set whitelist: %w", err)
	}

	e.client = client
	return nil
}

// Recognize runs the library over img and returns its line predictions.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (*Result, error) {
	if err := e.Init(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognition failed: %w", err)
	}

	lines := make([]Line, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		lines = append(lines, Line{
			Text:       text,
			Confidence: box.Confidence / 100,
			Bounds:     geometry.FromImageRect(box.Box),
		})
	}

	return &Result{Lines: lines, Engine: e.Name(), Duration: time.Since(start)}, nil
}

// Close releases the native client.
func (e *TesseractEngine) Close() error {
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
