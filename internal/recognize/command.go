package recognize

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"strings"
	"time"

	"splice-scan/pkg/geometry"
)

// CommandEngine shells out to the tesseract binary. It is the fallback
// engine: slower than the embedded library (a process spawn and a temp file
// per image) but independent of the cgo stack, so it still works when the
// native library or its language data is broken.
type CommandEngine struct {
	binary string
	lang   string
	runner Runner
}

// NewCommandEngine creates the command-line fallback engine.
func NewCommandEngine(lang string) *CommandEngine {
	if lang == "" {
		lang = "eng"
	}
	return &CommandEngine{
		binary: "tesseract",
		lang:   lang,
		runner: execRunner{},
	}
}

// Name identifies the engine in results and logs.
func (e *CommandEngine) Name() string {
	return "tesseract-cli"
}

// Init probes the binary so a missing installation surfaces before any
// image work.
func (e *CommandEngine) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, stderr, err := e.runner.Run(ctx, e.binary, "--version"); err != nil {
		return fmt.Errorf("tesseract binary unavailable: %w (%s)", err, truncate(string(stderr), 200))
	}
	return nil
}

// Recognize writes img to a temporary PNG, runs tesseract in TSV mode, and
// parses its word table into line predictions.
func (e *CommandEngine) Recognize(ctx context.Context, img image.Image) (*Result, error) {
	start := time.Now()

	tmp, err := os.CreateTemp("", "splice-scan-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp image: %w", err)
	}

	// Mirror the embedded engine's setup: single-block segmentation and the
	// label character set. The tsv config selects the word table output.
	args := []string{
		tmp.Name(), "stdout",
		"-l", e.lang,
		"--psm", "6",
		"-c", "tessedit_char_whitelist=" + LabelChars,
		"tsv",
	}
	stdout, stderr, err := e.runner.Run(ctx, e.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract failed: %w (%s)", err, truncate(string(stderr), 200))
	}

	return &Result{
		Lines:    parseTSV(string(stdout)),
		Engine:   e.Name(),
		Duration: time.Since(start),
	}, nil
}

// Close is a no-op; the engine holds no resources between calls.
func (e *CommandEngine) Close() error {
	return nil
}

// tsvKey identifies one text line in tesseract's TSV output.
type tsvKey struct {
	block, par, line int
}

// parseTSV converts tesseract's TSV word table into ordered line
// predictions. Word rows (level 5) are grouped by block/paragraph/line; a
// line's confidence is the mean of its word confidences scaled to [0,1] and
// its bounds the union of the word boxes.
func parseTSV(out string) []Line {
	var result []Line

	var (
		curKey    tsvKey
		curWords  []string
		curConf   float64
		curBounds geometry.RectInt
	)
	flush := func() {
		if len(curWords) == 0 {
			return
		}
		result = append(result, Line{
			Text:       strings.Join(curWords, " "),
			Confidence: curConf / float64(len(curWords)) / 100,
			Bounds:     curBounds,
		})
		curWords = nil
		curConf = 0
		curBounds = geometry.RectInt{}
	}

	rows := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}

		// Non-word rows carry conf -1; skip anything unparseable too.
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		key := tsvKey{block: atoi(cols[2]), par: atoi(cols[3]), line: atoi(cols[4])}
		if key != curKey {
			flush()
			curKey = key
		}

		curBounds = curBounds.Union(geometry.NewRectInt(
			atoi(cols[6]), atoi(cols[7]), atoi(cols[8]), atoi(cols[9])))
		curWords = append(curWords, text)
		curConf += conf
	}
	flush()

	return result
}

// atoi is strconv.Atoi with failures mapped to zero; TSV numeric columns are
// machine-written and zero is a safe default for the few malformed rows.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
