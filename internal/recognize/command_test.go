package recognize

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splice-scan/pkg/geometry"
)

// fakeRunner records invocations and plays back canned output.
type fakeRunner struct {
	stdout []byte
	stderr []byte
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.stdout, f.stderr, f.err
}

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

// sampleTSV is a trimmed-down word table the way tesseract emits it: one
// single-word line and one three-word line, with the usual structural rows.
var sampleTSV = strings.Join([]string{
	tsvHeader,
	"1\t1\t0\t0\t0\t0\t0\t0\t300\t120\t-1\t",
	"2\t1\t1\t0\t0\t0\t10\t10\t200\t80\t-1\t",
	"3\t1\t1\t1\t0\t0\t10\t10\t200\t80\t-1\t",
	"4\t1\t1\t1\t1\t0\t10\t10\t60\t30\t-1\t",
	"5\t1\t1\t1\t1\t1\t10\t10\t60\t30\t96.5\tBR021,365-372",
	"4\t1\t1\t1\t2\t0\t10\t50\t180\t30\t-1\t",
	"5\t1\t1\t1\t2\t1\t10\t50\t40\t30\t91\tB",
	"5\t1\t1\t1\t2\t2\t60\t50\t60\t30\t89\t101",
	"5\t1\t1\t1\t2\t3\t130\t50\t60\t30\t93\t150",
}, "\n")

func TestParseTSV(t *testing.T) {
	lines := parseTSV(sampleTSV)

	require.Len(t, lines, 2)

	assert.Equal(t, "BR021,365-372", lines[0].Text)
	assert.InDelta(t, 0.965, lines[0].Confidence, 1e-9)
	assert.Equal(t, geometry.NewRectInt(10, 10, 60, 30), lines[0].Bounds)

	assert.Equal(t, "B 101 150", lines[1].Text)
	assert.InDelta(t, 0.91, lines[1].Confidence, 1e-9)
	assert.Equal(t, geometry.NewRectInt(10, 50, 180, 30), lines[1].Bounds)
}

func TestParseTSV_Empty(t *testing.T) {
	assert.Empty(t, parseTSV(""))
	assert.Empty(t, parseTSV(tsvHeader))
}

func TestParseTSV_SkipsEmptyAndNegativeWords(t *testing.T) {
	tsv := strings.Join([]string{
		tsvHeader,
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t-1\tghost",
		"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t80\t   ",
		"5\t1\t1\t1\t1\t3\t0\t0\t10\t10\t80\tkept",
	}, "\n")

	lines := parseTSV(tsv)

	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0].Text)
}

func TestParseTSV_SplitsOnBlockChange(t *testing.T) {
	// Same line number in different blocks means different lines.
	tsv := strings.Join([]string{
		tsvHeader,
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tfirst",
		"5\t1\t2\t1\t1\t1\t0\t40\t10\t10\t90\tsecond",
	}, "\n")

	lines := parseTSV(tsv)

	require.Len(t, lines, 2)
	assert.Equal(t, "first", lines[0].Text)
	assert.Equal(t, "second", lines[1].Text)
}

func TestParseTSV_CRLF(t *testing.T) {
	tsv := tsvHeader + "\r\n" + "5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t75\tG,1-10" + "\r\n"

	lines := parseTSV(tsv)

	require.Len(t, lines, 1)
	assert.Equal(t, "G,1-10", lines[0].Text)
	assert.InDelta(t, 0.75, lines[0].Confidence, 1e-9)
}

func TestCommandEngineInit(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("tesseract 5.3.0")}
	eng := &CommandEngine{binary: "tesseract", lang: "eng", runner: runner}

	require.NoError(t, eng.Init())
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"tesseract", "--version"}, runner.calls[0])
}

func TestCommandEngineInit_BinaryMissing(t *testing.T) {
	runner := &fakeRunner{err: errors.New("executable file not found"), stderr: []byte("not found")}
	eng := &CommandEngine{binary: "tesseract", lang: "eng", runner: runner}

	err := eng.Init()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract binary unavailable")
	assert.Contains(t, err.Error(), "not found")
}

func TestCommandEngineRecognize(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(sampleTSV)}
	eng := &CommandEngine{binary: "tesseract", lang: "deu", runner: runner}

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	res, err := eng.Recognize(context.Background(), img)

	require.NoError(t, err)
	assert.Equal(t, "tesseract-cli", res.Engine)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "BR021,365-372", res.Lines[0].Text)

	require.Len(t, runner.calls, 1)
	args := runner.calls[0]
	assert.Equal(t, "tesseract", args[0])
	assert.True(t, strings.HasSuffix(args[1], ".png"), "temp image path, got %q", args[1])
	assert.Equal(t, "stdout", args[2])
	assert.Contains(t, args, "-l")
	assert.Contains(t, args, "deu")
	assert.Contains(t, args, "--psm")
	assert.Contains(t, args, "6")
	assert.Contains(t, args, "-c")
	assert.Contains(t, args, "tessedit_char_whitelist="+LabelChars)
	assert.Equal(t, "tsv", args[len(args)-1])
}

func TestCommandEngineRecognize_CommandFails(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1"), stderr: []byte("Error in pixReadStream")}
	eng := &CommandEngine{binary: "tesseract", lang: "eng", runner: runner}

	_, err := eng.Recognize(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract failed")
	assert.Contains(t, err.Error(), "pixReadStream")
}

func TestCommandEngineClose(t *testing.T) {
	eng := NewCommandEngine("eng")
	assert.NoError(t, eng.Close())
}

func TestNewCommandEngineDefaultsLanguage(t *testing.T) {
	eng := NewCommandEngine("")
	assert.Equal(t, "eng", eng.lang)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "long strin...", truncate("long string here", 10))
}
