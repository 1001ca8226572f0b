// Command splicescan recovers circuit identifiers from photographed splice
// tray labels. Each image is preprocessed for recognition, run through the
// OCR stack, and the recovered text is canonicalized into identifiers of the
// form PREFIX,START-END.
//
// Usage: splicescan [options] <image> [<image>...]
//        splicescan [options] -watch <dir>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"splice-scan/internal/ingest"
	"splice-scan/internal/profile"
	"splice-scan/internal/raster"
	"splice-scan/internal/recognize"
	"splice-scan/internal/version"
)

var (
	flagProfile     = flag.String("profile", "", "Load a named profile from the user profile file")
	flagMinWidth    = flag.Int("min-width", raster.DefaultMinWidth, "Upscale narrower images to this width (0 disables)")
	flagContrast    = flag.Float64("contrast", raster.DefaultContrastFactor, "Contrast boost factor (1 disables)")
	flagBlock       = flag.Int("block", raster.DefaultThresholdBlock, "Adaptive threshold window size (odd)")
	flagConstant    = flag.Int("constant", raster.DefaultThresholdConstant, "Adaptive threshold constant")
	flagNoSharpen   = flag.Bool("no-sharpen", false, "Skip the sharpen stage")
	flagNoThreshold = flag.Bool("no-threshold", false, "Skip the binarization stage")
	flagMinConf     = flag.Float64("min-conf", recognize.DefaultMinConfidence, "Minimum line confidence (0-1)")
	flagLang        = flag.String("lang", "eng", "Recognition language")
	flagRotate      = flag.Int("rotate", 0, "Rotate input clockwise by 90, 180 or 270 degrees")
	flagEngine      = flag.String("engine", "auto", "Recognition engine: auto, lib or cli")
	flagWatch       = flag.String("watch", "", "Watch a directory and ingest images as they appear")
	flagSaveDir     = flag.String("save", "", "Write preprocessed images to this directory")
	flagJSON        = flag.Bool("json", false, "Print full records as JSON")
	flagShowDropped = flag.Bool("show-dropped", false, "Also print lines no identifier could be recovered from")
	flagQuality     = flag.Bool("quality", false, "Print the capture assessment and exit")
	flagVerbose     = flag.Bool("v", false, "Verbose output")
	flagVersion     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	flag.Parse()

	if *flagVersion {
		fmt.Printf("splicescan %s\n", version.String())
		return
	}

	if *flagWatch == "" && flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <image> [<image>...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [options] -watch <dir>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *flagVerbose {
		log.Printf("splicescan %s", version.String())
	}

	opts, lang, err := buildOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *flagQuality {
		exit := 0
		for _, path := range flag.Args() {
			img, format, err := raster.Load(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
				exit = 1
				continue
			}
			printAssessment(path, format, raster.Assess(img))
		}
		os.Exit(exit)
	}

	stack, err := buildStack(*flagEngine, lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ing := ingest.New(stack)

	if *flagWatch != "" {
		err := runWatch(ing, opts)
		stack.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	failures := 0
	ctx := context.Background()
	for _, path := range flag.Args() {
		if err := processFile(ctx, ing, path, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", path, err)
			failures++
		}
	}
	stack.Close()
	if failures > 0 {
		os.Exit(1)
	}
}

// engineStack is the recognizer surface main needs; both a single engine and
// the fallback selector provide it.
type engineStack interface {
	Recognize(ctx context.Context, img image.Image) (*recognize.Result, error)
	Close() error
}

func buildStack(kind, lang string) (engineStack, error) {
	switch kind {
	case "auto":
		return recognize.NewSelector(
			recognize.NewTesseractEngine(lang),
			recognize.NewCommandEngine(lang),
		), nil
	case "lib":
		return recognize.NewTesseractEngine(lang), nil
	case "cli":
		return recognize.NewCommandEngine(lang), nil
	default:
		return nil, fmt.Errorf("unknown engine %q: must be auto, lib or cli", kind)
	}
}

// buildOptions resolves the ingestion parameters: the named profile (or the
// builtin default) first, then explicit command line flags on top.
func buildOptions() (ingest.Options, string, error) {
	prof := profile.Default()
	if *flagProfile != "" {
		set, err := profile.LoadUser()
		if err != nil {
			return ingest.Options{}, "", err
		}
		prof, err = set.Get(*flagProfile)
		if err != nil {
			return ingest.Options{}, "", err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-width":
			prof.Preprocess.MinWidth = *flagMinWidth
		case "contrast":
			prof.Preprocess.ContrastFactor = *flagContrast
		case "block":
			prof.Preprocess.ThresholdBlock = *flagBlock
		case "constant":
			prof.Preprocess.ThresholdConstant = *flagConstant
		case "min-conf":
			prof.MinConfidence = *flagMinConf
		case "lang":
			prof.Language = *flagLang
		}
	})
	if *flagNoSharpen {
		prof.Preprocess.Sharpen = false
	}
	if *flagNoThreshold {
		prof.Preprocess.Threshold = false
	}

	if err := prof.Preprocess.Validate(); err != nil {
		return ingest.Options{}, "", err
	}
	switch *flagRotate {
	case 0, 90, 180, 270:
	default:
		return ingest.Options{}, "", fmt.Errorf("invalid rotation %d: must be 0, 90, 180 or 270", *flagRotate)
	}

	opts := ingest.Options{
		Preprocess:    prof.Preprocess,
		MinConfidence: prof.MinConfidence,
		Rotate:        *flagRotate,
	}
	return opts, prof.Language, nil
}

func processFile(ctx context.Context, ing *ingest.Ingestor, path string, opts ingest.Options) error {
	if *flagVerbose {
		fmt.Printf("Processing %s\n", path)
	}

	rec, err := ing.IngestFile(ctx, path, opts)
	if err != nil {
		return err
	}

	if *flagSaveDir != "" {
		if err := savePreprocessed(path, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save preprocessed image for %s: %v\n", path, err)
		}
	}

	printRecord(path, rec)
	return nil
}

// savePreprocessed reruns the preprocessing chain and writes the result next
// to the other dumps, so operators can inspect what the engine actually saw.
func savePreprocessed(path string, opts ingest.Options) error {
	img, _, err := raster.Load(path)
	if err != nil {
		return err
	}
	if opts.Rotate != 0 {
		img = raster.Rotate(img, opts.Rotate)
	}
	processed := raster.Preprocess(img, opts.Preprocess)

	if err := os.MkdirAll(*flagSaveDir, 0755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(*flagSaveDir, base+"_prep.png")
	if err := raster.Save(processed, out); err != nil {
		return err
	}
	if *flagVerbose {
		fmt.Printf("  Saved preprocessed image: %s\n", out)
	}
	return nil
}

func printRecord(path string, rec *ingest.Record) {
	if *flagJSON {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding record for %s: %v\n", path, err)
			return
		}
		fmt.Println(string(data))
		return
	}

	if len(rec.Canonical) == 0 {
		fmt.Printf("%s: no identifiers found\n", path)
	}
	for _, line := range rec.Canonical {
		fmt.Printf("%s: %s\n", path, line)
	}
	if *flagShowDropped {
		for _, line := range rec.Dropped {
			fmt.Printf("%s: dropped %q\n", path, line)
		}
	}
	if *flagVerbose {
		for _, w := range rec.Quality.Warnings {
			fmt.Printf("%s: warning: %s\n", path, w)
		}
		fmt.Printf("%s: %d identifiers in %v via %s\n",
			path, len(rec.IDs), rec.Duration.Round(time.Millisecond), rec.Engine)
	}
}

func printAssessment(path, format string, a raster.Assessment) {
	fmt.Printf("%s: %dx%d %s, mean %.1f, stddev %.1f, %s resolution\n",
		path, a.Size.Width, a.Size.Height, format, a.MeanLuminance, a.StdDev, a.Resolution)
	for _, w := range a.Warnings {
		fmt.Printf("%s: warning: %s\n", path, w)
	}
}

// runWatch ingests images dropped into the watch directory until interrupted.
func runWatch(ing *ingest.Ingestor, opts ingest.Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	events, err := ing.Watch(ctx, *flagWatch, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Watching %s for label images (Ctrl-C to stop)\n", *flagWatch)
	for ev := range events {
		switch {
		case ev.Err != nil && ev.Path == "":
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", ev.Err)
		case ev.Err != nil:
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", ev.Path, ev.Err)
		default:
			printRecord(ev.Path, ev.Record)
		}
	}
	return nil
}
