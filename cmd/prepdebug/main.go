// Command prepdebug runs the label preprocessing chain one stage at a time
// and writes every intermediate image, for tuning parameters on difficult
// captures.
//
// Usage: prepdebug [options] <image>
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"splice-scan/internal/raster"
)

var (
	flagOut         = flag.String("out", "prepdebug", "Output directory for stage images")
	flagMinWidth    = flag.Int("min-width", raster.DefaultMinWidth, "Upscale narrower images to this width (0 disables)")
	flagContrast    = flag.Float64("contrast", raster.DefaultContrastFactor, "Contrast boost factor (1 disables)")
	flagBlock       = flag.Int("block", raster.DefaultThresholdBlock, "Adaptive threshold window size (odd)")
	flagConstant    = flag.Int("constant", raster.DefaultThresholdConstant, "Adaptive threshold constant")
	flagNoSharpen   = flag.Bool("no-sharpen", false, "Skip the sharpen stage")
	flagNoThreshold = flag.Bool("no-threshold", false, "Skip the binarization stage")
	flagRotate      = flag.Int("rotate", 0, "Rotate input clockwise by 90, 180 or 270 degrees")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <image>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	path := flag.Arg(0)
	img, format, err := raster.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
		os.Exit(1)
	}
	if *flagRotate != 0 {
		img = raster.Rotate(img, *flagRotate)
	}
	fmt.Printf("Loaded %s: %dx%d (%s)\n", path, img.Bounds().Dx(), img.Bounds().Dy(), format)

	a := raster.Assess(img)
	fmt.Printf("Assessment: mean %.1f, stddev %.1f, %s resolution\n", a.MeanLuminance, a.StdDev, a.Resolution)
	for _, w := range a.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}

	if err := os.MkdirAll(*flagOut, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *flagOut, err)
		os.Exit(1)
	}

	stage := 0
	dump := func(name string, im *image.NRGBA) {
		out := filepath.Join(*flagOut, fmt.Sprintf("%02d_%s.png", stage, name))
		if err := raster.Save(im, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("  %s (%dx%d)\n", out, im.Bounds().Dx(), im.Bounds().Dy())
		stage++
	}

	dump("input", img)

	work := raster.Upscale(img, *flagMinWidth)
	dump("upscale", work)

	raster.Grayscale(work)
	dump("grayscale", work)

	if raster.PolarityCorrect(work) {
		fmt.Println("Polarity: dark capture, inverted")
	} else {
		fmt.Println("Polarity: unchanged")
	}
	dump("polarity", work)

	raster.StretchHistogram(work)
	dump("stretch", work)

	if *flagContrast != 1 {
		raster.BoostContrast(work, *flagContrast)
		dump("contrast", work)
	}

	if !*flagNoSharpen {
		raster.SharpenImage(work)
		dump("sharpen", work)
	}

	if !*flagNoThreshold {
		raster.AdaptiveThreshold(work, *flagBlock, *flagConstant)
		dump("threshold", work)
	}

	fmt.Printf("Wrote %d stage images to %s\n", stage, *flagOut)
}
