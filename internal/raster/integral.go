package raster

import "image"

// Integral is a prefix-sum grid over an image's luminance channel. It answers
// rectangular region sums in constant time, which keeps the adaptive
// threshold at O(1) per pixel regardless of block size.
type Integral struct {
	width  int
	height int
	// sums is (width+1)*(height+1); sums[(y+1)*(width+1)+x+1] holds the sum
	// of all pixels with coordinates <= (x, y).
	sums []uint64
}

// NewIntegral builds the prefix sums for img in a single pass.
// The red channel is read as luminance, so the image is expected to be
// grayscale (R=G=B) as produced by the earlier pipeline stages.
func NewIntegral(img *image.NRGBA) *Integral {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	ii := &Integral{
		width:  w,
		height: h,
		sums:   make([]uint64, (w+1)*(h+1)),
	}

	stride := w + 1
	for y := 0; y < h; y++ {
		row := y * img.Stride
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(img.Pix[row+x*4])
			ii.sums[(y+1)*stride+x+1] = ii.sums[y*stride+x+1] + rowSum
		}
	}

	return ii
}

// Width returns the width of the summed image.
func (ii *Integral) Width() int {
	return ii.width
}

// Height returns the height of the summed image.
func (ii *Integral) Height() int {
	return ii.height
}

// Sum returns the luminance sum over the inclusive pixel region
// [x0,x1] x [y0,y1]. Coordinates must already be clipped to the image.
func (ii *Integral) Sum(x0, y0, x1, y1 int) uint64 {
	stride := ii.width + 1
	a := ii.sums[y0*stride+x0]
	b := ii.sums[y0*stride+x1+1]
	c := ii.sums[(y1+1)*stride+x0]
	d := ii.sums[(y1+1)*stride+x1+1]
	return d + a - b - c
}

// Mean returns the mean luminance over the inclusive pixel region
// [x0,x1] x [y0,y1].
func (ii *Integral) Mean(x0, y0, x1, y1 int) float64 {
	count := (x1 - x0 + 1) * (y1 - y0 + 1)
	if count <= 0 {
		return 0
	}
	return float64(ii.Sum(x0, y0, x1, y1)) / float64(count)
}
