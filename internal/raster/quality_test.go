package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssess_FlatImage(t *testing.T) {
	a := Assess(uniformImage(100, 50, 77))

	assert.Equal(t, 100, a.Size.Width)
	assert.Equal(t, 50, a.Size.Height)
	assert.InDelta(t, 77.0, a.MeanLuminance, 0.01)
	assert.InDelta(t, 0.0, a.StdDev, 0.01)
	assert.True(t, a.Flat)
	assert.False(t, a.LowContrast)
	assert.Equal(t, ResolutionLow, a.Resolution)
	assert.NotEmpty(t, a.Warnings)
}

func TestAssess_GoodCapture(t *testing.T) {
	a := Assess(gradientImage(800, 10))

	assert.False(t, a.Flat)
	assert.False(t, a.LowContrast)
	assert.Equal(t, ResolutionMedium, a.Resolution)
	assert.Empty(t, a.Warnings)
	assert.Greater(t, a.StdDev, lowContrastStdDev)
}

func TestAssess_LowContrast(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := uint8(100)
			if (x+y)%2 == 0 {
				v = 105
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}

	a := Assess(img)

	assert.False(t, a.Flat)
	assert.True(t, a.LowContrast)
	assert.Less(t, a.StdDev, lowContrastStdDev)
	require.NotEmpty(t, a.Warnings)
	assert.Contains(t, a.Warnings[0], "low contrast")
}

func TestAssess_EmptyImage(t *testing.T) {
	a := Assess(image.NewNRGBA(image.Rect(0, 0, 0, 0)))

	assert.True(t, a.Flat)
	assert.Equal(t, 0.0, a.MeanLuminance)
	assert.NotEmpty(t, a.Warnings)
}

func TestAssess_SampledLargeImage(t *testing.T) {
	// Over the sample cap the assessment switches to strided sampling;
	// a uniform image must still come out flat with an exact mean.
	a := Assess(uniformImage(600, 500, 90))

	assert.True(t, a.Flat)
	assert.InDelta(t, 90.0, a.MeanLuminance, 0.01)
}

func TestClassifyResolution(t *testing.T) {
	assert.Equal(t, ResolutionLow, classifyResolution(0))
	assert.Equal(t, ResolutionLow, classifyResolution(699))
	assert.Equal(t, ResolutionMedium, classifyResolution(700))
	assert.Equal(t, ResolutionMedium, classifyResolution(1499))
	assert.Equal(t, ResolutionHigh, classifyResolution(1500))
	assert.Equal(t, ResolutionHigh, classifyResolution(4000))
}
