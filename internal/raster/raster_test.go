package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripImage builds a 2x1 image with the given left and right pixels.
func stripImage(left, right color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, left)
	img.SetNRGBA(1, 0, right)
	return img
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	img := gradientImage(10, 8)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, ".png"))

	decoded, format, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
	assert.Equal(t, img.Pix, decoded.Pix)
}

func TestDecode_Unreadable(t *testing.T) {
	img, format, err := DecodeBytes([]byte("definitely not an image"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.Nil(t, img)
	assert.Empty(t, format)
}

func TestDecode_EmptyInput(t *testing.T) {
	_, _, err := DecodeBytes(nil)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, gradientImage(4, 4), ".xyz")
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label.png")
	img := gradientImage(12, 9)

	require.NoError(t, Save(img, path))

	loaded, format, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, img.Bounds(), loaded.Bounds())
	assert.Equal(t, img.Pix, loaded.Pix)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.png"))

	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	// A file that cannot be opened is not the same failure as one that
	// cannot be decoded.
	assert.False(t, errors.Is(err, ErrUnreadable))
}

func TestRotate(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	blue := color.NRGBA{0, 0, 255, 255}

	t.Run("90 clockwise", func(t *testing.T) {
		img := stripImage(red, blue)
		out := Rotate(img, 90)

		require.Equal(t, 1, out.Bounds().Dx())
		require.Equal(t, 2, out.Bounds().Dy())
		// Turning the strip clockwise puts the left pixel on top.
		assert.Equal(t, red, out.NRGBAAt(0, 0))
		assert.Equal(t, blue, out.NRGBAAt(0, 1))
	})

	t.Run("180", func(t *testing.T) {
		img := stripImage(red, blue)
		out := Rotate(img, 180)

		require.Equal(t, 2, out.Bounds().Dx())
		assert.Equal(t, blue, out.NRGBAAt(0, 0))
		assert.Equal(t, red, out.NRGBAAt(1, 0))
	})

	t.Run("270 clockwise", func(t *testing.T) {
		img := stripImage(red, blue)
		out := Rotate(img, 270)

		require.Equal(t, 1, out.Bounds().Dx())
		require.Equal(t, 2, out.Bounds().Dy())
		assert.Equal(t, blue, out.NRGBAAt(0, 0))
		assert.Equal(t, red, out.NRGBAAt(0, 1))
	})

	t.Run("negative angle wraps", func(t *testing.T) {
		img := stripImage(red, blue)
		out := Rotate(img, -90)

		// -90 is the same quarter turn as 270.
		require.Equal(t, 1, out.Bounds().Dx())
		assert.Equal(t, blue, out.NRGBAAt(0, 0))
		assert.Equal(t, red, out.NRGBAAt(0, 1))
	})

	t.Run("zero unchanged", func(t *testing.T) {
		img := stripImage(red, blue)
		assert.Same(t, img, Rotate(img, 0))
	})

	t.Run("non-quarter angle unchanged", func(t *testing.T) {
		img := stripImage(red, blue)
		assert.Same(t, img, Rotate(img, 45))
	})

	t.Run("full turn unchanged", func(t *testing.T) {
		img := stripImage(red, blue)
		assert.Same(t, img, Rotate(img, 360))
	})
}

func TestIsSupportedFormat(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{path: "label.png", expected: true},
		{path: "LABEL.PNG", expected: true},
		{path: "scan.jpeg", expected: true},
		{path: "scan.jpg", expected: true},
		{path: "scan.tif", expected: true},
		{path: "scan.tiff", expected: true},
		{path: "scan.bmp", expected: true},
		{path: "photo.gif", expected: false},
		{path: "notes.txt", expected: false},
		{path: "noextension", expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsSupportedFormat(tc.path))
		})
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()
	assert.Contains(t, formats, ".png")
	assert.Contains(t, formats, ".jpg")
	assert.Contains(t, formats, ".tiff")
}
