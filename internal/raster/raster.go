// Package raster implements the pixel-level preprocessing chain that turns a
// photographed or scanned cable-label image into a binarized image suitable
// for text recognition.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrUnreadable reports input that cannot be interpreted as an image.
// Decode failures wrap it so callers can match with errors.Is.
var ErrUnreadable = errors.New("unreadable image")

// Decode reads an image from r and returns it as an NRGBA buffer together
// with the registered format name ("png", "jpeg", "tiff", "bmp").
// No partial result is produced on failure.
func Decode(r io.Reader) (*image.NRGBA, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return imaging.Clone(img), format, nil
}

// DecodeBytes decodes an in-memory image blob.
func DecodeBytes(data []byte) (*image.NRGBA, string, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes img to w in the named format, so a preprocessed image can be
// handed on in the same encoding its input arrived in.
func Encode(w io.Writer, img image.Image, format string) error {
	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return fmt.Errorf("unsupported image format %q: %w", format, err)
	}
	return imaging.Encode(w, img, f)
}

// Load reads and decodes the image at path.
func Load(path string) (*image.NRGBA, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Save writes img to path, choosing the encoding from the file extension.
func Save(img image.Image, path string) error {
	return imaging.Save(img, path)
}

// Rotate returns the image rotated clockwise by the given angle.
// Only quarter turns are meaningful; any other angle returns img unchanged.
func Rotate(img *image.NRGBA, degrees int) *image.NRGBA {
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// SupportedFormats returns the image file extensions the loader accepts.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
