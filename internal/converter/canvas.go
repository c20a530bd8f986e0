package converter

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultMaxCanvasPixels is the largest surface RasterCanvas allocates (16384²).
const DefaultMaxCanvasPixels = 16384 * 16384

// Canvas is the 2D raster surface images are drawn onto before embedding.
type Canvas interface {
	// Render draws src rotated clockwise by rotation degrees (0, 90, 180, 270)
	// onto a surface sized to fit it exactly.
	Render(src image.Image, rotation int) (image.Image, error)
	// Encode serializes the surface as mimeType at the given quality.
	Encode(img image.Image, mimeType string, q Quality) ([]byte, error)
}

// RasterCanvas is an in-memory Canvas backed by imaging.
type RasterCanvas struct {
	MaxPixels int64
}

// NewRasterCanvas returns a canvas limited to maxPixels (DefaultMaxCanvasPixels when <= 0).
func NewRasterCanvas(maxPixels int64) *RasterCanvas {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxCanvasPixels
	}
	return &RasterCanvas{MaxPixels: maxPixels}
}

func (c *RasterCanvas) Render(src image.Image, rotation int) (image.Image, error) {
	b := src.Bounds()
	w, h := int64(b.Dx()), int64(b.Dy())
	if w <= 0 || h <= 0 || w*h > c.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d surface exceeds %d pixels", ErrCanvasUnavailable, w, h, c.MaxPixels)
	}

	// imaging rotates counter-clockwise; the canvas turns clockwise.
	switch rotation {
	case 0:
		return imaging.Clone(src), nil
	case 90:
		return imaging.Rotate270(src), nil
	case 180:
		return imaging.Rotate180(src), nil
	case 270:
		return imaging.Rotate90(src), nil
	}
	return nil, fmt.Errorf("invalid rotation %d", rotation)
}

func (c *RasterCanvas) Encode(img image.Image, mimeType string, q Quality) ([]byte, error) {
	var (
		format imaging.Format
		opts   []imaging.EncodeOption
	)
	switch NormalizeMIME(mimeType) {
	case mimeJPEG:
		format = imaging.JPEG
		opts = append(opts, imaging.JPEGQuality(q.JPEGQuality()))
	case mimePNG:
		format = imaging.PNG
	case mimeGIF:
		format = imaging.GIF
	case mimeBMP:
		format = imaging.BMP
	case mimeTIFF:
		format = imaging.TIFF
	default:
		return nil, fmt.Errorf("%w: canvas cannot serialize %s", ErrEncode, mimeType)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
