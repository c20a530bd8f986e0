package converter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"
	"slices"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"images_to_pdf/internal/dataurl"
)

// TransformRequest describes one image to normalise.
type TransformRequest struct {
	Name     string
	Original []byte // encoded bytes exactly as ingested
	MIMEType string
	Rotation int
	Quality  Quality

	// Accept restricts the output types the consumer can take. A resolved type
	// outside the list is written as PNG. Empty means anything encodable.
	Accept []string
}

// Result is a transformed bitmap ready for embedding.
type Result struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// DataURL renders the result as a data URL.
func (r Result) DataURL() string {
	return dataurl.Encode(r.MIMEType, r.Data)
}

// Transformer applies rotation and re-encoding to original image bytes.
// It is safe for concurrent use.
type Transformer struct {
	Canvas Canvas
	Policy FormatPolicy

	cache *resultCache
}

// NewTransformer returns a Transformer with a small result cache.
func NewTransformer(canvas Canvas, policy FormatPolicy) *Transformer {
	if canvas == nil {
		canvas = NewRasterCanvas(0)
	}
	return &Transformer{
		Canvas: canvas,
		Policy: policy,
		cache:  newResultCache(defaultCacheBytes),
	}
}

// OutputType returns the type req would be written in.
func (t *Transformer) OutputType(req TransformRequest) string {
	out := t.Policy.Resolve(req.MIMEType, req.Quality)
	if len(req.Accept) > 0 && !slices.Contains(req.Accept, out) {
		return mimePNG
	}
	return out
}

// Transform decodes the original bytes, rotates them clockwise and re-encodes
// them. Transforms always start from the original bytes so repeated rotations
// never compound lossy re-encodes.
func (t *Transformer) Transform(ctx context.Context, req TransformRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	outType := t.OutputType(req)
	key := cacheKey(req.Original, req.Rotation, outType, req.Quality)
	if res, ok := t.cache.get(key); ok {
		slog.Debug("Transform cache hit", "filename", req.Name, "outputType", outType)
		return res, nil
	}

	src, format, err := image.Decode(bytes.NewReader(req.Original))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrImageDecode, req.Name, err)
	}
	slog.Debug("Decoded image", "filename", req.Name, "format", format,
		"width", src.Bounds().Dx(), "height", src.Bounds().Dy(), "rotation", req.Rotation)

	rendered, err := t.Canvas.Render(src, req.Rotation)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data, err := t.Canvas.Encode(rendered, outType, req.Quality)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Data:     data,
		MIMEType: outType,
		Width:    rendered.Bounds().Dx(),
		Height:   rendered.Bounds().Dy(),
	}
	t.cache.put(key, res)
	slog.Debug("Transformed image", "filename", req.Name, "sourceType", req.MIMEType,
		"outputType", outType, "quality", req.Quality.String(), "bytes", len(data))
	return res, nil
}
