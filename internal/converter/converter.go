// Package converter turns an ordered list of images into a paginated PDF:
// each image is rotated and re-encoded from its original bytes, scaled to fit
// the page, centred, and placed on its own page in list order.
package converter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"images_to_pdf/internal/collection"
)

// EmbeddableTypes are the bitmap types the document writer accepts.
var EmbeddableTypes = []string{mimeJPEG, mimePNG, mimeGIF}

// ProgressFunc receives the percentage of images placed so far.
type ProgressFunc func(percent int)

// Assembler builds a document with one page per image.
type Assembler struct {
	Transformer *Transformer
	NewDocument DocumentFactory
	// Verify re-reads the serialized document and checks its page count.
	Verify bool
}

// NewAssembler returns an Assembler writing PDFs with gofpdf.
func NewAssembler(t *Transformer) *Assembler {
	return &Assembler{
		Transformer: t,
		NewDocument: NewPDFWriter,
		Verify:      true,
	}
}

// ConvertToPDF assembles records, in order, into one document and writes it to
// w. Nothing is written unless every image was placed; the first failure
// aborts the whole conversion.
func (a *Assembler) ConvertToPDF(ctx context.Context, records []collection.Record, opts Options, w io.Writer, progress ProgressFunc) error {
	if len(records) == 0 {
		return ErrEmptyCollection
	}
	opts, err := opts.Normalize()
	if err != nil {
		return err
	}
	if progress == nil {
		progress = func(int) {}
	}

	quality := opts.Quality()
	slog.Info("Starting PDF conversion", "images", len(records), "pageSize", opts.PageSize,
		"orientation", opts.Orientation, "quality", quality.String())

	doc := a.NewDocument(opts.PageSize, opts.Orientation)
	for i, rec := range records {
		if err := a.placeRecord(ctx, doc, i, rec, quality); err != nil {
			return &ImageError{ID: rec.ID, Name: rec.Name, Err: err}
		}
		progress(percent(i+1, len(records)))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return err
	}
	if a.Verify {
		if err := VerifyPageCount(buf.Bytes(), len(records)); err != nil {
			return err
		}
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("could not write PDF: %w", err)
	}
	slog.Info("PDF conversion completed", "pages", len(records))
	return nil
}

// placeRecord is one step of the fold over the collection: transform the
// image, start a new page unless it is the first, then place it centred.
func (a *Assembler) placeRecord(ctx context.Context, doc DocumentWriter, index int, rec collection.Record, q Quality) error {
	res, err := a.Transformer.Transform(ctx, TransformRequest{
		Name:     rec.Name,
		Original: rec.Original(),
		MIMEType: rec.MIMEType,
		Rotation: rec.Rotation,
		Quality:  q,
		Accept:   EmbeddableTypes,
	})
	if err != nil {
		return err
	}

	if index > 0 {
		doc.AddPage()
	}
	pageW, pageH := doc.PageSize()
	rect := Placement(pageW, pageH, res.Width, res.Height)
	format := EmbedFormat(res.MIMEType, rec.MIMEType)

	slog.Debug("Adding image to PDF", "filename", rec.Name, "page", index+1,
		"x", rect.X, "y", rect.Y, "width", rect.W, "height", rect.H, "type", format)
	return doc.PlaceImage(fmt.Sprintf("image%d_%s", index, rec.ID), format, res.Data, rect)
}

func percent(done, total int) int {
	return int(math.Round(float64(done) / float64(total) * 100))
}
