package converter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// DocumentWriter is the paginated document being assembled.
type DocumentWriter interface {
	// PageSize returns the current page's width and height in points.
	PageSize() (w, h float64)
	// AddPage appends a page with the document's geometry.
	AddPage()
	// PlaceImage embeds encoded image data of the given format ("JPEG", "PNG", "GIF")
	// at the rectangle on the current page. name must be unique within the document.
	PlaceImage(name, format string, data []byte, r Rect) error
	// Output serializes the document.
	Output(w io.Writer) error
}

// DocumentFactory creates a document with one empty page of the given geometry.
type DocumentFactory func(size PageSize, orientation Orientation) DocumentWriter

// PDFWriter is a DocumentWriter backed by gofpdf.
type PDFWriter struct {
	pdf *gofpdf.Fpdf
}

// NewPDFWriter creates a point-unit PDF with its first page already added.
func NewPDFWriter(size PageSize, orientation Orientation) DocumentWriter {
	orientationStr := "P"
	if orientation == Landscape {
		orientationStr = "L"
	}
	sizeStr := "A4"
	if size == PageLetter {
		sizeStr = "Letter"
	}
	pdf := gofpdf.New(orientationStr, "pt", sizeStr, "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("images_to_pdf", true)
	pdf.AddPage()
	return &PDFWriter{pdf: pdf}
}

func (p *PDFWriter) PageSize() (float64, float64) {
	return p.pdf.GetPageSize()
}

func (p *PDFWriter) AddPage() {
	p.pdf.AddPage()
}

func (p *PDFWriter) PlaceImage(name, format string, data []byte, r Rect) error {
	opts := gofpdf.ImageOptions{ImageType: format, ReadDpi: false}
	p.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if p.pdf.Err() {
		err := p.pdf.Error()
		p.pdf.ClearError()
		return fmt.Errorf("could not register image in PDF: %w", err)
	}
	p.pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, opts, 0, "")
	if p.pdf.Err() {
		err := p.pdf.Error()
		p.pdf.ClearError()
		return fmt.Errorf("could not place image on PDF page: %w", err)
	}
	return nil
}

func (p *PDFWriter) Output(w io.Writer) error {
	if p.pdf.Err() {
		return fmt.Errorf("error generating PDF structure: %w", p.pdf.Error())
	}
	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("could not write PDF to writer: %w", err)
	}
	return nil
}
