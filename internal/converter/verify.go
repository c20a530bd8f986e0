package converter

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	api.DisableConfigDir()
}

// PageCount parses a serialized PDF and returns its number of pages.
func PageCount(pdf []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return 0, fmt.Errorf("could not read PDF page count: %w", err)
	}
	return n, nil
}

// VerifyPageCount checks the document has exactly want pages.
func VerifyPageCount(pdf []byte, want int) error {
	got, err := PageCount(pdf)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: document has %d pages, expected %d", ErrPageCountMismatch, got, want)
	}
	return nil
}
