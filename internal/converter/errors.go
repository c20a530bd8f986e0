package converter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFileType is recorded for an ingested file whose type is not image/*.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrImageDecode is returned when a source bitmap cannot be decoded.
	ErrImageDecode = errors.New("failed to load image for processing")

	// ErrCanvasUnavailable is returned when the raster surface cannot be allocated.
	ErrCanvasUnavailable = errors.New("could not get canvas context")

	// ErrEncode is returned when the transformed bitmap cannot be serialized.
	ErrEncode = errors.New("failed to encode image")

	// ErrEmptyCollection is returned when a conversion is requested with no images.
	ErrEmptyCollection = errors.New("please upload at least one image to convert")

	// ErrConversionInProgress is returned for any command issued while a conversion runs.
	ErrConversionInProgress = errors.New("a conversion is already in progress")

	// ErrPageCountMismatch is returned when the written document does not have one page per image.
	ErrPageCountMismatch = errors.New("page count mismatch")
)

// ImageError ties a conversion failure to the image that caused it.
type ImageError struct {
	ID   string
	Name string
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }
