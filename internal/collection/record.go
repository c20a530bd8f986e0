package collection

import (
	"fmt"

	"github.com/google/uuid"

	"images_to_pdf/internal/dataurl"
)

// Record is one user-supplied image tracked by a Collection.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
	Rotation int    `json:"rotation"`

	// Current is the most recent preview data URL. It may reflect the rotation,
	// but conversions never read it.
	Current string `json:"-"`

	original []byte
}

// NewRecord creates a record with a fresh id and rotation 0. data is the
// encoded image exactly as read and must not be modified afterwards.
func NewRecord(name, mimeType string, size int64, data []byte) Record {
	r := Record{
		ID:       uuid.NewString(),
		Name:     name,
		Size:     size,
		MIMEType: mimeType,
		original: data,
	}
	r.Current = r.OriginalDataURL()
	return r
}

// Original returns the encoded bytes the record was created from.
// Callers must treat the slice as read-only.
func (r Record) Original() []byte { return r.original }

// OriginalDataURL renders the original bytes as a data URL.
func (r Record) OriginalDataURL() string {
	return dataurl.Encode(r.MIMEType, r.original)
}

func (r Record) String() string {
	return fmt.Sprintf("%s (%s, %d bytes, %d°)", r.Name, r.MIMEType, r.Size, r.Rotation)
}

// NextRotation advances a rotation by a quarter turn clockwise.
func NextRotation(deg int) int {
	return (deg + 90) % 360
}

// ValidRotation reports whether deg is one of 0, 90, 180 or 270.
func ValidRotation(deg int) bool {
	switch deg {
	case 0, 90, 180, 270:
		return true
	}
	return false
}
