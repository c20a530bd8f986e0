package converter

import (
	"fmt"
	"math"
	"strings"
)

// AutoOptimizeQuality is the compression fraction used when Options.AutoOptimize is set.
const AutoOptimizeQuality = 0.8

// DefaultOutputFilename is the name of the produced document.
const DefaultOutputFilename = "converted-images.pdf"

// PageSize is a fixed physical page format.
type PageSize string

const (
	PageA4     PageSize = "a4"
	PageLetter PageSize = "letter"
)

// Orientation decides which page dimension is the width.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Options holds the conversion settings chosen by the user.
type Options struct {
	PageSize       PageSize    `json:"page_size" yaml:"page_size"`
	Orientation    Orientation `json:"orientation" yaml:"orientation"`
	AutoOptimize   bool        `json:"auto_optimize" yaml:"auto_optimize"`
	QualityPercent int         `json:"quality_percent" yaml:"quality_percent"`
}

// NewDefaultOptions returns A4 portrait with automatic optimisation.
func NewDefaultOptions() Options {
	return Options{
		PageSize:       PageA4,
		Orientation:    Portrait,
		AutoOptimize:   true,
		QualityPercent: 90,
	}
}

// Quality resolves the compression fraction applied to every image.
func (o Options) Quality() Quality {
	if o.AutoOptimize {
		return Compress(AutoOptimizeQuality)
	}
	return Compress(float64(o.QualityPercent) / 100)
}

// Normalize lower-cases the enums and clamps the quality into 0..100.
// It fails on an unknown page size or orientation.
func (o Options) Normalize() (Options, error) {
	ps, err := ParsePageSize(string(o.PageSize))
	if err != nil {
		return o, err
	}
	or, err := ParseOrientation(string(o.Orientation))
	if err != nil {
		return o, err
	}
	o.PageSize, o.Orientation = ps, or
	o.QualityPercent = int(math.Max(0, math.Min(100, float64(o.QualityPercent))))
	return o, nil
}

// ParsePageSize accepts "a4" or "letter" in any case.
func ParsePageSize(s string) (PageSize, error) {
	switch PageSize(strings.ToLower(strings.TrimSpace(s))) {
	case PageA4:
		return PageA4, nil
	case PageLetter:
		return PageLetter, nil
	}
	return "", fmt.Errorf("unknown page size %q (want a4 or letter)", s)
}

// ParseOrientation accepts "portrait"/"landscape" and the single-letter forms "p"/"l".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portrait", "p":
		return Portrait, nil
	case "landscape", "l":
		return Landscape, nil
	}
	return "", fmt.Errorf("unknown orientation %q (want portrait or landscape)", s)
}
