package converter

import (
	"fmt"
	"math"
)

// Quality is an optional compression fraction in [0, 1].
// The zero value means no compression was requested.
type Quality struct {
	fraction float64
	set      bool
}

// NoCompression requests maximum quality.
func NoCompression() Quality { return Quality{} }

// Compress requests the given fraction, clamped into [0, 1].
func Compress(fraction float64) Quality {
	return Quality{fraction: math.Max(0, math.Min(1, fraction)), set: true}
}

// Set reports whether a compression fraction was requested.
func (q Quality) Set() bool { return q.set }

// Fraction returns the effective fraction; 1.0 when nothing was requested.
func (q Quality) Fraction() float64 {
	if !q.set {
		return 1.0
	}
	return q.fraction
}

// JPEGQuality maps the fraction onto the 1..100 scale JPEG encoders take.
func (q Quality) JPEGQuality() int {
	v := int(math.Round(q.Fraction() * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

func (q Quality) String() string {
	if !q.set {
		return "none"
	}
	return fmt.Sprintf("%.2f", q.fraction)
}
