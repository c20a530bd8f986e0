package converter

import (
	"slices"
	"strings"
)

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
	mimeGIF  = "image/gif"
	mimeWebP = "image/webp"
	mimeBMP  = "image/bmp"
	mimeTIFF = "image/tiff"
)

// FormatPolicy decides which encoding a transformed image is written in.
// The substitutions are data so they can be tuned per deployment.
type FormatPolicy struct {
	// Lossless maps source types that must be re-encoded losslessly
	// (palette/animated formats) to their target. Quality is ignored for them.
	Lossless map[string]string `json:"lossless" yaml:"lossless"`

	// QualityFallback maps source types that cannot honour a quality setting
	// to the lossy type used instead, only when a quality is requested.
	QualityFallback map[string]string `json:"quality_fallback" yaml:"quality_fallback"`

	// LossyTarget is the standard lossy type quality requests convert to.
	LossyTarget string `json:"lossy_target" yaml:"lossy_target"`

	// ForceLossyOnQuality converts any other type to LossyTarget when a quality is requested.
	ForceLossyOnQuality bool `json:"force_lossy_on_quality" yaml:"force_lossy_on_quality"`

	// Encodable lists the types the canvas can serialize. Anything else is written as PNG.
	Encodable []string `json:"encodable" yaml:"encodable"`
}

// DefaultFormatPolicy mirrors what a browser canvas does: GIF becomes PNG,
// WebP becomes JPEG when compressed, and compression always means JPEG.
func DefaultFormatPolicy() FormatPolicy {
	return FormatPolicy{
		Lossless:            map[string]string{mimeGIF: mimePNG},
		QualityFallback:     map[string]string{mimeWebP: mimeJPEG},
		LossyTarget:         mimeJPEG,
		ForceLossyOnQuality: true,
		Encodable:           []string{mimeJPEG, mimePNG, mimeGIF, mimeBMP, mimeTIFF},
	}
}

// Resolve returns the output type for an image of srcType.
func (p FormatPolicy) Resolve(srcType string, q Quality) string {
	src := NormalizeMIME(srcType)
	out := src
	if target, ok := p.Lossless[src]; ok {
		out = target
	} else if target, ok := p.QualityFallback[src]; ok && q.Set() {
		out = target
	} else if q.Set() && p.ForceLossyOnQuality && src != p.lossyTarget() {
		out = p.lossyTarget()
	}
	if !slices.Contains(p.Encodable, out) {
		return mimePNG
	}
	return out
}

func (p FormatPolicy) lossyTarget() string {
	if p.LossyTarget == "" {
		return mimeJPEG
	}
	return NormalizeMIME(p.LossyTarget)
}

// NormalizeMIME lower-cases a type, drops parameters and folds common aliases.
func NormalizeMIME(t string) string {
	t, _, _ = strings.Cut(t, ";")
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "image/jpg", "image/pjpeg":
		return mimeJPEG
	case "image/x-png":
		return mimePNG
	case "image/x-ms-bmp", "image/x-bmp":
		return mimeBMP
	}
	return t
}
