package converter

import "math"

// Page dimensions in points, portrait.
var pageDimensions = map[PageSize][2]float64{
	PageA4:     {595.28, 841.89},
	PageLetter: {612, 792},
}

// Rect is an axis-aligned box in points, origin top-left.
type Rect struct {
	X, Y, W, H float64
}

// PageDimensions returns the width and height of a page in points.
// Landscape swaps the portrait dimensions.
func PageDimensions(size PageSize, orientation Orientation) (w, h float64) {
	d, ok := pageDimensions[size]
	if !ok {
		d = pageDimensions[PageA4]
	}
	if orientation == Landscape {
		return d[1], d[0]
	}
	return d[0], d[1]
}

// Placement scales an image uniformly to fit the page and centres it.
// The scale is min(pageW/imgW, pageH/imgH), so the aspect ratio is kept and the
// image never exceeds the page on either axis.
func Placement(pageW, pageH float64, imgW, imgH int) Rect {
	if imgW <= 0 || imgH <= 0 {
		return Rect{}
	}
	scale := math.Min(pageW/float64(imgW), pageH/float64(imgH))
	w := float64(imgW) * scale
	h := float64(imgH) * scale
	return Rect{
		X: (pageW - w) / 2,
		Y: (pageH - h) / 2,
		W: w,
		H: h,
	}
}
