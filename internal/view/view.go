// Package view maps between viewport pixels (zoomed, scrolled, ROI-cropped)
// and canonical full-resolution image coordinates.
package view

import (
	"image"
	"math"
)

const (
	// ZoomStep is the per-tick scale increment.
	ZoomStep = 0.1
	// BrushZoomStep is the per-tick brush radius increment.
	BrushZoomStep = 0.5

	DefaultBrushRadius     = 10
	DefaultPenStartRadius  = 10
	DefaultStrokeThickness = 4
)

// ScaleForTick converts an integer zoom tick to a scale factor. The mapping
// is piecewise: 1+t*step zooming in, 1/(1+|t|*step) zooming out. It is not
// multiplicatively symmetric between the two directions; downstream pixel
// rounding depends on this exact mapping, so it stays as is.
func ScaleForTick(tick int) float64 {
	switch {
	case tick > 0:
		return 1 + float64(tick)*ZoomStep
	case tick < 0:
		return 1 / (1 + float64(-tick)*ZoomStep)
	default:
		return 1.0
	}
}

// BrushRadius scales a base brush radius by the brush zoom tick.
func BrushRadius(base float64, tick int) int {
	switch {
	case tick > 0:
		base *= 1 + float64(tick)*BrushZoomStep
	case tick < 0:
		base *= 1 / (1 + float64(-tick)*BrushZoomStep)
	}
	return int(base)
}

// FitTick derives the zoom tick that makes an image dimension fill the
// available viewport dimension.
func FitTick(available, size int) int {
	if available <= 0 || size <= 0 {
		return 0
	}
	scale := float64(available) / float64(size)
	if scale > 1 {
		return int(math.Floor((scale - 1) / ZoomStep))
	}
	if scale > 0 && scale < 1 {
		return int(math.Floor(-(1/scale - 1) / ZoomStep))
	}
	return 0
}

// Mapper converts between viewport and image coordinates for a given zoom
// scale and region of interest. It is a pure value; it holds no mask state.
type Mapper struct {
	Scale float64
	// ROI is the addressable sub-rectangle of the image, in image pixels.
	ROI  image.Rectangle
	imgW int
	imgH int
}

// NewMapper builds a mapper for an image of the given size. roi is the
// normalized [x0,y0,x1,y1] sub-rectangle currently addressable; {0,0,1,1}
// addresses the full image.
func NewMapper(imgW, imgH int, tick int, roi [4]float64) Mapper {
	r := image.Rect(
		int(roi[0]*float64(imgW)),
		int(roi[1]*float64(imgH)),
		int(roi[2]*float64(imgW)),
		int(roi[3]*float64(imgH)),
	)
	return Mapper{Scale: ScaleForTick(tick), ROI: r, imgW: imgW, imgH: imgH}
}

// ImageFromView resolves a viewport position to canonical image coordinates.
func (m Mapper) ImageFromView(vx, vy int) (int, int) {
	x := int(math.Round(float64(vx)/m.Scale)) + m.ROI.Min.X
	y := int(math.Round(float64(vy)/m.Scale)) + m.ROI.Min.Y
	return x, y
}

// ViewFromImage maps canonical image coordinates back into the viewport.
func (m Mapper) ViewFromImage(ix, iy int) (int, int) {
	x := int(math.Round(float64(ix-m.ROI.Min.X) * m.Scale))
	y := int(math.Round(float64(iy-m.ROI.Min.Y) * m.Scale))
	return x, y
}

// ToImageScale converts a viewport-space length to image space.
func (m Mapper) ToImageScale(v int) int {
	return int(math.Round(float64(v) / m.Scale))
}

// ToViewScale converts an image-space length to viewport space.
func (m Mapper) ToViewScale(v int) int {
	return int(math.Round(float64(v) * m.Scale))
}

// ClampToImage clips image coordinates into [0, dim). Out-of-range input is
// clamped rather than rejected; drawing code treats the resulting zero-size
// regions as no-ops.
func (m Mapper) ClampToImage(x, y int) (int, int) {
	if x < 0 {
		x = 0
	}
	if x >= m.imgW {
		x = m.imgW - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= m.imgH {
		y = m.imgH - 1
	}
	return x, y
}

// VisibleArea intersects a viewport rectangle (in viewport pixels, relative
// to the scrolled origin) with the ROI and returns it in image coordinates.
func (m Mapper) VisibleArea(origin image.Point, w, h int) image.Rectangle {
	x0 := m.ROI.Min.X + m.ToImageScale(origin.X)
	y0 := m.ROI.Min.Y + m.ToImageScale(origin.Y)
	x1 := x0 + m.ToImageScale(w) + 1
	y1 := y0 + m.ToImageScale(h) + 1
	return image.Rect(x0, y0, x1, y1).Intersect(m.ROI)
}
