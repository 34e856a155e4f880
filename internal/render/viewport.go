package render

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/MeKo-Tech/masklab/internal/view"
)

// Viewport crops the frame to the mapper's region of interest and scales it
// to display resolution. Downscaling uses a smoothing kernel; upscaling stays
// nearest-neighbor so mask pixels keep hard edges under magnification.
func Viewport(frame *image.NRGBA, m view.Mapper) *image.NRGBA {
	roi := m.ROI.Intersect(frame.Bounds())
	if roi.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1))
	}
	cropped := frame.SubImage(roi).(*image.NRGBA)

	outW := int(float64(roi.Dx())*m.Scale + 0.5)
	outH := int(float64(roi.Dy())*m.Scale + 0.5)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, outW, outH))

	var scaler xdraw.Scaler = xdraw.NearestNeighbor
	if m.Scale < 1 {
		scaler = xdraw.ApproxBiLinear
	}
	scaler.Scale(dst, dst.Bounds(), cropped, roi, xdraw.Src, nil)
	return dst
}
