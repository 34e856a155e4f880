package render

import (
	"image"
	"image/color"

	"github.com/disintegration/gift"
	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/masklab/internal/imgio"
	"github.com/MeKo-Tech/masklab/internal/mask"
)

// Display colors for editing decorations.
var (
	DefaultOverlay = color.NRGBA{R: 230, G: 30, B: 30, A: 255}
	boxColor       = color.NRGBA{R: 40, G: 200, B: 40, A: 255}
	shapeColor     = color.NRGBA{R: 240, G: 220, B: 40, A: 255}
	cursorColor    = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	gridColor      = color.NRGBA{R: 120, G: 120, B: 120, A: 255}
)

// seedTint is added to seed pixels channel-wise, saturating.
var seedTint = [3]int{80, 180, 80}

// Cursor is the brush outline drawn at the pointer position.
type Cursor struct {
	At     image.Point
	Radius int
}

// Options controls compositing. The zero value renders the image with a solid
// overlay at half opacity and no decorations.
type Options struct {
	Pattern Pattern
	Color   color.NRGBA
	// Opacity is a -50..50 slider offset; the overlay blend factor is
	// 0.5 + Opacity/100, so 0 is half transparent.
	Opacity int
	// Brightness and Contrast are percentage offsets, Hue is degrees.
	Brightness int
	Contrast   int
	Hue        int
	// Contour outlines masked regions instead of filling them.
	Contour bool
	// MaskOnly renders the mask as white on black, skipping everything else.
	MaskOnly bool
	// ShowDepth renders the depth channel instead of the color image.
	ShowDepth bool
	// DepthContours bands the depth display; 0 uses the loader default.
	DepthContours int
	// GridStep draws a square grid with the given pixel spacing; 0 disables.
	GridStep int
	// PerlinSeed seeds the organic overlay pattern.
	PerlinSeed int64
}

// Scene is everything the compositor draws, all in image coordinates.
type Scene struct {
	Image *image.NRGBA
	Depth *image.Gray
	Mask  *mask.Bitmap
	Seeds *mask.Bitmap
	Boxes []image.Rectangle
	// Shape is the in-progress polygon/polyline ring; a closed ring also
	// previews the closing edge back to the first vertex.
	Shape  orb.Ring
	Cursor *Cursor
}

// Compose renders the scene into a fresh frame at image resolution. The
// caller's image and mask are never mutated.
func Compose(sc Scene, opts Options) *image.NRGBA {
	w := sc.Image.Bounds().Dx()
	h := sc.Image.Bounds().Dy()

	if opts.MaskOnly {
		return maskFrame(sc.Mask, w, h)
	}

	var frame *image.NRGBA
	if opts.ShowDepth && sc.Depth != nil {
		frame = imgio.DepthContours(sc.Depth, opts.DepthContours)
	} else {
		frame = adjust(sc.Image, opts)
	}

	if sc.Mask != nil && sc.Mask.Any() {
		if opts.Contour {
			drawContour(frame, sc.Mask, overlayColor(opts))
		} else {
			drawOverlay(frame, sc.Mask, opts)
		}
	}
	if sc.Seeds != nil && sc.Seeds.Any() {
		tintSeeds(frame, sc.Seeds)
	}
	for _, b := range sc.Boxes {
		drawRect(frame, b, boxColor)
	}
	for i := 1; i < len(sc.Shape); i++ {
		drawLine(frame, ringPoint(sc.Shape[i-1]), ringPoint(sc.Shape[i]), shapeColor)
	}
	if sc.Cursor != nil {
		drawCircle(frame, sc.Cursor.At, sc.Cursor.Radius, cursorColor)
	}
	if opts.GridStep > 0 {
		drawGrid(frame, opts.GridStep)
	}
	return frame
}

func ringPoint(p orb.Point) image.Point {
	return image.Pt(int(p[0]+0.5), int(p[1]+0.5))
}

func overlayColor(opts Options) color.NRGBA {
	if opts.Color.A == 0 {
		return DefaultOverlay
	}
	return opts.Color
}

// adjust applies the brightness, contrast, and hue sliders. All-zero sliders
// still copy so later drawing never writes into the source.
func adjust(img *image.NRGBA, opts Options) *image.NRGBA {
	if opts.Brightness == 0 && opts.Contrast == 0 && opts.Hue == 0 {
		out := image.NewNRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
		copyPixels(out, img)
		return out
	}
	var filters []gift.Filter
	if opts.Brightness != 0 {
		filters = append(filters, gift.Brightness(float32(opts.Brightness)))
	}
	if opts.Contrast != 0 {
		filters = append(filters, gift.Contrast(float32(opts.Contrast)))
	}
	if opts.Hue != 0 {
		filters = append(filters, gift.Hue(float32(opts.Hue)))
	}
	g := gift.New(filters...)
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

func copyPixels(dst, src *image.NRGBA) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		srow := src.Pix[y*src.Stride : y*src.Stride+b.Dx()*4]
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
		copy(drow, srow)
	}
}

func maskFrame(bm *mask.Bitmap, w, h int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if bm != nil && bm.At(x, y) {
				v = 255
			}
			i := out.PixOffset(x, y)
			out.Pix[i] = v
			out.Pix[i+1] = v
			out.Pix[i+2] = v
			out.Pix[i+3] = 255
		}
	}
	return out
}

// drawOverlay paints the mask through the selected pattern, blending the
// overlay color over the image by the opacity factor.
func drawOverlay(dst *image.NRGBA, bm *mask.Bitmap, opts Options) {
	alpha := 0.5 + float64(opts.Opacity)/100
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}
	c := overlayColor(opts)

	if opts.Pattern == PatternPerlin {
		field := perlinField(bm.W, bm.H, opts.PerlinSeed)
		for y := 0; y < bm.H; y++ {
			for x := 0; x < bm.W; x++ {
				if !bm.At(x, y) {
					continue
				}
				// noise modulates the per-pixel opacity
				a := alpha * float64(field[y*bm.W+x]) / 255
				blendAt(dst, x, y, c, a)
			}
		}
		return
	}

	tile := patternTile(opts.Pattern)
	for y := 0; y < bm.H; y++ {
		trow := y % tileSize
		for x := 0; x < bm.W; x++ {
			if !bm.At(x, y) || !tile.At(x%tileSize, trow) {
				continue
			}
			blendAt(dst, x, y, c, alpha)
		}
	}
}

func blendAt(dst *image.NRGBA, x, y int, c color.NRGBA, a float64) {
	i := dst.PixOffset(x, y)
	dst.Pix[i] = mix(dst.Pix[i], c.R, a)
	dst.Pix[i+1] = mix(dst.Pix[i+1], c.G, a)
	dst.Pix[i+2] = mix(dst.Pix[i+2], c.B, a)
}

func mix(d, s uint8, a float64) uint8 {
	return uint8(float64(d)*(1-a) + float64(s)*a + 0.5)
}

// drawContour outlines each masked region: a masked pixel with at least one
// unmasked 4-neighbor (or on the image edge) is a boundary pixel.
func drawContour(dst *image.NRGBA, bm *mask.Bitmap, c color.NRGBA) {
	for y := 0; y < bm.H; y++ {
		for x := 0; x < bm.W; x++ {
			if !bm.At(x, y) {
				continue
			}
			boundary := x == 0 || y == 0 || x == bm.W-1 || y == bm.H-1 ||
				!bm.At(x-1, y) || !bm.At(x+1, y) || !bm.At(x, y-1) || !bm.At(x, y+1)
			if boundary {
				setPixel(dst, x, y, c)
			}
		}
	}
}

func tintSeeds(dst *image.NRGBA, seeds *mask.Bitmap) {
	for y := 0; y < seeds.H; y++ {
		for x := 0; x < seeds.W; x++ {
			if !seeds.At(x, y) {
				continue
			}
			i := dst.PixOffset(x, y)
			for ch := 0; ch < 3; ch++ {
				v := int(dst.Pix[i+ch]) + seedTint[ch]
				if v > 255 {
					v = 255
				}
				dst.Pix[i+ch] = uint8(v)
			}
		}
	}
}

func setPixel(dst *image.NRGBA, x, y int, c color.NRGBA) {
	if x < 0 || y < 0 || x >= dst.Bounds().Dx() || y >= dst.Bounds().Dy() {
		return
	}
	i := dst.PixOffset(x, y)
	dst.Pix[i] = c.R
	dst.Pix[i+1] = c.G
	dst.Pix[i+2] = c.B
	dst.Pix[i+3] = 255
}

func drawRect(dst *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		setPixel(dst, x, r.Min.Y, c)
		setPixel(dst, x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		setPixel(dst, r.Min.X, y, c)
		setPixel(dst, r.Max.X-1, y, c)
	}
}

func drawLine(dst *image.NRGBA, a, b image.Point, c color.NRGBA) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	steps := dx
	if steps < 0 {
		steps = -steps
	}
	if dy > steps {
		steps = dy
	} else if -dy > steps {
		steps = -dy
	}
	if steps == 0 {
		setPixel(dst, a.X, a.Y, c)
		return
	}
	for i := 0; i <= steps; i++ {
		setPixel(dst, a.X+dx*i/steps, a.Y+dy*i/steps, c)
	}
}

func drawCircle(dst *image.NRGBA, center image.Point, r int, c color.NRGBA) {
	if r <= 0 {
		setPixel(dst, center.X, center.Y, c)
		return
	}
	// midpoint circle
	x, y := r, 0
	err := 1 - r
	for x >= y {
		for _, p := range [8]image.Point{
			{x, y}, {y, x}, {-x, y}, {-y, x},
			{x, -y}, {y, -x}, {-x, -y}, {-y, -x},
		} {
			setPixel(dst, center.X+p.X, center.Y+p.Y, c)
		}
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

func drawGrid(dst *image.NRGBA, step int) {
	w := dst.Bounds().Dx()
	h := dst.Bounds().Dy()
	for x := step; x < w; x += step {
		for y := 0; y < h; y++ {
			setPixel(dst, x, y, gridColor)
		}
	}
	for y := step; y < h; y += step {
		for x := 0; x < w; x++ {
			setPixel(dst, x, y, gridColor)
		}
	}
}
