// Package mask holds the per-layer annotation bitmap and its undo history.
package mask

import (
	"image"
	"image/color"
)

// Bitmap is a binary per-pixel annotation grid for one layer of one image.
// Pixels are stored row-major; a true pixel is part of the mask.
type Bitmap struct {
	W, H int
	Pix  []bool
}

// New returns an all-false bitmap of the given dimensions.
func New(w, h int) *Bitmap {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Bitmap{W: w, H: h, Pix: make([]bool, w*h)}
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	c := &Bitmap{W: b.W, H: b.H, Pix: make([]bool, len(b.Pix))}
	copy(c.Pix, b.Pix)
	return c
}

// Bounds returns the bitmap extent as an image rectangle.
func (b *Bitmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.W, b.H)
}

// At reports the pixel at (x, y). Out-of-bounds coordinates read false.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return false
	}
	return b.Pix[y*b.W+x]
}

// Set writes the pixel at (x, y). Out-of-bounds writes are dropped.
func (b *Bitmap) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return
	}
	b.Pix[y*b.W+x] = v
}

// Any reports whether at least one pixel is set.
func (b *Bitmap) Any() bool {
	for _, v := range b.Pix {
		if v {
			return true
		}
	}
	return false
}

// Count returns the number of set pixels.
func (b *Bitmap) Count() int {
	n := 0
	for _, v := range b.Pix {
		if v {
			n++
		}
	}
	return n
}

// Equal reports whether two bitmaps have identical dimensions and content.
func (b *Bitmap) Equal(o *Bitmap) bool {
	if b.W != o.W || b.H != o.H {
		return false
	}
	for i, v := range b.Pix {
		if v != o.Pix[i] {
			return false
		}
	}
	return true
}

// Union sets every pixel that is set in o.
func (b *Bitmap) Union(o *Bitmap) {
	for i, v := range o.Pix {
		if v {
			b.Pix[i] = true
		}
	}
}

// Subtract clears every pixel that is set in o.
func (b *Bitmap) Subtract(o *Bitmap) {
	for i, v := range o.Pix {
		if v {
			b.Pix[i] = false
		}
	}
}

// Intersect clears every pixel that is not set in o.
func (b *Bitmap) Intersect(o *Bitmap) {
	for i, v := range o.Pix {
		if !v {
			b.Pix[i] = false
		}
	}
}

// Fill sets every pixel to v.
func (b *Bitmap) Fill(v bool) {
	for i := range b.Pix {
		b.Pix[i] = v
	}
}

// FillRect sets every pixel inside r (clipped to the bitmap) to v.
func (b *Bitmap) FillRect(r image.Rectangle, v bool) {
	r = r.Intersect(b.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := b.Pix[y*b.W : y*b.W+b.W]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = v
		}
	}
}

// SubBitmap returns a copy of the pixels inside r, clipped to the bitmap.
func (b *Bitmap) SubBitmap(r image.Rectangle) *Bitmap {
	r = r.Intersect(b.Bounds())
	s := New(r.Dx(), r.Dy())
	for y := 0; y < s.H; y++ {
		src := (r.Min.Y+y)*b.W + r.Min.X
		copy(s.Pix[y*s.W:y*s.W+s.W], b.Pix[src:src+s.W])
	}
	return s
}

// CopyRect copies the pixels of src into b with src's origin placed at p.
// Regions falling outside b are dropped.
func (b *Bitmap) CopyRect(src *Bitmap, p image.Point) {
	for y := 0; y < src.H; y++ {
		dy := p.Y + y
		if dy < 0 || dy >= b.H {
			continue
		}
		for x := 0; x < src.W; x++ {
			dx := p.X + x
			if dx < 0 || dx >= b.W {
				continue
			}
			b.Pix[dy*b.W+dx] = src.Pix[y*src.W+x]
		}
	}
}

// ToGray renders the bitmap as a single-channel image, 255 where masked.
func (b *Bitmap) ToGray() *image.Gray {
	g := image.NewGray(b.Bounds())
	for i, v := range b.Pix {
		if v {
			g.Pix[i] = 255
		}
	}
	return g
}

// FromGray converts a grayscale image into a bitmap. Any non-zero pixel is
// treated as masked, matching masks touched up by external tools.
func FromGray(g *image.Gray) *Bitmap {
	bounds := g.Bounds()
	b := New(bounds.Dx(), bounds.Dy())
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			if g.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y > 0 {
				b.Pix[y*b.W+x] = true
			}
		}
	}
	return b
}

// FromImage converts an arbitrary image into a bitmap by luminance.
func FromImage(img image.Image) *Bitmap {
	bounds := img.Bounds()
	b := New(bounds.Dx(), bounds.Dy())
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			if c.Y > 0 {
				b.Pix[y*b.W+x] = true
			}
		}
	}
	return b
}
