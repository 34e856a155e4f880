package algo

import (
	"image"

	"github.com/MeKo-Tech/masklab/internal/mask"

	"github.com/disintegration/gift"
)

// morphGray runs a gift filter over the mask's grayscale form and binarizes
// the result. A 3x3 maximum is one dilation step, a 3x3 minimum one erosion
// step, matching the symmetric structuring element used throughout.
func morphGray(b *mask.Bitmap, f gift.Filter) *mask.Bitmap {
	g := gift.New(f)
	src := b.ToGray()
	dst := image.NewGray(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return mask.FromGray(dst)
}

func dilate(b *mask.Bitmap) *mask.Bitmap {
	return morphGray(b, gift.Maximum(3, false))
}

func erode(b *mask.Bitmap) *mask.Bitmap {
	return morphGray(b, gift.Minimum(3, false))
}

// closeOnce is one morphological closing: dilation followed by erosion.
func closeOnce(b *mask.Bitmap) *mask.Bitmap {
	return erode(dilate(b))
}

// RemoveSmallObjects clears every 8-connected component with fewer than
// minSize pixels, in place.
func RemoveSmallObjects(b *mask.Bitmap, minSize int) {
	if minSize <= 1 {
		return
	}
	seen := make([]bool, len(b.Pix))
	var stack []int
	var component []int

	for start, v := range b.Pix {
		if !v || seen[start] {
			continue
		}
		stack = append(stack[:0], start)
		component = component[:0]
		seen[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, i)
			x, y := i%b.W, i/b.W
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= b.W || ny >= b.H {
						continue
					}
					j := ny*b.W + nx
					if b.Pix[j] && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		if len(component) < minSize {
			for _, i := range component {
				b.Pix[i] = false
			}
		}
	}
}
