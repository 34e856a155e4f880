// Package render composites the source image, mask overlays, and editing
// decorations into a displayable frame.
package render

import (
	"github.com/aquilax/go-perlin"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// Pattern selects the tiling pattern used to paint masked regions.
type Pattern string

const (
	PatternSolid     Pattern = "solid"
	PatternCross     Pattern = "cross"
	PatternDiamond   Pattern = "diamond"
	PatternDiagonals Pattern = "diagonals"
	PatternPerlin    Pattern = "perlin"
)

// tileSize is the repeat period of the line patterns.
const tileSize = 10

// patternTile returns the repeating pattern cell. Bits set in the tile are
// painted with the overlay color; clear bits show the image through.
func patternTile(p Pattern) *mask.Bitmap {
	t := mask.New(tileSize, tileSize)
	switch p {
	case PatternCross:
		for i := 0; i < tileSize; i++ {
			t.Set(i, tileSize/2, true)
			t.Set(tileSize/2, i, true)
		}
	case PatternDiamond:
		half := tileSize / 2
		for i := 0; i < tileSize; i++ {
			d := i - half
			if d < 0 {
				d = -d
			}
			t.Set(i, d, true)
			t.Set(i, tileSize-1-d, true)
		}
	case PatternDiagonals:
		for i := 0; i < tileSize; i++ {
			t.Set(i, i, true)
			t.Set(i, (i+tileSize/2)%tileSize, true)
		}
	default: // PatternSolid and unknown patterns paint every pixel
		t.Fill(true)
	}
	return t
}

// perlinScale controls the noise frequency of the perlin overlay.
const perlinScale = 24.0

// perlinField samples deterministic noise over the full image so the organic
// overlay does not repeat on tile boundaries. Values are 0..255.
func perlinField(w, h int, seed int64) []uint8 {
	p := perlin.NewPerlin(2.0, 2.0, 3, seed)
	field := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := p.Noise2D(float64(x)/perlinScale, float64(y)/perlinScale)
			n := (v + 1.0) / 2.0
			if n < 0 {
				n = 0
			} else if n > 1 {
				n = 1
			}
			field[y*w+x] = uint8(n * 255)
		}
	}
	return field
}
