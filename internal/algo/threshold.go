package algo

import (
	"image"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// otsu picks the threshold maximizing between-class variance over a 256-bin
// histogram. Pixels strictly above the threshold are foreground.
func otsu(hist *[256]int) int {
	total := 0
	sum := 0.0
	for v, n := range hist {
		total += n
		sum += float64(v * n)
	}
	if total == 0 {
		return 0
	}

	best, bestVar := 0, -1.0
	wb, sumB := 0, 0.0
	for t := 0; t < 256; t++ {
		wb += hist[t]
		if wb == 0 {
			continue
		}
		wf := total - wb
		if wf == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mb := sumB / float64(wb)
		mf := (sum - sumB) / float64(wf)
		between := float64(wb) * float64(wf) * (mb - mf) * (mb - mf)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return best
}

// channelThreshold builds a bitmap by Otsu-thresholding a per-pixel channel.
func channelThreshold(img *image.NRGBA, channel func(r, g, b uint8) uint8) *mask.Bitmap {
	bounds := img.Bounds()
	out := mask.New(bounds.Dx(), bounds.Dy())

	values := make([]uint8, 0, bounds.Dx()*bounds.Dy())
	var hist [256]int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := img.PixOffset(x, y)
			v := channel(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			values = append(values, v)
			hist[v]++
		}
	}

	t := otsu(&hist)
	for i, v := range values {
		if int(v) > t {
			out.Pix[i] = true
		}
	}
	return out
}

// BrightThreshold masks the brighter of the two luminance classes.
func BrightThreshold(img *image.NRGBA) *mask.Bitmap {
	return channelThreshold(img, luma8)
}

// LabThreshold masks by Otsu on the Lab a* channel, which separates green
// foreground from red/brown background far better than raw RGB.
func LabThreshold(img *image.NRGBA) *mask.Bitmap {
	return channelThreshold(img, labA8)
}
