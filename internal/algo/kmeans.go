package algo

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/masklab/internal/mask"

	"gonum.org/v1/gonum/floats"
)

const kmeansIterations = 10

// KMeansCluster is the default clustering implementation: k-means over a
// (green, Lab a*) feature per pixel, then mask every cluster that contains at
// least one seed pixel. It satisfies the RegionFunc contract, so a different
// implementation can be swapped in without touching the adapter.
func KMeansCluster(img *image.NRGBA, _, seeds *mask.Bitmap, clusters int) (*mask.Bitmap, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	n := w * h
	if clusters < 1 {
		return nil, fmt.Errorf("clustering: need at least one cluster")
	}
	if clusters > n {
		clusters = n
	}

	features := make([][2]float64, n)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			o := img.PixOffset(x, y)
			features[i] = [2]float64{
				float64(img.Pix[o+1]),
				float64(labA8(img.Pix[o], img.Pix[o+1], img.Pix[o+2])),
			}
			i++
		}
	}

	// Deterministic init: centers spread evenly across the pixel sequence.
	centers := make([][2]float64, clusters)
	for c := range centers {
		centers[c] = features[c*n/clusters]
	}

	labels := make([]int, n)
	sums := make([][2]float64, clusters)
	counts := make([]int, clusters)
	for iter := 0; iter < kmeansIterations; iter++ {
		for i, f := range features {
			best, bestDist := 0, floats.Distance(f[:], centers[0][:], 2)
			for c := 1; c < clusters; c++ {
				if d := floats.Distance(f[:], centers[c][:], 2); d < bestDist {
					best, bestDist = c, d
				}
			}
			labels[i] = best
		}
		for c := range sums {
			sums[c] = [2]float64{}
			counts[c] = 0
		}
		for i, f := range features {
			c := labels[i]
			sums[c][0] += f[0]
			sums[c][1] += f[1]
			counts[c]++
		}
		for c := range centers {
			if counts[c] > 0 {
				centers[c][0] = sums[c][0] / float64(counts[c])
				centers[c][1] = sums[c][1] / float64(counts[c])
			}
		}
	}

	seeded := make([]bool, clusters)
	for i, set := range seeds.Pix {
		if set {
			seeded[labels[i]] = true
		}
	}

	out := mask.New(w, h)
	for i, c := range labels {
		if seeded[c] {
			out.Pix[i] = true
		}
	}
	return out, nil
}
