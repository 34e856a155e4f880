package algo

import (
	"image"
	"testing"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// greenRed builds an image whose left half is green and right half red.
func greenRed(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			if x < w/2 {
				img.Pix[i+1] = 200
			} else {
				img.Pix[i] = 200
			}
			img.Pix[i+3] = 255
		}
	}
	return img
}

func TestKMeansClusterMasksSeededCluster(t *testing.T) {
	img := greenRed(20, 9)
	seeds := mask.New(20, 9)
	seeds.Set(3, 5, true) // seed in the green half

	out, err := KMeansCluster(img, nil, seeds, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !out.At(5, 5) || !out.At(8, 2) {
		t.Fatalf("seeded green cluster not masked")
	}
	if out.At(15, 5) {
		t.Fatalf("unseeded red cluster masked")
	}
}

func TestKMeansClusterDeterministic(t *testing.T) {
	img := greenRed(16, 8)
	seeds := mask.New(16, 8)
	seeds.Set(2, 2, true)

	a, err := KMeansCluster(img, nil, seeds, 4)
	if err != nil {
		t.Fatal(err)
	}
	b, err := KMeansCluster(img, nil, seeds, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Fatalf("same input produced different clusterings")
	}
}

func TestKMeansClusterBadClusterCount(t *testing.T) {
	img := greenRed(4, 4)
	if _, err := KMeansCluster(img, nil, mask.New(4, 4), 0); err == nil {
		t.Fatalf("zero clusters accepted")
	}
	// More clusters than pixels is clamped, not an error.
	if _, err := KMeansCluster(img, nil, mask.New(4, 4), 1000); err != nil {
		t.Fatalf("oversized cluster count: %v", err)
	}
}

func TestLabA8Ordering(t *testing.T) {
	green := labA8(0, 200, 0)
	red := labA8(200, 0, 0)
	gray := labA8(128, 128, 128)

	if green >= gray || red <= gray {
		t.Fatalf("a* ordering wrong: green=%d gray=%d red=%d", green, gray, red)
	}
}

type stubModel struct {
	channel string
}

func (s *stubModel) Infer(img *image.NRGBA, channel string) (*mask.Bitmap, error) {
	s.channel = channel
	out := mask.New(img.Bounds().Dx(), img.Bounds().Dy())
	out.Set(0, 0, true)
	return out, nil
}

func TestModelHandleLifecycle(t *testing.T) {
	h := &ModelHandle{}
	if _, ok := h.Get(); ok {
		t.Fatalf("empty handle reports a model")
	}

	stub := &stubModel{}
	h.Load(stub)
	a := NewAdapter(nil)
	a.Model = h

	out, err := a.Run(AutomaskDL, "leaves", Input{Image: greenRed(4, 4), Mask: mask.New(4, 4), Seeds: mask.New(4, 4)})
	if err != nil {
		t.Fatal(err)
	}
	if !out.At(0, 0) || stub.channel != "leaves" {
		t.Fatalf("inference did not pass through the model")
	}

	h.Unload()
	if _, ok := h.Get(); ok {
		t.Fatalf("unloaded handle reports a model")
	}
}
