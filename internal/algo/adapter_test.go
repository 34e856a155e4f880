package algo

import (
	"errors"
	"image"
	"testing"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// twoTone builds an image whose left half is dark and right half bright.
func twoTone(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(30)
			if x >= w/2 {
				v = 220
			}
			i := img.PixOffset(x, y)
			img.Pix[i] = v
			img.Pix[i+1] = v
			img.Pix[i+2] = v
			img.Pix[i+3] = 255
		}
	}
	return img
}

func TestBrightThresholdSeparatesHalves(t *testing.T) {
	img := twoTone(20, 10)
	got := BrightThreshold(img)

	if !got.At(15, 5) {
		t.Fatalf("bright half not masked")
	}
	if got.At(3, 5) {
		t.Fatalf("dark half masked")
	}
}

func TestDilationErosionRoundTrip(t *testing.T) {
	b := mask.New(11, 11)
	b.FillRect(image.Rect(4, 4, 7, 7), true)

	d := dilate(b)
	if d.Count() <= b.Count() {
		t.Fatalf("dilation did not grow the region: %d -> %d", b.Count(), d.Count())
	}
	if !d.At(3, 5) {
		t.Fatalf("dilation missed the left edge")
	}

	e := erode(d)
	if !e.Equal(b) {
		t.Fatalf("erode(dilate(x)) != x for an isolated square")
	}

	// Closing keeps an isolated block intact.
	if !closeOnce(b).Equal(b) {
		t.Fatalf("closing changed a solid square")
	}
}

func TestRemoveSmallObjects(t *testing.T) {
	b := mask.New(20, 20)
	b.FillRect(image.Rect(2, 2, 8, 8), true) // 36 px
	b.Set(15, 15, true)                      // 1 px speck
	b.Set(15, 16, true)
	b.Set(16, 16, true) // 3 px diagonal-connected blob

	RemoveSmallObjects(b, 10)
	if !b.At(4, 4) {
		t.Fatalf("large component removed")
	}
	if b.At(15, 15) || b.At(16, 16) {
		t.Fatalf("small components kept")
	}

	// minSize <= 1 is a no-op.
	b.Set(0, 0, true)
	RemoveSmallObjects(b, 1)
	if !b.At(0, 0) {
		t.Fatalf("minSize 1 removed a pixel")
	}
}

func TestRunScopesToBoxes(t *testing.T) {
	a := NewAdapter(nil)
	in := Input{
		Image: twoTone(40, 20),
		Mask:  mask.New(40, 20),
		Seeds: mask.New(40, 20),
		Boxes: []image.Rectangle{image.Rect(22, 2, 30, 10)},
	}
	in.Mask.FillRect(image.Rect(24, 4, 26, 6), true)
	in.Mask.Set(35, 15, true) // outside the box

	out, err := a.Run(Dilation, "1", in)
	if err != nil {
		t.Fatal(err)
	}
	if !out.At(23, 4) {
		t.Fatalf("dilation did not grow inside the box")
	}
	if out.At(34, 15) || out.At(35, 14) {
		t.Fatalf("dilation leaked outside the box")
	}
	if !out.At(35, 15) {
		t.Fatalf("content outside the box was lost")
	}
}

func TestRunUnavailableKinds(t *testing.T) {
	a := NewAdapter(nil)

	_, err := a.Run(GrabCutRectangle, "", Input{
		Image: twoTone(10, 10),
		Mask:  mask.New(10, 10),
		Seeds: mask.New(10, 10),
		Boxes: []image.Rectangle{image.Rect(1, 1, 5, 5)},
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("grab-cut without implementation: err = %v", err)
	}

	_, err = a.Run(AutomaskDL, "leaves", Input{
		Image: twoTone(10, 10),
		Mask:  mask.New(10, 10),
		Seeds: mask.New(10, 10),
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("inference without model: err = %v", err)
	}
}

func TestRunClusteringNeedsSeeds(t *testing.T) {
	a := NewAdapter(nil)
	_, err := a.Run(Clustering, "4", Input{
		Image: twoTone(10, 10),
		Mask:  mask.New(10, 10),
		Seeds: mask.New(10, 10),
	})
	if err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("clustering without seeds: err = %v", err)
	}
}

func TestRunUnknownKind(t *testing.T) {
	a := NewAdapter(nil)
	if _, err := a.Run(Kind("nonsense"), "", Input{Image: twoTone(4, 4), Mask: mask.New(4, 4)}); err == nil {
		t.Fatalf("unknown kind accepted")
	}
}

func TestSettingsStackRoundTrip(t *testing.T) {
	in := []mask.AlgoEntry{
		{Tag: "lab_auto_mask", Param: ""},
		{Tag: "dilation", Param: "2"},
		{Tag: "removing_objects", Param: "120"},
	}
	blob, err := EncodeStack(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeStack(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("decoded %d entries, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, out[i], in[i])
		}
	}

	if entries, err := DecodeStack(""); err != nil || entries != nil {
		t.Fatalf("empty blob: entries=%v err=%v", entries, err)
	}
	if _, err := DecodeStack("{broken"); err == nil {
		t.Fatalf("corrupt blob accepted")
	}
}

func TestReplayableSet(t *testing.T) {
	if Replayable(GrabCutRectangle) || Replayable(MaskMove) {
		t.Fatalf("interactive kinds must not be replayable")
	}
	for _, k := range []Kind{LabAutomask, BrightAutomask, Clustering, Dilation, Erosion, Closing, RemoveObjects, AutomaskDL} {
		if !Replayable(k) {
			t.Fatalf("%s should be replayable", k)
		}
	}
}
