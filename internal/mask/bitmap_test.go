package mask

import (
	"image"
	"testing"
)

func TestBitmapOutOfBoundsAccess(t *testing.T) {
	b := New(3, 3)
	b.Set(-1, 0, true)
	b.Set(0, -1, true)
	b.Set(3, 0, true)
	b.Set(0, 3, true)
	if b.Any() {
		t.Fatalf("out-of-bounds writes changed the bitmap")
	}
	if b.At(-1, -1) || b.At(3, 3) {
		t.Fatalf("out-of-bounds reads returned true")
	}
}

func TestBitmapSetOps(t *testing.T) {
	a := New(4, 1)
	a.Set(0, 0, true)
	a.Set(1, 0, true)

	b := New(4, 1)
	b.Set(1, 0, true)
	b.Set(2, 0, true)

	u := a.Clone()
	u.Union(b)
	if u.Count() != 3 {
		t.Fatalf("union count = %d, want 3", u.Count())
	}

	s := a.Clone()
	s.Subtract(b)
	if s.Count() != 1 || !s.At(0, 0) {
		t.Fatalf("subtract left the wrong pixels")
	}

	i := a.Clone()
	i.Intersect(b)
	if i.Count() != 1 || !i.At(1, 0) {
		t.Fatalf("intersect left the wrong pixels")
	}
}

func TestBitmapRectOps(t *testing.T) {
	b := New(5, 5)
	b.FillRect(image.Rect(1, 1, 4, 4), true)
	if b.Count() != 9 {
		t.Fatalf("fill rect count = %d, want 9", b.Count())
	}

	// Clipped rect only touches the overlap.
	b.FillRect(image.Rect(3, 3, 10, 10), false)
	if b.At(3, 3) || !b.At(2, 2) {
		t.Fatalf("clipped fill rect cleared the wrong pixels")
	}

	sub := b.SubBitmap(image.Rect(1, 1, 3, 3))
	if sub.W != 2 || sub.H != 2 || sub.Count() != 4 {
		t.Fatalf("sub bitmap = %dx%d with %d set", sub.W, sub.H, sub.Count())
	}

	dst := New(5, 5)
	dst.CopyRect(sub, image.Pt(3, 3))
	if dst.Count() != 4 || !dst.At(3, 3) || !dst.At(4, 4) {
		t.Fatalf("copy rect placed the wrong pixels")
	}

	// Placement partially off the bitmap keeps the in-bounds part.
	edge := New(5, 5)
	edge.CopyRect(sub, image.Pt(4, 4))
	if edge.Count() != 1 || !edge.At(4, 4) {
		t.Fatalf("off-edge copy rect kept %d pixels", edge.Count())
	}
}

func TestBitmapGrayRoundTrip(t *testing.T) {
	b := New(3, 2)
	b.Set(0, 0, true)
	b.Set(2, 1, true)

	got := FromGray(b.ToGray())
	if !got.Equal(b) {
		t.Fatalf("gray round trip lost content")
	}

	// Externally touched-up masks may carry gray values; anything non-zero
	// counts as masked.
	g := b.ToGray()
	g.Pix[1] = 7
	got = FromGray(g)
	if !got.At(1, 0) {
		t.Fatalf("faint gray pixel not treated as masked")
	}
}
