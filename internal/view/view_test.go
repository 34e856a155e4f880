package view

import (
	"image"
	"math"
	"testing"
)

func TestScaleForTick(t *testing.T) {
	cases := []struct {
		tick int
		want float64
	}{
		{0, 1.0},
		{1, 1.1},
		{5, 1.5},
		{-1, 1 / 1.1},
		{-5, 1 / 1.5},
	}
	for _, c := range cases {
		if got := ScaleForTick(c.tick); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("ScaleForTick(%d) = %v, want %v", c.tick, got, c.want)
		}
	}

	// The in/out mapping is intentionally not multiplicatively symmetric:
	// zooming in n ticks and out n ticks do not multiply to 1.
	if ScaleForTick(5)*ScaleForTick(-5) == 1.0 {
		t.Errorf("tick mapping unexpectedly symmetric")
	}
}

func TestRoundTripWithinOnePixel(t *testing.T) {
	scales := map[int]float64{-90: 0.1, -10: 0.5, 0: 1.0, 10: 2.0, 40: 5.0}
	points := []image.Point{{0, 0}, {13, 7}, {99, 1}, {640, 480}, {1917, 1079}}

	for tick, wantScale := range scales {
		m := NewMapper(1920, 1080, tick, [4]float64{0, 0, 1, 1})
		if math.Abs(m.Scale-wantScale) > 1e-9 {
			t.Fatalf("tick %d: scale = %v, want %v", tick, m.Scale, wantScale)
		}
		// Viewport -> image -> viewport lands within one image pixel of where
		// it started: one viewport pixel at unit zoom, proportionally more
		// viewport pixels when magnified.
		tol := m.Scale/2 + 0.5 + 1e-9
		for _, p := range points {
			ix, iy := m.ImageFromView(p.X, p.Y)
			vx, vy := m.ViewFromImage(ix, iy)
			if d := math.Abs(float64(vx - p.X)); d > tol {
				t.Errorf("scale %v: x round trip %d -> %d (tol %v)", m.Scale, p.X, vx, tol)
			}
			if d := math.Abs(float64(vy - p.Y)); d > tol {
				t.Errorf("scale %v: y round trip %d -> %d (tol %v)", m.Scale, p.Y, vy, tol)
			}
		}
	}
}

func TestMapperROIOffset(t *testing.T) {
	m := NewMapper(100, 100, 0, [4]float64{0.5, 0.5, 1, 1})
	if m.ROI != image.Rect(50, 50, 100, 100) {
		t.Fatalf("ROI = %v", m.ROI)
	}
	ix, iy := m.ImageFromView(0, 0)
	if ix != 50 || iy != 50 {
		t.Fatalf("view origin maps to (%d,%d), want ROI min", ix, iy)
	}
	vx, vy := m.ViewFromImage(50, 50)
	if vx != 0 || vy != 0 {
		t.Fatalf("ROI min maps to (%d,%d), want view origin", vx, vy)
	}
}

func TestClampToImage(t *testing.T) {
	m := NewMapper(10, 8, 0, [4]float64{0, 0, 1, 1})
	if x, y := m.ClampToImage(-3, 100); x != 0 || y != 7 {
		t.Fatalf("clamp = (%d,%d)", x, y)
	}
	if x, y := m.ClampToImage(4, 4); x != 4 || y != 4 {
		t.Fatalf("in-range point moved to (%d,%d)", x, y)
	}
}

func TestBrushRadius(t *testing.T) {
	if got := BrushRadius(10, 0); got != 10 {
		t.Fatalf("BrushRadius(10, 0) = %d", got)
	}
	if got := BrushRadius(10, 2); got != 20 {
		t.Fatalf("BrushRadius(10, 2) = %d, want 20", got)
	}
	if got := BrushRadius(10, -2); got != 5 {
		t.Fatalf("BrushRadius(10, -2) = %d, want 5", got)
	}
}

func TestFitTick(t *testing.T) {
	if got := FitTick(2000, 1000); got != 10 {
		t.Fatalf("FitTick(2000, 1000) = %d, want 10", got)
	}
	if got := FitTick(500, 1000); got != -10 {
		t.Fatalf("FitTick(500, 1000) = %d, want -10", got)
	}
	if got := FitTick(0, 1000); got != 0 {
		t.Fatalf("FitTick with empty viewport = %d, want 0", got)
	}
}

func TestVisibleArea(t *testing.T) {
	m := NewMapper(200, 200, 0, [4]float64{0, 0, 1, 1})
	got := m.VisibleArea(image.Pt(10, 20), 50, 50)
	want := image.Rect(10, 20, 61, 71)
	if got != want {
		t.Fatalf("VisibleArea = %v, want %v", got, want)
	}

	// Clipped to the ROI.
	m = NewMapper(200, 200, 0, [4]float64{0, 0, 0.25, 0.25})
	got = m.VisibleArea(image.Pt(0, 0), 100, 100)
	if !got.In(m.ROI) {
		t.Fatalf("VisibleArea %v escapes ROI %v", got, m.ROI)
	}
}
