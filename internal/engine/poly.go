package engine

import (
	"image"

	"github.com/paulmach/orb"
	"golang.org/x/image/vector"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// ShapeMode selects the behavior of vertex-based drawing.
type ShapeMode int

const (
	ShapeNone ShapeMode = iota
	PolygonDraw
	PolygonErase
	Polyline
)

// CloseRadius is the pixel distance to the first vertex within which a click
// closes the shape instead of adding a vertex.
const CloseRadius = 10

type polyShape struct {
	mode  ShapeMode
	verts []image.Point
}

// ShapeMode returns the active vertex-drawing mode.
func (e *Editor) ShapeMode() ShapeMode { return e.shape.mode }

// ShapeVertices returns the in-progress shape's vertices for preview drawing.
func (e *Editor) ShapeVertices() []image.Point { return e.shape.verts }

// StartShape enters a vertex-drawing mode, discarding any unfinished shape.
func (e *Editor) StartShape(mode ShapeMode) {
	e.dropShapeOps()
	e.shape = polyShape{mode: mode}
}

// CancelShape abandons the in-progress shape without touching the mask.
// Polyline segments already drawn stay drawn.
func (e *Editor) CancelShape() {
	e.dropShapeOps()
	e.shape = polyShape{}
}

// dropShapeOps removes this shape's vertex entries from the undo log.
func (e *Editor) dropShapeOps() {
	for len(e.ops) > 0 && e.ops[len(e.ops)-1].kind == opPolyVertex {
		e.ops = e.ops[:len(e.ops)-1]
	}
}

// AddVertex handles one click in a vertex-drawing mode. A click within
// CloseRadius of the first vertex closes the shape; it reports whether the
// shape was committed.
func (e *Editor) AddVertex(p image.Point) bool {
	switch e.shape.mode {
	case PolygonDraw, PolygonErase:
		if len(e.shape.verts) >= 3 && near(p, e.shape.verts[0], CloseRadius) {
			e.commitPolygon()
			return true
		}
		e.shape.verts = append(e.shape.verts, p)
		e.ops = append(e.ops, op{kind: opPolyVertex})
		return false

	case Polyline:
		if len(e.shape.verts) > 0 {
			prev := e.shape.verts[len(e.shape.verts)-1]
			bm := e.Mask().Clone()
			stampLine(bm, e.holeFor(strokeRadius), prev, p, true)
			e.stack.Commit(bm, mask.NoTag, "")
			e.emitCurrent()
		}
		e.shape.verts = append(e.shape.verts, p)
		e.ops = append(e.ops, op{kind: opPolyVertex, committed: len(e.shape.verts) > 1})
		return false
	}
	return false
}

// strokeRadius is the half-thickness of polyline segments.
const strokeRadius = 2

// FinishPolyline ends polyline drawing, keeping what was drawn.
func (e *Editor) FinishPolyline() {
	if e.shape.mode != Polyline {
		return
	}
	e.dropShapeOps()
	e.shape = polyShape{}
}

// popVertex rolls back one AddVertex. committed polyline vertices also drew a
// segment, so the mask snapshot pops with them.
func (e *Editor) popVertex(committed bool) {
	if n := len(e.shape.verts); n > 0 {
		e.shape.verts = e.shape.verts[:n-1]
	}
	if committed {
		if _, ok := e.stack.Undo(); ok {
			e.emitCurrent()
		}
	}
	if len(e.shape.verts) == 0 {
		mode := e.shape.mode
		e.shape = polyShape{mode: mode}
	}
}

// commitPolygon fills the closed shape and applies it to the mask as one
// undoable edit. Undoing that edit re-opens the shape for adjustment.
func (e *Editor) commitPolygon() {
	shape := e.shape
	filled := fillPolygon(e.Mask().W, e.Mask().H, shape.verts)
	bm := e.Mask().Clone()
	if shape.mode == PolygonErase {
		bm.Subtract(filled)
	} else {
		bm.Union(filled)
	}
	e.dropShapeOps()
	e.stack.Commit(bm, mask.NoTag, "")
	restore := shape
	e.ops = append(e.ops, op{kind: opMaskEdit, restoreShape: &restore})
	e.shape = polyShape{mode: shape.mode}
	e.emitCurrent()
}

// fillPolygon rasterizes the vertex ring into a bitmap. Any pixel the outline
// touches at all is included, so thin slivers survive.
func fillPolygon(w, h int, verts []image.Point) *mask.Bitmap {
	bm := mask.New(w, h)
	if len(verts) < 3 {
		return bm
	}
	ras := vector.NewRasterizer(w, h)
	ras.MoveTo(float32(verts[0].X), float32(verts[0].Y))
	for _, v := range verts[1:] {
		ras.LineTo(float32(v.X), float32(v.Y))
	}
	ras.ClosePath()
	alpha := image.NewAlpha(image.Rect(0, 0, w, h))
	ras.Draw(alpha, alpha.Bounds(), image.Opaque, image.Point{})
	for y := 0; y < h; y++ {
		row := alpha.Pix[y*alpha.Stride : y*alpha.Stride+w]
		for x, a := range row {
			if a > 0 {
				bm.Set(x, y, true)
			}
		}
	}
	return bm
}

// near reports whether two points lie within radius of each other.
func near(a, b image.Point, radius int) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx+dy*dy <= radius*radius
}

// ShapeRing returns the in-progress shape as a closed ring, the geometry the
// display compositor draws as the shape preview.
func (e *Editor) ShapeRing() orb.Ring {
	if len(e.shape.verts) == 0 {
		return nil
	}
	ring := make(orb.Ring, 0, len(e.shape.verts)+1)
	for _, v := range e.shape.verts {
		ring = append(ring, orb.Point{float64(v.X), float64(v.Y)})
	}
	ring = append(ring, ring[0])
	return ring
}
