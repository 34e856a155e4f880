package engine

import (
	"image"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// hole returns the cached circular brush kernel for radius r, a (2r+1)² square
// with bits set where dx²+dy² ≤ r².
func (e *Editor) holeFor(r int) *mask.Bitmap {
	if e.hole != nil && e.holeRadius == r {
		return e.hole
	}
	d := 2*r + 1
	h := mask.New(d, d)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				h.Set(dx+r, dy+r, true)
			}
		}
	}
	e.hole = h
	e.holeRadius = r
	return h
}

// stamp writes the circular kernel centered at p into dst, clipped to the
// image. Off-image centers still contribute their in-bounds part.
func stamp(dst *mask.Bitmap, hole *mask.Bitmap, p image.Point, value bool) {
	r := hole.W / 2
	for dy := 0; dy < hole.H; dy++ {
		y := p.Y - r + dy
		if y < 0 || y >= dst.H {
			continue
		}
		for dx := 0; dx < hole.W; dx++ {
			x := p.X - r + dx
			if x < 0 || x >= dst.W {
				continue
			}
			if hole.At(dx, dy) {
				dst.Set(x, y, value)
			}
		}
	}
}

// stampLine stamps the kernel along every integer step of the segment a→b,
// producing a solid stroke of width 2r+1.
func stampLine(dst *mask.Bitmap, hole *mask.Bitmap, a, b image.Point, value bool) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		stamp(dst, hole, a, value)
		return
	}
	for i := 0; i <= steps; i++ {
		p := image.Pt(a.X+dx*i/steps, a.Y+dy*i/steps)
		stamp(dst, hole, p, value)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// StrokeStart begins a brush stroke at p: one stamped disc, committed as a
// single undoable edit. Radius 0 still stamps the center pixel when drawing;
// an erase of radius 0 touches nothing.
func (e *Editor) StrokeStart(p image.Point, radius int, erase bool) {
	if erase && radius == 0 {
		return
	}
	bm := e.Mask().Clone()
	stamp(bm, e.holeFor(radius), p, !erase)
	e.commit(bm, mask.NoTag, "")
}

// StrokeMove extends the in-progress stroke from prev to cur. The current
// snapshot is mutated in place so the whole stroke undoes as one step.
func (e *Editor) StrokeMove(prev, cur image.Point, radius int, erase bool) {
	if erase && radius == 0 {
		return
	}
	stampLine(e.Mask(), e.holeFor(radius), prev, cur, !erase)
	e.emitCurrent()
}

// FloodFill fills the 4-connected unmasked region containing p. A masked or
// out-of-bounds seed is a no-op.
func (e *Editor) FloodFill(p image.Point) {
	cur := e.Mask()
	if p.X < 0 || p.Y < 0 || p.X >= cur.W || p.Y >= cur.H || cur.At(p.X, p.Y) {
		return
	}
	bm := cur.Clone()
	queue := []image.Point{p}
	bm.Set(p.X, p.Y, true)
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		for _, n := range [4]image.Point{
			{q.X + 1, q.Y}, {q.X - 1, q.Y}, {q.X, q.Y + 1}, {q.X, q.Y - 1},
		} {
			if n.X < 0 || n.Y < 0 || n.X >= bm.W || n.Y >= bm.H {
				continue
			}
			if bm.At(n.X, n.Y) {
				continue
			}
			bm.Set(n.X, n.Y, true)
			queue = append(queue, n)
		}
	}
	e.commit(bm, mask.NoTag, "")
}
