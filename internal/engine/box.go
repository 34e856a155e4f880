package engine

import (
	"context"
	"fmt"
	"image"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// AddBox pushes a user-drawn rectangle. Corners arrive in any order; the box
// is normalized and clipped to the image, and degenerate boxes are dropped.
func (e *Editor) AddBox(a, b image.Point) {
	r := image.Rect(a.X, a.Y, b.X, b.Y) // Rect canonicalizes min/max
	r = r.Intersect(image.Rect(0, 0, e.Mask().W, e.Mask().H))
	if r.Empty() {
		return
	}
	e.boxes = append(e.boxes, r)
	e.ops = append(e.ops, op{kind: opBoxAdd})
}

// ClearBoxes drops every box without logging (bound to the dedicated
// "clear boxes" action).
func (e *Editor) ClearBoxes() {
	e.boxes = nil
	for i := 0; i < len(e.ops); {
		if e.ops[i].kind == opBoxAdd {
			e.ops = append(e.ops[:i], e.ops[i+1:]...)
			continue
		}
		i++
	}
}

// AddSeed stamps a clustering seed disc at p and logs the stamped rectangle
// so undo clears exactly that sub-region.
func (e *Editor) AddSeed(p image.Point, radius int) {
	stamp(e.seeds, e.holeFor(radius), p, true)
	r := image.Rect(p.X-radius, p.Y-radius, p.X+radius+1, p.Y+radius+1).
		Intersect(image.Rect(0, 0, e.seeds.W, e.seeds.H))
	if r.Empty() {
		return
	}
	e.ops = append(e.ops, op{kind: opSeedAdd, seedRect: r})
}

// MoveMask cuts the last box's region out of this layer's mask and merges it
// into the destination layer's persisted mask file. The whole transfer is one
// undoable operation on both sides. It needs at least one box and a selected
// destination layer.
func (e *Editor) MoveMask(ctx context.Context) error {
	if e.destLayer == "" || e.destLayer == e.layer {
		return fmt.Errorf("engine: no destination layer for mask move")
	}
	if len(e.boxes) == 0 {
		return fmt.Errorf("engine: mask move needs a box")
	}
	box := e.boxes[len(e.boxes)-1]

	cur := e.Mask()
	region := cur.SubBitmap(box)
	if !region.Any() {
		return fmt.Errorf("engine: nothing masked inside the box")
	}

	destPath := mask.FilePath(e.dir, e.imageName, e.destLayer)
	dest, err := mask.LoadFile(ctx, e.backend, destPath, cur.W, cur.H)
	if err != nil {
		return fmt.Errorf("load destination mask: %w", err)
	}
	prev := dest.Clone()

	moved := mask.New(cur.W, cur.H)
	moved.CopyRect(region, box.Min)
	dest.Union(moved)
	if err := mask.SaveFile(ctx, e.backend, destPath, dest); err != nil {
		return fmt.Errorf("save destination mask: %w", err)
	}

	remaining := cur.Clone()
	remaining.FillRect(box, false)
	e.stack.Commit(remaining, mask.NoTag, "")
	e.ops = append(e.ops, op{kind: opMaskMove, prevDest: prev})

	e.boxes = nil
	e.emitCurrent()
	e.emit(e.destLayer, dest.Any())
	return nil
}

// undoMaskMove restores the destination layer's file to its pre-move content
// and pops the source-side edit.
func (e *Editor) undoMaskMove(ctx context.Context, prevDest *mask.Bitmap) error {
	destPath := mask.FilePath(e.dir, e.imageName, e.destLayer)
	if err := mask.SaveFile(ctx, e.backend, destPath, prevDest); err != nil {
		return fmt.Errorf("restore destination mask: %w", err)
	}
	if _, ok := e.stack.Undo(); ok {
		e.emitCurrent()
	}
	e.emit(e.destLayer, prevDest.Any())
	return nil
}
