// Package engine is the per-layer mask editing core: drawing primitives over
// canonical image coordinates, a bounded undo history, and algorithm
// application. All mutation happens on the caller's single goroutine; no two
// mask mutations ever interleave.
package engine

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/masklab/internal/algo"
	"github.com/MeKo-Tech/masklab/internal/mask"
	"github.com/MeKo-Tech/masklab/internal/storage"
)

// MaskChanged is emitted whenever a layer's mask content may have changed.
type MaskChanged struct {
	Layer      string
	HasContent bool
}

// Listener receives mask change events. The engine never calls back into
// UI-owning objects directly; anything interested registers here.
type Listener interface {
	MaskChanged(ev MaskChanged)
}

// opKind tags entries of the unified undo log. One log, one dispatch: each
// user-visible action appends exactly one entry, and Undo pattern-matches on
// the kind to run the matching rollback.
type opKind int

const (
	opMaskEdit opKind = iota
	opBoxAdd
	opSeedAdd
	opPolyVertex
	opMaskMove
)

type op struct {
	kind opKind
	// seedRect is the sub-region stamped by an opSeedAdd, cleared exactly on
	// undo rather than wiping the whole seed mask.
	seedRect image.Rectangle
	// committed marks opPolyVertex entries that also pushed a mask snapshot
	// (polyline segments draw as they go; polygon vertices are preview-only).
	committed bool
	// restoreShape, on an opMaskEdit produced by a shape commit, restores the
	// in-progress shape so an undo re-opens it for adjustment.
	restoreShape *polyShape
	// prevDest is the destination layer's mask before a cross-layer move.
	prevDest *mask.Bitmap
}

// Editor owns the active layer's mask state. It is not safe for concurrent
// use; ownership follows the single mutating goroutine.
type Editor struct {
	img   *image.NRGBA
	layer string

	stack *mask.Stack
	ops   []op

	boxes []image.Rectangle
	seeds *mask.Bitmap

	shape polyShape

	adapter *algo.Adapter

	// kernel cache: one circular "hole" per radius.
	hole       *mask.Bitmap
	holeRadius int

	// cross-layer move target.
	backend   storage.Backend
	dir       string
	imageName string
	destLayer string

	listeners []Listener
	logger    *slog.Logger
}

// Config wires an editor to its layer context.
type Config struct {
	Image     *image.NRGBA
	Layer     string
	Base      *mask.Bitmap // load-time mask; nil means empty
	Adapter   *algo.Adapter
	Backend   storage.Backend
	Dir       string
	ImageName string
	Logger    *slog.Logger
}

// New builds an editor for one (image, layer) pair.
func New(cfg Config) *Editor {
	w := cfg.Image.Bounds().Dx()
	h := cfg.Image.Bounds().Dy()
	base := cfg.Base
	if base == nil {
		base = mask.New(w, h)
	}
	adapter := cfg.Adapter
	if adapter == nil {
		adapter = algo.NewAdapter(cfg.Logger)
	}
	return &Editor{
		img:       cfg.Image,
		layer:     cfg.Layer,
		stack:     mask.NewStack(base),
		seeds:     mask.New(w, h),
		adapter:   adapter,
		backend:   cfg.Backend,
		dir:       cfg.Dir,
		imageName: cfg.ImageName,
		logger:    cfg.Logger,
	}
}

func (e *Editor) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

// Subscribe registers a mask change listener.
func (e *Editor) Subscribe(l Listener) {
	e.listeners = append(e.listeners, l)
}

func (e *Editor) emit(layer string, hasContent bool) {
	ev := MaskChanged{Layer: layer, HasContent: hasContent}
	for _, l := range e.listeners {
		l.MaskChanged(ev)
	}
}

func (e *Editor) emitCurrent() {
	e.emit(e.layer, e.Mask().Any())
}

// Layer returns the layer this editor is bound to.
func (e *Editor) Layer() string { return e.layer }

// Image returns the canonical source image.
func (e *Editor) Image() *image.NRGBA { return e.img }

// Mask returns the current mask. Callers treat it as read-only.
func (e *Editor) Mask() *mask.Bitmap { return e.stack.Current() }

// Seeds returns the clustering seed mask.
func (e *Editor) Seeds() *mask.Bitmap { return e.seeds }

// Boxes returns the active box stack.
func (e *Editor) Boxes() []image.Rectangle { return e.boxes }

// Stack exposes the undo stack for persistence and settings replay.
func (e *Editor) Stack() *mask.Stack { return e.stack }

// Modified reports whether the mask differs from its load-time content.
func (e *Editor) Modified() bool { return e.stack.Modified() }

// commit pushes a snapshot and logs the edit as one undoable operation.
func (e *Editor) commit(bm *mask.Bitmap, tag mask.Tag, param string) {
	e.stack.Commit(bm, tag, param)
	e.ops = append(e.ops, op{kind: opMaskEdit})
	e.emitCurrent()
}

// SetDestinationLayer selects the target of cross-layer mask moves.
func (e *Editor) SetDestinationLayer(layer string) {
	e.destLayer = layer
}

// ApplyAlgorithm runs one algorithm and commits its result tagged with the
// algorithm identity. Re-running the same algorithm replaces its own previous
// result. An unavailable algorithm is skipped; a failed one commits nothing
// and leaves the mask, the stack cursor, and the undo log untouched.
func (e *Editor) ApplyAlgorithm(kind algo.Kind, param string) error {
	out, err := e.adapter.Run(kind, param, algo.Input{
		Image: e.img,
		Mask:  e.stack.PeekFor(kind.Tag()).Clone(),
		Seeds: e.seeds,
		Boxes: e.boxes,
	})
	if errors.Is(err, algo.ErrUnavailable) {
		e.log().Info("algorithm unavailable, skipping", "kind", kind)
		return nil
	}
	if err != nil {
		return err
	}
	e.stack.CommitFor(out, kind.Tag(), param)
	e.ops = append(e.ops, op{kind: opMaskEdit})
	e.emitCurrent()
	return nil
}

// DeleteAllMasks commits an empty mask (still undoable).
func (e *Editor) DeleteAllMasks() {
	e.commit(mask.New(e.Mask().W, e.Mask().H), mask.NoTag, "")
}

// UndoAll rewinds the mask stack to its oldest retained entry.
func (e *Editor) UndoAll() {
	e.stack.ResetToBase()
	e.emitCurrent()
}

// Undo rolls back the most recent operation, whatever its kind. Undoing past
// the bottom of the log is a no-op, never an error.
func (e *Editor) Undo(ctx context.Context) error {
	if len(e.ops) == 0 {
		return nil
	}
	last := e.ops[len(e.ops)-1]
	e.ops = e.ops[:len(e.ops)-1]

	switch last.kind {
	case opMaskEdit:
		if _, ok := e.stack.Undo(); ok {
			e.emitCurrent()
		}
		if last.restoreShape != nil {
			e.shape = *last.restoreShape
		}

	case opBoxAdd:
		if len(e.boxes) > 0 {
			e.boxes = e.boxes[:len(e.boxes)-1]
		}

	case opSeedAdd:
		e.seeds.FillRect(last.seedRect, false)

	case opPolyVertex:
		e.popVertex(last.committed)

	case opMaskMove:
		if err := e.undoMaskMove(ctx, last.prevDest); err != nil {
			// Put the entry back so the user can retry once storage recovers.
			e.ops = append(e.ops, last)
			return err
		}
	}
	return nil
}

// UndoMask pops just the mask stack, ignoring other operation kinds (bound to
// the dedicated "undo mask" action rather than general undo).
func (e *Editor) UndoMask() {
	for i := len(e.ops) - 1; i >= 0; i-- {
		if e.ops[i].kind == opMaskEdit {
			e.ops = append(e.ops[:i], e.ops[i+1:]...)
			break
		}
	}
	if _, ok := e.stack.Undo(); ok {
		e.emitCurrent()
	}
}

// ClearSeeds wipes the whole seed mask (not undoable, matching the dedicated
// "clear seeds" action).
func (e *Editor) ClearSeeds() {
	e.seeds.Fill(false)
	for i := 0; i < len(e.ops); {
		if e.ops[i].kind == opSeedAdd {
			e.ops = append(e.ops[:i], e.ops[i+1:]...)
			continue
		}
		i++
	}
}
