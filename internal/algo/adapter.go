package algo

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// ErrUnavailable marks an algorithm whose external implementation is not
// registered (e.g. no inference model loaded). The invoking action is simply
// skipped; nothing is committed.
var ErrUnavailable = errors.New("algo: not available")

// RegionFunc is the contract every external mask generator satisfies: given
// an image region, the existing mask region, and the seed region, produce a
// boolean mask for that region.
type RegionFunc func(img *image.NRGBA, cur, seeds *mask.Bitmap, param int) (*mask.Bitmap, error)

// Input carries the engine state an algorithm may consult. Mask and Seeds are
// working copies owned by the adapter call; Boxes scope region-limited kinds.
type Input struct {
	Image *image.NRGBA
	Mask  *mask.Bitmap
	Seeds *mask.Bitmap
	Boxes []image.Rectangle
}

// Adapter dispatches algorithm kinds to their implementations. Black-box
// algorithms (grab-cut, clustering, inference) are injected; nil entries make
// the corresponding kind unavailable.
type Adapter struct {
	GrabCut RegionFunc
	Cluster RegionFunc
	Model   *ModelHandle
	logger  *slog.Logger
}

// NewAdapter builds an adapter with the default clustering implementation and
// no grab-cut or inference model.
func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{
		Cluster: KMeansCluster,
		Model:   &ModelHandle{},
		logger:  logger,
	}
}

func (a *Adapter) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

// Run computes the transformed mask for one algorithm invocation. The result
// is a fresh bitmap the caller commits with the kind's tag; on error nothing
// has been mutated, so a failed external call never leaves partial state.
//
// Region scoping: when boxes are active the algorithm runs independently per
// box and the results are merged; otherwise it covers the whole image.
func (a *Adapter) Run(kind Kind, param string, in Input) (*mask.Bitmap, error) {
	switch kind {
	case BrightAutomask:
		return BrightThreshold(in.Image), nil

	case LabAutomask:
		out := in.Mask.Clone()
		perBox(in, func(r image.Rectangle) {
			region := LabThreshold(subImage(in.Image, r))
			out.CopyRect(region, r.Min)
		})
		return out, nil

	case Clustering:
		if a.Cluster == nil {
			return nil, ErrUnavailable
		}
		if !in.Seeds.Any() {
			return nil, fmt.Errorf("clustering needs at least one seed region")
		}
		clusters := intParam(param, 10)
		out := in.Mask.Clone()
		var runErr error
		perBox(in, func(r image.Rectangle) {
			if runErr != nil {
				return
			}
			region, err := a.Cluster(subImage(in.Image, r), out.SubBitmap(r), in.Seeds.SubBitmap(r), clusters)
			if err != nil {
				runErr = err
				return
			}
			out.CopyRect(region, r.Min)
		})
		if runErr != nil {
			return nil, runErr
		}
		return out, nil

	case GrabCutRectangle:
		if a.GrabCut == nil {
			return nil, ErrUnavailable
		}
		if len(in.Boxes) == 0 {
			return nil, fmt.Errorf("grab-cut needs a box")
		}
		return a.runGrabCut(in)

	case AutomaskDL:
		m, ok := a.Model.Get()
		if !ok {
			return nil, ErrUnavailable
		}
		return m.Infer(in.Image, param)

	case Dilation:
		return a.morph(in, dilate, intParam(param, 1)), nil
	case Erosion:
		return a.morph(in, erode, intParam(param, 1)), nil
	case Closing:
		return a.morph(in, closeOnce, intParam(param, 1)), nil

	case RemoveObjects:
		minSize := intParam(param, 0)
		out := in.Mask.Clone()
		perBox(in, func(r image.Rectangle) {
			region := out.SubBitmap(r)
			RemoveSmallObjects(region, minSize)
			out.CopyRect(region, r.Min)
		})
		return out, nil
	}
	return nil, fmt.Errorf("algo: unknown kind %q", kind)
}

// runGrabCut scopes the external grab-cut to the last box plus a margin of
// surrounding background, writing the result only inside the box.
func (a *Adapter) runGrabCut(in Input) (*mask.Bitmap, error) {
	const margin = 50
	box := in.Boxes[len(in.Boxes)-1]
	window := image.Rect(box.Min.X-margin, box.Min.Y-margin, box.Max.X+margin, box.Max.Y+margin).
		Intersect(in.Image.Bounds())

	region, err := a.GrabCut(subImage(in.Image, window), in.Mask.SubBitmap(window), in.Seeds.SubBitmap(window), 0)
	if err != nil {
		return nil, err
	}
	out := in.Mask.Clone()
	inner := box.Sub(window.Min)
	out.CopyRect(region.SubBitmap(inner), box.Min)
	return out, nil
}

func (a *Adapter) morph(in Input, step func(*mask.Bitmap) *mask.Bitmap, iterations int) *mask.Bitmap {
	out := in.Mask.Clone()
	perBox(in, func(r image.Rectangle) {
		region := out.SubBitmap(r)
		for i := 0; i < iterations; i++ {
			region = step(region)
		}
		out.CopyRect(region, r.Min)
	})
	return out
}

// perBox invokes fn once per active box, or once for the whole image when no
// boxes are set.
func perBox(in Input, fn func(image.Rectangle)) {
	if len(in.Boxes) == 0 {
		fn(in.Image.Bounds())
		return
	}
	for _, box := range in.Boxes {
		r := box.Intersect(in.Image.Bounds())
		if !r.Empty() {
			fn(r)
		}
	}
}

func subImage(img *image.NRGBA, r image.Rectangle) *image.NRGBA {
	return img.SubImage(r).(*image.NRGBA)
}

func intParam(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
