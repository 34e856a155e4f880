// Package algo wraps mask-generating algorithms behind a uniform adapter:
// compute a transformed mask, then let the caller commit it tagged with the
// algorithm identity and parameter. The tag serves rollback-by-identity
// (re-running an algorithm replaces its own previous result) and the
// serializable pipeline used for settings replay.
package algo

import "github.com/MeKo-Tech/masklab/internal/mask"

// Kind identifies a mask-generating algorithm.
type Kind string

const (
	GrabCutRectangle Kind = "grab_cut_with_rectangle"
	LabAutomask      Kind = "lab_auto_mask"
	AutomaskDL       Kind = "auto_mask_dl"
	BrightAutomask   Kind = "bright_auto_mask"
	Clustering       Kind = "clustering"
	RemoveObjects    Kind = "removing_objects"
	Closing          Kind = "closing_iterations"
	Dilation         Kind = "dilation"
	Erosion          Kind = "erosion"
	MaskMove         Kind = "mask_move"
)

// replayable lists the kinds that participate in the serialized algorithm
// pipeline. Grab-cut and mask moves depend on interactive region input and
// cannot be replayed on a different image.
var replayable = map[Kind]bool{
	LabAutomask:    true,
	Clustering:     true,
	BrightAutomask: true,
	Dilation:       true,
	Erosion:        true,
	RemoveObjects:  true,
	Closing:        true,
	AutomaskDL:     true,
}

// Replayable reports whether a kind belongs in the settings pipeline.
func Replayable(k Kind) bool { return replayable[k] }

// Tag converts a kind to its undo-stack tag.
func (k Kind) Tag() mask.Tag { return mask.Tag(k) }

// KindOf converts an undo-stack tag back to its kind.
func KindOf(t mask.Tag) Kind { return Kind(t) }
