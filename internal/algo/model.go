package algo

import (
	"image"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// Model is the inference contract: given the source image and a channel
// selector, produce a mask. The implementation (local runtime, remote
// endpoint, test double) is opaque to the adapter.
type Model interface {
	Infer(img *image.NRGBA, channel string) (*mask.Bitmap, error)
}

// ModelHandle owns the lifecycle of the currently loaded inference model.
// There is deliberately no package-level model: the handle is passed into
// whatever needs it, so multiple instances and test doubles just work.
type ModelHandle struct {
	model Model
}

// Load installs a model, replacing any previous one.
func (h *ModelHandle) Load(m Model) {
	h.model = m
}

// Unload drops the current model; inference becomes unavailable.
func (h *ModelHandle) Unload() {
	h.model = nil
}

// Get returns the current model, if one is loaded.
func (h *ModelHandle) Get() (Model, bool) {
	if h == nil || h.model == nil {
		return nil, false
	}
	return h.model, true
}
