// Package session owns the lifecycle of one open image: which layer is
// active, when masks and certification records get persisted, and replaying
// saved algorithm stacks.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/masklab/internal/algo"
	"github.com/MeKo-Tech/masklab/internal/engine"
	"github.com/MeKo-Tech/masklab/internal/imgio"
	"github.com/MeKo-Tech/masklab/internal/mask"
	"github.com/MeKo-Tech/masklab/internal/meta"
	"github.com/MeKo-Tech/masklab/internal/storage"
)

// Layer is one annotation layer. Indent is display nesting only; layers do
// not inherit or combine.
type Layer struct {
	Name   string
	Indent int
}

// ParseLayers reads a configured layer list where two leading spaces per
// level express display nesting. Blank entries are dropped.
func ParseLayers(names []string) []Layer {
	layers := make([]Layer, 0, len(names))
	for _, n := range names {
		trimmed := strings.TrimLeft(n, " ")
		if trimmed == "" {
			continue
		}
		layers = append(layers, Layer{
			Name:   trimmed,
			Indent: (len(n) - len(trimmed)) / 2,
		})
	}
	return layers
}

// Config wires a session to its storage and layer set.
type Config struct {
	Backend storage.Backend
	Dir     string
	Layers  []Layer
	Adapter *algo.Adapter
	Logger  *slog.Logger
}

// Session tracks the active (image, layer) pair. Not safe for concurrent use.
type Session struct {
	backend storage.Backend
	dir     string
	meta    meta.Directory
	layers  []Layer
	adapter *algo.Adapter
	logger  *slog.Logger

	imageName string
	img       *imgio.Image
	layer     string
	editor    *engine.Editor
	cert      meta.Certification

	certified   bool
	hardExample bool
}

// New opens a session over one directory, loading its metadata file.
func New(ctx context.Context, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		backend: cfg.Backend,
		dir:     cfg.Dir,
		meta:    meta.LoadDirectory(ctx, cfg.Backend, cfg.Dir, logger),
		layers:  cfg.Layers,
		adapter: cfg.Adapter,
		logger:  logger,
	}
}

// Layers returns the configured layer list.
func (s *Session) Layers() []Layer { return s.layers }

// Editor returns the active layer's editor, nil before the first OpenImage.
func (s *Session) Editor() *engine.Editor { return s.editor }

// Image returns the loaded image data.
func (s *Session) Image() *imgio.Image { return s.img }

// ImageName returns the open image's filename.
func (s *Session) ImageName() string { return s.imageName }

// ActiveLayer returns the active layer name.
func (s *Session) ActiveLayer() string { return s.layer }

// Certification returns the stored record for the active layer.
func (s *Session) Certification() meta.Certification { return s.cert }

// Certified reports the pending certified toggle.
func (s *Session) Certified() bool { return s.certified }

// SetCertified updates the pending certified toggle (persisted on save).
func (s *Session) SetCertified(v bool) { s.certified = v }

// HardExample reports the pending hard-example toggle.
func (s *Session) HardExample() bool { return s.hardExample }

// SetHardExample updates the pending hard-example toggle.
func (s *Session) SetHardExample(v bool) { s.hardExample = v }

// OpenImage loads an image and activates a layer on it. The previously open
// image's state is persisted first.
func (s *Session) OpenImage(ctx context.Context, filename, layer string) error {
	if s.editor != nil {
		if err := s.Save(ctx); err != nil {
			return err
		}
		s.editor = nil
	}
	im := s.meta.ImageMeta(filename)
	if im == nil {
		return fmt.Errorf("session: %s is not an annotatable image here", filename)
	}
	img, err := imgio.Load(ctx, s.backend, im)
	if err != nil {
		return fmt.Errorf("load image %s: %w", filename, err)
	}
	s.imageName = filename
	s.img = img
	return s.activate(ctx, layer)
}

// SwitchLayer persists the active layer's mask and certification, then
// activates the requested layer. Persisting strictly precedes activation so a
// save failure leaves the current layer in place.
func (s *Session) SwitchLayer(ctx context.Context, layer string) error {
	if layer == s.layer {
		return nil
	}
	if s.editor != nil {
		if err := s.Save(ctx); err != nil {
			return err
		}
	}
	return s.activate(ctx, layer)
}

func (s *Session) activate(ctx context.Context, layer string) error {
	if s.img == nil {
		return fmt.Errorf("session: no image open")
	}
	w := s.img.RGB.Bounds().Dx()
	h := s.img.RGB.Bounds().Dy()
	maskPath := mask.FilePath(s.dir, s.imageName, layer)
	base, err := mask.LoadFile(ctx, s.backend, maskPath, w, h)
	if err != nil {
		return fmt.Errorf("load mask %s: %w", maskPath, err)
	}
	s.cert = meta.LoadCertification(ctx, s.backend,
		meta.CertPath(s.dir, s.imageName, layer), s.logger)
	s.certified = s.cert.Certified
	s.hardExample = s.cert.HardExample
	s.layer = layer
	s.editor = engine.New(engine.Config{
		Image:     s.img.RGB,
		Layer:     layer,
		Base:      base,
		Adapter:   s.adapter,
		Backend:   s.backend,
		Dir:       s.dir,
		ImageName: s.imageName,
		Logger:    s.logger,
	})
	return nil
}

// Save persists the active layer: the mask file only when its content
// changed, then the certification record only when its write gate opens. An
// empty mask deletes its file rather than storing an all-black image.
func (s *Session) Save(ctx context.Context) error {
	if s.editor == nil {
		return nil
	}
	maskPath := mask.FilePath(s.dir, s.imageName, s.layer)
	if s.editor.Modified() {
		if err := mask.SaveFile(ctx, s.backend, maskPath, s.editor.Mask()); err != nil {
			return fmt.Errorf("save mask %s: %w", maskPath, err)
		}
	}

	sum, err := meta.HashFile(ctx, s.backend, maskPath)
	if err != nil {
		return fmt.Errorf("hash mask %s: %w", maskPath, err)
	}
	maskChanged := sum != s.cert.MD5Sum
	if s.cert.NeedsWrite(s.certified, s.hardExample, maskChanged) {
		next := s.cert.Next(s.certified, s.hardExample, maskChanged, sum)
		certPath := meta.CertPath(s.dir, s.imageName, s.layer)
		if err := next.Write(ctx, s.backend, certPath); err != nil {
			return err
		}
		s.cert = next
	}
	s.editor.Stack().SetInitial(s.editor.Mask())
	return nil
}

// SettingsPath returns where a layer's algorithm-stack settings live:
// <dir>/<image-stem>.mask_<layer>.settings
func SettingsPath(dir, imageName, layer string) string {
	p := mask.FilePath(dir, imageName, layer)
	return strings.TrimSuffix(p, ".png") + ".settings"
}

// SaveSettings stores the replayable algorithm stack of the active layer.
func (s *Session) SaveSettings(ctx context.Context) error {
	if s.editor == nil {
		return fmt.Errorf("session: no layer active")
	}
	entries := s.editor.Stack().AlgoStack(func(t mask.Tag) bool {
		return algo.Replayable(algo.KindOf(t))
	})
	blob, err := algo.EncodeStack(entries)
	if err != nil {
		return err
	}
	p := SettingsPath(s.dir, s.imageName, s.layer)
	if err := s.backend.Write(ctx, p, []byte(blob)); err != nil {
		return fmt.Errorf("write settings %s: %w", p, err)
	}
	return nil
}

// ReplaySettings applies a stored algorithm stack to the active layer in
// order. Algorithms whose implementation is unavailable are skipped inside
// the engine; any other failure aborts the replay.
func (s *Session) ReplaySettings(ctx context.Context, blob string) error {
	if s.editor == nil {
		return fmt.Errorf("session: no layer active")
	}
	entries, err := algo.DecodeStack(blob)
	if err != nil {
		return err
	}
	for _, e := range entries {
		kind := algo.KindOf(e.Tag)
		if !algo.Replayable(kind) {
			s.logger.Warn("skipping non-replayable algorithm", "tag", e.Tag)
			continue
		}
		if err := s.editor.ApplyAlgorithm(kind, e.Param); err != nil {
			return fmt.Errorf("replay %s: %w", e.Tag, err)
		}
	}
	return nil
}

// LoadSettings reads the stored settings blob for an image and layer. A
// missing file returns the empty blob.
func (s *Session) LoadSettings(ctx context.Context) (string, error) {
	p := SettingsPath(s.dir, s.imageName, s.layer)
	data, err := s.backend.Read(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read settings %s: %w", p, err)
	}
	return string(data), nil
}
