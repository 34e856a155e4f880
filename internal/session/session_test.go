package session

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/masklab/internal/algo"
	"github.com/MeKo-Tech/masklab/internal/mask"
	"github.com/MeKo-Tech/masklab/internal/meta"
	"github.com/MeKo-Tech/masklab/internal/storage"
)

func writeTestImage(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 90, G: 140, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	writeTestImage(t, dir, "plant.png", 32, 24)
	sess := New(context.Background(), Config{
		Backend: storage.Local{},
		Dir:     dir,
		Layers:  ParseLayers([]string{"leaves", "  stems"}),
	})
	return sess, dir
}

func TestParseLayers(t *testing.T) {
	layers := ParseLayers([]string{"leaves", "  stems", "    tips", "", "roots"})
	require.Len(t, layers, 4)
	assert.Equal(t, Layer{Name: "leaves", Indent: 0}, layers[0])
	assert.Equal(t, Layer{Name: "stems", Indent: 1}, layers[1])
	assert.Equal(t, Layer{Name: "tips", Indent: 2}, layers[2])
	assert.Equal(t, Layer{Name: "roots", Indent: 0}, layers[3])
}

func TestOpenImageAndDraw(t *testing.T) {
	ctx := context.Background()
	sess, _ := newTestSession(t)

	require.NoError(t, sess.OpenImage(ctx, "plant.png", "leaves"))
	require.NotNil(t, sess.Editor())
	assert.Equal(t, "leaves", sess.ActiveLayer())
	assert.False(t, sess.Editor().Mask().Any())

	require.Error(t, sess.OpenImage(ctx, "missing.png", "leaves"))
}

func TestSavePersistsMaskAndCertification(t *testing.T) {
	ctx := context.Background()
	sess, dir := newTestSession(t)
	require.NoError(t, sess.OpenImage(ctx, "plant.png", "leaves"))

	sess.Editor().StrokeStart(image.Pt(10, 10), 3, false)
	require.NoError(t, sess.Save(ctx))

	maskPath := mask.FilePath(dir, "plant.png", "leaves")
	_, err := os.Stat(maskPath)
	require.NoError(t, err, "mask file not written")

	cert := meta.LoadCertification(ctx, storage.Local{}, meta.CertPath(dir, "plant.png", "leaves"), nil)
	assert.Equal(t, meta.DefaultSource, cert.Source)
	assert.NotEmpty(t, cert.MD5Sum)
	assert.False(t, cert.Certified)

	// A second save with nothing changed must not rewrite anything.
	certPath := meta.CertPath(dir, "plant.png", "leaves")
	before, err := os.ReadFile(certPath)
	require.NoError(t, err)
	require.NoError(t, sess.Save(ctx))
	after, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "unchanged save rewrote the certification record")
}

func TestSaveCertifiedToggle(t *testing.T) {
	ctx := context.Background()
	sess, dir := newTestSession(t)
	require.NoError(t, sess.OpenImage(ctx, "plant.png", "leaves"))

	sess.Editor().StrokeStart(image.Pt(5, 5), 2, false)
	sess.SetCertified(true)
	sess.SetHardExample(true)
	require.NoError(t, sess.Save(ctx))

	cert := meta.LoadCertification(ctx, storage.Local{}, meta.CertPath(dir, "plant.png", "leaves"), nil)
	assert.True(t, cert.Certified)
	assert.True(t, cert.HardExample)
	assert.NotEmpty(t, cert.Timestamp)
}

func TestSwitchLayerPersistsBeforeActivating(t *testing.T) {
	ctx := context.Background()
	sess, dir := newTestSession(t)
	require.NoError(t, sess.OpenImage(ctx, "plant.png", "leaves"))

	sess.Editor().StrokeStart(image.Pt(8, 8), 2, false)
	require.NoError(t, sess.SwitchLayer(ctx, "stems"))
	assert.Equal(t, "stems", sess.ActiveLayer())
	assert.False(t, sess.Editor().Mask().Any())

	// The previous layer's mask hit disk as part of the switch.
	bm, err := mask.LoadFile(ctx, storage.Local{}, mask.FilePath(dir, "plant.png", "leaves"), 32, 24)
	require.NoError(t, err)
	assert.True(t, bm.At(8, 8))

	// Switching back reloads it.
	require.NoError(t, sess.SwitchLayer(ctx, "leaves"))
	assert.True(t, sess.Editor().Mask().At(8, 8))
	assert.False(t, sess.Editor().Modified())
}

func TestSettingsSaveAndReplay(t *testing.T) {
	ctx := context.Background()
	sess, dir := newTestSession(t)
	require.NoError(t, sess.OpenImage(ctx, "plant.png", "leaves"))

	sess.Editor().StrokeStart(image.Pt(10, 10), 3, false)
	require.NoError(t, sess.Editor().ApplyAlgorithm(algo.Dilation, "1"))
	require.NoError(t, sess.SaveSettings(ctx))

	_, err := os.Stat(SettingsPath(dir, "plant.png", "leaves"))
	require.NoError(t, err, "settings file not written")

	blob, err := sess.LoadSettings(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	require.NoError(t, sess.SwitchLayer(ctx, "stems"))
	require.NoError(t, sess.ReplaySettings(ctx, blob))

	// Missing settings read back as the empty blob.
	require.NoError(t, sess.SwitchLayer(ctx, "leaves"))
	require.NoError(t, sess.SwitchLayer(ctx, "stems"))
	blob, err = sess.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, blob)
}

func TestSettingsPath(t *testing.T) {
	assert.Equal(t, "/d/plant.mask_leaves.settings", SettingsPath("/d", "plant.png", "leaves"))
}
