package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/masklab/internal/meta"
	"github.com/MeKo-Tech/masklab/internal/storage"
)

func writeCert(t *testing.T, path string, certified, hard bool, sum string) {
	t.Helper()
	c := meta.Default().Next(certified, hard, true, sum)
	if err := c.Write(context.Background(), storage.Local{}, path); err != nil {
		t.Fatalf("write certification: %v", err)
	}
}

func buildTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	dir := t.TempDir()

	// plant/leaves: mask plus an uncertified record.
	if err := os.WriteFile(filepath.Join(dir, "plant.mask_leaves.png"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write mask: %v", err)
	}
	writeCert(t, filepath.Join(dir, "plant.mask_leaves.json"), false, false, "aaa")

	// plant/stems: mask with no record at all.
	if err := os.WriteFile(filepath.Join(dir, "plant.mask_stems.png"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write mask: %v", err)
	}

	// fern/leaves: certified hard example whose mask was later emptied.
	writeCert(t, filepath.Join(dir, "fern.mask_leaves.json"), true, true, "bbb")

	// Noise that must not be indexed.
	for _, name := range []string{"plant.png", "notes.txt", "plant.mask_leaves.settings"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write noise: %v", err)
		}
	}

	ix, err := Open(filepath.Join(dir, "catalog.db"), nil)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	if err := ix.Rebuild(context.Background(), dir); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	return ix, dir
}

func TestRebuildIndexesMaskAndRecordPairs(t *testing.T) {
	ix, _ := buildTestIndex(t)

	all, err := ix.All(context.Background())
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(all), all)
	}
	// Ordered by image then layer.
	if all[0].Image != "fern" || all[1].Layer != "leaves" || all[2].Layer != "stems" {
		t.Fatalf("unexpected ordering: %+v", all)
	}

	leaves := all[1]
	if !leaves.HasMask || leaves.Certified || leaves.MD5Sum != "aaa" {
		t.Fatalf("plant/leaves entry wrong: %+v", leaves)
	}
	stems := all[2]
	if !stems.HasMask || stems.MD5Sum != "" {
		t.Fatalf("plant/stems entry wrong: %+v", stems)
	}
	fern := all[0]
	if fern.HasMask || !fern.Certified || !fern.HardExample {
		t.Fatalf("fern/leaves entry wrong: %+v", fern)
	}
}

func TestQueries(t *testing.T) {
	ix, _ := buildTestIndex(t)
	ctx := context.Background()

	un, err := ix.Uncertified(ctx)
	if err != nil {
		t.Fatalf("uncertified: %v", err)
	}
	if len(un) != 2 || un[0].Layer != "leaves" || un[1].Layer != "stems" {
		t.Fatalf("uncertified = %+v, want plant leaves+stems", un)
	}

	hard, err := ix.HardExamples(ctx)
	if err != nil {
		t.Fatalf("hard examples: %v", err)
	}
	if len(hard) != 1 || hard[0].Image != "fern" {
		t.Fatalf("hard examples = %+v, want fern/leaves", hard)
	}

	img, err := ix.Image(ctx, "plant")
	if err != nil {
		t.Fatalf("image query: %v", err)
	}
	if len(img) != 2 {
		t.Fatalf("image query = %+v, want 2 plant entries", img)
	}
}

func TestRebuildReplacesStaleEntries(t *testing.T) {
	ix, dir := buildTestIndex(t)
	ctx := context.Background()

	if err := os.Remove(filepath.Join(dir, "plant.mask_stems.png")); err != nil {
		t.Fatalf("remove mask: %v", err)
	}
	if err := ix.Rebuild(ctx, dir); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	all, err := ix.All(ctx)
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d entries after rebuild, want 2: %+v", len(all), all)
	}
	for _, e := range all {
		if e.Image == "plant" && e.Layer == "stems" {
			t.Fatalf("stale entry survived rebuild: %+v", e)
		}
	}
}

func TestCorruptRecordDegradesToDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plant.mask_leaves.png"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write mask: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plant.mask_leaves.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}

	ix, err := Open(filepath.Join(dir, "catalog.db"), nil)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer ix.Close()
	if err := ix.Rebuild(context.Background(), dir); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	all, err := ix.All(context.Background())
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 1 || all[0].Certified || !all[0].HasMask {
		t.Fatalf("corrupt record should index as uncertified mask: %+v", all)
	}
}
