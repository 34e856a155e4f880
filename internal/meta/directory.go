package meta

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path"
	"strings"

	"github.com/MeKo-Tech/masklab/internal/storage"
)

// MetaFile is the per-directory metadata file name.
const MetaFile = "meta.json"

// ImageMeta describes one image: pixels-per-inch for the inch grid, array
// keys for packed multi-array containers, and an optional editing grid.
type ImageMeta struct {
	Path     string
	PPI      int
	RGBKey   string
	DepthKey string
	GridSize []int
}

type patternMeta struct {
	Pattern  string `json:"pattern"`
	PPI      int    `json:"ppi"`
	RGBKey   string `json:"rgb_key"`
	DepthKey string `json:"depth_key"`
	GridSize []int  `json:"grid_size"`
	Enabled  *bool  `json:"masklab"`
}

// Directory maps image filenames to their metadata via glob patterns.
type Directory struct {
	dir      string
	patterns []patternMeta
}

// LoadDirectory reads <dir>/meta.json. A missing or unreadable file yields a
// directory with no patterns, which accepts every plain raster image.
func LoadDirectory(ctx context.Context, b storage.Backend, dir string, logger *slog.Logger) Directory {
	if logger == nil {
		logger = slog.Default()
	}
	d := Directory{dir: dir}
	metaPath := strings.TrimSuffix(dir, "/") + "/" + MetaFile
	data, err := b.Read(ctx, metaPath)
	if errors.Is(err, storage.ErrNotFound) {
		return d
	}
	if err != nil {
		logger.Warn("directory metadata read failure", "path", metaPath, "error", err)
		return d
	}
	if err := json.Unmarshal(data, &d.patterns); err != nil {
		logger.Warn("directory metadata parse failure", "path", metaPath, "error", err)
		d.patterns = nil
	}
	return d
}

// ImageMeta resolves metadata for a filename. With patterns defined, a file
// matching none of them is not listable (nil). Packed containers need at
// least one array key; without metadata they cannot be opened at all.
func (d Directory) ImageMeta(filename string) *ImageMeta {
	packed := strings.HasSuffix(filename, ".npz")
	if len(d.patterns) == 0 {
		if packed {
			return nil
		}
		return &ImageMeta{Path: joinDir(d.dir, filename)}
	}
	for _, pat := range d.patterns {
		if pat.Enabled != nil && !*pat.Enabled {
			continue
		}
		ok, err := path.Match(pat.Pattern, filename)
		if err != nil || !ok {
			continue
		}
		if packed && pat.RGBKey == "" && pat.DepthKey == "" {
			continue
		}
		return &ImageMeta{
			Path:     joinDir(d.dir, filename),
			PPI:      pat.PPI,
			RGBKey:   pat.RGBKey,
			DepthKey: pat.DepthKey,
			GridSize: pat.GridSize,
		}
	}
	return nil
}

func joinDir(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}
