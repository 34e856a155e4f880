package mask

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/MeKo-Tech/masklab/internal/storage"
)

// FilePath returns the mask file path for an image and layer:
// <dir>/<image-stem>.mask_<layer>.png
func FilePath(dir, imageName, layer string) string {
	stem := strings.TrimSuffix(imageName, path.Ext(imageName))
	return joinPath(dir, stem+".mask_"+layer+".png")
}

// joinPath joins like path.Join but leaves object-store schemes intact.
func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

// LoadFile reads a layer's mask file. A missing file is the empty mask, not
// an error; any other storage failure propagates so a transient outage is
// never mistaken for an empty mask.
func LoadFile(ctx context.Context, b storage.Backend, filePath string, w, h int) (*Bitmap, error) {
	data, err := b.Read(ctx, filePath)
	if errors.Is(err, storage.ErrNotFound) {
		return New(w, h), nil
	}
	if err != nil {
		return nil, err
	}
	bm, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	if bm.W != w || bm.H != h {
		return nil, fmt.Errorf("%s: mask is %dx%d, image is %dx%d", filePath, bm.W, bm.H, w, h)
	}
	return bm, nil
}

// SaveFile writes a layer's mask file. An entirely empty mask is stored as
// the absence of the file: nothing is written, and a stale file is deleted.
func SaveFile(ctx context.Context, b storage.Backend, filePath string, bm *Bitmap) error {
	if !bm.Any() {
		return b.Delete(ctx, filePath)
	}
	data, err := Encode(bm)
	if err != nil {
		return err
	}
	return b.Write(ctx, filePath, data)
}
