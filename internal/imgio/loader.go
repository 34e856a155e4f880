// Package imgio loads source images for annotation: plain rasters and packed
// multi-array containers with an optional depth channel.
package imgio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/MeKo-Tech/masklab/internal/meta"
	"github.com/MeKo-Tech/masklab/internal/storage"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Image is a loaded source image plus its optional depth channel.
type Image struct {
	RGB   *image.NRGBA
	Depth *image.Gray
}

// Load reads the image described by m. Packed .npz containers are unpacked
// using the array keys from directory metadata; anything else goes through
// the registered raster decoders.
func Load(ctx context.Context, b storage.Backend, m *meta.ImageMeta) (*Image, error) {
	data, err := b.Read(ctx, m.Path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(m.Path, ".npz") {
		return loadPacked(data, m)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", m.Path, err)
	}
	return &Image{RGB: toNRGBA(img)}, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			dst.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}

func loadPacked(data []byte, m *meta.ImageMeta) (*Image, error) {
	if m.RGBKey == "" && m.DepthKey == "" {
		return nil, fmt.Errorf("%s: packed container without array keys", m.Path)
	}
	arrays, err := readPacked(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Path, err)
	}

	var depth *image.Gray
	if m.DepthKey != "" {
		arr, ok := arrays[m.DepthKey]
		if !ok {
			return nil, fmt.Errorf("%s: missing array %q", m.Path, m.DepthKey)
		}
		depth, err = arr.gray()
		if err != nil {
			return nil, fmt.Errorf("%s[%s]: %w", m.Path, m.DepthKey, err)
		}
	}

	var rgb *image.NRGBA
	if m.RGBKey != "" {
		arr, ok := arrays[m.RGBKey]
		if !ok {
			return nil, fmt.Errorf("%s: missing array %q", m.Path, m.RGBKey)
		}
		rgb, err = arr.nrgba()
		if err != nil {
			return nil, fmt.Errorf("%s[%s]: %w", m.Path, m.RGBKey, err)
		}
	} else {
		// Depth-only container: annotate over a black image of the same size.
		rgb = image.NewNRGBA(depth.Bounds())
		for i := 3; i < len(rgb.Pix); i += 4 {
			rgb.Pix[i] = 255
		}
	}

	if depth != nil && rgb.Bounds() != depth.Bounds() {
		return nil, fmt.Errorf("%s: rgb %v and depth %v differ", m.Path, rgb.Bounds(), depth.Bounds())
	}
	return &Image{RGB: rgb, Depth: depth}, nil
}

// DepthContours renders a depth channel as mod-N bands so equal-depth
// contours are visible while annotating.
func DepthContours(depth *image.Gray, contour int) *image.NRGBA {
	if contour <= 0 || 256%contour != 0 {
		contour = 32
	}
	scale := 256 / contour
	out := image.NewNRGBA(depth.Bounds())
	for y := depth.Bounds().Min.Y; y < depth.Bounds().Max.Y; y++ {
		for x := depth.Bounds().Min.X; x < depth.Bounds().Max.X; x++ {
			v := uint8(int(depth.GrayAt(x, y).Y) % contour * scale)
			i := out.PixOffset(x, y)
			out.Pix[i] = v
			out.Pix[i+1] = v
			out.Pix[i+2] = v
			out.Pix[i+3] = 255
		}
	}
	return out
}
