package mask

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg" // mask files are always PNG, but tolerate stray formats on read
)

// Encode serializes the bitmap as a single-channel PNG, 255 = masked.
// This is the on-disk mask file format.
func Encode(b *Bitmap) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, b.ToGray()); err != nil {
		return nil, fmt.Errorf("encode mask: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a serialized mask file back into a bitmap.
func Decode(data []byte) (*Bitmap, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}
	if g, ok := img.(*image.Gray); ok {
		return FromGray(g), nil
	}
	return FromImage(img), nil
}
