package imgio

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"
)

// A packed container is a zip of npy arrays, one per key. Only the subset of
// the npy format the annotation pipeline produces is supported: version 1.x
// uint8 arrays, C order, 2 or 3 dimensional.
type npyArray struct {
	shape []int
	data  []byte
}

func readPacked(data []byte) (map[string]npyArray, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	arrays := make(map[string]npyArray, len(zr.File))
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, ".npy")
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		arr, err := parseNpy(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		arrays[name] = arr
	}
	return arrays, nil
}

var npyMagic = []byte("\x93NUMPY")

func parseNpy(raw []byte) (npyArray, error) {
	if len(raw) < 10 || !bytes.Equal(raw[:6], npyMagic) {
		return npyArray{}, fmt.Errorf("not an npy array")
	}
	major := raw[6]
	var headerLen, headerOff int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(raw[8:10]))
		headerOff = 10
	case 2, 3:
		if len(raw) < 12 {
			return npyArray{}, fmt.Errorf("truncated header")
		}
		headerLen = int(binary.LittleEndian.Uint32(raw[8:12]))
		headerOff = 12
	default:
		return npyArray{}, fmt.Errorf("unsupported npy version %d", major)
	}
	if len(raw) < headerOff+headerLen {
		return npyArray{}, fmt.Errorf("truncated header")
	}
	header := string(raw[headerOff : headerOff+headerLen])

	descr, err := headerField(header, "descr")
	if err != nil {
		return npyArray{}, err
	}
	if d := strings.Trim(descr, "'\" "); d != "|u1" && d != "uint8" {
		return npyArray{}, fmt.Errorf("unsupported dtype %s", d)
	}
	if order, err := headerField(header, "fortran_order"); err != nil || strings.TrimSpace(order) != "False" {
		return npyArray{}, fmt.Errorf("fortran order arrays are not supported")
	}
	shapeStr, err := headerField(header, "shape")
	if err != nil {
		return npyArray{}, err
	}
	shape, err := parseShape(shapeStr)
	if err != nil {
		return npyArray{}, err
	}

	n := 1
	for _, d := range shape {
		n *= d
	}
	data := raw[headerOff+headerLen:]
	if len(data) < n {
		return npyArray{}, fmt.Errorf("array data truncated: want %d bytes, have %d", n, len(data))
	}
	return npyArray{shape: shape, data: data[:n]}, nil
}

// headerField extracts one value from the npy header dict literal.
func headerField(header, key string) (string, error) {
	i := strings.Index(header, "'"+key+"'")
	if i < 0 {
		return "", fmt.Errorf("header field %q missing", key)
	}
	rest := header[i:]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return "", fmt.Errorf("malformed header near %q", key)
	}
	rest = rest[colon+1:]
	// Value ends at the next top-level comma; shape tuples contain commas of
	// their own, so track parenthesis depth.
	depth, end := 0, len(rest)
	for j, r := range rest {
		if r == '(' {
			depth++
		}
		if r == ')' {
			depth--
		}
		if (r == ',' || r == '}') && depth == 0 {
			end = j
			break
		}
	}
	return strings.TrimSpace(rest[:end]), nil
}

func parseShape(s string) ([]int, error) {
	s = strings.Trim(s, "() ")
	var shape []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad shape element %q", part)
		}
		shape = append(shape, d)
	}
	if len(shape) != 2 && len(shape) != 3 {
		return nil, fmt.Errorf("unsupported rank %d", len(shape))
	}
	return shape, nil
}

func (a npyArray) gray() (*image.Gray, error) {
	if len(a.shape) != 2 {
		return nil, fmt.Errorf("depth array must be 2-dimensional, got shape %v", a.shape)
	}
	h, w := a.shape[0], a.shape[1]
	g := image.NewGray(image.Rect(0, 0, w, h))
	copy(g.Pix, a.data)
	return g, nil
}

func (a npyArray) nrgba() (*image.NRGBA, error) {
	if len(a.shape) != 3 || a.shape[2] != 3 {
		return nil, fmt.Errorf("rgb array must be HxWx3, got shape %v", a.shape)
	}
	h, w := a.shape[0], a.shape[1]
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		out.Pix[i*4] = a.data[i*3]
		out.Pix[i*4+1] = a.data[i*3+1]
		out.Pix[i*4+2] = a.data[i*3+2]
		out.Pix[i*4+3] = 255
	}
	return out, nil
}
