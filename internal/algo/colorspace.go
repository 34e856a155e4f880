package algo

import "math"

// sRGB -> linear -> XYZ -> Lab, D65 reference white.

func srgbToLinear(c uint8) float64 {
	v := float64(c) / 255.0
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func rgbToLab(r, g, b uint8) (l, a, bb float64) {
	rl := srgbToLinear(r)
	gl := srgbToLinear(g)
	bl := srgbToLinear(b)

	x := 0.4124564*rl + 0.3575761*gl + 0.1804375*bl
	y := 0.2126729*rl + 0.7151522*gl + 0.0721750*bl
	z := 0.0193339*rl + 0.1191920*gl + 0.9503041*bl

	f := func(t float64) float64 {
		if t > 0.008856 {
			return math.Cbrt(t)
		}
		return 7.787037*t + 16.0/116.0
	}
	fx := f(x / 0.95047)
	fy := f(y / 1.00000)
	fz := f(z / 1.08883)

	l = 116.0*fy - 16.0
	a = 500.0 * (fx - fy)
	bb = 200.0 * (fy - fz)
	return
}

// labA8 quantizes the a* channel into [0,255] with 128 at neutral, matching
// the 8-bit Lab encoding the thresholds were tuned against.
func labA8(r, g, b uint8) uint8 {
	_, a, _ := rgbToLab(r, g, b)
	v := int(math.Round(a)) + 128
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// luma8 returns the Rec.601 luminance of a pixel.
func luma8(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}
