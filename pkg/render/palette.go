package render

import "github.com/wcharczuk/go-chart/v2/drawing"

// spectral is the eleven-class diverging Spectral scheme.
var spectral = []drawing.Color{
	rgb(0x9e0142), rgb(0xd53e4f), rgb(0xf46d43), rgb(0xfdae61),
	rgb(0xfee08b), rgb(0xffffbf), rgb(0xe6f598), rgb(0xabdda4),
	rgb(0x66c2a5), rgb(0x3288bd), rgb(0x5e4fa2),
}

var (
	lineColor  = rgb(0x4682b4) // steelblue
	axisColor  = rgb(0x333333)
	labelColor = rgb(0x111111)
	emptyColor = rgb(0x888888)
)

func rgb(hex uint32) drawing.Color {
	return drawing.Color{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 255}
}

// Palette returns n colours spread evenly across the Spectral scheme, so a
// chart with few series still gets well separated colours. Beyond eleven the
// scheme repeats.
func Palette(n int) []drawing.Color {
	if n <= 0 {
		return nil
	}
	out := make([]drawing.Color, n)
	if n == 1 {
		out[0] = spectral[len(spectral)-2]
		return out
	}
	if n > len(spectral) {
		for i := range out {
			out[i] = spectral[i%len(spectral)]
		}
		return out
	}
	last := len(spectral) - 1
	for i := range out {
		out[i] = spectral[i*last/(n-1)]
	}
	return out
}

// PiePalette returns n colours sampled from the 0.1 to 0.9 window of the
// continuous Spectral ramp, in reverse: the first sector is blue and the
// last one red. A single sector gets the middle of the window.
func PiePalette(n int) []drawing.Color {
	if n <= 0 {
		return nil
	}
	out := make([]drawing.Color, n)
	for i := range out {
		t := 0.5
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[n-1-i] = interpolateSpectral(t*0.8 + 0.1)
	}
	return out
}

// interpolateSpectral samples the Spectral scheme as a uniform cubic B-spline
// through its eleven colours, t in [0, 1].
func interpolateSpectral(t float64) drawing.Color {
	channel := func(get func(drawing.Color) uint8) uint8 {
		v := splineBasis(spectral, get, t)
		return uint8(min(max(v+0.5, 0), 255))
	}
	return drawing.Color{
		R: channel(func(c drawing.Color) uint8 { return c.R }),
		G: channel(func(c drawing.Color) uint8 { return c.G }),
		B: channel(func(c drawing.Color) uint8 { return c.B }),
		A: 255,
	}
}

func splineBasis(colors []drawing.Color, get func(drawing.Color) uint8, t float64) float64 {
	n := len(colors) - 1
	var i int
	switch {
	case t <= 0:
		t = 0
	case t >= 1:
		t, i = 1, n-1
	default:
		i = int(t * float64(n))
	}

	v1, v2 := float64(get(colors[i])), float64(get(colors[i+1]))
	v0 := 2*v1 - v2
	if i > 0 {
		v0 = float64(get(colors[i-1]))
	}
	v3 := 2*v2 - v1
	if i < n-1 {
		v3 = float64(get(colors[i+2]))
	}

	t1 := (t - float64(i)/float64(n)) * float64(n)
	t2 := t1 * t1
	t3 := t2 * t1
	return ((1-3*t1+3*t2-t3)*v0 + (4-6*t2+3*t3)*v1 + (1+3*t1+3*t2-3*t3)*v2 + t3*v3) / 6
}
