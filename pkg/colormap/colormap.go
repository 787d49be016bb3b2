// Package colormap provides color ramps for raster previews.
package colormap

import "image/color"

// Ramp maps a normalized value in [0, 1] to a color by linear
// interpolation between its anchor colors.
type Ramp struct {
	anchors []color.RGBA
}

// At returns the ramp color for t, clamping t into [0, 1].
func (r Ramp) At(t float64) color.Color {
	if t <= 0 {
		return r.anchors[0]
	}
	if t >= 1 {
		return r.anchors[len(r.anchors)-1]
	}

	pos := t * float64(len(r.anchors)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(r.anchors) {
		hi = len(r.anchors) - 1
	}
	frac := pos - float64(lo)

	a, b := r.anchors[lo], r.anchors[hi]
	return color.RGBA{
		R: uint8(float64(a.R) + frac*(float64(b.R)-float64(a.R))),
		G: uint8(float64(a.G) + frac*(float64(b.G)-float64(a.G))),
		B: uint8(float64(a.B) + frac*(float64(b.B)-float64(a.B))),
		A: 255,
	}
}

// ByName resolves a ramp by its configuration name. Unknown names fall
// back to viridis.
func ByName(name string) Ramp {
	switch name {
	case "magma":
		return Magma
	case "hotspot":
		return Hotspot
	default:
		return Viridis
	}
}

// Viridis is the matplotlib viridis ramp.
var Viridis = Ramp{
	anchors: []color.RGBA{
		{68, 1, 84, 255},
		{72, 35, 116, 255},
		{64, 67, 135, 255},
		{52, 94, 141, 255},
		{41, 120, 142, 255},
		{32, 144, 140, 255},
		{34, 167, 132, 255},
		{68, 190, 112, 255},
		{121, 209, 81, 255},
		{189, 222, 38, 255},
		{253, 231, 37, 255},
	},
}

// Magma is the matplotlib magma ramp.
var Magma = Ramp{
	anchors: []color.RGBA{
		{0, 0, 4, 255},
		{28, 16, 68, 255},
		{79, 18, 123, 255},
		{129, 37, 129, 255},
		{181, 54, 122, 255},
		{229, 80, 100, 255},
		{251, 135, 97, 255},
		{254, 194, 135, 255},
		{252, 253, 191, 255},
	},
}

// Hotspot is a pale-to-crimson ramp for binary hotspot grids.
var Hotspot = Ramp{
	anchors: []color.RGBA{
		{255, 245, 240, 255},
		{252, 146, 114, 255},
		{203, 24, 29, 255},
		{103, 0, 13, 255},
	},
}
