package waterfall

import "image/color"

// Palette selects the color ramp used to map bucket weights onto
// pixels.
type Palette int

const (
	// PaletteClassic ramps black through blue, green, and yellow to
	// red.
	PaletteClassic Palette = iota

	// PaletteIronbow ramps black through purple, red, and orange to
	// white, like thermal imagery.
	PaletteIronbow
)

type stop struct {
	at      float64
	r, g, b uint8
}

var classicStops = []stop{
	{0.00, 0, 0, 0},
	{0.20, 0, 0, 160},
	{0.40, 0, 160, 160},
	{0.60, 0, 200, 0},
	{0.80, 220, 220, 0},
	{1.00, 230, 0, 0},
}

var ironbowStops = []stop{
	{0.00, 0, 0, 0},
	{0.25, 120, 20, 120},
	{0.50, 200, 40, 40},
	{0.75, 240, 160, 20},
	{1.00, 255, 255, 255},
}

// ramp precomputes the 256 entry color table for a palette.
func (p Palette) ramp() [256]color.RGBA {
	stops := classicStops
	if p == PaletteIronbow {
		stops = ironbowStops
	}

	var table [256]color.RGBA
	for i := range table {
		table[i] = interpolate(stops, float64(i)/255)
	}
	return table
}

func interpolate(stops []stop, at float64) color.RGBA {
	if at <= stops[0].at {
		s := stops[0]
		return color.RGBA{R: s.r, G: s.g, B: s.b, A: 255}
	}

	for i := 1; i < len(stops); i++ {
		lo, hi := stops[i-1], stops[i]
		if at > hi.at {
			continue
		}

		f := (at - lo.at) / (hi.at - lo.at)
		return color.RGBA{
			R: uint8(float64(lo.r) + f*(float64(hi.r)-float64(lo.r))),
			G: uint8(float64(lo.g) + f*(float64(hi.g)-float64(lo.g))),
			B: uint8(float64(lo.b) + f*(float64(hi.b)-float64(lo.b))),
			A: 255,
		}
	}

	s := stops[len(stops)-1]
	return color.RGBA{R: s.r, G: s.g, B: s.b, A: 255}
}
