package rimage

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// plasmaStops samples matplotlib's plasma map at eighths.
var plasmaStops = []colorful.Color{
	mustHex("#0d0887"),
	mustHex("#4c02a1"),
	mustHex("#7e03a8"),
	mustHex("#a92395"),
	mustHex("#cc4778"),
	mustHex("#e56b5d"),
	mustHex("#f89540"),
	mustHex("#fdc328"),
	mustHex("#f0f921"),
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Plasma maps ratio in [0, 1] onto the plasma color ramp. Values outside the
// range are clamped; NaN maps to the low end.
func Plasma(ratio float64) color.NRGBA {
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	pos := ratio * float64(len(plasmaStops)-1)
	idx := int(math.Floor(pos))
	if idx >= len(plasmaStops)-1 {
		idx = len(plasmaStops) - 2
	}
	c := plasmaStops[idx].BlendLab(plasmaStops[idx+1], pos-float64(idx)).Clamped()
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// PlasmaColors returns n evenly spaced colors along the plasma ramp.
func PlasmaColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []color.Color{Plasma(0)}
	}
	out := make([]color.Color, n)
	for i := range out {
		out[i] = Plasma(float64(i) / float64(n-1))
	}
	return out
}
