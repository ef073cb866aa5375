package rimage

import (
	"image/color"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestPlasma(t *testing.T) {
	test.That(t, Plasma(0), test.ShouldResemble, color.NRGBA{0x0d, 0x08, 0x87, 255})
	test.That(t, Plasma(1), test.ShouldResemble, color.NRGBA{0xf0, 0xf9, 0x21, 255})
	test.That(t, Plasma(-3), test.ShouldResemble, Plasma(0))
	test.That(t, Plasma(7), test.ShouldResemble, Plasma(1))
	test.That(t, Plasma(math.NaN()), test.ShouldResemble, Plasma(0))
	test.That(t, Plasma(0.5), test.ShouldResemble, color.NRGBA{0xcc, 0x47, 0x78, 255})

	// the ramp brightens from the low to the high end
	lum := func(c color.NRGBA) float64 { return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B) }
	test.That(t, lum(Plasma(0.9)), test.ShouldBeGreaterThan, lum(Plasma(0.1)))

	test.That(t, PlasmaColors(0), test.ShouldBeNil)
	test.That(t, PlasmaColors(1), test.ShouldHaveLength, 1)
	colors := PlasmaColors(9)
	test.That(t, colors, test.ShouldHaveLength, 9)
	test.That(t, colors[8], test.ShouldResemble, Plasma(1))
}

func TestMustHex(t *testing.T) {
	r, g, b := mustHex("#0d0887").RGB255()
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{0x0d, 0x08, 0x87})
	test.That(t, func() { mustHex("plasma") }, test.ShouldPanic)
}
