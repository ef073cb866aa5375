package rimage

import (
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce sync.Once
	font     *truetype.Font
)

// Font returns the font captions are drawn in.
func Font() *truetype.Font {
	fontOnce.Do(func() {
		var err error
		font, err = truetype.Parse(goregular.TTF)
		if err != nil {
			panic(err)
		}
	})
	return font
}

// DrawCaption writes text centered horizontally on x with its top at y.
func DrawCaption(dc *gg.Context, text string, x, y float64, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringAnchored(text, x, y, 0.5, 1)
}
