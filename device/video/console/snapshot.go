package console

import (
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

const (
	cellWidth  = 7
	cellHeight = 13
)

// Snapshot renders the console contents as a PNG image using the VGA color
// palette and a 7x13 bitmap font.
func (cons *Text) Snapshot(w io.Writer) error {
	var (
		face = basicfont.Face7x13
		dc   = gg.NewContext(Width*cellWidth, Height*cellHeight)
		raw  = make([]byte, Size)
	)

	cons.load(0, raw)
	dc.SetFontFace(face)

	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			ch, attr := raw[(y*Width+x)*2], raw[(y*Width+x)*2+1]
			px, py := float64(x*cellWidth), float64(y*cellHeight)

			dc.SetColor(cons.palette[attr>>4])
			dc.DrawRectangle(px, py, cellWidth, cellHeight)
			dc.Fill()

			if ch <= ' ' || ch > '~' {
				continue
			}

			dc.SetColor(cons.palette[attr&0xF])
			dc.DrawString(string(ch), px, py+float64(face.Ascent))
		}
	}

	return dc.EncodePNG(w)
}
