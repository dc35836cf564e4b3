package render

import (
	"github.com/gdamore/tcell/v2"

	"github.com/valerio/jeebie/jeebie/video"
)

// UpperHalfBlock draws two vertically stacked pixels in one cell: the
// foreground paints the top one, the background the bottom one.
const UpperHalfBlock = '▀'

// Color converts a framebuffer pixel to a true color cell color.
func Color(c video.GBColor) tcell.Color {
	rgba := c.RGBA()
	return tcell.NewRGBColor(int32(rgba.R), int32(rgba.G), int32(rgba.B))
}

// HalfBlock returns the cell for a pair of pixels, one above the other.
// Equal pixels use a space on the shared background so the terminal does
// not draw glyph seams.
func HalfBlock(top, bottom video.GBColor) (rune, tcell.Style) {
	if top == bottom {
		return ' ', tcell.StyleDefault.Background(Color(top))
	}
	return UpperHalfBlock, tcell.StyleDefault.Foreground(Color(top)).Background(Color(bottom))
}
