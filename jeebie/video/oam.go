package video

import (
	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/bit"
)

const (
	spriteCount        = 40
	maxSpritesPerLine  = 10
	spriteAttrPalette  = 4
	spriteAttrFlipX    = 5
	spriteAttrFlipY    = 6
	spriteAttrBehindBG = 7
)

// Sprite is one decoded OAM entry. X and Y are screen coordinates, the
// hardware offsets (8 and 16) already removed.
type Sprite struct {
	X, Y      int
	TileIndex uint8
	Flags     uint8
	OAMIndex  int
	Height    int

	PaletteOBP1 bool
	FlipX       bool
	FlipY       bool
	BehindBG    bool
}

// ReadSprite decodes OAM entry index.
func ReadSprite(r Reader, index int, height int) Sprite {
	base := addr.OAMStart + uint16(index*4)
	flags := r.LowLevelRead(base + 3)
	return Sprite{
		Y:           int(r.LowLevelRead(base)) - 16,
		X:           int(r.LowLevelRead(base+1)) - 8,
		TileIndex:   r.LowLevelRead(base + 2),
		Flags:       flags,
		OAMIndex:    index,
		Height:      height,
		PaletteOBP1: bit.IsSet(spriteAttrPalette, flags),
		FlipX:       bit.IsSet(spriteAttrFlipX, flags),
		FlipY:       bit.IsSet(spriteAttrFlipY, flags),
		BehindBG:    bit.IsSet(spriteAttrBehindBG, flags),
	}
}

// row fetches the pattern row of the sprite that lands on scanline ly.
func (s *Sprite) row(r Reader, ly int) TileRow {
	y := ly - s.Y
	if s.FlipY {
		y = s.Height - 1 - y
	}
	tile := s.TileIndex
	if s.Height == 16 {
		tile &^= 1
	}
	return FetchTileRow(r, TileDataAddress(tile, true), y)
}

// spritePixel is the sprite that owns a screen pixel on the current line.
type spritePixel struct {
	owner int // index into the line's sprite list, -1 if none
	x     int
	color uint8
}

// lineSprites holds the sprites selected for one scanline and the per pixel
// winner between them. On DMG the sprite with the lower X wins, ties go to
// the lower OAM index, and transparent pixels never claim a spot.
type lineSprites struct {
	sprites [maxSpritesPerLine]Sprite
	count   int
	pixels  [FramebufferWidth]spritePixel
}

func (l *lineSprites) scan(r Reader, ly int, height int) {
	l.count = 0
	for i := range spriteCount {
		s := ReadSprite(r, i, height)
		if ly < s.Y || ly >= s.Y+height {
			continue
		}
		l.sprites[l.count] = s
		l.count++
		if l.count == maxSpritesPerLine {
			break
		}
	}

	for x := range l.pixels {
		l.pixels[x] = spritePixel{owner: -1}
	}

	for i := range l.count {
		s := &l.sprites[i]
		row := s.row(r, ly)
		for px := range 8 {
			x := s.X + px
			if x < 0 || x >= FramebufferWidth {
				continue
			}
			color := row.Pixel(px)
			if s.FlipX {
				color = row.PixelFlipped(px)
			}
			if color == 0 {
				continue
			}
			if l.claims(x, s) {
				l.pixels[x] = spritePixel{owner: i, x: s.X, color: color}
			}
		}
	}
}

func (l *lineSprites) claims(x int, s *Sprite) bool {
	current := l.pixels[x]
	if current.owner < 0 {
		return true
	}
	if s.X != current.x {
		return s.X < current.x
	}
	return s.OAMIndex < l.sprites[current.owner].OAMIndex
}

// Sprites returns the sprites selected for the last rendered scanline.
func (l *lineSprites) Sprites() []Sprite {
	return l.sprites[:l.count]
}
