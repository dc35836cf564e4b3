package debug

import (
	"fmt"

	"github.com/valerio/jeebie/jeebie/video"
)

const (
	OAMSpriteCount    = 40
	MaxSpritesPerLine = 10
)

type SpriteInfo struct {
	video.Sprite
	IsVisible bool
}

type OAMData struct {
	Sprites       []SpriteInfo
	CurrentLine   int
	ActiveSprites int
	SpriteHeight  int
}

// ExtractOAMData decodes every OAM entry, marking the ones that overlap
// currentLine. Like the hardware, at most 10 sprites are visible per line.
func ExtractOAMData(reader video.Reader, currentLine int, spriteHeight int) *OAMData {
	data := &OAMData{
		Sprites:      make([]SpriteInfo, OAMSpriteCount),
		CurrentLine:  currentLine,
		SpriteHeight: spriteHeight,
	}

	for i := range OAMSpriteCount {
		s := video.ReadSprite(reader, i, spriteHeight)
		visible := data.ActiveSprites < MaxSpritesPerLine &&
			s.Y <= currentLine && s.Y+spriteHeight > currentLine
		if visible {
			data.ActiveSprites++
		}
		data.Sprites[i] = SpriteInfo{Sprite: s, IsVisible: visible}
	}
	return data
}

func (s *SpriteInfo) String() string {
	status := "OFF"
	if s.IsVisible {
		status = "ACTIVE"
	}
	return fmt.Sprintf("Sprite %2d: Y=%3d X=%3d  Tile=0x%02X Flags=0x%02X [%s]",
		s.OAMIndex, s.Y, s.X, s.TileIndex, s.Flags, status)
}

func (data *OAMData) GetVisibleSprites() []SpriteInfo {
	visible := make([]SpriteInfo, 0, data.ActiveSprites)
	for _, sprite := range data.Sprites {
		if sprite.IsVisible {
			visible = append(visible, sprite)
		}
	}
	return visible
}

func (data *OAMData) FormatSummary() string {
	return fmt.Sprintf("Current Line: %d | Active Sprites: %d/%d | Height: %dpx",
		data.CurrentLine, data.ActiveSprites, MaxSpritesPerLine, data.SpriteHeight)
}
