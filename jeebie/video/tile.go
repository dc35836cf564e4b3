package video

import "github.com/valerio/jeebie/jeebie/addr"

// TileRow is one row of a tile pattern (8 pixels).
//
// Each row uses 2 bytes in a bit-plane format: the low byte gives bit 0 of
// each pixel's color index, the high byte gives bit 1. Bit 7 is the
// leftmost pixel:
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// A complete 8x8 tile occupies 16 bytes in VRAM.
type TileRow struct {
	Low  byte
	High byte
}

// Pixel returns the color index (0-3) of pixel x, 0 being the leftmost.
func (t TileRow) Pixel(x int) uint8 {
	shift := 7 - uint(x)
	return (t.Low>>shift)&1 | ((t.High>>shift)&1)<<1
}

// PixelFlipped is Pixel for a horizontally flipped row.
func (t TileRow) PixelFlipped(x int) uint8 {
	return t.Pixel(7 - x)
}

// TileDataAddress returns the address of the 16 bytes of tile data for a
// tile index. With unsigned addressing (LCDC bit 4 set) tiles start at
// 0x8000, otherwise the index is signed and relative to 0x9000.
func TileDataAddress(index uint8, unsigned bool) uint16 {
	if unsigned {
		return addr.TileData0 + uint16(index)*16
	}
	return uint16(int32(addr.TileData2) + int32(int8(index))*16)
}

// TileMapAddress returns the base of the tile map selected by an LCDC bit.
func TileMapAddress(high bool) uint16 {
	if high {
		return addr.TileMap1
	}
	return addr.TileMap0
}

// Reader is read access to VRAM and OAM.
type Reader interface {
	LowLevelRead(address uint16) uint8
}

// FetchTileRow reads row y (0-7, or 0-15 for tall sprites) of the tile whose
// data starts at base.
func FetchTileRow(r Reader, base uint16, y int) TileRow {
	address := base + uint16(y*2)
	return TileRow{Low: r.LowLevelRead(address), High: r.LowLevelRead(address + 1)}
}

// Tile is a complete 8x8 pattern.
type Tile [8]TileRow

// FetchTile reads a complete tile starting at base.
func FetchTile(r Reader, base uint16) Tile {
	var t Tile
	for y := range t {
		t[y] = FetchTileRow(r, base, y)
	}
	return t
}

// Pixel returns the color index at (x, y).
func (t *Tile) Pixel(x, y int) uint8 {
	if x < 0 || x >= 8 || y < 0 || y >= 8 {
		return 0
	}
	return t[y].Pixel(x)
}
