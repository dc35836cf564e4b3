package video

import (
	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/bit"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

// Mode is the LCD controller phase, with the values STAT reports.
type Mode uint8

const (
	ModeHBlank Mode = iota
	ModeVBlank
	ModeOAMScan
	ModePixelTransfer
)

func (m Mode) String() string {
	switch m {
	case ModeHBlank:
		return "hblank"
	case ModeVBlank:
		return "vblank"
	case ModeOAMScan:
		return "oam"
	}
	return "transfer"
}

const (
	oamTicks      = 80
	transferTicks = 172
	hblankTicks   = 204
	lineTicks     = oamTicks + transferTicks + hblankTicks

	visibleLines = FramebufferHeight
	totalLines   = 154

	// FrameTicks is the length of a full frame, VBlank included.
	FrameTicks = lineTicks * totalLines
	// FramesPerSecond is the LCD refresh rate.
	FramesPerSecond = 4194304.0 / FrameTicks
)

// LCDC bits
const (
	lcdcBGEnable       = 0
	lcdcSpriteEnable   = 1
	lcdcSpriteSize     = 2
	lcdcBGTileMap      = 3
	lcdcTileDataSelect = 4
	lcdcWindowEnable   = 5
	lcdcWindowTileMap  = 6
	lcdcDisplayEnable  = 7
)

// STAT bits
const (
	statCoincidence    = 2
	statHBlankIRQ      = 3
	statVBlankIRQ      = 4
	statOAMIRQ         = 5
	statCoincidenceIRQ = 6
)

// Bus is what the GPU needs from memory: side effect free access to VRAM,
// OAM and its registers, plus the interrupt line.
type Bus interface {
	LowLevelRead(address uint16) uint8
	LowLevelWrite(address uint16, value uint8)
	RequestInterrupt(irq addr.Interrupt)
}

// GPU is the display controller: a per scanline state machine that renders
// each visible line at the end of its pixel transfer phase.
type GPU struct {
	bus Bus

	enabled    bool
	mode       Mode
	line       uint8
	ticks      int
	windowLine uint8
	lycMatched bool
	frames     uint64

	shades     [4]GBColor
	bgPalette  [4]GBColor
	objPalette [2][4]GBColor

	// surface is the 256x256 background/window composite, screen the
	// scrolled crop of it with sprites on top.
	surface *FrameBuffer
	screen  *FrameBuffer
	bgIndex [FramebufferWidth]uint8
	rowBuf  [SurfaceSize]uint8
	sprites lineSprites

	layers DebugLayers

	onFrame func()
}

func NewGPU(bus Bus) *GPU {
	g := &GPU{
		bus:     bus,
		shades:  DefaultShades,
		surface: NewFrameBuffer(SurfaceSize, SurfaceSize),
		screen:  NewFrameBuffer(FramebufferWidth, FramebufferHeight),
	}
	g.Reset()
	return g
}

// Reset puts the controller at the start of a frame, reading the LCD state
// and palettes from the registers already in memory.
func (g *GPU) Reset() {
	g.enabled = bit.IsSet(lcdcDisplayEnable, g.reg(addr.LCDC))
	g.mode = ModeOAMScan
	g.line = 0
	g.ticks = 0
	g.windowLine = 0
	g.lycMatched = false
	g.frames = 0
	g.screen.Fill(g.shades[0])
	g.surface.Fill(g.shades[0])
	g.updatePalettes()
	g.writeLY()
	g.compareLYC()
}

// OnFrame registers the callback fired once per frame, on VBlank entry.
func (g *GPU) OnFrame(fn func()) {
	g.onFrame = fn
}

// SetShades replaces the 4 output colors, lightest first.
func (g *GPU) SetShades(shades [4]GBColor) {
	g.shades = shades
	g.updatePalettes()
}

func (g *GPU) Screen() *FrameBuffer     { return g.screen }
func (g *GPU) Background() *FrameBuffer { return g.surface }
func (g *GPU) DebugLayers() *DebugLayers { return &g.layers }
func (g *GPU) Mode() Mode               { return g.mode }
func (g *GPU) Line() uint8              { return g.line }
func (g *GPU) Frames() uint64           { return g.frames }
func (g *GPU) Enabled() bool            { return g.enabled }

// LineSprites returns the sprites picked for the last rendered scanline.
func (g *GPU) LineSprites() []Sprite {
	return g.sprites.Sprites()
}

func (g *GPU) reg(address uint16) uint8 {
	return g.bus.LowLevelRead(address)
}

// Step advances the controller by ticks. Large steps go through every mode
// boundary they cross.
func (g *GPU) Step(ticks int) {
	if !g.enabled {
		return
	}
	g.ticks += ticks

	for {
		switch g.mode {
		case ModeOAMScan:
			if g.ticks < oamTicks {
				return
			}
			g.ticks -= oamTicks
			g.layers.markTiming(int(g.line), 0, oamTicks, ModeOAMScan)
			g.setMode(ModePixelTransfer)

		case ModePixelTransfer:
			if g.ticks < transferTicks {
				return
			}
			g.ticks -= transferTicks
			g.layers.markTiming(int(g.line), oamTicks, oamTicks+transferTicks, ModePixelTransfer)
			g.renderLine()
			g.setMode(ModeHBlank)

		case ModeHBlank:
			if g.ticks < hblankTicks {
				return
			}
			g.ticks -= hblankTicks
			g.layers.markTiming(int(g.line), oamTicks+transferTicks, lineTicks, ModeHBlank)
			g.setLine(g.line + 1)
			if g.line < visibleLines {
				g.setMode(ModeOAMScan)
				continue
			}
			g.setMode(ModeVBlank)
			g.bus.RequestInterrupt(addr.VBlankInterrupt)
			g.frameDone()

		case ModeVBlank:
			if g.ticks < lineTicks {
				return
			}
			g.ticks -= lineTicks
			g.layers.markTiming(int(g.line), 0, lineTicks, ModeVBlank)
			if g.line < totalLines-1 {
				g.setLine(g.line + 1)
				continue
			}
			g.windowLine = 0
			g.setLine(0)
			g.setMode(ModeOAMScan)
		}
	}
}

func (g *GPU) frameDone() {
	g.frames++
	if g.layers.Enabled(LayerBackground) {
		g.renderMap(g.layers.Background, bit.IsSet(lcdcBGTileMap, g.reg(addr.LCDC)))
	}
	if g.layers.Enabled(LayerWindow) {
		g.renderMap(g.layers.Window, bit.IsSet(lcdcWindowTileMap, g.reg(addr.LCDC)))
	}
	if g.onFrame != nil {
		g.onFrame()
	}
}

func (g *GPU) setMode(m Mode) {
	g.mode = m
	g.writeSTAT()

	stat := g.reg(addr.STAT)
	var irq bool
	switch m {
	case ModeHBlank:
		irq = bit.IsSet(statHBlankIRQ, stat)
	case ModeVBlank:
		irq = bit.IsSet(statVBlankIRQ, stat)
	case ModeOAMScan:
		irq = bit.IsSet(statOAMIRQ, stat)
	}
	if irq {
		g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) setLine(line uint8) {
	g.line = line
	g.writeLY()
	g.compareLYC()
}

// compareLYC updates the coincidence flag and raises the STAT interrupt
// when LY starts matching LYC, once per match.
func (g *GPU) compareLYC() {
	match := g.enabled && g.line == g.reg(addr.LYC)
	if match && !g.lycMatched && bit.IsSet(statCoincidenceIRQ, g.reg(addr.STAT)) {
		g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
	}
	g.lycMatched = match
	g.writeSTAT()
}

func (g *GPU) writeLY() {
	g.bus.LowLevelWrite(addr.LY, g.line)
}

// writeSTAT refreshes the read-only low bits of STAT: mode and coincidence.
func (g *GPU) writeSTAT() {
	stat := g.reg(addr.STAT)&0x78 | 0x80 | uint8(g.mode)
	if !g.enabled {
		stat &^= 0x03
	}
	if g.lycMatched {
		stat = bit.Set(statCoincidence, stat)
	}
	g.bus.LowLevelWrite(addr.STAT, stat)
}

// HandleMemoryChange reacts to writes to LCDC..WX.
func (g *GPU) HandleMemoryChange(address uint16, value uint8) {
	switch address {
	case addr.LCDC:
		g.setEnabled(bit.IsSet(lcdcDisplayEnable, value))
	case addr.STAT:
		g.writeSTAT()
	case addr.LY:
		// read only
		g.writeLY()
	case addr.LYC:
		g.compareLYC()
	case addr.BGP, addr.OBP0, addr.OBP1:
		g.updatePalettes()
	}
}

func (g *GPU) setEnabled(on bool) {
	if on == g.enabled {
		return
	}
	g.enabled = on
	g.ticks = 0
	g.windowLine = 0
	g.line = 0
	g.writeLY()
	if on {
		g.mode = ModeOAMScan
		g.lycMatched = false
		g.compareLYC()
		return
	}
	g.mode = ModeHBlank
	g.lycMatched = false
	g.writeSTAT()
	g.screen.Fill(g.shades[0])
}

func decodePalette(reg uint8, shades [4]GBColor) [4]GBColor {
	var p [4]GBColor
	for i := range p {
		p[i] = shades[(reg>>(2*i))&0x03]
	}
	return p
}

func (g *GPU) updatePalettes() {
	g.bgPalette = decodePalette(g.reg(addr.BGP), g.shades)
	g.objPalette[0] = decodePalette(g.reg(addr.OBP0), g.shades)
	g.objPalette[1] = decodePalette(g.reg(addr.OBP1), g.shades)
}

// mapPixel returns the color index at (x, y) of a 256x256 tile map.
func (g *GPU) mapPixel(mapBase uint16, unsigned bool, x, y int) uint8 {
	tile := g.reg(mapBase + uint16((y/8)*32+x/8))
	row := FetchTileRow(g.bus, TileDataAddress(tile, unsigned), y%8)
	return row.Pixel(x % 8)
}

func (g *GPU) renderLine() {
	ly := int(g.line)
	lcdc := g.reg(addr.LCDC)
	scx, scy := int(g.reg(addr.SCX)), int(g.reg(addr.SCY))
	unsigned := bit.IsSet(lcdcTileDataSelect, lcdc)
	row := (scy + ly) & 0xFF

	if bit.IsSet(lcdcBGEnable, lcdc) {
		base := TileMapAddress(bit.IsSet(lcdcBGTileMap, lcdc))
		for x := range SurfaceSize {
			g.rowBuf[x] = g.mapPixel(base, unsigned, x, row)
		}
	} else {
		clear(g.rowBuf[:])
	}
	for x := range SurfaceSize {
		g.surface.SetPixel(x, row, g.bgPalette[g.rowBuf[x]])
	}

	for x := range FramebufferWidth {
		idx := g.rowBuf[(scx+x)&0xFF]
		g.bgIndex[x] = idx
		g.screen.SetPixel(x, ly, g.bgPalette[idx])
	}

	g.renderWindow(lcdc, ly, scx, row, unsigned)

	if bit.IsSet(lcdcSpriteEnable, lcdc) {
		g.renderSprites(lcdc, ly)
	} else if g.layers.Enabled(LayerSprites) {
		for x := range FramebufferWidth {
			g.layers.Sprites.SetPixel(x, ly, 0)
		}
	}
}

func (g *GPU) renderWindow(lcdc uint8, ly, scx, row int, unsigned bool) {
	if !bit.IsSet(lcdcWindowEnable, lcdc) || !bit.IsSet(lcdcBGEnable, lcdc) {
		return
	}
	wy, wx := int(g.reg(addr.WY)), int(g.reg(addr.WX))-7
	if ly < wy || wx >= FramebufferWidth {
		return
	}

	base := TileMapAddress(bit.IsSet(lcdcWindowTileMap, lcdc))
	wline := int(g.windowLine)
	for x := max(wx, 0); x < FramebufferWidth; x++ {
		idx := g.mapPixel(base, unsigned, x-wx, wline)
		g.bgIndex[x] = idx
		color := g.bgPalette[idx]
		g.screen.SetPixel(x, ly, color)
		g.surface.SetPixel((scx+x)&0xFF, row, color)
	}
	g.windowLine++
}

func (g *GPU) renderSprites(lcdc uint8, ly int) {
	height := 8
	if bit.IsSet(lcdcSpriteSize, lcdc) {
		height = 16
	}
	g.sprites.scan(g.bus, ly, height)

	debug := g.layers.Enabled(LayerSprites)
	for x := range FramebufferWidth {
		p := g.sprites.pixels[x]
		if p.owner < 0 {
			if debug {
				g.layers.Sprites.SetPixel(x, ly, 0)
			}
			continue
		}
		s := &g.sprites.sprites[p.owner]
		palette := 0
		if s.PaletteOBP1 {
			palette = 1
		}
		color := g.objPalette[palette][p.color]
		if debug {
			g.layers.Sprites.SetPixel(x, ly, color)
		}
		if s.BehindBG && g.bgIndex[x] != 0 {
			continue
		}
		g.screen.SetPixel(x, ly, color)
	}
}

// renderMap draws a whole tile map, used by the debug layers.
func (g *GPU) renderMap(fb *FrameBuffer, highMap bool) {
	base := TileMapAddress(highMap)
	unsigned := bit.IsSet(lcdcTileDataSelect, g.reg(addr.LCDC))
	for y := range SurfaceSize {
		for x := range SurfaceSize {
			fb.SetPixel(x, y, g.bgPalette[g.mapPixel(base, unsigned, x, y)])
		}
	}
}

func (g *GPU) State() *snapshot.Video {
	return &snapshot.Video{
		Mode:       uint8(g.mode),
		Line:       g.line,
		Ticks:      uint16(g.ticks),
		WindowLine: g.windowLine,
		LYCMatched: g.lycMatched,
		Enabled:    g.enabled,
		Frames:     g.frames,
	}
}

// SetState restores the controller. Memory must be restored first, the
// palettes are recomputed from it.
func (g *GPU) SetState(s *snapshot.Video) {
	g.mode = Mode(s.Mode & 0x03)
	g.line = s.Line
	g.ticks = int(s.Ticks)
	g.windowLine = s.WindowLine
	g.lycMatched = s.LYCMatched
	g.enabled = s.Enabled
	g.frames = s.Frames
	g.updatePalettes()
}
