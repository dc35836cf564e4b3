package video

import "strings"

// Layer selects one of the debug render targets.
type Layer uint8

const (
	// LayerBackground is the whole 256x256 background tile map, unscrolled.
	LayerBackground Layer = 1 << iota
	// LayerWindow is the whole 256x256 window tile map.
	LayerWindow
	// LayerSprites is the screen with only sprites drawn.
	LayerSprites
	// LayerTiming paints every tick of a frame with the color of its mode.
	LayerTiming
)

var layerNames = []struct {
	layer Layer
	name  string
}{
	{LayerBackground, "bg"},
	{LayerWindow, "window"},
	{LayerSprites, "sprites"},
	{LayerTiming, "timing"},
}

// ParseLayers parses a list of layer names ("bg", "window", "sprites",
// "timing"). Unknown names are returned so the caller can report them.
func ParseLayers(names []string) (Layer, []string) {
	var l Layer
	var unknown []string
	for _, n := range names {
		found := false
		for _, ln := range layerNames {
			if strings.EqualFold(n, ln.name) {
				l |= ln.layer
				found = true
			}
		}
		if !found {
			unknown = append(unknown, n)
		}
	}
	return l, unknown
}

const (
	timingWidth  = lineTicks
	timingHeight = totalLines
)

var modeColors = [4]GBColor{
	ModeHBlank:        0xFF3060C0,
	ModeVBlank:        0xFF303030,
	ModeOAMScan:       0xFFC0A030,
	ModePixelTransfer: 0xFF30A040,
}

// DebugLayers are optional render targets that do not affect the screen.
// Buffers are allocated on first use.
type DebugLayers struct {
	enabled Layer

	Background *FrameBuffer
	Window     *FrameBuffer
	Sprites    *FrameBuffer
	Timing     *FrameBuffer
}

func (d *DebugLayers) Enabled(l Layer) bool {
	return d.enabled&l != 0
}

// Set replaces the set of enabled layers.
func (d *DebugLayers) Set(l Layer) {
	d.enabled = l
	if d.Enabled(LayerBackground) && d.Background == nil {
		d.Background = NewFrameBuffer(SurfaceSize, SurfaceSize)
	}
	if d.Enabled(LayerWindow) && d.Window == nil {
		d.Window = NewFrameBuffer(SurfaceSize, SurfaceSize)
	}
	if d.Enabled(LayerSprites) && d.Sprites == nil {
		d.Sprites = NewFrameBuffer(FramebufferWidth, FramebufferHeight)
	}
	if d.Enabled(LayerTiming) && d.Timing == nil {
		d.Timing = NewFrameBuffer(timingWidth, timingHeight)
	}
}

// Toggle flips one layer on or off.
func (d *DebugLayers) Toggle(l Layer) {
	d.Set(d.enabled ^ l)
}

func (d *DebugLayers) markTiming(line, from, to int, mode Mode) {
	if !d.Enabled(LayerTiming) || line >= timingHeight {
		return
	}
	for x := max(from, 0); x < min(to, timingWidth); x++ {
		d.Timing.SetPixel(x, line, modeColors[mode])
	}
}
