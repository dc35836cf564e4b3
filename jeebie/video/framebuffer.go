package video

import (
	"image"
	"image/color"
)

const (
	// FramebufferWidth and FramebufferHeight are the visible screen size.
	FramebufferWidth  = 160
	FramebufferHeight = 144

	// SurfaceSize is the side of the background/window tile map surface.
	SurfaceSize = 256
)

// GBColor is a packed 0xAARRGGBB pixel.
type GBColor uint32

const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor GBColor = 0xFF989898
	DarkGreyColor  GBColor = 0xFF4C4C4C
	BlackColor     GBColor = 0xFF000000
)

// DefaultShades maps the 4 DMG shades, lightest first.
var DefaultShades = [4]GBColor{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}

func (c GBColor) RGBA() color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: uint8(c >> 24)}
}

// DisplayDefinition describes a framebuffer to a host video sink.
type DisplayDefinition struct {
	Width  int
	Height int
	// Stride is the number of pixels between the start of two rows.
	Stride int
	// FramesPerSecond is the refresh rate of the emulated LCD.
	FramesPerSecond float64
}

// FrameBuffer is a packed pixel buffer, allocated once and overwritten in place.
type FrameBuffer struct {
	width  int
	height int
	buffer []uint32
}

// NewFrameBuffer creates a frame buffer with the specified size.
func NewFrameBuffer(width, height int) *FrameBuffer {
	return &FrameBuffer{
		width:  width,
		height: height,
		buffer: make([]uint32, width*height),
	}
}

func (fb *FrameBuffer) Width() int  { return fb.width }
func (fb *FrameBuffer) Height() int { return fb.height }

func (fb *FrameBuffer) Definition() DisplayDefinition {
	return DisplayDefinition{
		Width:           fb.width,
		Height:          fb.height,
		Stride:          fb.width,
		FramesPerSecond: FramesPerSecond,
	}
}

func (fb *FrameBuffer) GetPixel(x, y int) GBColor {
	return GBColor(fb.buffer[y*fb.width+x])
}

func (fb *FrameBuffer) SetPixel(x, y int, color GBColor) {
	fb.buffer[y*fb.width+x] = uint32(color)
}

// Fill sets every pixel to color.
func (fb *FrameBuffer) Fill(color GBColor) {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(color)
	}
}

// ToSlice returns the backing pixels, row major.
func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// CopyFrom copies the pixels of another buffer of the same size.
func (fb *FrameBuffer) CopyFrom(other *FrameBuffer) {
	copy(fb.buffer, other.buffer)
}

// ToImage converts the buffer to an image, for PNG snapshots.
func (fb *FrameBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
	for y := range fb.height {
		for x := range fb.width {
			img.SetRGBA(x, y, fb.GetPixel(x, y).RGBA())
		}
	}
	return img
}
