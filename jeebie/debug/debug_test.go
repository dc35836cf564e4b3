package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/audio"
	"github.com/valerio/jeebie/jeebie/cpu"
	"github.com/valerio/jeebie/jeebie/memory"
	"github.com/valerio/jeebie/jeebie/video"
)

func TestFrequencyToNote(t *testing.T) {
	tests := []struct {
		freq float64
		want string
	}{
		{440, "A4"},
		{261.63, "C4"},
		{466.16, "A#4"},
		{131072.0 / (2048 - 1750), "A4"}, // 439.8Hz
		{10, "--"},
		{30000, "--"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, frequencyToNote(tt.freq))
		})
	}
}

func TestExtract(t *testing.T) {
	mmu := memory.New()
	c := cpu.New(mmu)
	gpu := video.NewGPU(mmu)
	apu := audio.New(mmu, audio.DefaultSampleRate)
	mmu.MapRegisters(addr.AudioStart, addr.AudioEnd, apu)
	apu.Reset()

	// A4 on square 2 at full volume, square 1 muted
	mmu.Write(addr.NR21, 0x80)
	mmu.Write(addr.NR22, 0xF0)
	mmu.Write(addr.NR23, uint8(1750&0xFF))
	mmu.Write(addr.NR24, 0x80|uint8(1750>>8))
	apu.MuteChannel(audio.Square1, true)

	c.AddBreakpoint(cpu.BreakExec, 0x0150)
	mmu.Write(addr.IE, 0x05)

	data := Extract(Sources{CPU: c, Memory: mmu, GPU: gpu, APU: apu}, 5)
	require.NotNil(t, data)

	assert.Equal(t, uint16(0x0100), data.CPU.PC)
	assert.Equal(t, c.GetFlagString(), data.CPU.Flags)
	assert.Len(t, data.Disassembly, 5)
	assert.Equal(t, []cpu.Breakpoint{{Kind: cpu.BreakExec, Address: 0x0150}}, data.Breakpoints)
	assert.Equal(t, uint8(0x05), data.InterruptEnable)
	require.NotNil(t, data.OAM)
	assert.Equal(t, 8, data.OAM.SpriteHeight)

	require.NotNil(t, data.Audio)
	ch2 := data.Audio.Channels[1]
	assert.True(t, ch2.Enabled)
	assert.Equal(t, uint8(15), ch2.Volume)
	assert.Equal(t, uint8(2), ch2.DutyCycle)
	assert.InDelta(t, 439.8, ch2.Frequency, 0.1)
	assert.Equal(t, "A4", ch2.Note)
	assert.True(t, data.Audio.Channels[0].Muted)
	assert.False(t, ch2.Muted)
	assert.Equal(t, "Noise", data.Audio.Channels[3].Note)

	assert.Nil(t, Extract(Sources{}, 5))
}

func TestSaveFramePNG(t *testing.T) {
	fb := video.NewFrameBuffer(video.FramebufferWidth, video.FramebufferHeight)
	fb.Fill(video.DarkGreyColor)
	fb.SetPixel(3, 4, video.WhiteColor)

	dir := t.TempDir()
	path, err := SaveFramePNGToDir(fb, "shot", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "shot_"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, video.FramebufferWidth, img.Bounds().Dx())
	r, _, _, _ := img.At(3, 4).RGBA()
	assert.Equal(t, uint32(0xFFFF), r)
	r, _, _, _ = img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0x4C4C), r)

	assert.Error(t, SaveFramePNG(fb, filepath.Join(dir, "missing", "x.png")))
}
