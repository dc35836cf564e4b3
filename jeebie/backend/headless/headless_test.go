package headless_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie"
	"github.com/valerio/jeebie/jeebie/backend"
	"github.com/valerio/jeebie/jeebie/backend/headless"
	"github.com/valerio/jeebie/jeebie/cpu"
	"github.com/valerio/jeebie/jeebie/video"
)

func loopROM() []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x100:], []byte{0x00, 0xC3, 0x50, 0x01}) // JP 0x150
	copy(rom[0x134:], "LOOP")
	copy(rom[0x150:], []byte{0x00, 0x18, 0xFD}) // NOP; JR -3
	return rom
}

func TestHeadlessBackend(t *testing.T) {
	t.Run("normal operation", func(t *testing.T) {
		h := headless.New(3, headless.SnapshotConfig{})

		quits := 0
		err := h.Init(backend.Config{
			Title:     "Test",
			Callbacks: backend.Callbacks{OnQuit: func() { quits++ }},
		})
		require.NoError(t, err)

		frame := video.NewFrameBuffer(video.FramebufferWidth, video.FramebufferHeight)
		for i := range 3 {
			assert.False(t, h.Done())
			require.NoError(t, h.Update(frame, nil))
			if i < 2 {
				assert.Zero(t, quits, "should not quit before reaching max frames")
			}
		}

		assert.True(t, h.Done())
		assert.Equal(t, 1, quits)

		// further frames are ignored
		require.NoError(t, h.Update(frame, nil))
		assert.Equal(t, 3, h.Frames())
		assert.Equal(t, 1, quits)

		assert.NoError(t, h.Cleanup())
	})

	t.Run("snapshots", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := headless.CreateSnapshotConfig(2, dir, "/roms/tetris.gb")
		require.NoError(t, err)
		assert.Equal(t, "tetris", cfg.ROMName)

		h := headless.New(5, cfg)
		require.NoError(t, h.Init(backend.Config{}))
		frame := video.NewFrameBuffer(video.FramebufferWidth, video.FramebufferHeight)
		for range 5 {
			require.NoError(t, h.Update(frame, nil))
		}

		// frames 2 and 4, then the final frame
		require.Len(t, h.Snapshots(), 3)
		for _, p := range h.Snapshots() {
			assert.Equal(t, dir, filepath.Dir(p))
			_, err := os.Stat(p)
			assert.NoError(t, err)
		}
	})

	t.Run("disabled snapshots", func(t *testing.T) {
		cfg, err := headless.CreateSnapshotConfig(0, "", "rom.gb")
		require.NoError(t, err)
		assert.False(t, cfg.Enabled)
		assert.Empty(t, cfg.Directory)
	})
}

func TestHeadlessRun(t *testing.T) {
	d, err := jeebie.NewWithROM(loopROM())
	require.NoError(t, err)
	d.CPU().AddBreakpoint(cpu.BreakExec, 0x101)

	h := headless.New(4, headless.SnapshotConfig{})
	require.NoError(t, h.Run(context.Background(), d))

	assert.Equal(t, 4, h.Frames())
	assert.Equal(t, uint64(4), d.Frames())
}

func TestHeadlessRunCancelled(t *testing.T) {
	d, err := jeebie.NewWithROM(loopROM())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := headless.New(4, headless.SnapshotConfig{})
	assert.ErrorIs(t, h.Run(ctx, d), context.Canceled)
	assert.Zero(t, h.Frames())
}

func TestHeadlessImplementsBackend(t *testing.T) {
	var _ backend.Backend = (*headless.Backend)(nil)
}
