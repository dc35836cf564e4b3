package jeebie

import (
	"github.com/valerio/jeebie/jeebie/audio"
	"github.com/valerio/jeebie/jeebie/memory"
	"github.com/valerio/jeebie/jeebie/video"
)

// Emulator is what frontends drive: frames, buttons and audio.
type Emulator interface {
	Title() string
	RunUntilFrame() error
	Screen() *video.FrameBuffer
	Press(b memory.Button)
	Release(b memory.Button)
	AudioProvider() audio.Provider
}

var _ Emulator = (*DMG)(nil)
