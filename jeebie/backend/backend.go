package backend

import (
	"github.com/valerio/jeebie/jeebie/debug"
	"github.com/valerio/jeebie/jeebie/input"
	"github.com/valerio/jeebie/jeebie/input/action"
	"github.com/valerio/jeebie/jeebie/video"
)

// Backend represents a complete emulator platform (rendering + input)
// Backends are responsible for:
// - Rendering frames to their specific output (terminal, image files, etc.)
// - Translating platform-specific input events to actions via the input manager
// - Handling backend-specific features (debug panels, snapshots)
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling Update.
	Init(config Config) error

	// Update renders the frame and processes platform events. data is the
	// latest debug view, nil when none was captured.
	Update(frame *video.FrameBuffer, data *debug.Data) error

	// Cleanup resources when shutting down
	Cleanup() error
}

// Config holds configuration for backends
type Config struct {
	Title     string
	Scale     int
	ShowDebug bool                     // Backends may ignore unsupported features
	Input     *input.Manager           // Shared input manager for unified input handling
	KeyMap    map[string]action.Action // key name to action, see input.KeyMap
	Callbacks Callbacks
}

// Callbacks allows backends to communicate with the emulator
type Callbacks struct {
	// OnQuit is called when the backend requests shutdown (e.g. a signal)
	OnQuit func()
}
