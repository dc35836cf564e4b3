package action

import "github.com/valerio/jeebie/jeebie/memory"

// Action represents input actions that can be performed in the emulator
type Action int

const (
	// Game Boy hardware controls
	GBButtonA Action = iota
	GBButtonB
	GBButtonStart
	GBButtonSelect
	GBDPadUp
	GBDPadDown
	GBDPadLeft
	GBDPadRight

	// Emulator features
	EmulatorDebugToggle
	EmulatorSnapshot
	EmulatorPauseToggle
	EmulatorStepFrame
	EmulatorStepInstruction
	EmulatorSaveState
	EmulatorLoadState
	EmulatorQuit

	// Audio debugging
	AudioToggleChannel1
	AudioToggleChannel2
	AudioToggleChannel3
	AudioToggleChannel4
	AudioSoloChannel1
	AudioSoloChannel2
	AudioSoloChannel3
	AudioSoloChannel4
	AudioUnmuteAll

	// Debug display
	DebugLogLevelIncrease
	DebugLogLevelDecrease
)

var buttons = map[Action]memory.Button{
	GBButtonA:      memory.ButtonA,
	GBButtonB:      memory.ButtonB,
	GBButtonStart:  memory.ButtonStart,
	GBButtonSelect: memory.ButtonSelect,
	GBDPadUp:       memory.ButtonUp,
	GBDPadDown:     memory.ButtonDown,
	GBDPadLeft:     memory.ButtonLeft,
	GBDPadRight:    memory.ButtonRight,
}

// Button returns the joypad button behind a Game Boy control action.
func (a Action) Button() (memory.Button, bool) {
	b, ok := buttons[a]
	return b, ok
}

// ForButton is the inverse of Button.
func ForButton(b memory.Button) (Action, bool) {
	for a, ab := range buttons {
		if ab == b {
			return a, true
		}
	}
	return 0, false
}

// AudioChannel returns the channel (1-4) targeted by an audio action.
func (a Action) AudioChannel() (int, bool) {
	switch {
	case a >= AudioToggleChannel1 && a <= AudioToggleChannel4:
		return int(a-AudioToggleChannel1) + 1, true
	case a >= AudioSoloChannel1 && a <= AudioSoloChannel4:
		return int(a-AudioSoloChannel1) + 1, true
	}
	return 0, false
}
