package input

import (
	"strings"

	"github.com/valerio/jeebie/jeebie/input/action"
	"github.com/valerio/jeebie/jeebie/memory"
)

// DefaultKeyMap provides the emulator controls shared by every frontend.
// Key names are lower case, as produced by the terminal backend.
var DefaultKeyMap = map[string]action.Action{
	"space":     action.EmulatorPauseToggle,
	"p":         action.EmulatorPauseToggle,
	"o":         action.EmulatorStepFrame,
	"i":         action.EmulatorStepInstruction,
	"f5":        action.EmulatorSaveState,
	"f7":        action.EmulatorLoadState,
	"f9":        action.EmulatorSnapshot,
	"f10":       action.EmulatorDebugToggle,
	"esc":       action.EmulatorQuit,
	"q":         action.EmulatorQuit,
	"f1":        action.AudioToggleChannel1,
	"f2":        action.AudioToggleChannel2,
	"f3":        action.AudioToggleChannel3,
	"f4":        action.AudioToggleChannel4,
	"1":         action.AudioSoloChannel1,
	"2":         action.AudioSoloChannel2,
	"3":         action.AudioSoloChannel3,
	"4":         action.AudioSoloChannel4,
	"0":         action.AudioUnmuteAll,
	"+":         action.DebugLogLevelIncrease,
	"=":         action.DebugLogLevelIncrease,
	"-":         action.DebugLogLevelDecrease,
	"up":        action.GBDPadUp,
	"down":      action.GBDPadDown,
	"left":      action.GBDPadLeft,
	"right":     action.GBDPadRight,
	"z":         action.GBButtonA,
	"x":         action.GBButtonB,
	"enter":     action.GBButtonStart,
	"rshift":    action.GBButtonSelect,
	"backspace": action.GBButtonSelect,
}

// KeyMap merges joypad bindings, e.g. from the configuration file, over
// DefaultKeyMap. A binding replaces whatever the key did before.
func KeyMap(bindings map[string]memory.Button) map[string]action.Action {
	out := make(map[string]action.Action, len(DefaultKeyMap)+len(bindings))
	for k, a := range DefaultKeyMap {
		out[k] = a
	}
	for k, b := range bindings {
		if a, ok := action.ForButton(b); ok {
			out[strings.ToLower(k)] = a
		}
	}
	return out
}
