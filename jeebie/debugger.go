package jeebie

import "github.com/valerio/jeebie/jeebie/debug"

// DebugData captures what the debug panels show. Like every other access
// it must happen on the goroutine stepping the DMG, see Runner.Do.
func (d *DMG) DebugData(disasmLines int) *debug.Data {
	return debug.Extract(debug.Sources{
		CPU:    d.cpu,
		Memory: d.mem,
		GPU:    d.gpu,
		APU:    d.apu,
	}, disasmLines)
}
