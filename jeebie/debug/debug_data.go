package debug

import (
	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/audio"
	"github.com/valerio/jeebie/jeebie/cpu"
	"github.com/valerio/jeebie/jeebie/disasm"
	"github.com/valerio/jeebie/jeebie/video"
)

// CPUState contains all CPU register information for debugging
type CPUState struct {
	cpu.Registers

	IME    bool
	Halted bool
	Cycles uint64
	Flags  string
}

// DebuggerState represents the current debugger state
type DebuggerState int

const (
	DebuggerRunning DebuggerState = iota
	DebuggerPaused
)

func (s DebuggerState) String() string {
	if s == DebuggerPaused {
		return "PAUSED"
	}
	return "RUNNING"
}

// Memory is what the debug views read: CPU visible reads for the
// disassembly and raw reads for OAM and registers.
type Memory interface {
	Read(address uint16) uint8
	LowLevelRead(address uint16) uint8
}

// Data contains everything the debug panels show.
type Data struct {
	CPU             CPUState
	Disassembly     []disasm.Line
	OAM             *OAMData
	Audio           *AudioData
	Breakpoints     []cpu.Breakpoint
	DebuggerState   DebuggerState
	InterruptEnable uint8
	InterruptFlags  uint8
}

// Sources groups the components Extract reads from.
type Sources struct {
	CPU    *cpu.CPU
	Memory Memory
	GPU    *video.GPU
	APU    *audio.APU
}

// Extract captures a consistent view of the machine, it must run on the
// goroutine stepping the emulator. disasmLines sets the listing length.
func Extract(src Sources, disasmLines int) *Data {
	if src.CPU == nil || src.Memory == nil {
		return nil
	}

	c := src.CPU
	data := &Data{
		CPU: CPUState{
			Registers: c.Registers(),
			IME:       c.GetIME(),
			Halted:    c.IsHalted(),
			Cycles:    c.GetCycles(),
			Flags:     c.GetFlagString(),
		},
		Disassembly:     disasm.Around(src.Memory, c.GetPC(), disasmLines),
		Breakpoints:     c.Breakpoints(),
		InterruptEnable: src.Memory.LowLevelRead(addr.IE),
		InterruptFlags:  src.Memory.LowLevelRead(addr.IF) | 0xE0,
	}

	if src.GPU != nil {
		height := 8
		if src.Memory.LowLevelRead(addr.LCDC)&0x04 != 0 {
			height = 16
		}
		data.OAM = ExtractOAMData(src.Memory, int(src.GPU.Line()), height)
	}
	if src.APU != nil {
		data.Audio = ExtractAudioData(src.APU, src.Memory)
	}
	return data
}
