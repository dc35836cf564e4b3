package jeebie

import (
	"errors"
	"fmt"
)

// ErrBreakpoint is returned by Step and RunUntilFrame when execution stops
// in front of a breakpoint. The next call resumes past it.
var ErrBreakpoint = errors.New("breakpoint hit")

// FatalError reports an internal invariant violation that halted emulation:
// an undefined opcode, a bank controller handed a foreign address, a DMA
// re-trigger or an audio event queue overflow.
type FatalError struct {
	Cause error
	PC    uint16
	Ticks uint64
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("emulation halted at PC=0x%04X after %d ticks: %v", e.PC, e.Ticks, e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// recoverFatal turns a panic into a *FatalError stored in d.fatal. Panics
// that are not errors or strings are re-raised.
func (d *DMG) recoverFatal(err *error) {
	r := recover()
	if r == nil {
		return
	}

	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	case string:
		cause = errors.New(v)
	default:
		panic(r)
	}

	d.fatal = &FatalError{Cause: cause, PC: d.cpu.GetPC(), Ticks: d.ticks}
	d.logger.Error("Emulation halted", "error", cause, "pc", fmt.Sprintf("0x%04X", d.fatal.PC))
	*err = d.fatal
}
