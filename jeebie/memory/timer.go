package memory

import (
	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/bit"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

// tacLookup maps TAC input clock select (bits 1-0) to the bit of the
// internal 16-bit divider watched for falling edges:
//
//	00 -> bit 9  (4096 Hz)
//	01 -> bit 3  (262144 Hz)
//	10 -> bit 5  (65536 Hz)
//	11 -> bit 7  (16384 Hz)
var tacLookup = [4]uint16{9, 3, 5, 7}

// timaReloadDelay is the number of ticks TIMA reads 0x00 after overflowing
// before TMA is loaded.
const timaReloadDelay = 4

// Timer implements DIV/TIMA/TMA/TAC. DIV is the upper byte of a free
// running divider, TIMA counts falling edges of a divider bit.
type Timer struct {
	divider   uint16
	lastBit   bool
	overflow  uint8
	irqNext   bool
	tima      uint8
	tma       uint8
	tac       uint8
	interrupt func()
}

func newTimer(interrupt func()) Timer {
	return Timer{interrupt: interrupt}
}

// SetSeed sets the internal divider, e.g. to the post boot ROM value.
func (t *Timer) SetSeed(seed uint16) {
	t.divider = seed
	t.lastBit = false
	t.overflow = 0
	t.irqNext = false
}

func (t *Timer) Tick(cycles int) {
	for range cycles {
		if t.irqNext {
			if t.interrupt != nil {
				t.interrupt()
			}
			t.irqNext = false
		}

		t.divider++

		if t.overflow > 0 {
			t.overflow--
			if t.overflow == 0 {
				t.tima = t.tma
				t.irqNext = true
			}
			continue
		}

		if !bit.IsSet(2, t.tac) {
			t.lastBit = false
			continue
		}

		current := bit.IsSet16(tacLookup[t.tac&0x03], t.divider)
		if t.lastBit && !current {
			t.incrementTIMA()
		}
		t.lastBit = current
	}
}

func (t *Timer) incrementTIMA() {
	if t.tima == 0xFF {
		t.overflow = timaReloadDelay
	}
	t.tima++
}

func (t *Timer) Read(address uint16) uint8 {
	switch address {
	case addr.DIV:
		return uint8(t.divider >> 8)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	}
	return 0xFF
}

func (t *Timer) Write(address uint16, value uint8) {
	switch address {
	case addr.DIV:
		t.divider = 0
	case addr.TIMA:
		// writing during the reload delay cancels the reload
		t.tima = value
		t.overflow = 0
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value & 0x07
	}
}

func (t *Timer) State() snapshot.Timer {
	return snapshot.Timer{
		Counter:  t.divider,
		LastBit:  t.lastBit,
		Overflow: t.overflow,
		DelayInt: t.irqNext,
		TIMA:     t.tima,
		TMA:      t.tma,
		TAC:      t.tac,
	}
}

func (t *Timer) SetState(state snapshot.Timer) {
	t.divider = state.Counter
	t.lastBit = state.LastBit
	t.overflow = state.Overflow
	t.irqNext = state.DelayInt
	t.tima = state.TIMA
	t.tma = state.TMA
	t.tac = state.TAC
}
