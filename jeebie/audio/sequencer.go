package audio

// FrameSequencer divides the CPU clock down to the 512 Hz clock that drives
// length counters, sweep and envelopes.
//
//	Step   Length  Sweep  Envelope
//	0      Clock   -      -
//	1      -       -      -
//	2      Clock   Clock  -
//	3      -       -      -
//	4      Clock   -      -
//	5      -       -      -
//	6      Clock   Clock  -
//	7      -       -      Clock
//
// Reference: https://gbdev.io/pandocs/Audio_details.html#frame-sequencer
type FrameSequencer struct {
	counter uint16
	clocked bool
}

// Step adds ticks to the counter and records whether bit 13 flipped.
func (f *FrameSequencer) Step(ticks int) {
	prev := f.counter
	f.counter += uint16(ticks)
	f.clocked = (prev^f.counter)&(1<<sequencerBit) != 0
}

// Clocked reports whether the last Step produced a sequencer edge.
func (f *FrameSequencer) Clocked() bool {
	return f.clocked
}

// Value is the current step, 0 to 7.
func (f *FrameSequencer) Value() uint8 {
	return uint8(f.counter >> sequencerBit)
}

func (f *FrameSequencer) clocksLength() bool {
	return f.Value()&1 == 0
}

func (f *FrameSequencer) clocksSweep() bool {
	v := f.Value()
	return v == 2 || v == 6
}

func (f *FrameSequencer) clocksEnvelope() bool {
	return f.Value() == 7
}
