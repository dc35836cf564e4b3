// Package snapshot holds the plain data captured by save states, plus the
// JSON codec used to persist them.
package snapshot

// Version is bumped whenever a field changes meaning.
const Version = 1

type DMG struct {
	Version int
	Title   string
	Ticks   uint64
	Frames  uint64

	CPU    *CPU
	Memory *Memory
	Video  *Video
	Audio  *Audio
}

type CPU struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16

	IME     bool
	EIDelay uint8
	Halted  bool
	Stopped bool
	HaltBug bool
	Cycles  uint64
}

type Memory struct {
	Data []byte // the whole flat 64KiB space

	DirtyLow  uint16
	DirtyHigh uint16

	DMAActive bool
	DMASource uint16
	DMATicks  uint16

	Buttons uint8

	Timer  Timer
	Serial Serial
	Bank   Bank
}

type Timer struct {
	Counter  uint16
	LastBit  bool
	Overflow uint8
	DelayInt bool
	TIMA     uint8
	TMA      uint8
	TAC      uint8
}

type Serial struct {
	SB, SC    uint8
	Active    bool
	Countdown uint16
}

// Bank is the union of every bank controller's registers, unused fields stay zero.
type Bank struct {
	ROMBank    uint16
	RAMBank    uint8
	RAMEnabled bool
	Mode       uint8
	RAM        []byte

	RTC        []byte
	RTCLatched []byte
	RTCLatch   uint8
	RTCTime    int64 // unix seconds of the last RTC update
}

type Video struct {
	Mode       uint8
	Line       uint8
	Ticks      uint16
	WindowLine uint8
	LYCMatched bool
	Enabled    bool
	Frames     uint64
}

type Audio struct {
	Enabled      bool
	Sequencer    uint16
	PendingTicks uint32
	Residual     float64

	Square1 Square
	Square2 Square
	Wave    Wave
	Noise   Noise
}

// Channel holds what every channel shares: the register side view
// (status, length), the not yet replayed event queue and the voice that
// the queue is replayed into.
type Channel struct {
	Enabled       bool
	DACEnabled    bool
	LengthEnabled bool
	Length        uint16

	PendingTicks uint32
	Phase        float64
	Events       []Event
	Voice        Voice
}

type Event struct {
	Delta uint32
	Kind  uint8
	Value uint32
}

// Voice is the synthesis side of a channel, only the fields the channel
// kind uses are set.
type Voice struct {
	Enabled   bool
	Volume    uint8
	Threshold int32
	Timer     int32
	Position  uint8
	Duty      uint8
	LFSR      uint16
	Width7    bool
	Samples   []byte
}

type Envelope struct {
	Initial uint8
	Volume  uint8
	Up      bool
	Period  uint8
	Timer   uint8
}

type Square struct {
	Channel
	Envelope Envelope

	Frequency uint16
	Duty      uint8

	SweepPeriod  uint8
	SweepShift   uint8
	SweepDown    bool
	SweepTimer   uint8
	SweepShadow  uint16
	SweepEnabled bool
}

type Wave struct {
	Channel

	Frequency   uint16
	VolumeShift uint8
}

type Noise struct {
	Channel
	Envelope Envelope

	Width7     bool
	Divisor    uint8
	ClockShift uint8
}
