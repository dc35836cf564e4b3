package audio

import (
	"github.com/valerio/jeebie/jeebie/bit"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

// SquareChannel is one of the two pulse channels, channel 1 also has a
// frequency sweep unit.
type SquareChannel struct {
	channel
	bus      Bus
	base     uint16 // address of register 0 (NR10, or the unused 0xFF15)
	hasSweep bool

	env       envelope
	frequency uint16
	duty      uint8

	sweepPeriod  uint8
	sweepShift   uint8
	sweepDown    bool
	sweepTimer   uint8
	sweepShadow  uint16
	sweepEnabled bool

	voice squareVoice
}

// NewSquareChannel creates a square channel whose five registers start at
// base. Sweep writes the new frequency back to the bus.
func NewSquareChannel(bus Bus, base uint16, sweep bool) *SquareChannel {
	s := &SquareChannel{bus: bus, base: base, hasSweep: sweep}
	s.maxLength = squareLength
	return s
}

// HandleMemoryChange applies a write to one of the channel registers.
func (s *SquareChannel) HandleMemoryChange(address uint16, value uint8) {
	switch address - s.base {
	case 0:
		if !s.hasSweep {
			return
		}
		s.sweepPeriod = (value >> 4) & 0x07
		s.sweepDown = bit.IsSet(sweepDownBit, value)
		s.sweepShift = value & 0x07
	case 1:
		s.duty = value >> 6
		s.loadLength(value & 0x3F)
		s.push(eventDuty, uint32(s.duty))
	case 2:
		s.env.write(value)
		s.dacEnabled = value&dacEnabledMask != 0
		if !s.dacEnabled && s.enabled {
			s.setEnabled(false)
		}
	case 3:
		s.setFrequency(s.frequency&0x700 | uint16(value))
	case 4:
		s.setFrequency(s.frequency&0xFF | uint16(value&0x07)<<8)
		s.lengthEnabled = bit.IsSet(lengthEnBit, value)
		if bit.IsSet(triggerBit, value) {
			s.trigger()
		}
	}
}

func (s *SquareChannel) setFrequency(f uint16) {
	s.frequency = f
	s.push(eventThreshold, uint32(TickThreshold(f)))
}

func (s *SquareChannel) trigger() {
	s.env.trigger()
	s.push(eventVolume, uint32(s.env.volume))
	s.channel.trigger()

	if !s.hasSweep {
		return
	}
	s.sweepShadow = s.frequency
	s.sweepTimer = s.sweepReload()
	s.sweepEnabled = s.sweepPeriod != 0 || s.sweepShift != 0
	if s.sweepShift != 0 {
		s.sweepTarget()
	}
}

func (s *SquareChannel) sweepReload() uint8 {
	if s.sweepPeriod == 0 {
		return 8
	}
	return s.sweepPeriod
}

// sweepTarget computes the next swept frequency, disabling the channel on
// overflow.
func (s *SquareChannel) sweepTarget() uint16 {
	delta := s.sweepShadow >> s.sweepShift
	target := s.sweepShadow + delta
	if s.sweepDown {
		target = s.sweepShadow - delta
	}
	if target > maxFrequency && s.enabled {
		s.setEnabled(false)
	}
	return target
}

func (s *SquareChannel) clockSweep() {
	if s.sweepTimer > 0 {
		s.sweepTimer--
	}
	if s.sweepTimer > 0 {
		return
	}
	s.sweepTimer = s.sweepReload()
	if !s.sweepEnabled || s.sweepPeriod == 0 {
		return
	}

	target := s.sweepTarget()
	if target > maxFrequency || s.sweepShift == 0 {
		return
	}
	s.sweepShadow = target
	s.setFrequency(target)
	s.bus.LowLevelWrite(s.base+3, bit.Low(target))
	hi := s.bus.LowLevelRead(s.base + 4)
	s.bus.LowLevelWrite(s.base+4, hi&0xF8|bit.High(target)&0x07)
	s.sweepTarget()
}

func (s *SquareChannel) clockEnvelope() {
	if s.env.clock() {
		s.push(eventVolume, uint32(s.env.volume))
	}
}

// Frequency is the current 11 bit frequency factor.
func (s *SquareChannel) Frequency() uint16 {
	return s.frequency
}

// Volume is the current envelope volume.
func (s *SquareChannel) Volume() uint8 {
	return s.env.volume
}

// GenerateSamples renders count samples, each ticksPerSample CPU ticks long.
func (s *SquareChannel) GenerateSamples(count int, ticksPerSample float64) {
	s.generate(&s.voice, count, ticksPerSample)
}

func (s *SquareChannel) reset() {
	s.channel.reset()
	s.env = envelope{}
	s.frequency, s.duty = 0, 0
	s.sweepPeriod, s.sweepShift, s.sweepDown = 0, 0, false
	s.sweepTimer, s.sweepShadow, s.sweepEnabled = 0, 0, false
	s.voice = squareVoice{}
}

func (s *SquareChannel) state() snapshot.Square {
	return snapshot.Square{
		Channel:      s.channel.state(s.voice.state()),
		Envelope:     s.env.state(),
		Frequency:    s.frequency,
		Duty:         s.duty,
		SweepPeriod:  s.sweepPeriod,
		SweepShift:   s.sweepShift,
		SweepDown:    s.sweepDown,
		SweepTimer:   s.sweepTimer,
		SweepShadow:  s.sweepShadow,
		SweepEnabled: s.sweepEnabled,
	}
}

func (s *SquareChannel) setState(state *snapshot.Square) error {
	if err := s.channel.setState(&state.Channel); err != nil {
		return err
	}
	s.env.setState(state.Envelope)
	s.frequency = state.Frequency
	s.duty = state.Duty
	s.sweepPeriod = state.SweepPeriod
	s.sweepShift = state.SweepShift
	s.sweepDown = state.SweepDown
	s.sweepTimer = state.SweepTimer
	s.sweepShadow = state.SweepShadow
	s.sweepEnabled = state.SweepEnabled
	s.voice.setState(state.Voice)
	return nil
}

// squareVoice walks the 8 step duty pattern, one step every quarter of the
// tick threshold.
type squareVoice struct {
	enabled   bool
	volume    uint8
	threshold int
	timer     int
	position  uint8
	duty      uint8
}

func (v *squareVoice) apply(e *event) {
	switch e.kind {
	case eventEnable:
		v.enabled = e.value != 0
	case eventVolume:
		v.volume = uint8(e.value)
	case eventThreshold:
		v.threshold = int(e.value)
	case eventDuty:
		v.duty = uint8(e.value) & 0x03
	case eventInit:
		v.position, v.timer = 0, 0
	}
}

func (v *squareVoice) advance(ticks int) {
	step := v.threshold / 4
	if step == 0 {
		return
	}
	v.timer += ticks
	if v.timer < step {
		return
	}
	v.position = uint8((int(v.position) + v.timer/step) & 7)
	v.timer %= step
}

func (v *squareVoice) output() int16 {
	if !v.enabled || v.volume == 0 {
		return 0
	}
	amplitude := int16(v.volume) * squareAmplitude
	if dutyPatterns[v.duty]>>(7-v.position)&1 == 1 {
		return amplitude
	}
	return -amplitude
}

func (v *squareVoice) state() snapshot.Voice {
	return snapshot.Voice{
		Enabled:   v.enabled,
		Volume:    v.volume,
		Threshold: int32(v.threshold),
		Timer:     int32(v.timer),
		Position:  v.position,
		Duty:      v.duty,
	}
}

func (v *squareVoice) setState(s snapshot.Voice) {
	v.enabled = s.Enabled
	v.volume = s.Volume
	v.threshold = int(s.Threshold)
	v.timer = int(s.Timer)
	v.position = s.Position & 7
	v.duty = s.Duty & 0x03
}
