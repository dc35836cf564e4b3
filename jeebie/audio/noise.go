package audio

import (
	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/bit"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

// NoiseChannel outputs the low bit of a 15 bit (or 7 bit) linear feedback
// shift register.
type NoiseChannel struct {
	channel

	env        envelope
	width7     bool
	divisor    uint8
	clockShift uint8

	voice noiseVoice
}

func NewNoiseChannel() *NoiseChannel {
	n := &NoiseChannel{}
	n.maxLength = noiseLength
	n.voice.lfsr = lfsrInitial
	return n
}

// HandleMemoryChange applies a write to NR41-NR44.
func (n *NoiseChannel) HandleMemoryChange(address uint16, value uint8) {
	switch address {
	case addr.NR41:
		n.loadLength(value & 0x3F)
	case addr.NR42:
		n.env.write(value)
		n.dacEnabled = value&dacEnabledMask != 0
		if !n.dacEnabled && n.enabled {
			n.setEnabled(false)
		}
	case addr.NR43:
		n.clockShift = value >> 4
		n.width7 = bit.IsSet(noiseWidthBit, value)
		n.divisor = value & 0x07
		n.push(eventWidth, boolValue(n.width7))
		n.push(eventThreshold, uint32(n.Period()))
	case addr.NR44:
		n.lengthEnabled = bit.IsSet(lengthEnBit, value)
		if bit.IsSet(triggerBit, value) {
			n.env.trigger()
			n.push(eventVolume, uint32(n.env.volume))
			n.trigger()
		}
	}
}

// Period is the number of ticks between two LFSR shifts, 0 when the clock
// shift stops the generator.
func (n *NoiseChannel) Period() int {
	if n.clockShift > maxNoiseShift {
		return 0
	}
	return int(noiseDivisors[n.divisor] << n.clockShift)
}

func (n *NoiseChannel) clockEnvelope() {
	if n.env.clock() {
		n.push(eventVolume, uint32(n.env.volume))
	}
}

// Volume is the current envelope volume.
func (n *NoiseChannel) Volume() uint8 {
	return n.env.volume
}

// GenerateSamples renders count samples, each ticksPerSample CPU ticks long.
func (n *NoiseChannel) GenerateSamples(count int, ticksPerSample float64) {
	n.generate(&n.voice, count, ticksPerSample)
}

func (n *NoiseChannel) reset() {
	n.channel.reset()
	n.env = envelope{}
	n.width7, n.divisor, n.clockShift = false, 0, 0
	n.voice = noiseVoice{lfsr: lfsrInitial}
}

func (n *NoiseChannel) state() snapshot.Noise {
	return snapshot.Noise{
		Channel:    n.channel.state(n.voice.state()),
		Envelope:   n.env.state(),
		Width7:     n.width7,
		Divisor:    n.divisor,
		ClockShift: n.clockShift,
	}
}

func (n *NoiseChannel) setState(state *snapshot.Noise) error {
	if err := n.channel.setState(&state.Channel); err != nil {
		return err
	}
	n.env.setState(state.Envelope)
	n.width7 = state.Width7
	n.divisor = state.Divisor & 0x07
	n.clockShift = state.ClockShift
	n.voice.setState(state.Voice)
	return nil
}

type noiseVoice struct {
	enabled   bool
	volume    uint8
	threshold int
	timer     int
	lfsr      uint16
	width7    bool
}

func (v *noiseVoice) apply(e *event) {
	switch e.kind {
	case eventEnable:
		v.enabled = e.value != 0
	case eventVolume:
		v.volume = uint8(e.value)
	case eventThreshold:
		v.threshold = int(e.value)
	case eventWidth:
		v.width7 = e.value != 0
	case eventInit:
		v.lfsr, v.timer = lfsrInitial, 0
	}
}

func (v *noiseVoice) advance(ticks int) {
	if v.threshold == 0 {
		return
	}
	v.timer += ticks
	for v.timer >= v.threshold {
		v.timer -= v.threshold
		v.shift()
	}
}

// shift clocks the LFSR: bits 0 and 1 are xored into bit 14, and into bit 6
// as well in 7 bit mode.
func (v *noiseVoice) shift() {
	x := (v.lfsr ^ v.lfsr>>1) & 1
	v.lfsr = v.lfsr>>1 | x<<14
	if v.width7 {
		v.lfsr = v.lfsr&^(1<<6) | x<<6
	}
}

func (v *noiseVoice) output() int16 {
	if !v.enabled || v.volume == 0 {
		return 0
	}
	amplitude := int16(v.volume) * squareAmplitude
	if v.lfsr&1 == 0 {
		return amplitude
	}
	return -amplitude
}

func (v *noiseVoice) state() snapshot.Voice {
	return snapshot.Voice{
		Enabled:   v.enabled,
		Volume:    v.volume,
		Threshold: int32(v.threshold),
		Timer:     int32(v.timer),
		LFSR:      v.lfsr,
		Width7:    v.width7,
	}
}

func (v *noiseVoice) setState(s snapshot.Voice) {
	v.enabled = s.Enabled
	v.volume = s.Volume
	v.threshold = int(s.Threshold)
	v.timer = int(s.Timer)
	v.lfsr = s.LFSR
	v.width7 = s.Width7
}
