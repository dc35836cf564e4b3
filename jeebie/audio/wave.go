package audio

import (
	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/bit"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

// WaveChannel plays 32 4-bit samples from wave RAM.
type WaveChannel struct {
	channel

	frequency   uint16
	volumeShift uint8

	voice waveVoice
}

func NewWaveChannel() *WaveChannel {
	w := &WaveChannel{volumeShift: waveShifts[0]}
	w.maxLength = waveLength
	w.voice.shift = waveShifts[0]
	return w
}

// HandleMemoryChange applies a write to NR30-NR34 or wave RAM.
func (w *WaveChannel) HandleMemoryChange(address uint16, value uint8) {
	switch address {
	case addr.NR30:
		w.dacEnabled = bit.IsSet(waveDACBit, value)
		if !w.dacEnabled && w.enabled {
			w.setEnabled(false)
		}
	case addr.NR31:
		w.loadLength(value)
	case addr.NR32:
		w.volumeShift = waveShifts[(value>>5)&0x03]
		w.push(eventVolume, uint32(w.volumeShift))
	case addr.NR33:
		w.setFrequency(w.frequency&0x700 | uint16(value))
	case addr.NR34:
		w.setFrequency(w.frequency&0xFF | uint16(value&0x07)<<8)
		w.lengthEnabled = bit.IsSet(lengthEnBit, value)
		if bit.IsSet(triggerBit, value) {
			w.trigger()
		}
	default:
		if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
			w.push(eventMemory, uint32(address-addr.WaveRAMStart)<<8|uint32(value))
		}
	}
}

func (w *WaveChannel) setFrequency(f uint16) {
	w.frequency = f
	w.push(eventThreshold, uint32(2*(2048-int(f))))
}

// Frequency is the current 11 bit frequency factor.
func (w *WaveChannel) Frequency() uint16 {
	return w.frequency
}

// GenerateSamples renders count samples, each ticksPerSample CPU ticks long.
func (w *WaveChannel) GenerateSamples(count int, ticksPerSample float64) {
	w.generate(&w.voice, count, ticksPerSample)
}

func (w *WaveChannel) reset() {
	w.channel.reset()
	w.frequency = 0
	w.volumeShift = waveShifts[0]
	samples := w.voice.samples
	w.voice = waveVoice{shift: waveShifts[0], samples: samples}
}

// loadRAM copies wave RAM into the voice directly, used when the queue is
// known to be empty.
func (w *WaveChannel) loadRAM(ram []byte) {
	copy(w.voice.samples[:], ram)
}

func (w *WaveChannel) state() snapshot.Wave {
	return snapshot.Wave{
		Channel:     w.channel.state(w.voice.state()),
		Frequency:   w.frequency,
		VolumeShift: w.volumeShift,
	}
}

func (w *WaveChannel) setState(state *snapshot.Wave) error {
	if err := w.channel.setState(&state.Channel); err != nil {
		return err
	}
	w.frequency = state.Frequency
	w.volumeShift = state.VolumeShift
	w.voice.setState(state.Voice)
	return nil
}

// waveVoice keeps its own copy of wave RAM so that writes land on the
// sample they were made at.
type waveVoice struct {
	enabled   bool
	shift     uint8
	threshold int
	timer     int
	position  uint8
	samples   [waveRAMSize]byte
}

func (v *waveVoice) apply(e *event) {
	switch e.kind {
	case eventEnable:
		v.enabled = e.value != 0
	case eventVolume:
		v.shift = uint8(e.value)
	case eventThreshold:
		v.threshold = int(e.value)
	case eventMemory:
		v.samples[(e.value>>8)&0x0F] = uint8(e.value)
	case eventInit:
		v.position, v.timer = 0, 0
	}
}

func (v *waveVoice) advance(ticks int) {
	if v.threshold == 0 {
		return
	}
	v.timer += ticks
	if v.timer < v.threshold {
		return
	}
	v.position = uint8((int(v.position) + v.timer/v.threshold) % waveTableSize)
	v.timer %= v.threshold
}

func (v *waveVoice) sample() uint8 {
	b := v.samples[v.position/2]
	if v.position&1 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

func (v *waveVoice) output() int16 {
	if !v.enabled || v.shift >= 4 {
		return 0
	}
	centered := (int16(v.sample())*2 - 15) * waveAmplitude
	return centered >> v.shift
}

func (v *waveVoice) state() snapshot.Voice {
	return snapshot.Voice{
		Enabled:   v.enabled,
		Volume:    v.shift,
		Threshold: int32(v.threshold),
		Timer:     int32(v.timer),
		Position:  v.position,
		Samples:   append([]byte(nil), v.samples[:]...),
	}
}

func (v *waveVoice) setState(s snapshot.Voice) {
	v.enabled = s.Enabled
	v.shift = s.Volume
	v.threshold = int(s.Threshold)
	v.timer = int(s.Timer)
	v.position = s.Position % waveTableSize
	copy(v.samples[:], s.Samples)
}
