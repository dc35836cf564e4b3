package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/bit"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

// Channel numbers as used by the mute and solo controls.
const (
	Square1 = iota + 1
	Square2
	Wave
	Noise
)

// APU implements the Game Boy's Audio Processing Unit
// Reference: https://gbdev.io/pandocs/Audio.html
//
// Register writes arrive through HandleMemoryChange in CPU order, Tick
// advances the frame sequencer, and samples are rendered in batches
// (usually once per video frame) by Render or GenerateSamples.
type APU struct {
	bus        Bus
	sampleRate int

	enabled   bool // master audio enable (NR52 bit 7)
	sequencer FrameSequencer

	square1 *SquareChannel
	square2 *SquareChannel
	wave    *WaveChannel
	noise   *NoiseChannel

	muted [channelCount]bool

	// ticks not yet rendered, and the fraction of a sample left over by the
	// previous render
	pending  uint32
	residual float64

	// mu protects the mixed output, which frontends drain from their own
	// goroutine
	mu      sync.Mutex
	buffer  []byte
	mixBuf  []int16
	chanBuf [channelCount][]int16

	exporter         *WavExporter
	channelExporters [channelCount]*WavExporter
}

// New creates an APU rendering at sampleRate (DefaultSampleRate when 0).
// Call Reset before use to load the power up register values.
func New(bus Bus, sampleRate int) *APU {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &APU{
		bus:        bus,
		sampleRate: sampleRate,
		enabled:    true,
		square1:    NewSquareChannel(bus, addr.NR10, true),
		square2:    NewSquareChannel(bus, addr.NR21-1, false),
		wave:       NewWaveChannel(),
		noise:      NewNoiseChannel(),
		buffer:     make([]byte, 0, maxBufferedSamples*bytesPerSample),
	}
}

// powerUpValues are the register values left by the boot ROM.
// Reference: https://gbdev.io/pandocs/Power_Up_Sequence.html#hardware-registers
var powerUpValues = []struct {
	address uint16
	value   uint8
}{
	{addr.NR10, 0x80}, // sweep off
	{addr.NR11, 0xBF}, // duty 50%, length counter loaded with max
	{addr.NR12, 0xF3}, // max volume, decrease, period 3
	{addr.NR14, 0xBF}, // counter mode, frequency MSB
	{addr.NR21, 0x3F},
	{addr.NR22, 0x00},
	{addr.NR24, 0xBF},
	{addr.NR30, 0x7F}, // DAC off
	{addr.NR31, 0xFF},
	{addr.NR32, 0x9F},
	{addr.NR34, 0xBF},
	{addr.NR41, 0xFF},
	{addr.NR42, 0x00},
	{addr.NR43, 0x00},
	{addr.NR44, 0xBF},
	{addr.NR50, 0x77}, // max volume both sides
	{addr.NR51, 0xF3},
}

// Reset powers the APU on with the post boot register values, every
// channel silent.
func (a *APU) Reset() {
	a.enabled = true
	a.sequencer = FrameSequencer{}
	a.pending, a.residual = 0, 0
	a.square1.reset()
	a.square2.reset()
	a.wave.reset()
	a.noise.reset()

	for _, r := range powerUpValues {
		a.bus.LowLevelWrite(r.address, r.value)
		// trigger bits are write only, apply the rest
		a.dispatch(r.address, r.value&^(1<<triggerBit))
	}

	ram := make([]byte, waveRAMSize)
	for i := range ram {
		ram[i] = a.bus.LowLevelRead(addr.WaveRAMStart + uint16(i))
	}
	a.wave.loadRAM(ram)

	a.flush()
	a.syncStatus()
	a.ClearBuffer()
}

// flush applies every queued event to the voices at once.
func (a *APU) flush() {
	a.square1.replay(&a.square1.voice, 0)
	a.square2.replay(&a.square2.voice, 0)
	a.wave.replay(&a.wave.voice, 0)
	a.noise.replay(&a.noise.voice, 0)
	for _, c := range a.channels() {
		c.pendingTicks = 0
	}
}

func (a *APU) channels() [channelCount]*channel {
	return [channelCount]*channel{&a.square1.channel, &a.square2.channel, &a.wave.channel, &a.noise.channel}
}

// HandleMemoryChange is called by the memory bus after a write to
// 0xFF10-0xFF3F landed in memory.
func (a *APU) HandleMemoryChange(address uint16, value uint8) {
	switch {
	case address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		a.wave.HandleMemoryChange(address, value)
		return
	case address == addr.NR52:
		a.setPower(bit.IsSet(powerBit, value))
		a.syncStatus()
		return
	case !a.enabled:
		a.writeWhileOff(address, value)
		return
	}

	a.dispatch(address, value)
	a.syncStatus()
}

func (a *APU) dispatch(address uint16, value uint8) {
	switch {
	case address >= addr.NR10 && address <= addr.NR14:
		a.square1.HandleMemoryChange(address, value)
	case address >= addr.NR21 && address <= addr.NR24:
		a.square2.HandleMemoryChange(address, value)
	case address >= addr.NR30 && address <= addr.NR34:
		a.wave.HandleMemoryChange(address, value)
	case address >= addr.NR41 && address <= addr.NR44:
		a.noise.HandleMemoryChange(address, value)
	}
}

// writeWhileOff drops the write, except for the length counters which
// stay writable while the APU is powered off.
func (a *APU) writeWhileOff(address uint16, value uint8) {
	switch address {
	case addr.NR11:
		a.square1.loadLength(value & 0x3F)
		a.bus.LowLevelWrite(address, value&0x3F)
	case addr.NR21:
		a.square2.loadLength(value & 0x3F)
		a.bus.LowLevelWrite(address, value&0x3F)
	case addr.NR31:
		a.wave.loadLength(value)
	case addr.NR41:
		a.noise.loadLength(value & 0x3F)
	default:
		// registers read back as zero while powered off
		a.bus.LowLevelWrite(address, 0)
	}
}

func (a *APU) setPower(on bool) {
	if on == a.enabled {
		return
	}
	a.enabled = on
	slog.Debug("APU power", "on", on)
	if on {
		a.sequencer = FrameSequencer{}
		return
	}

	for address := addr.NR10; address <= addr.NR51; address++ {
		a.bus.LowLevelWrite(address, 0)
		if address == addr.NR14 || address == addr.NR24 || address == addr.NR34 || address == addr.NR44 {
			// clears frequency and length enable without touching the
			// counters
			a.dispatch(address, 0)
			continue
		}
		if address != addr.NR11 && address != addr.NR21 && address != addr.NR31 && address != addr.NR41 {
			a.dispatch(address, 0)
		}
	}
	for _, c := range a.channels() {
		if c.enabled {
			c.setEnabled(false)
		}
	}
	// the duty bits are cleared too, the length half is kept
	a.square1.duty, a.square2.duty = 0, 0
	a.square1.push(eventDuty, 0)
	a.square2.push(eventDuty, 0)
}

// syncStatus mirrors the power and channel bits into NR52.
func (a *APU) syncStatus() {
	a.bus.LowLevelWrite(addr.NR52, a.status())
}

func (a *APU) status() uint8 {
	status := uint8(0x70) // bits 4-6 always read as 1
	if a.enabled {
		status |= 1 << powerBit
	}
	for i, c := range a.channels() {
		if c.enabled {
			status |= 1 << i
		}
	}
	return status
}

// Enabled reports the master power bit.
func (a *APU) Enabled() bool {
	return a.enabled
}

// Tick advances the frame sequencer and the channel clocks by cycles.
func (a *APU) Tick(cycles int) {
	a.pending += uint32(cycles)
	for _, c := range a.channels() {
		c.tick(cycles)
	}
	if !a.enabled {
		return
	}

	a.sequencer.Step(cycles)
	if !a.sequencer.Clocked() {
		return
	}

	if a.sequencer.clocksLength() {
		for _, c := range a.channels() {
			c.clockLength()
		}
	}
	if a.sequencer.clocksSweep() {
		a.square1.clockSweep()
	}
	if a.sequencer.clocksEnvelope() {
		a.square1.clockEnvelope()
		a.square2.clockEnvelope()
		a.noise.clockEnvelope()
	}
	a.syncStatus()
}

// PendingTicks is the number of ticks elapsed since the last Render.
func (a *APU) PendingTicks() int {
	return int(a.pending)
}

// SampleRate is the output rate in Hz.
func (a *APU) SampleRate() int {
	return a.sampleRate
}

// TicksPerSample is the number of CPU ticks covered by one output sample.
func (a *APU) TicksPerSample() float64 {
	return float64(CPUFrequency) / float64(a.sampleRate)
}

// Render turns every pending tick into samples and returns how many stereo
// samples were added to the buffer.
func (a *APU) Render() int {
	exact := float64(a.pending)*float64(a.sampleRate)/CPUFrequency + a.residual
	count := int(exact)
	a.residual = exact - float64(count)
	a.pending = 0
	a.GenerateSamples(count)
	return count
}

// GenerateSamples renders count stereo samples from every channel, mixes
// them and appends them to the output buffer as little endian int16
// pairs. Attached WAV exporters receive the same samples.
func (a *APU) GenerateSamples(count int) {
	if count <= 0 {
		return
	}

	tps := a.TicksPerSample()
	a.square1.ClearBuffer()
	a.square1.GenerateSamples(count, tps)
	a.square2.ClearBuffer()
	a.square2.GenerateSamples(count, tps)
	a.wave.ClearBuffer()
	a.wave.GenerateSamples(count, tps)
	a.noise.ClearBuffer()
	a.noise.GenerateSamples(count, tps)

	samples := [channelCount][]int16{
		a.square1.Samples(), a.square2.Samples(), a.wave.Samples(), a.noise.Samples(),
	}
	a.mix(samples, count)
	a.export(samples, count)
}

// mix sums the routed channels of each sample into left and right, scaled
// by the NR50 master volume.
func (a *APU) mix(samples [channelCount][]int16, count int) {
	nr50 := a.bus.LowLevelRead(addr.NR50)
	nr51 := a.bus.LowLevelRead(addr.NR51)
	leftVol := int32((nr50>>4)&0x07) + 1
	rightVol := int32(nr50&0x07) + 1

	a.mixBuf = a.mixBuf[:0]
	for i := range count {
		var left, right int32
		for c := range channelCount {
			if a.muted[c] {
				continue
			}
			v := int32(samples[c][i])
			if bit.IsSet(uint8(4+c), nr51) {
				left += v
			}
			if bit.IsSet(uint8(c), nr51) {
				right += v
			}
		}
		a.mixBuf = append(a.mixBuf, clamp(left*leftVol/8), clamp(right*rightVol/8))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.mixBuf {
		a.buffer = binary.LittleEndian.AppendUint16(a.buffer, uint16(s))
	}
	if limit := maxBufferedSamples * bytesPerSample; len(a.buffer) > limit {
		drop := len(a.buffer) - limit
		a.buffer = append(a.buffer[:0], a.buffer[drop:]...)
	}
}

func (a *APU) export(samples [channelCount][]int16, count int) {
	if a.exporter != nil {
		if err := a.exporter.Write(a.mixBuf); err != nil {
			slog.Error("WAV export failed, detaching", "error", err)
			a.exporter = nil
		}
	}
	for c, e := range a.channelExporters {
		if e == nil {
			continue
		}
		stereo := a.chanBuf[c][:0]
		for _, s := range samples[c][:count] {
			stereo = append(stereo, s, s)
		}
		a.chanBuf[c] = stereo
		if err := e.Write(stereo); err != nil {
			slog.Error("WAV export failed, detaching", "channel", c+1, "error", err)
			a.channelExporters[c] = nil
		}
	}
}

func clamp(v int32) int16 {
	return int16(max(min(v, maxSample), minSample))
}

// Buffer returns a copy of the mixed samples not yet cleared.
func (a *APU) Buffer() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]byte(nil), a.buffer...)
}

// SampleCount is the number of stereo samples in the buffer.
func (a *APU) SampleCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffer) / bytesPerSample
}

// ClearBuffer drops the mixed output.
func (a *APU) ClearBuffer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffer = a.buffer[:0]
}

// AttachExporter streams the mixed output to e, nil detaches.
func (a *APU) AttachExporter(e *WavExporter) {
	a.exporter = e
}

// AttachChannelExporter streams one channel (1-4), in isolation and before
// routing, to e.
func (a *APU) AttachChannelExporter(channel int, e *WavExporter) error {
	if channel < Square1 || channel > Noise {
		return fmt.Errorf("invalid audio channel %d", channel)
	}
	a.channelExporters[channel-1] = e
	return nil
}

// Exporters returns every attached exporter.
func (a *APU) Exporters() []*WavExporter {
	var out []*WavExporter
	if a.exporter != nil {
		out = append(out, a.exporter)
	}
	for _, e := range a.channelExporters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// MuteChannel mutes or unmutes a specific audio channel for debugging
func (a *APU) MuteChannel(channel int, muted bool) {
	if channel >= Square1 && channel <= Noise {
		a.muted[channel-1] = muted
	}
}

// ToggleChannel toggles muting for a specific channel
func (a *APU) ToggleChannel(channel int) {
	if channel >= Square1 && channel <= Noise {
		a.muted[channel-1] = !a.muted[channel-1]
	}
}

// SoloChannel mutes all channels except the specified one
func (a *APU) SoloChannel(channel int) {
	for i := range a.muted {
		a.muted[i] = i != channel-1
	}
}

// UnmuteAll unmutes all channels
func (a *APU) UnmuteAll() {
	a.muted = [channelCount]bool{}
}

// ChannelStatus reports, for each channel, whether it is playing and not
// muted.
func (a *APU) ChannelStatus() [channelCount]bool {
	var out [channelCount]bool
	for i, c := range a.channels() {
		out[i] = c.enabled && !a.muted[i]
	}
	return out
}

func (a *APU) Square1() *SquareChannel { return a.square1 }
func (a *APU) Square2() *SquareChannel { return a.square2 }
func (a *APU) Wave() *WaveChannel      { return a.wave }
func (a *APU) Noise() *NoiseChannel    { return a.noise }

// Sequencer exposes the frame sequencer for debugging views.
func (a *APU) Sequencer() *FrameSequencer {
	return &a.sequencer
}

// State captures everything needed to continue rendering, including the
// events not yet replayed.
func (a *APU) State() *snapshot.Audio {
	return &snapshot.Audio{
		Enabled:      a.enabled,
		Sequencer:    a.sequencer.counter,
		PendingTicks: a.pending,
		Residual:     a.residual,
		Square1:      a.square1.state(),
		Square2:      a.square2.state(),
		Wave:         a.wave.state(),
		Noise:        a.noise.state(),
	}
}

var errNoAudioState = errors.New("snapshot has no audio state")

// CheckState reports whether state can be restored by SetState.
func CheckState(state *snapshot.Audio) error {
	if state == nil {
		return errNoAudioState
	}
	for _, ch := range []*snapshot.Channel{
		&state.Square1.Channel, &state.Square2.Channel, &state.Wave.Channel, &state.Noise.Channel,
	} {
		if len(ch.Events) > eventQueueSize {
			return fmt.Errorf("restoring audio: %w", ErrEventQueueOverflow)
		}
	}
	return nil
}

// SetState restores state, leaving the APU untouched when it is rejected.
func (a *APU) SetState(state *snapshot.Audio) error {
	if err := CheckState(state); err != nil {
		return err
	}
	a.enabled = state.Enabled
	a.sequencer = FrameSequencer{counter: state.Sequencer}
	a.pending = state.PendingTicks
	a.residual = state.Residual
	err := errors.Join(
		a.square1.setState(&state.Square1),
		a.square2.setState(&state.Square2),
		a.wave.setState(&state.Wave),
		a.noise.setState(&state.Noise),
	)
	if err != nil {
		return fmt.Errorf("restoring audio: %w", err)
	}
	a.ClearBuffer()
	return nil
}
