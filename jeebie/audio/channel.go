package audio

import "github.com/valerio/jeebie/jeebie/snapshot"

// Bus is the memory access the sound hardware needs, register values are
// written back without going through the register handlers.
type Bus interface {
	LowLevelRead(address uint16) uint8
	LowLevelWrite(address uint16, value uint8)
}

// voice is the synthesis side of a channel. Register writes never touch it
// directly, they are queued as events and replayed while rendering.
type voice interface {
	apply(e *event)
	advance(ticks int)
	output() int16
}

// channel is the state shared by every channel kind.
//
// Register writes and sequencer clocks update the register side right
// away (status, length, envelope, sweep) and record what the voice needs
// to know in the event queue, timestamped with the ticks elapsed since the
// previous event. GenerateSamples replays the queue at the right sample.
type channel struct {
	enabled       bool
	dacEnabled    bool
	lengthEnabled bool
	length        uint16
	maxLength     uint16

	events       eventQueue
	pendingTicks uint32
	phase        float64

	buffer []int16
	index  int
}

func (c *channel) tick(ticks int) {
	c.pendingTicks += uint32(ticks)
}

func (c *channel) push(kind eventKind, value uint32) {
	c.events.push(event{delta: c.pendingTicks, kind: kind, value: value})
	c.pendingTicks = 0
}

func (c *channel) setEnabled(on bool) {
	c.enabled = on
	c.push(eventEnable, boolValue(on))
}

func (c *channel) loadLength(value uint8) {
	c.length = c.maxLength - uint16(value)
}

func (c *channel) clockLength() {
	if !c.lengthEnabled || c.length == 0 {
		return
	}
	c.length--
	if c.length == 0 && c.enabled {
		c.setEnabled(false)
	}
}

// trigger restarts the channel, refilling an expired length counter.
func (c *channel) trigger() {
	if c.length == 0 {
		c.length = c.maxLength
	}
	c.push(eventInit, 0)
	c.setEnabled(c.dacEnabled)
}

// Enabled reports the channel status bit as shown in NR52.
func (c *channel) Enabled() bool {
	return c.enabled
}

// Samples returns the samples generated since the last ClearBuffer.
func (c *channel) Samples() []int16 {
	return c.buffer[:c.index]
}

// ClearBuffer rewinds the sample index, the channel state is untouched.
func (c *channel) ClearBuffer() {
	c.index = 0
}

// generate renders count samples into the channel buffer. Each sample is
// the voice output at the start of its period, then the voice advances by
// ticksPerSample, replaying every event that falls inside the period.
func (c *channel) generate(v voice, count int, ticksPerSample float64) {
	if need := c.index + count; need > cap(c.buffer) {
		grown := make([]int16, need, need*2)
		copy(grown, c.buffer[:c.index])
		c.buffer = grown
	}
	c.buffer = c.buffer[:cap(c.buffer)]

	for range count {
		c.replay(v, 0)
		c.buffer[c.index] = v.output()
		c.index++

		c.phase += ticksPerSample
		ticks := int(c.phase)
		c.phase -= float64(ticks)
		c.replay(v, ticks)
	}
}

func (c *channel) replay(v voice, ticks int) {
	for {
		e := c.events.peek()
		if e == nil || int(e.delta) > ticks {
			break
		}
		v.advance(int(e.delta))
		ticks -= int(e.delta)
		v.apply(e)
		c.events.pop()
	}
	if ticks == 0 {
		return
	}

	v.advance(ticks)
	if e := c.events.peek(); e != nil {
		e.delta -= uint32(ticks)
		return
	}
	// the ticks since the last event are now rendered, the next event is
	// timed from here
	c.pendingTicks -= min(c.pendingTicks, uint32(ticks))
}

func (c *channel) reset() {
	c.enabled = false
	c.dacEnabled = false
	c.lengthEnabled = false
	c.length = 0
	c.events.clear()
	c.pendingTicks = 0
	c.phase = 0
	c.index = 0
}

func (c *channel) state(v snapshot.Voice) snapshot.Channel {
	return snapshot.Channel{
		Enabled:       c.enabled,
		DACEnabled:    c.dacEnabled,
		LengthEnabled: c.lengthEnabled,
		Length:        c.length,
		PendingTicks:  c.pendingTicks,
		Phase:         c.phase,
		Events:        c.events.state(),
		Voice:         v,
	}
}

func (c *channel) setState(s *snapshot.Channel) error {
	c.enabled = s.Enabled
	c.dacEnabled = s.DACEnabled
	c.lengthEnabled = s.LengthEnabled
	c.length = s.Length
	c.pendingTicks = s.PendingTicks
	c.phase = s.Phase
	c.index = 0
	return c.events.setState(s.Events)
}

// envelope steps the volume of the square and noise channels at 64 Hz.
type envelope struct {
	initial uint8
	volume  uint8
	up      bool
	period  uint8
	timer   uint8
}

func (e *envelope) write(value uint8) {
	e.initial = value >> 4
	e.up = value&(1<<envelopeUpBit) != 0
	e.period = value & 0x07
}

func (e *envelope) trigger() {
	e.volume = e.initial
	e.timer = e.period
}

// clock returns true when the volume changed.
func (e *envelope) clock() bool {
	if e.period == 0 {
		return false
	}
	if e.timer > 0 {
		e.timer--
	}
	if e.timer > 0 {
		return false
	}
	e.timer = e.period
	switch {
	case e.up && e.volume < maxVolume:
		e.volume++
		return true
	case !e.up && e.volume > 0:
		e.volume--
		return true
	}
	return false
}

func (e *envelope) state() snapshot.Envelope {
	return snapshot.Envelope{Initial: e.initial, Volume: e.volume, Up: e.up, Period: e.period, Timer: e.timer}
}

func (e *envelope) setState(s snapshot.Envelope) {
	e.initial, e.volume, e.up, e.period, e.timer = s.Initial, s.Volume, s.Up, s.Period, s.Timer
}

// TickThreshold is the number of ticks in half a period of a square
// channel playing frequency factor f, which is one output flip at 50% duty.
func TickThreshold(f uint16) int {
	return 16 * (2048 - int(f&maxFrequency))
}

func boolValue(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
