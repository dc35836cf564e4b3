package snapshot

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-faster/jx"
)

// ErrVersion is returned when decoding a snapshot written by an
// incompatible version.
var ErrVersion = errors.New("unsupported snapshot version")

// Encode writes s as JSON.
func Encode(w io.Writer, s *DMG) error {
	var e jx.Encoder
	encodeDMG(&e, s)
	if _, err := w.Write(e.Bytes()); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*DMG, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	s := &DMG{}
	if err := decodeDMG(jx.DecodeBytes(data), s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	return s, nil
}

// read stores the result of a decoder method in dst.
func read[T any](dst *T, f func() (T, error)) error {
	v, err := f()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func readBytes(d *jx.Decoder, dst *[]byte) error {
	if d.Next() == jx.Null {
		*dst = nil
		return d.Null()
	}
	return read(dst, d.Base64)
}

func encodeDMG(e *jx.Encoder, s *DMG) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("version", func(e *jx.Encoder) { e.Int(s.Version) })
		e.Field("title", func(e *jx.Encoder) { e.Str(s.Title) })
		e.Field("ticks", func(e *jx.Encoder) { e.UInt64(s.Ticks) })
		e.Field("frames", func(e *jx.Encoder) { e.UInt64(s.Frames) })
		if s.CPU != nil {
			e.Field("cpu", func(e *jx.Encoder) { encodeCPU(e, s.CPU) })
		}
		if s.Memory != nil {
			e.Field("memory", func(e *jx.Encoder) { encodeMemory(e, s.Memory) })
		}
		if s.Video != nil {
			e.Field("video", func(e *jx.Encoder) { encodeVideo(e, s.Video) })
		}
		if s.Audio != nil {
			e.Field("audio", func(e *jx.Encoder) { encodeAudio(e, s.Audio) })
		}
	})
}

func decodeDMG(d *jx.Decoder, s *DMG) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "version":
			return read(&s.Version, d.Int)
		case "title":
			return read(&s.Title, d.Str)
		case "ticks":
			return read(&s.Ticks, d.UInt64)
		case "frames":
			return read(&s.Frames, d.UInt64)
		case "cpu":
			s.CPU = &CPU{}
			return decodeCPU(d, s.CPU)
		case "memory":
			s.Memory = &Memory{}
			return decodeMemory(d, s.Memory)
		case "video":
			s.Video = &Video{}
			return decodeVideo(d, s.Video)
		case "audio":
			s.Audio = &Audio{}
			return decodeAudio(d, s.Audio)
		}
		return d.Skip()
	})
}

func encodeCPU(e *jx.Encoder, c *CPU) {
	e.Obj(func(e *jx.Encoder) {
		regs := []struct {
			name string
			v    uint8
		}{{"a", c.A}, {"f", c.F}, {"b", c.B}, {"c", c.C}, {"d", c.D}, {"e", c.E}, {"h", c.H}, {"l", c.L}}
		for _, r := range regs {
			e.Field(r.name, func(e *jx.Encoder) { e.UInt8(r.v) })
		}
		e.Field("sp", func(e *jx.Encoder) { e.UInt16(c.SP) })
		e.Field("pc", func(e *jx.Encoder) { e.UInt16(c.PC) })
		e.Field("ime", func(e *jx.Encoder) { e.Bool(c.IME) })
		e.Field("ei_delay", func(e *jx.Encoder) { e.UInt8(c.EIDelay) })
		e.Field("halted", func(e *jx.Encoder) { e.Bool(c.Halted) })
		e.Field("stopped", func(e *jx.Encoder) { e.Bool(c.Stopped) })
		e.Field("halt_bug", func(e *jx.Encoder) { e.Bool(c.HaltBug) })
		e.Field("cycles", func(e *jx.Encoder) { e.UInt64(c.Cycles) })
	})
}

func decodeCPU(d *jx.Decoder, c *CPU) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "a":
			return read(&c.A, d.UInt8)
		case "f":
			return read(&c.F, d.UInt8)
		case "b":
			return read(&c.B, d.UInt8)
		case "c":
			return read(&c.C, d.UInt8)
		case "d":
			return read(&c.D, d.UInt8)
		case "e":
			return read(&c.E, d.UInt8)
		case "h":
			return read(&c.H, d.UInt8)
		case "l":
			return read(&c.L, d.UInt8)
		case "sp":
			return read(&c.SP, d.UInt16)
		case "pc":
			return read(&c.PC, d.UInt16)
		case "ime":
			return read(&c.IME, d.Bool)
		case "ei_delay":
			return read(&c.EIDelay, d.UInt8)
		case "halted":
			return read(&c.Halted, d.Bool)
		case "stopped":
			return read(&c.Stopped, d.Bool)
		case "halt_bug":
			return read(&c.HaltBug, d.Bool)
		case "cycles":
			return read(&c.Cycles, d.UInt64)
		}
		return d.Skip()
	})
}

func encodeMemory(e *jx.Encoder, m *Memory) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("data", func(e *jx.Encoder) { e.Base64(m.Data) })
		e.Field("dirty_low", func(e *jx.Encoder) { e.UInt16(m.DirtyLow) })
		e.Field("dirty_high", func(e *jx.Encoder) { e.UInt16(m.DirtyHigh) })
		e.Field("dma_active", func(e *jx.Encoder) { e.Bool(m.DMAActive) })
		e.Field("dma_source", func(e *jx.Encoder) { e.UInt16(m.DMASource) })
		e.Field("dma_ticks", func(e *jx.Encoder) { e.UInt16(m.DMATicks) })
		e.Field("buttons", func(e *jx.Encoder) { e.UInt8(m.Buttons) })
		e.Field("timer", func(e *jx.Encoder) {
			t := &m.Timer
			e.Obj(func(e *jx.Encoder) {
				e.Field("counter", func(e *jx.Encoder) { e.UInt16(t.Counter) })
				e.Field("last_bit", func(e *jx.Encoder) { e.Bool(t.LastBit) })
				e.Field("overflow", func(e *jx.Encoder) { e.UInt8(t.Overflow) })
				e.Field("delay_int", func(e *jx.Encoder) { e.Bool(t.DelayInt) })
				e.Field("tima", func(e *jx.Encoder) { e.UInt8(t.TIMA) })
				e.Field("tma", func(e *jx.Encoder) { e.UInt8(t.TMA) })
				e.Field("tac", func(e *jx.Encoder) { e.UInt8(t.TAC) })
			})
		})
		e.Field("serial", func(e *jx.Encoder) {
			s := &m.Serial
			e.Obj(func(e *jx.Encoder) {
				e.Field("sb", func(e *jx.Encoder) { e.UInt8(s.SB) })
				e.Field("sc", func(e *jx.Encoder) { e.UInt8(s.SC) })
				e.Field("active", func(e *jx.Encoder) { e.Bool(s.Active) })
				e.Field("countdown", func(e *jx.Encoder) { e.UInt16(s.Countdown) })
			})
		})
		e.Field("bank", func(e *jx.Encoder) {
			b := &m.Bank
			e.Obj(func(e *jx.Encoder) {
				e.Field("rom_bank", func(e *jx.Encoder) { e.UInt16(b.ROMBank) })
				e.Field("ram_bank", func(e *jx.Encoder) { e.UInt8(b.RAMBank) })
				e.Field("ram_enabled", func(e *jx.Encoder) { e.Bool(b.RAMEnabled) })
				e.Field("mode", func(e *jx.Encoder) { e.UInt8(b.Mode) })
				e.Field("ram", func(e *jx.Encoder) { e.Base64(b.RAM) })
				e.Field("rtc", func(e *jx.Encoder) { e.Base64(b.RTC) })
				e.Field("rtc_latched", func(e *jx.Encoder) { e.Base64(b.RTCLatched) })
				e.Field("rtc_latch", func(e *jx.Encoder) { e.UInt8(b.RTCLatch) })
				e.Field("rtc_time", func(e *jx.Encoder) { e.Int64(b.RTCTime) })
			})
		})
	})
}

func decodeMemory(d *jx.Decoder, m *Memory) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "data":
			return readBytes(d, &m.Data)
		case "dirty_low":
			return read(&m.DirtyLow, d.UInt16)
		case "dirty_high":
			return read(&m.DirtyHigh, d.UInt16)
		case "dma_active":
			return read(&m.DMAActive, d.Bool)
		case "dma_source":
			return read(&m.DMASource, d.UInt16)
		case "dma_ticks":
			return read(&m.DMATicks, d.UInt16)
		case "buttons":
			return read(&m.Buttons, d.UInt8)
		case "timer":
			return decodeTimer(d, &m.Timer)
		case "serial":
			return decodeSerial(d, &m.Serial)
		case "bank":
			return decodeBank(d, &m.Bank)
		}
		return d.Skip()
	})
}

func decodeTimer(d *jx.Decoder, t *Timer) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "counter":
			return read(&t.Counter, d.UInt16)
		case "last_bit":
			return read(&t.LastBit, d.Bool)
		case "overflow":
			return read(&t.Overflow, d.UInt8)
		case "delay_int":
			return read(&t.DelayInt, d.Bool)
		case "tima":
			return read(&t.TIMA, d.UInt8)
		case "tma":
			return read(&t.TMA, d.UInt8)
		case "tac":
			return read(&t.TAC, d.UInt8)
		}
		return d.Skip()
	})
}

func decodeSerial(d *jx.Decoder, s *Serial) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "sb":
			return read(&s.SB, d.UInt8)
		case "sc":
			return read(&s.SC, d.UInt8)
		case "active":
			return read(&s.Active, d.Bool)
		case "countdown":
			return read(&s.Countdown, d.UInt16)
		}
		return d.Skip()
	})
}

func decodeBank(d *jx.Decoder, b *Bank) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "rom_bank":
			return read(&b.ROMBank, d.UInt16)
		case "ram_bank":
			return read(&b.RAMBank, d.UInt8)
		case "ram_enabled":
			return read(&b.RAMEnabled, d.Bool)
		case "mode":
			return read(&b.Mode, d.UInt8)
		case "ram":
			return readBytes(d, &b.RAM)
		case "rtc":
			return readBytes(d, &b.RTC)
		case "rtc_latched":
			return readBytes(d, &b.RTCLatched)
		case "rtc_latch":
			return read(&b.RTCLatch, d.UInt8)
		case "rtc_time":
			return read(&b.RTCTime, d.Int64)
		}
		return d.Skip()
	})
}

func encodeVideo(e *jx.Encoder, v *Video) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("mode", func(e *jx.Encoder) { e.UInt8(v.Mode) })
		e.Field("line", func(e *jx.Encoder) { e.UInt8(v.Line) })
		e.Field("ticks", func(e *jx.Encoder) { e.UInt16(v.Ticks) })
		e.Field("window_line", func(e *jx.Encoder) { e.UInt8(v.WindowLine) })
		e.Field("lyc_matched", func(e *jx.Encoder) { e.Bool(v.LYCMatched) })
		e.Field("enabled", func(e *jx.Encoder) { e.Bool(v.Enabled) })
		e.Field("frames", func(e *jx.Encoder) { e.UInt64(v.Frames) })
	})
}

func decodeVideo(d *jx.Decoder, v *Video) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "mode":
			return read(&v.Mode, d.UInt8)
		case "line":
			return read(&v.Line, d.UInt8)
		case "ticks":
			return read(&v.Ticks, d.UInt16)
		case "window_line":
			return read(&v.WindowLine, d.UInt8)
		case "lyc_matched":
			return read(&v.LYCMatched, d.Bool)
		case "enabled":
			return read(&v.Enabled, d.Bool)
		case "frames":
			return read(&v.Frames, d.UInt64)
		}
		return d.Skip()
	})
}
