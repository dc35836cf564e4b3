package snapshot

import "github.com/go-faster/jx"

func encodeAudio(e *jx.Encoder, a *Audio) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("enabled", func(e *jx.Encoder) { e.Bool(a.Enabled) })
		e.Field("sequencer", func(e *jx.Encoder) { e.UInt16(a.Sequencer) })
		e.Field("pending_ticks", func(e *jx.Encoder) { e.UInt32(a.PendingTicks) })
		e.Field("residual", func(e *jx.Encoder) { e.Float64(a.Residual) })
		e.Field("square1", func(e *jx.Encoder) { encodeSquare(e, &a.Square1) })
		e.Field("square2", func(e *jx.Encoder) { encodeSquare(e, &a.Square2) })
		e.Field("wave", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("channel", func(e *jx.Encoder) { encodeChannel(e, &a.Wave.Channel) })
				e.Field("frequency", func(e *jx.Encoder) { e.UInt16(a.Wave.Frequency) })
				e.Field("volume_shift", func(e *jx.Encoder) { e.UInt8(a.Wave.VolumeShift) })
			})
		})
		e.Field("noise", func(e *jx.Encoder) {
			n := &a.Noise
			e.Obj(func(e *jx.Encoder) {
				e.Field("channel", func(e *jx.Encoder) { encodeChannel(e, &n.Channel) })
				e.Field("envelope", func(e *jx.Encoder) { encodeEnvelope(e, &n.Envelope) })
				e.Field("width7", func(e *jx.Encoder) { e.Bool(n.Width7) })
				e.Field("divisor", func(e *jx.Encoder) { e.UInt8(n.Divisor) })
				e.Field("clock_shift", func(e *jx.Encoder) { e.UInt8(n.ClockShift) })
			})
		})
	})
}

func decodeAudio(d *jx.Decoder, a *Audio) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "enabled":
			return read(&a.Enabled, d.Bool)
		case "sequencer":
			return read(&a.Sequencer, d.UInt16)
		case "pending_ticks":
			return read(&a.PendingTicks, d.UInt32)
		case "residual":
			return read(&a.Residual, d.Float64)
		case "square1":
			return decodeSquare(d, &a.Square1)
		case "square2":
			return decodeSquare(d, &a.Square2)
		case "wave":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "channel":
					return decodeChannel(d, &a.Wave.Channel)
				case "frequency":
					return read(&a.Wave.Frequency, d.UInt16)
				case "volume_shift":
					return read(&a.Wave.VolumeShift, d.UInt8)
				}
				return d.Skip()
			})
		case "noise":
			n := &a.Noise
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "channel":
					return decodeChannel(d, &n.Channel)
				case "envelope":
					return decodeEnvelope(d, &n.Envelope)
				case "width7":
					return read(&n.Width7, d.Bool)
				case "divisor":
					return read(&n.Divisor, d.UInt8)
				case "clock_shift":
					return read(&n.ClockShift, d.UInt8)
				}
				return d.Skip()
			})
		}
		return d.Skip()
	})
}

func encodeSquare(e *jx.Encoder, s *Square) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("channel", func(e *jx.Encoder) { encodeChannel(e, &s.Channel) })
		e.Field("envelope", func(e *jx.Encoder) { encodeEnvelope(e, &s.Envelope) })
		e.Field("frequency", func(e *jx.Encoder) { e.UInt16(s.Frequency) })
		e.Field("duty", func(e *jx.Encoder) { e.UInt8(s.Duty) })
		e.Field("sweep_period", func(e *jx.Encoder) { e.UInt8(s.SweepPeriod) })
		e.Field("sweep_shift", func(e *jx.Encoder) { e.UInt8(s.SweepShift) })
		e.Field("sweep_down", func(e *jx.Encoder) { e.Bool(s.SweepDown) })
		e.Field("sweep_timer", func(e *jx.Encoder) { e.UInt8(s.SweepTimer) })
		e.Field("sweep_shadow", func(e *jx.Encoder) { e.UInt16(s.SweepShadow) })
		e.Field("sweep_enabled", func(e *jx.Encoder) { e.Bool(s.SweepEnabled) })
	})
}

func decodeSquare(d *jx.Decoder, s *Square) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "channel":
			return decodeChannel(d, &s.Channel)
		case "envelope":
			return decodeEnvelope(d, &s.Envelope)
		case "frequency":
			return read(&s.Frequency, d.UInt16)
		case "duty":
			return read(&s.Duty, d.UInt8)
		case "sweep_period":
			return read(&s.SweepPeriod, d.UInt8)
		case "sweep_shift":
			return read(&s.SweepShift, d.UInt8)
		case "sweep_down":
			return read(&s.SweepDown, d.Bool)
		case "sweep_timer":
			return read(&s.SweepTimer, d.UInt8)
		case "sweep_shadow":
			return read(&s.SweepShadow, d.UInt16)
		case "sweep_enabled":
			return read(&s.SweepEnabled, d.Bool)
		}
		return d.Skip()
	})
}

func encodeChannel(e *jx.Encoder, c *Channel) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("enabled", func(e *jx.Encoder) { e.Bool(c.Enabled) })
		e.Field("dac_enabled", func(e *jx.Encoder) { e.Bool(c.DACEnabled) })
		e.Field("length_enabled", func(e *jx.Encoder) { e.Bool(c.LengthEnabled) })
		e.Field("length", func(e *jx.Encoder) { e.UInt16(c.Length) })
		e.Field("pending_ticks", func(e *jx.Encoder) { e.UInt32(c.PendingTicks) })
		e.Field("phase", func(e *jx.Encoder) { e.Float64(c.Phase) })
		e.Field("events", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, ev := range c.Events {
					// [delta, kind, value] keeps long queues compact
					e.Arr(func(e *jx.Encoder) {
						e.UInt32(ev.Delta)
						e.UInt8(ev.Kind)
						e.UInt32(ev.Value)
					})
				}
			})
		})
		e.Field("voice", func(e *jx.Encoder) { encodeVoice(e, &c.Voice) })
	})
}

func decodeChannel(d *jx.Decoder, c *Channel) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "enabled":
			return read(&c.Enabled, d.Bool)
		case "dac_enabled":
			return read(&c.DACEnabled, d.Bool)
		case "length_enabled":
			return read(&c.LengthEnabled, d.Bool)
		case "length":
			return read(&c.Length, d.UInt16)
		case "pending_ticks":
			return read(&c.PendingTicks, d.UInt32)
		case "phase":
			return read(&c.Phase, d.Float64)
		case "events":
			c.Events = []Event{}
			return d.Arr(func(d *jx.Decoder) error {
				var ev Event
				field := 0
				err := d.Arr(func(d *jx.Decoder) error {
					defer func() { field++ }()
					switch field {
					case 0:
						return read(&ev.Delta, d.UInt32)
					case 1:
						return read(&ev.Kind, d.UInt8)
					case 2:
						return read(&ev.Value, d.UInt32)
					}
					return d.Skip()
				})
				c.Events = append(c.Events, ev)
				return err
			})
		case "voice":
			return decodeVoice(d, &c.Voice)
		}
		return d.Skip()
	})
}

func encodeVoice(e *jx.Encoder, v *Voice) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("enabled", func(e *jx.Encoder) { e.Bool(v.Enabled) })
		e.Field("volume", func(e *jx.Encoder) { e.UInt8(v.Volume) })
		e.Field("threshold", func(e *jx.Encoder) { e.Int32(v.Threshold) })
		e.Field("timer", func(e *jx.Encoder) { e.Int32(v.Timer) })
		e.Field("position", func(e *jx.Encoder) { e.UInt8(v.Position) })
		e.Field("duty", func(e *jx.Encoder) { e.UInt8(v.Duty) })
		e.Field("lfsr", func(e *jx.Encoder) { e.UInt16(v.LFSR) })
		e.Field("width7", func(e *jx.Encoder) { e.Bool(v.Width7) })
		if v.Samples != nil {
			e.Field("samples", func(e *jx.Encoder) { e.Base64(v.Samples) })
		}
	})
}

func decodeVoice(d *jx.Decoder, v *Voice) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "enabled":
			return read(&v.Enabled, d.Bool)
		case "volume":
			return read(&v.Volume, d.UInt8)
		case "threshold":
			return read(&v.Threshold, d.Int32)
		case "timer":
			return read(&v.Timer, d.Int32)
		case "position":
			return read(&v.Position, d.UInt8)
		case "duty":
			return read(&v.Duty, d.UInt8)
		case "lfsr":
			return read(&v.LFSR, d.UInt16)
		case "width7":
			return read(&v.Width7, d.Bool)
		case "samples":
			return readBytes(d, &v.Samples)
		}
		return d.Skip()
	})
}

func encodeEnvelope(e *jx.Encoder, env *Envelope) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("initial", func(e *jx.Encoder) { e.UInt8(env.Initial) })
		e.Field("volume", func(e *jx.Encoder) { e.UInt8(env.Volume) })
		e.Field("up", func(e *jx.Encoder) { e.Bool(env.Up) })
		e.Field("period", func(e *jx.Encoder) { e.UInt8(env.Period) })
		e.Field("timer", func(e *jx.Encoder) { e.UInt8(env.Timer) })
	})
}

func decodeEnvelope(d *jx.Decoder, env *Envelope) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "initial":
			return read(&env.Initial, d.UInt8)
		case "volume":
			return read(&env.Volume, d.UInt8)
		case "up":
			return read(&env.Up, d.Bool)
		case "period":
			return read(&env.Period, d.UInt8)
		case "timer":
			return read(&env.Timer, d.UInt8)
		}
		return d.Skip()
	})
}
