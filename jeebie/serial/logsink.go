package serial

import (
	"log/slog"

	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/bit"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

// transferTicks is roughly how long a DMG takes to shift one byte out on the
// internal 8192 Hz clock.
const transferTicks = 4096

// LogSink implements a serial device with nothing on the other end of the
// cable: outgoing bytes are collected into lines of text and logged. Test
// ROMs report their results this way.
type LogSink struct {
	irqHandler     func()
	sb, sc         uint8
	transferActive bool
	countdown      int
	logger         *slog.Logger
	onLine         func(string)

	immediate bool
	defaultRX uint8 // received byte, nothing is connected so the line floats high

	line []byte
}

type LogSinkOption func(*LogSink)

// WithFixedTiming completes transfers after transferTicks instead of
// immediately.
func WithFixedTiming() LogSinkOption { return func(s *LogSink) { s.immediate = false } }

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) LogSinkOption { return func(s *LogSink) { s.logger = l } }

// WithLineHandler registers a callback receiving every completed line.
func WithLineHandler(fn func(line string)) LogSinkOption {
	return func(s *LogSink) { s.onLine = fn }
}

// NewLogSink creates a new logging serial device.
// irq is called when a transfer completes and should request the serial
// interrupt.
func NewLogSink(irq func(), opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		irqHandler: irq,
		immediate:  true,
		defaultRX:  0xFF,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

func (s *LogSink) Write(address uint16, value uint8) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		s.maybeStartTransfer()
	default:
		panic("serial.LogSink: invalid write address")
	}
}

func (s *LogSink) Read(address uint16) uint8 {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc | 0x7E
	default:
		panic("serial.LogSink: invalid read address")
	}
}

func (s *LogSink) Tick(cycles int) {
	if s.immediate || !s.transferActive {
		return
	}
	s.countdown -= cycles
	if s.countdown <= 0 {
		s.completeTransfer()
		s.countdown = 0
	}
}

func (s *LogSink) Reset() {
	s.sb = 0x00
	s.sc = 0x00
	s.transferActive = false
	s.countdown = 0
	s.line = s.line[:0]
}

// Flush emits any partial line.
func (s *LogSink) Flush() {
	if len(s.line) == 0 {
		return
	}
	text := string(s.line)
	s.line = s.line[:0]
	s.logger.Info("serial", "line", text)
	if s.onLine != nil {
		s.onLine(text)
	}
}

func (s *LogSink) maybeStartTransfer() {
	if s.transferActive {
		return
	}
	// only transfers clocked by us can complete, an external clock never ticks
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	b := s.sb
	if b == 0 || b == '\n' || b == '\r' {
		s.Flush()
	} else {
		s.line = append(s.line, b)
	}

	if s.immediate {
		s.completeTransfer()
		return
	}

	s.transferActive = true
	s.countdown = transferTicks
}

func (s *LogSink) completeTransfer() {
	s.sb = s.defaultRX
	s.sc = bit.Clear(7, s.sc)
	s.transferActive = false
	if s.irqHandler != nil {
		s.irqHandler()
	}
}

func (s *LogSink) State() snapshot.Serial {
	return snapshot.Serial{
		SB:        s.sb,
		SC:        s.sc,
		Active:    s.transferActive,
		Countdown: uint16(s.countdown),
	}
}

func (s *LogSink) SetState(state snapshot.Serial) {
	s.sb = state.SB
	s.sc = state.SC
	s.transferActive = state.Active
	s.countdown = int(state.Countdown)
}
