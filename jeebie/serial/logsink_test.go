package serial

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/jeebie/jeebie/addr"
)

func send(s *LogSink, text string) {
	for _, b := range []byte(text) {
		s.Write(addr.SB, b)
		s.Write(addr.SC, 0x81)
	}
}

func TestLogSink(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("lines are split on newline", func(t *testing.T) {
		var lines []string
		irqs := 0
		s := NewLogSink(func() { irqs++ }, WithLogger(quiet), WithLineHandler(func(l string) {
			lines = append(lines, l)
		}))

		send(s, "cpu_instrs\n\nPassed")
		s.Flush()

		assert.Equal(t, []string{"cpu_instrs", "Passed"}, lines)
		assert.Equal(t, len("cpu_instrs\n\nPassed"), irqs)
		assert.Equal(t, uint8(0xFF), s.Read(addr.SB))
		assert.Equal(t, uint8(0x7F), s.Read(addr.SC), "start bit cleared")
	})

	t.Run("fixed timing", func(t *testing.T) {
		irqs := 0
		s := NewLogSink(func() { irqs++ }, WithLogger(quiet), WithFixedTiming())

		send(s, "A")
		assert.Equal(t, 0, irqs)

		s.Tick(transferTicks - 1)
		assert.Equal(t, 0, irqs)

		s.Tick(1)
		assert.Equal(t, 1, irqs)
	})

	t.Run("external clock never completes", func(t *testing.T) {
		irqs := 0
		s := NewLogSink(func() { irqs++ }, WithLogger(quiet))
		s.Write(addr.SB, 'x')
		s.Write(addr.SC, 0x80)
		assert.Equal(t, 0, irqs)
	})

	t.Run("state round trip", func(t *testing.T) {
		s := NewLogSink(nil, WithLogger(quiet), WithFixedTiming())
		send(s, "Z")
		s.Tick(100)

		other := NewLogSink(nil, WithLogger(quiet), WithFixedTiming())
		other.SetState(s.State())
		assert.Equal(t, s.State(), other.State())
	})
}
