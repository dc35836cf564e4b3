package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/jeebie/jeebie/addr"
)

func TestTimer(t *testing.T) {
	t.Run("DIV counts every 256 ticks", func(t *testing.T) {
		var timer Timer
		timer.Tick(256 * 3)
		assert.Equal(t, uint8(3), timer.Read(addr.DIV))

		timer.Write(addr.DIV, 0x99)
		assert.Equal(t, uint8(0), timer.Read(addr.DIV))
	})

	tests := []struct {
		tac    uint8
		period int
	}{
		{0x04, 1024},
		{0x05, 16},
		{0x06, 64},
		{0x07, 256},
	}
	for _, tt := range tests {
		t.Run("TIMA period", func(t *testing.T) {
			var timer Timer
			timer.Write(addr.TAC, tt.tac)
			timer.Tick(tt.period * 10)
			assert.Equal(t, uint8(10), timer.Read(addr.TIMA))
		})
	}

	t.Run("overflow reloads TMA and interrupts", func(t *testing.T) {
		fired := 0
		timer := newTimer(func() { fired++ })
		timer.Write(addr.TMA, 0xF0)
		timer.Write(addr.TIMA, 0xFF)
		timer.Write(addr.TAC, 0x05)

		timer.Tick(16)
		assert.Equal(t, uint8(0x00), timer.Read(addr.TIMA), "TIMA reads 0 during the reload delay")

		timer.Tick(timaReloadDelay + 1)
		assert.Equal(t, uint8(0xF0), timer.Read(addr.TIMA))
		assert.Equal(t, 1, fired)
	})

	t.Run("disabled timer does not count", func(t *testing.T) {
		var timer Timer
		timer.Write(addr.TAC, 0x01)
		timer.Tick(4096)
		assert.Equal(t, uint8(0), timer.Read(addr.TIMA))
	})
}
