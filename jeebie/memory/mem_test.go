package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie/addr"
)

type recordingHandler struct {
	writes []uint16
	mmu    *MMU
}

func (h *recordingHandler) HandleMemoryChange(address uint16, value uint8) {
	h.writes = append(h.writes, address)
	// pretend the register only keeps its low nibble
	h.mmu.LowLevelWrite(address, value&0x0F)
}

func TestEchoRAM(t *testing.T) {
	mmu := New()

	mmu.Write(0xC123, 0x42)
	assert.Equal(t, uint8(0x42), mmu.Read(0xE123))

	mmu.Write(0xE456, 0x24)
	assert.Equal(t, uint8(0x24), mmu.Read(0xC456))

	// 0xDE00-0xDFFF has no shadow
	mmu.Write(0xDF00, 0x11)
	assert.Equal(t, uint8(0x11), mmu.Read(0xDF00))
}

func TestDirtyRange(t *testing.T) {
	mmu := New()

	mmu.Write(0x8010, 0x01)
	low, high := mmu.DirtyRange()
	assert.Equal(t, uint16(0x8010), low)
	assert.Equal(t, uint16(0x8010), high)

	mmu.Write(addr.DMA, 0xC0)
	mmu.Tick(dmaTicks)
	low, high = mmu.DirtyRange()
	assert.Equal(t, addr.OAMStart, low)
	assert.Equal(t, addr.OAMEnd, high)
}

func TestInterruptFlags(t *testing.T) {
	mmu := New()

	mmu.Write(addr.IF, 0x00)
	assert.Equal(t, uint8(0xE0), mmu.Read(addr.IF))

	mmu.RequestInterrupt(addr.TimerInterrupt)
	mmu.RequestInterrupt(addr.VBlankInterrupt)
	assert.Equal(t, uint8(0xE5), mmu.Read(addr.IF))
}

func TestRegisterHandlers(t *testing.T) {
	mmu := New()
	h := &recordingHandler{mmu: mmu}
	mmu.MapRegisters(addr.NR10, addr.NR52, h)

	mmu.Write(addr.NR13, 0xAB)
	mmu.Write(addr.LCDC, 0x91)

	assert.Equal(t, []uint16{addr.NR13}, h.writes)
	assert.Equal(t, uint8(0x0B), mmu.Read(addr.NR13))
	assert.Equal(t, uint8(0x91), mmu.Read(addr.LCDC))
}

func TestDMA(t *testing.T) {
	t.Run("completes after the transfer time", func(t *testing.T) {
		mmu := New()
		for i := range uint16(addr.OAMSize) {
			mmu.Write(0xC000+i, uint8(i))
		}

		ready := 0
		mmu.OnDMAReady(func() { ready++ })

		mmu.Write(addr.DMA, 0xC0)
		assert.True(t, mmu.DMAActive())

		mmu.Tick(dmaTicks - 4)
		assert.True(t, mmu.DMAActive())
		assert.Equal(t, uint8(0), mmu.Read(addr.OAMStart+5))
		assert.Equal(t, 0, ready)

		mmu.Tick(4)
		assert.False(t, mmu.DMAActive())
		assert.Equal(t, 1, ready)
		for i := range uint16(addr.OAMSize) {
			require.Equal(t, uint8(i), mmu.Read(addr.OAMStart+i))
		}
	})

	t.Run("retrigger while active is fatal", func(t *testing.T) {
		mmu := New()
		mmu.Write(addr.DMA, 0xC0)
		assert.PanicsWithError(t, ErrDMAActive.Error(), func() {
			mmu.Write(addr.DMA, 0xC1)
		})
	})
}

func TestJoypad(t *testing.T) {
	mmu := New()
	mmu.Write(addr.IF, 0)

	// select d-pad
	mmu.Write(addr.P1, 0x20)
	assert.Equal(t, uint8(0xEF), mmu.Read(addr.P1))

	mmu.Press(ButtonRight | ButtonA)
	assert.Equal(t, uint8(0xEE), mmu.Read(addr.P1))
	assert.Equal(t, uint8(0xF0), mmu.Read(addr.IF), "joypad interrupt requested")

	// select buttons
	mmu.Write(addr.P1, 0x10)
	assert.Equal(t, uint8(0xDE), mmu.Read(addr.P1))

	// holding again does not raise another interrupt
	mmu.Write(addr.IF, 0)
	mmu.Press(ButtonA)
	assert.Equal(t, uint8(0xE0), mmu.Read(addr.IF))

	mmu.Release(ButtonA | ButtonRight)
	assert.Equal(t, uint8(0xDF), mmu.Read(addr.P1))
	assert.Equal(t, Button(0), mmu.Buttons())
}

func TestMemoryState(t *testing.T) {
	mmu := New()
	mmu.Write(0xC000, 0x12)
	mmu.Write(addr.TMA, 0x34)
	mmu.Press(ButtonStart)
	mmu.Write(addr.DMA, 0xC0)
	mmu.Tick(100)

	state := mmu.State()

	other := New()
	require.NoError(t, other.SetState(state))
	assert.Equal(t, state, other.State())
	assert.Equal(t, uint8(0x12), other.Read(0xE000))
	assert.True(t, other.DMAActive())
	assert.Equal(t, ButtonStart, other.Buttons())
}
