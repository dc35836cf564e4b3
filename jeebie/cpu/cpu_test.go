package cpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie/addr"
)

type testBus struct {
	mem [0x10000]uint8
}

func (b *testBus) Read(address uint16) uint8         { return b.mem[address] }
func (b *testBus) Write(address uint16, value uint8) { b.mem[address] = value }

func newTestCPU(program ...uint8) (*CPU, *testBus) {
	bus := &testBus{}
	copy(bus.mem[0x100:], program)
	return New(bus), bus
}

func TestLoadThroughRegisterPair(t *testing.T) {
	c, bus := newTestCPU(
		0x01, 0x34, 0x12, // LD BC,$1234
		0x02, // LD (BC),A
	)
	c.a = 0x56

	assert.Equal(t, uint8(12), c.Step(false))
	assert.Equal(t, uint8(8), c.Step(false))

	assert.Equal(t, uint8(0x56), bus.mem[0x1234])
	assert.Equal(t, uint16(0x104), c.GetPC())
}

func TestFlagLowNibble(t *testing.T) {
	t.Run("POP AF", func(t *testing.T) {
		c, bus := newTestCPU(0xF1)
		c.sp = 0xC000
		bus.mem[0xC000] = 0xFF
		bus.mem[0xC001] = 0x12

		c.Step(false)
		assert.Equal(t, uint16(0x12F0), c.GetAF())
	})

	t.Run("ALU ops", func(t *testing.T) {
		values := []uint8{0x00, 0x01, 0x0F, 0x10, 0x7F, 0x80, 0xFE, 0xFF}
		for code := uint8(0x80); code < 0xC0; code++ {
			for _, a := range values {
				for _, v := range values {
					c, _ := newTestCPU(code)
					c.a, c.b, c.c, c.d, c.e, c.h, c.l = a, v, v, v, v, v, v
					c.f = 0x10
					c.Step(false)
					if c.f&0x0F != 0 {
						t.Fatalf("opcode %02X A=%02X v=%02X left F=%02X", code, a, v, c.f)
					}
				}
			}
		}
	})

	t.Run("SetRegisters", func(t *testing.T) {
		c, _ := newTestCPU()
		c.SetRegisters(Registers{F: 0xFF})
		assert.Equal(t, uint8(0xF0), c.GetF())
	})
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		a       uint8
		f       uint8
		wantA   uint8
		wantF   uint8
	}{
		{"ADD half carry", []uint8{0xC6, 0x01}, 0x0F, 0x00, 0x10, 0x20},
		{"ADD overflow", []uint8{0xC6, 0x01}, 0xFF, 0x00, 0x00, 0xB0},
		{"ADC uses carry", []uint8{0xCE, 0x01}, 0x01, 0x10, 0x03, 0x00},
		{"SUB to zero", []uint8{0xD6, 0x42}, 0x42, 0x00, 0x00, 0xC0},
		{"SUB borrow", []uint8{0xD6, 0x01}, 0x00, 0x00, 0xFF, 0x70},
		{"SBC uses carry", []uint8{0xDE, 0x01}, 0x03, 0x10, 0x01, 0x40},
		{"CP leaves A", []uint8{0xFE, 0x05}, 0x05, 0x00, 0x05, 0xC0},
		{"AND sets H", []uint8{0xE6, 0xF0}, 0x0F, 0x00, 0x00, 0xA0},
		{"XOR A", []uint8{0xAF}, 0x5A, 0x70, 0x00, 0x80},
		{"INC keeps carry", []uint8{0x3C}, 0xFF, 0x10, 0x00, 0xB0},
		{"DEC half borrow", []uint8{0x3D}, 0x10, 0x00, 0x0F, 0x60},
		{"DAA after add", []uint8{0xC6, 0x27, 0x27}, 0x15, 0x00, 0x42, 0x00},
		{"DAA after sub", []uint8{0xD6, 0x15, 0x27}, 0x42, 0x00, 0x27, 0x40},
		{"DAA carry", []uint8{0xC6, 0x90, 0x27}, 0x90, 0x00, 0x80, 0x10},
		{"RLCA clears Z", []uint8{0x07}, 0x80, 0x80, 0x01, 0x10},
		{"RRA through carry", []uint8{0x1F}, 0x01, 0x00, 0x00, 0x10},
		{"CPL", []uint8{0x2F}, 0x0F, 0x00, 0xF0, 0x60},
		{"SWAP A", []uint8{0xCB, 0x37}, 0xF1, 0x00, 0x1F, 0x00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU(tt.program...)
			c.a, c.f = tt.a, tt.f
			for c.GetPC() < 0x100+uint16(len(tt.program)) {
				c.Step(false)
			}
			assert.Equal(t, tt.wantA, c.GetA(), "A")
			assert.Equal(t, tt.wantF, c.GetF(), "F=%s", c.GetFlagString())
		})
	}
}

func TestSixteenBitArithmetic(t *testing.T) {
	t.Run("ADD HL uses bit 11 and 15", func(t *testing.T) {
		c, _ := newTestCPU(0x09)
		c.SetHL(0x0FFF)
		c.SetBC(0x0001)
		c.f = 0x80
		c.Step(false)
		assert.Equal(t, uint16(0x1000), c.GetHL())
		assert.Equal(t, uint8(0xA0), c.GetF(), "Z kept, H set")
	})

	t.Run("LD HL,SP+r8", func(t *testing.T) {
		c, _ := newTestCPU(0xF8, 0xFF)
		c.sp = 0x00FF
		c.Step(false)
		assert.Equal(t, uint16(0x00FE), c.GetHL())
		assert.Equal(t, uint8(0x30), c.GetF())
	})
}

func TestBranchCycles(t *testing.T) {
	tests := []struct {
		name   string
		code   []uint8
		f      uint8
		cycles uint8
		pc     uint16
	}{
		{"JR NZ taken", []uint8{0x20, 0x05}, 0x00, 12, 0x107},
		{"JR NZ not taken", []uint8{0x20, 0x05}, 0x80, 8, 0x102},
		{"JR back", []uint8{0x18, 0xFE}, 0x00, 12, 0x100},
		{"JP C taken", []uint8{0xDA, 0x00, 0xC0}, 0x10, 16, 0xC000},
		{"JP C not taken", []uint8{0xDA, 0x00, 0xC0}, 0x00, 12, 0x103},
		{"CALL Z taken", []uint8{0xCC, 0x00, 0xC0}, 0x80, 24, 0xC000},
		{"CALL Z not taken", []uint8{0xCC, 0x00, 0xC0}, 0x00, 12, 0x103},
		{"RST 38", []uint8{0xFF}, 0x00, 16, 0x0038},
		{"JP (HL)", []uint8{0xE9}, 0x00, 4, 0x014D},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU(tt.code...)
			c.f = tt.f
			assert.Equal(t, tt.cycles, c.Step(false))
			assert.Equal(t, tt.pc, c.GetPC())
		})
	}

	t.Run("CALL then RET", func(t *testing.T) {
		c, bus := newTestCPU(0xCD, 0x00, 0xC0)
		bus.mem[0xC000] = 0xC9
		c.Step(false)
		assert.Equal(t, uint16(0xFFFC), c.GetSP())
		assert.Equal(t, uint8(16), c.Step(false))
		assert.Equal(t, uint16(0x103), c.GetPC())
		assert.Equal(t, uint16(0xFFFE), c.GetSP())
	})

	t.Run("RET NZ taken", func(t *testing.T) {
		c, bus := newTestCPU(0xC0)
		c.f = 0
		c.sp = 0xC000
		bus.mem[0xC000], bus.mem[0xC001] = 0x34, 0x12
		assert.Equal(t, uint8(20), c.Step(false))
		assert.Equal(t, uint16(0x1234), c.GetPC())
	})
}

func TestExtendedOpcodes(t *testing.T) {
	c, bus := newTestCPU(
		0xCB, 0xFE, // SET 7,(HL)
		0xCB, 0x7E, // BIT 7,(HL)
		0xCB, 0x86, // RES 0,(HL)
		0xCB, 0x00, // RLC B
	)
	c.SetHL(0xC000)
	bus.mem[0xC000] = 0x01
	c.b = 0x80

	assert.Equal(t, uint8(16), c.Step(false))
	assert.Equal(t, uint8(0x81), bus.mem[0xC000])

	assert.Equal(t, uint8(12), c.Step(false))
	assert.False(t, c.isSetFlag(zeroFlag))
	assert.True(t, c.isSetFlag(halfCarryFlag))

	assert.Equal(t, uint8(16), c.Step(false))
	assert.Equal(t, uint8(0x80), bus.mem[0xC000])

	assert.Equal(t, uint8(8), c.Step(false))
	assert.Equal(t, uint8(0x01), c.GetB())
	assert.True(t, c.isSetFlag(carryFlag))
}

func TestInterrupts(t *testing.T) {
	t.Run("EI takes effect after the next instruction", func(t *testing.T) {
		c, bus := newTestCPU(0xFB, 0x00, 0x00)
		bus.mem[addr.IE] = 0x01
		bus.mem[addr.IF] = 0x01

		c.Step(false)
		assert.False(t, c.GetIME())
		c.Step(false)
		assert.True(t, c.GetIME())
		assert.Equal(t, uint16(0x102), c.GetPC(), "instruction after EI runs first")

		assert.Equal(t, uint8(interruptCycles), c.Step(false))
		assert.Equal(t, uint16(0x0040), c.GetPC())
		assert.False(t, c.GetIME())
		assert.Equal(t, uint8(0x00), bus.mem[addr.IF])
	})

	t.Run("priority", func(t *testing.T) {
		var served []addr.Interrupt
		c, bus := newTestCPU(0x00)
		c.SetHooks(Hooks{OnInterrupt: func(irq addr.Interrupt) { served = append(served, irq) }})
		c.interruptsEnabled = true
		bus.mem[addr.IE] = 0x1F
		bus.mem[addr.IF] = uint8(addr.TimerInterrupt | addr.JoypadInterrupt)

		c.Step(false)
		assert.Equal(t, uint16(0x0050), c.GetPC())
		assert.Equal(t, uint8(addr.JoypadInterrupt), bus.mem[addr.IF])
		assert.Equal(t, []addr.Interrupt{addr.TimerInterrupt}, served)
		assert.Equal(t, uint8(0x00), bus.mem[0xFFFC], "return address low byte")
		assert.Equal(t, uint8(0x01), bus.mem[0xFFFD], "return address high byte")
	})

	t.Run("RETI re-enables", func(t *testing.T) {
		c, bus := newTestCPU(0xD9)
		c.sp = 0xC000
		bus.mem[0xC000], bus.mem[0xC001] = 0x00, 0x02
		c.Step(false)
		assert.True(t, c.GetIME())
		assert.Equal(t, uint16(0x0200), c.GetPC())
	})

	t.Run("DI cancels a pending EI", func(t *testing.T) {
		c, _ := newTestCPU(0xFB, 0xF3, 0x00)
		c.Step(false)
		c.Step(false)
		c.Step(false)
		assert.False(t, c.GetIME())
	})
}

func TestHalt(t *testing.T) {
	t.Run("idles until an interrupt is pending", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x3C)
		bus.mem[addr.IE] = 0x04

		c.Step(false)
		assert.True(t, c.IsHalted())
		assert.Equal(t, uint8(idleCycles), c.Step(false))
		assert.Equal(t, uint16(0x101), c.GetPC())

		bus.mem[addr.IF] = 0x04
		c.Step(false)
		assert.False(t, c.IsHalted())
		assert.Equal(t, uint8(0x02), c.GetA(), "woke without IME and ran INC A")
	})

	t.Run("halt bug repeats the next byte", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x3C, 0x00)
		c.a = 0
		bus.mem[addr.IE] = 0x01
		bus.mem[addr.IF] = 0x01

		c.Step(false)
		assert.False(t, c.IsHalted())

		c.Step(false)
		assert.Equal(t, uint16(0x101), c.GetPC())
		c.Step(false)
		assert.Equal(t, uint16(0x102), c.GetPC())
		assert.Equal(t, uint8(2), c.GetA())
	})

	t.Run("STOP wakes on joypad", func(t *testing.T) {
		c, bus := newTestCPU(0x10, 0x00, 0x00)
		c.Step(false)
		assert.True(t, c.IsStopped())
		assert.Equal(t, uint8(idleCycles), c.Step(false))

		bus.mem[addr.IF] = uint8(addr.JoypadInterrupt)
		c.Step(false)
		assert.False(t, c.IsStopped())
		assert.Equal(t, uint16(0x103), c.GetPC())
	})
}

func TestInvalidOpcodes(t *testing.T) {
	for _, code := range []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		c, _ := newTestCPU(code)
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "opcode %02X", code)
				err, ok := r.(*InvalidOpcodeError)
				require.True(t, ok, "opcode %02X panicked with %v", code, r)
				assert.Equal(t, code, err.Opcode)
				assert.Equal(t, uint16(0x100), err.PC)
			}()
			c.Step(false)
		}()
	}
}

func TestBreakpoints(t *testing.T) {
	t.Run("exec", func(t *testing.T) {
		var hits []Breakpoint
		c, _ := newTestCPU(0x00, 0x00)
		c.SetHooks(Hooks{OnBreakpoint: func(bp Breakpoint) { hits = append(hits, bp) }})
		c.AddBreakpoint(BreakExec, 0x101)

		c.Step(false)
		assert.Equal(t, uint8(0), c.Step(false))
		assert.Equal(t, uint16(0x101), c.GetPC())
		bp, ok := c.LastBreakpoint()
		assert.True(t, ok)
		assert.Equal(t, Breakpoint{BreakExec, 0x101}, bp)
		assert.Equal(t, []Breakpoint{bp}, hits)

		assert.Equal(t, uint8(4), c.Step(true))
		_, ok = c.LastBreakpoint()
		assert.False(t, ok)
	})

	tests := []struct {
		name    string
		program []uint8
		bp      Breakpoint
		setup   func(c *CPU)
		hit     bool
	}{
		{"write through BC", []uint8{0x02}, Breakpoint{BreakWrite, 0xC000}, func(c *CPU) { c.SetBC(0xC000) }, true},
		{"read is not write", []uint8{0x0A}, Breakpoint{BreakWrite, 0xC000}, func(c *CPU) { c.SetBC(0xC000) }, false},
		{"read high page", []uint8{0xF0, 0x44}, Breakpoint{BreakRead, 0xFF44}, nil, true},
		{"push writes below SP", []uint8{0xC5}, Breakpoint{BreakWrite, 0xFFFD}, nil, true},
		{"jump absolute", []uint8{0xC3, 0x50, 0x01}, Breakpoint{BreakJump, 0x0150}, nil, true},
		{"jump not taken", []uint8{0xCA, 0x50, 0x01}, Breakpoint{BreakJump, 0x0150}, func(c *CPU) { c.f = 0 }, false},
		{"relative jump", []uint8{0x18, 0x10}, Breakpoint{BreakJump, 0x0112}, nil, true},
		{"rst", []uint8{0xEF}, Breakpoint{BreakJump, 0x0028}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCPU(tt.program...)
			if tt.setup != nil {
				tt.setup(c)
			}
			c.AddBreakpoint(tt.bp.Kind, tt.bp.Address)
			cycles := c.Step(false)
			_, hit := c.LastBreakpoint()
			assert.Equal(t, tt.hit, hit)
			assert.Equal(t, tt.hit, cycles == 0)
		})
	}

	t.Run("listing", func(t *testing.T) {
		c, _ := newTestCPU()
		c.AddBreakpoint(BreakJump, 0x10)
		c.AddBreakpoint(BreakExec, 0x20)
		c.AddBreakpoint(BreakExec, 0x01)
		c.RemoveBreakpoint(BreakJump, 0x10)
		assert.Equal(t, []Breakpoint{{BreakExec, 0x01}, {BreakExec, 0x20}}, c.Breakpoints())
		c.ClearBreakpoints()
		assert.Empty(t, c.Breakpoints())
	})
}

func TestParseBreakpointKind(t *testing.T) {
	for _, k := range []BreakpointKind{BreakExec, BreakRead, BreakWrite, BreakJump} {
		got, err := ParseBreakpointKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseBreakpointKind("nope")
	assert.Error(t, err)
}

func TestStateRoundTrip(t *testing.T) {
	c, _ := newTestCPU(0xFB, 0x3C)
	c.Step(false)

	other, _ := newTestCPU()
	other.SetState(c.State())
	if diff := cmp.Diff(c.State(), other.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}
