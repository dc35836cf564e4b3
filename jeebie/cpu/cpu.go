package cpu

import (
	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/bit"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

// Bus is how the CPU reaches memory and memory mapped registers.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// Flag is one of the 4 possible flags used in the flag register (high part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

const (
	interruptCycles = 20
	idleCycles      = 4
)

// Hooks are optional callbacks fired from Step.
type Hooks struct {
	// OnInterrupt runs after an interrupt has been dispatched.
	OnInterrupt func(irq addr.Interrupt)
	// OnBreakpoint runs when Step stops in front of a breakpoint.
	OnBreakpoint func(bp Breakpoint)
}

// CPU is the SM83 core: registers, interrupt master enable and the
// low power states. Everything else is reached through the Bus.
type CPU struct {
	a  uint8
	f  uint8
	b  uint8
	c  uint8
	d  uint8
	e  uint8
	h  uint8
	l  uint8
	sp uint16
	pc uint16

	interruptsEnabled bool
	// eiDelay counts down the instructions until EI takes effect
	eiDelay uint8
	halted  bool
	stopped bool
	// haltBug makes the next fetch skip the PC increment, so the byte after
	// HALT is read twice
	haltBug bool
	cycles  uint64

	// per-instruction scratch
	opcodeAddress uint16
	currentOpcode uint16
	operand       uint16
	branchTaken   bool

	breakpoints    breakpoints
	lastBreakpoint *Breakpoint
	hooks          Hooks

	bus Bus
}

// New returns a CPU with the register values left behind by the DMG boot ROM.
func New(bus Bus) *CPU {
	cpu := &CPU{
		bus: bus,
	}

	cpu.SetAF(0x01B0)
	cpu.SetBC(0x0013)
	cpu.SetDE(0x00D8)
	cpu.SetHL(0x014D)
	cpu.sp = 0xFFFE
	cpu.pc = 0x0100

	return cpu
}

// SetHooks installs the Step callbacks.
func (c *CPU) SetHooks(h Hooks) {
	c.hooks = h
}

// Step runs one instruction, or services an interrupt, or idles for 4 ticks
// while halted/stopped. It returns the ticks taken.
//
// Unless ignoreBreakpoints is set, Step returns 0 without executing when the
// next instruction matches a breakpoint, see LastBreakpoint.
func (c *CPU) Step(ignoreBreakpoints bool) uint8 {
	c.lastBreakpoint = nil

	if cycles, serviced := c.handleInterrupts(); serviced {
		return cycles
	}

	if c.halted || c.stopped {
		c.cycles += idleCycles
		return idleCycles
	}

	in := decode(c.bus, c.pc, c.haltBug)

	if !ignoreBreakpoints && !c.breakpoints.empty() {
		if bp, hit := c.checkBreakpoints(in); hit {
			c.lastBreakpoint = &bp
			if c.hooks.OnBreakpoint != nil {
				c.hooks.OnBreakpoint(bp)
			}
			return 0
		}
	}

	c.haltBug = false
	c.opcodeAddress = in.address
	c.currentOpcode = in.code
	c.operand = in.operand
	c.branchTaken = false
	c.pc = in.next

	in.op.exec(c)

	cycles := in.op.cycles
	if c.branchTaken && in.op.condCycles != 0 {
		cycles = in.op.condCycles
	}

	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.interruptsEnabled = true
		}
	}

	c.cycles += uint64(cycles)
	return cycles
}

// handleInterrupts wakes the CPU from HALT/STOP and dispatches the highest
// priority pending interrupt when IME is set.
func (c *CPU) handleInterrupts() (uint8, bool) {
	requested := c.bus.Read(addr.IF)
	pending := c.bus.Read(addr.IE) & requested & 0x1F

	if c.stopped {
		if pending == 0 && requested&uint8(addr.JoypadInterrupt) == 0 {
			return 0, false
		}
		c.stopped = false
	}

	if pending == 0 {
		return 0, false
	}

	// waking from HALT does not depend on IME
	c.halted = false

	if !c.interruptsEnabled {
		return 0, false
	}

	for i := uint8(0); i < 5; i++ {
		if !bit.IsSet(i, pending) {
			continue
		}
		irq := addr.InterruptFromIndex(i)

		c.bus.Write(addr.IF, bit.Clear(i, requested))
		c.interruptsEnabled = false
		c.eiDelay = 0
		c.pushStack(c.pc)
		c.pc = irq.Vector()
		c.cycles += interruptCycles

		if c.hooks.OnInterrupt != nil {
			c.hooks.OnInterrupt(irq)
		}
		return interruptCycles, true
	}

	return 0, false
}

// n8 returns the 8 bit operand of the current instruction.
func (c *CPU) n8() uint8 {
	return uint8(c.operand)
}

// n16 returns the 16 bit operand of the current instruction.
func (c *CPU) n16() uint16 {
	return c.operand
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &= uint8(flag ^ 0xFF)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if !condition {
		c.resetFlag(flag)
		return
	}
	c.setFlag(flag)
}

// setFlags replaces the whole flag register.
func (c *CPU) setFlags(z, n, h, cy bool) {
	c.f = 0
	c.setFlagToCondition(zeroFlag, z)
	c.setFlagToCondition(subFlag, n)
	c.setFlagToCondition(halfCarryFlag, h)
	c.setFlagToCondition(carryFlag, cy)
}

// SetBC loads B with the high byte and C with the low byte.
func (c *CPU) SetBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

// GetBC returns B and C as one 16 bit value.
func (c *CPU) GetBC() uint16 {
	return bit.Combine(c.b, c.c)
}

// SetDE loads D with the high byte and E with the low byte.
func (c *CPU) SetDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

// GetDE returns D and E as one 16 bit value.
func (c *CPU) GetDE() uint16 {
	return bit.Combine(c.d, c.e)
}

// SetHL loads H with the high byte and L with the low byte.
func (c *CPU) SetHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

// GetHL returns H and L as one 16 bit value.
func (c *CPU) GetHL() uint16 {
	return bit.Combine(c.h, c.l)
}

// SetAF sets A and F, the low nibble of F does not exist and stays 0.
func (c *CPU) SetAF(value uint16) {
	c.a = bit.High(value)
	c.f = bit.Low(value) & 0xF0
}

// GetAF returns A and F as one 16 bit value.
func (c *CPU) GetAF() uint16 {
	return bit.Combine(c.a, c.f)
}

// SetSP and SetPC move the stack pointer and program counter.
func (c *CPU) SetSP(value uint16) { c.sp = value }
func (c *CPU) SetPC(value uint16) { c.pc = value }

// Single register getters, read by the debugger and the tests.
func (c *CPU) GetA() uint8       { return c.a }
func (c *CPU) GetF() uint8       { return c.f }
func (c *CPU) GetB() uint8       { return c.b }
func (c *CPU) GetC() uint8       { return c.c }
func (c *CPU) GetD() uint8       { return c.d }
func (c *CPU) GetE() uint8       { return c.e }
func (c *CPU) GetH() uint8       { return c.h }
func (c *CPU) GetL() uint8       { return c.l }
func (c *CPU) GetSP() uint16     { return c.sp }
func (c *CPU) GetPC() uint16     { return c.pc }
func (c *CPU) GetCycles() uint64 { return c.cycles }

// Registers is a copy of the register file.
type Registers struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
}

// Registers snapshots the current register values.
func (c *CPU) Registers() Registers {
	return Registers{
		A: c.a, F: c.f, B: c.b, C: c.c, D: c.d, E: c.e, H: c.h, L: c.l,
		SP: c.sp, PC: c.pc,
	}
}

// SetRegisters loads the register file, masking the low nibble of F.
func (c *CPU) SetRegisters(r Registers) {
	c.a, c.f = r.A, r.F&0xF0
	c.b, c.c, c.d, c.e, c.h, c.l = r.B, r.C, r.D, r.E, r.H, r.L
	c.sp, c.pc = r.SP, r.PC
}

// GetIME, IsHalted and IsStopped report the interrupt master enable and
// the low power states.
func (c *CPU) GetIME() bool    { return c.interruptsEnabled }
func (c *CPU) IsHalted() bool  { return c.halted }
func (c *CPU) IsStopped() bool { return c.stopped }

// GetFlagString returns a human-readable representation of the flag register
func (c *CPU) GetFlagString() string {
	flags := []byte("----")
	for i, f := range []struct {
		flag Flag
		name byte
	}{{zeroFlag, 'Z'}, {subFlag, 'N'}, {halfCarryFlag, 'H'}, {carryFlag, 'C'}} {
		if c.isSetFlag(f.flag) {
			flags[i] = f.name
		}
	}
	return string(flags)
}

func (c *CPU) State() *snapshot.CPU {
	return &snapshot.CPU{
		A: c.a, F: c.f, B: c.b, C: c.c, D: c.d, E: c.e, H: c.h, L: c.l,
		SP:      c.sp,
		PC:      c.pc,
		IME:     c.interruptsEnabled,
		EIDelay: c.eiDelay,
		Halted:  c.halted,
		Stopped: c.stopped,
		HaltBug: c.haltBug,
		Cycles:  c.cycles,
	}
}

func (c *CPU) SetState(s *snapshot.CPU) {
	c.a, c.f = s.A, s.F&0xF0
	c.b, c.c, c.d, c.e, c.h, c.l = s.B, s.C, s.D, s.E, s.H, s.L
	c.sp, c.pc = s.SP, s.PC
	c.interruptsEnabled = s.IME
	c.eiDelay = s.EIDelay
	c.halted = s.Halted
	c.stopped = s.Stopped
	c.haltBug = s.HaltBug
	c.cycles = s.Cycles
}
