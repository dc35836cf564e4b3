package cpu

import (
	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/bit"
)

// register operand indices as encoded in the low/middle 3 bits of opcodes
const (
	regB uint8 = iota
	regC
	regD
	regE
	regH
	regL
	regHL // (HL), memory
	regA
)

var regNames = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// getReg returns the register selected by a 3 bit operand index.
func (c *CPU) getReg(i uint8) uint8 {
	switch i {
	case regB:
		return c.b
	case regC:
		return c.c
	case regD:
		return c.d
	case regE:
		return c.e
	case regH:
		return c.h
	case regL:
		return c.l
	case regHL:
		return c.bus.Read(c.GetHL())
	}
	return c.a
}

func (c *CPU) setReg(i, value uint8) {
	switch i {
	case regB:
		c.b = value
	case regC:
		c.c = value
	case regD:
		c.d = value
	case regE:
		c.e = value
	case regH:
		c.h = value
	case regL:
		c.l = value
	case regHL:
		c.bus.Write(c.GetHL(), value)
	default:
		c.a = value
	}
}

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

func (c *CPU) inc(value uint8) uint8 {
	result := value + 1
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, value&0x0F == 0x0F)
	return result
}

func (c *CPU) dec(value uint8) uint8 {
	result := value - 1
	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, value&0x0F == 0)
	return result
}

// add adds value (plus the carry flag for ADC) to A.
func (c *CPU) add(value uint8, withCarry bool) {
	var carry uint8
	if withCarry {
		carry = c.flagToBit(carryFlag)
	}
	sum := uint16(c.a) + uint16(value) + uint16(carry)
	halfCarry := (c.a&0x0F)+(value&0x0F)+carry > 0x0F

	c.a = uint8(sum)
	c.setFlags(c.a == 0, false, halfCarry, sum > 0xFF)
}

// sub computes A - value (minus the carry flag for SBC) and sets flags,
// the caller decides whether to store the result (SUB/SBC) or not (CP).
func (c *CPU) sub(value uint8, withCarry bool) uint8 {
	var carry int
	if withCarry {
		carry = int(c.flagToBit(carryFlag))
	}
	diff := int(c.a) - int(value) - carry
	halfBorrow := int(c.a&0x0F)-int(value&0x0F)-carry < 0

	result := uint8(diff)
	c.setFlags(result == 0, true, halfBorrow, diff < 0)
	return result
}

func (c *CPU) and(value uint8) {
	c.a &= value
	c.setFlags(c.a == 0, false, true, false)
}

func (c *CPU) or(value uint8) {
	c.a |= value
	c.setFlags(c.a == 0, false, false, false)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value
	c.setFlags(c.a == 0, false, false, false)
}

// alu runs one of the 8 accumulator operations selected by bits 3-5 of
// opcodes 0x80-0xBF and their immediate forms.
func (c *CPU) alu(op, value uint8) {
	switch op {
	case 0:
		c.add(value, false)
	case 1:
		c.add(value, true)
	case 2:
		c.a = c.sub(value, false)
	case 3:
		c.a = c.sub(value, true)
	case 4:
		c.and(value)
	case 5:
		c.xor(value)
	case 6:
		c.or(value)
	case 7:
		c.sub(value, false)
	}
}

var aluNames = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}

// addToHL adds a 16 bit value to HL, Z is left alone.
func (c *CPU) addToHL(value uint16) {
	hl := c.GetHL()
	sum := uint32(hl) + uint32(value)

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0x0FFF)+(value&0x0FFF) > 0x0FFF)
	c.setFlagToCondition(carryFlag, sum > 0xFFFF)

	c.SetHL(uint16(sum))
}

// spPlusOffset computes SP plus the signed operand, as used by ADD SP,r8
// and LD HL,SP+r8. Carries come from the low byte.
func (c *CPU) spPlusOffset() uint16 {
	offset := uint16(int16(int8(c.n8())))
	result := c.sp + offset

	halfCarry := (c.sp&0x0F)+(offset&0x0F) > 0x0F
	carry := (c.sp&0xFF)+(offset&0xFF) > 0xFF
	c.setFlags(false, false, halfCarry, carry)

	return result
}

// daa adjusts A to a valid BCD number after an addition or subtraction.
func (c *CPU) daa() {
	a := c.a
	carry := c.isSetFlag(carryFlag)
	var adjust uint8

	if c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) {
			adjust |= 0x06
		}
		if carry {
			adjust |= 0x60
		}
		a -= adjust
	} else {
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			adjust |= 0x06
		}
		if carry || a > 0x99 {
			adjust |= 0x60
			carry = true
		}
		a += adjust
	}

	c.a = a
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

func (c *CPU) cpl() {
	c.a = ^c.a
	c.setFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

func (c *CPU) scf() {
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlag(carryFlag)
}

func (c *CPU) ccf() {
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
}

// rotate and shift operations, shared by the CB table and the A-only
// forms (RLCA, RRCA, RLA, RRA, which then clear Z).

func (c *CPU) rlc(value uint8) uint8 {
	result := value<<1 | value>>7
	c.setFlags(result == 0, false, false, value&0x80 != 0)
	return result
}

func (c *CPU) rrc(value uint8) uint8 {
	result := value>>1 | value<<7
	c.setFlags(result == 0, false, false, value&0x01 != 0)
	return result
}

func (c *CPU) rl(value uint8) uint8 {
	result := value<<1 | c.flagToBit(carryFlag)
	c.setFlags(result == 0, false, false, value&0x80 != 0)
	return result
}

func (c *CPU) rr(value uint8) uint8 {
	result := value>>1 | c.flagToBit(carryFlag)<<7
	c.setFlags(result == 0, false, false, value&0x01 != 0)
	return result
}

func (c *CPU) sla(value uint8) uint8 {
	result := value << 1
	c.setFlags(result == 0, false, false, value&0x80 != 0)
	return result
}

func (c *CPU) sra(value uint8) uint8 {
	result := value>>1 | value&0x80
	c.setFlags(result == 0, false, false, value&0x01 != 0)
	return result
}

func (c *CPU) swap(value uint8) uint8 {
	result := bit.Swap(value)
	c.setFlags(result == 0, false, false, false)
	return result
}

func (c *CPU) srl(value uint8) uint8 {
	result := value >> 1
	c.setFlags(result == 0, false, false, value&0x01 != 0)
	return result
}

// testBit tests bit index of value, carry is preserved.
func (c *CPU) testBit(index, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(index, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

// condition is a branch condition encoded in bits 3-4 of conditional jumps.
type condition uint8

const (
	always condition = iota
	ifNZ
	ifZ
	ifNC
	ifC
)

func (c *CPU) check(cond condition) bool {
	switch cond {
	case ifNZ:
		return !c.isSetFlag(zeroFlag)
	case ifZ:
		return c.isSetFlag(zeroFlag)
	case ifNC:
		return !c.isSetFlag(carryFlag)
	case ifC:
		return c.isSetFlag(carryFlag)
	}
	return true
}

func (c *CPU) jp(cond condition, target uint16) {
	if !c.check(cond) {
		return
	}
	c.pc = target
	c.branchTaken = true
}

func (c *CPU) jr(cond condition) {
	c.jp(cond, c.pc+uint16(int16(int8(c.n8()))))
}

func (c *CPU) call(cond condition) {
	if !c.check(cond) {
		return
	}
	c.pushStack(c.pc)
	c.pc = c.n16()
	c.branchTaken = true
}

func (c *CPU) ret(cond condition) {
	if !c.check(cond) {
		return
	}
	c.pc = c.popStack()
	c.branchTaken = true
}

func (c *CPU) rst(vector uint16) {
	c.pushStack(c.pc)
	c.pc = vector
}

func (c *CPU) halt() {
	pending := c.bus.Read(addr.IE) & c.bus.Read(addr.IF) & 0x1F
	if !c.interruptsEnabled && pending != 0 {
		// HALT falls through and the next opcode byte is fetched twice
		c.haltBug = true
		return
	}
	c.halted = true
}

func (c *CPU) stop() {
	c.stopped = true
}

func (c *CPU) ei() {
	if !c.interruptsEnabled && c.eiDelay == 0 {
		c.eiDelay = 2
	}
}

func (c *CPU) di() {
	c.interruptsEnabled = false
	c.eiDelay = 0
}

func (c *CPU) reti() {
	c.pc = c.popStack()
	c.interruptsEnabled = true
	c.eiDelay = 0
}
