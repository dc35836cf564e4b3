package cpu

import (
	"fmt"
)

// memRef names the memory operand of an instruction, so breakpoints can
// be checked before the instruction runs.
type memRef uint8

const (
	refNone memRef = iota
	refBC
	refDE
	refHL
	refImm16 // (a16)
	refHigh8 // (0xFF00+a8)
	refHighC // (0xFF00+C)
	refPop   // (SP)
	refPush  // (SP-1)
)

// flowKind describes where a control flow instruction may jump to.
type flowKind uint8

const (
	flowNone flowKind = iota
	flowAbsolute
	flowRelative
	flowHL
	flowReturn
	flowVector
)

// opcode is one entry of the instruction tables.
type opcode struct {
	mnemonic string
	// length in bytes, prefix and operands included
	length uint8
	// cycles is the cost when no branch is taken
	cycles uint8
	// condCycles is the cost when a conditional branch is taken, 0 if the
	// instruction never branches conditionally
	condCycles uint8
	exec       func(*CPU)

	reads  memRef
	writes memRef
	flow   flowKind
	cond   condition
	vector uint16
}

func op(mnemonic string, length, cycles uint8, exec func(*CPU)) opcode {
	return opcode{mnemonic: mnemonic, length: length, cycles: cycles, exec: exec}
}

func (o opcode) taken(cycles uint8) opcode {
	o.condCycles = cycles
	return o
}

func (o opcode) reading(ref memRef) opcode {
	o.reads = ref
	return o
}

func (o opcode) writing(ref memRef) opcode {
	o.writes = ref
	return o
}

func (o opcode) jumping(flow flowKind, cond condition) opcode {
	o.flow = flow
	o.cond = cond
	return o
}

// InvalidOpcodeError is raised when the CPU fetches one of the 11 opcodes
// that are not defined on the SM83.
type InvalidOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode 0x%02X at 0x%04X", e.Opcode, e.PC)
}

func invalid(code uint8) opcode {
	return op(fmt.Sprintf("INVALID $%02X", code), 1, 4, func(c *CPU) {
		panic(&InvalidOpcodeError{Opcode: code, PC: c.opcodeAddress})
	})
}

func rstOp(vector uint16) opcode {
	o := op(fmt.Sprintf("RST %02XH", vector), 1, 16, func(c *CPU) { c.rst(vector) }).
		writing(refPush).
		jumping(flowVector, always)
	o.vector = vector
	return o
}

var (
	opcodes   [256]opcode
	cbOpcodes [256]opcode
)

func init() {
	opcodes = [256]opcode{
		0x00: op("NOP", 1, 4, func(c *CPU) {}),
		0x01: op("LD BC,d16", 3, 12, func(c *CPU) { c.SetBC(c.n16()) }),
		0x02: op("LD (BC),A", 1, 8, func(c *CPU) { c.bus.Write(c.GetBC(), c.a) }).writing(refBC),
		0x03: op("INC BC", 1, 8, func(c *CPU) { c.SetBC(c.GetBC() + 1) }),
		0x04: op("INC B", 1, 4, func(c *CPU) { c.b = c.inc(c.b) }),
		0x05: op("DEC B", 1, 4, func(c *CPU) { c.b = c.dec(c.b) }),
		0x06: op("LD B,d8", 2, 8, func(c *CPU) { c.b = c.n8() }),
		0x07: op("RLCA", 1, 4, func(c *CPU) { c.a = c.rlc(c.a); c.resetFlag(zeroFlag) }),
		0x08: op("LD (a16),SP", 3, 20, func(c *CPU) {
			c.bus.Write(c.n16(), uint8(c.sp))
			c.bus.Write(c.n16()+1, uint8(c.sp>>8))
		}).writing(refImm16),
		0x09: op("ADD HL,BC", 1, 8, func(c *CPU) { c.addToHL(c.GetBC()) }),
		0x0A: op("LD A,(BC)", 1, 8, func(c *CPU) { c.a = c.bus.Read(c.GetBC()) }).reading(refBC),
		0x0B: op("DEC BC", 1, 8, func(c *CPU) { c.SetBC(c.GetBC() - 1) }),
		0x0C: op("INC C", 1, 4, func(c *CPU) { c.c = c.inc(c.c) }),
		0x0D: op("DEC C", 1, 4, func(c *CPU) { c.c = c.dec(c.c) }),
		0x0E: op("LD C,d8", 2, 8, func(c *CPU) { c.c = c.n8() }),
		0x0F: op("RRCA", 1, 4, func(c *CPU) { c.a = c.rrc(c.a); c.resetFlag(zeroFlag) }),

		0x10: op("STOP", 2, 4, func(c *CPU) { c.stop() }),
		0x11: op("LD DE,d16", 3, 12, func(c *CPU) { c.SetDE(c.n16()) }),
		0x12: op("LD (DE),A", 1, 8, func(c *CPU) { c.bus.Write(c.GetDE(), c.a) }).writing(refDE),
		0x13: op("INC DE", 1, 8, func(c *CPU) { c.SetDE(c.GetDE() + 1) }),
		0x14: op("INC D", 1, 4, func(c *CPU) { c.d = c.inc(c.d) }),
		0x15: op("DEC D", 1, 4, func(c *CPU) { c.d = c.dec(c.d) }),
		0x16: op("LD D,d8", 2, 8, func(c *CPU) { c.d = c.n8() }),
		0x17: op("RLA", 1, 4, func(c *CPU) { c.a = c.rl(c.a); c.resetFlag(zeroFlag) }),
		0x18: op("JR r8", 2, 12, func(c *CPU) { c.jr(always) }).jumping(flowRelative, always),
		0x19: op("ADD HL,DE", 1, 8, func(c *CPU) { c.addToHL(c.GetDE()) }),
		0x1A: op("LD A,(DE)", 1, 8, func(c *CPU) { c.a = c.bus.Read(c.GetDE()) }).reading(refDE),
		0x1B: op("DEC DE", 1, 8, func(c *CPU) { c.SetDE(c.GetDE() - 1) }),
		0x1C: op("INC E", 1, 4, func(c *CPU) { c.e = c.inc(c.e) }),
		0x1D: op("DEC E", 1, 4, func(c *CPU) { c.e = c.dec(c.e) }),
		0x1E: op("LD E,d8", 2, 8, func(c *CPU) { c.e = c.n8() }),
		0x1F: op("RRA", 1, 4, func(c *CPU) { c.a = c.rr(c.a); c.resetFlag(zeroFlag) }),

		0x20: op("JR NZ,r8", 2, 8, func(c *CPU) { c.jr(ifNZ) }).taken(12).jumping(flowRelative, ifNZ),
		0x21: op("LD HL,d16", 3, 12, func(c *CPU) { c.SetHL(c.n16()) }),
		0x22: op("LD (HL+),A", 1, 8, func(c *CPU) {
			c.bus.Write(c.GetHL(), c.a)
			c.SetHL(c.GetHL() + 1)
		}).writing(refHL),
		0x23: op("INC HL", 1, 8, func(c *CPU) { c.SetHL(c.GetHL() + 1) }),
		0x24: op("INC H", 1, 4, func(c *CPU) { c.h = c.inc(c.h) }),
		0x25: op("DEC H", 1, 4, func(c *CPU) { c.h = c.dec(c.h) }),
		0x26: op("LD H,d8", 2, 8, func(c *CPU) { c.h = c.n8() }),
		0x27: op("DAA", 1, 4, func(c *CPU) { c.daa() }),
		0x28: op("JR Z,r8", 2, 8, func(c *CPU) { c.jr(ifZ) }).taken(12).jumping(flowRelative, ifZ),
		0x29: op("ADD HL,HL", 1, 8, func(c *CPU) { c.addToHL(c.GetHL()) }),
		0x2A: op("LD A,(HL+)", 1, 8, func(c *CPU) {
			c.a = c.bus.Read(c.GetHL())
			c.SetHL(c.GetHL() + 1)
		}).reading(refHL),
		0x2B: op("DEC HL", 1, 8, func(c *CPU) { c.SetHL(c.GetHL() - 1) }),
		0x2C: op("INC L", 1, 4, func(c *CPU) { c.l = c.inc(c.l) }),
		0x2D: op("DEC L", 1, 4, func(c *CPU) { c.l = c.dec(c.l) }),
		0x2E: op("LD L,d8", 2, 8, func(c *CPU) { c.l = c.n8() }),
		0x2F: op("CPL", 1, 4, func(c *CPU) { c.cpl() }),

		0x30: op("JR NC,r8", 2, 8, func(c *CPU) { c.jr(ifNC) }).taken(12).jumping(flowRelative, ifNC),
		0x31: op("LD SP,d16", 3, 12, func(c *CPU) { c.sp = c.n16() }),
		0x32: op("LD (HL-),A", 1, 8, func(c *CPU) {
			c.bus.Write(c.GetHL(), c.a)
			c.SetHL(c.GetHL() - 1)
		}).writing(refHL),
		0x33: op("INC SP", 1, 8, func(c *CPU) { c.sp++ }),
		0x34: op("INC (HL)", 1, 12, func(c *CPU) {
			c.bus.Write(c.GetHL(), c.inc(c.bus.Read(c.GetHL())))
		}).reading(refHL).writing(refHL),
		0x35: op("DEC (HL)", 1, 12, func(c *CPU) {
			c.bus.Write(c.GetHL(), c.dec(c.bus.Read(c.GetHL())))
		}).reading(refHL).writing(refHL),
		0x36: op("LD (HL),d8", 2, 12, func(c *CPU) { c.bus.Write(c.GetHL(), c.n8()) }).writing(refHL),
		0x37: op("SCF", 1, 4, func(c *CPU) { c.scf() }),
		0x38: op("JR C,r8", 2, 8, func(c *CPU) { c.jr(ifC) }).taken(12).jumping(flowRelative, ifC),
		0x39: op("ADD HL,SP", 1, 8, func(c *CPU) { c.addToHL(c.sp) }),
		0x3A: op("LD A,(HL-)", 1, 8, func(c *CPU) {
			c.a = c.bus.Read(c.GetHL())
			c.SetHL(c.GetHL() - 1)
		}).reading(refHL),
		0x3B: op("DEC SP", 1, 8, func(c *CPU) { c.sp-- }),
		0x3C: op("INC A", 1, 4, func(c *CPU) { c.a = c.inc(c.a) }),
		0x3D: op("DEC A", 1, 4, func(c *CPU) { c.a = c.dec(c.a) }),
		0x3E: op("LD A,d8", 2, 8, func(c *CPU) { c.a = c.n8() }),
		0x3F: op("CCF", 1, 4, func(c *CPU) { c.ccf() }),

		0x76: op("HALT", 1, 4, func(c *CPU) { c.halt() }),

		0xC0: op("RET NZ", 1, 8, func(c *CPU) { c.ret(ifNZ) }).taken(20).reading(refPop).jumping(flowReturn, ifNZ),
		0xC1: op("POP BC", 1, 12, func(c *CPU) { c.SetBC(c.popStack()) }).reading(refPop),
		0xC2: op("JP NZ,a16", 3, 12, func(c *CPU) { c.jp(ifNZ, c.n16()) }).taken(16).jumping(flowAbsolute, ifNZ),
		0xC3: op("JP a16", 3, 16, func(c *CPU) { c.jp(always, c.n16()) }).jumping(flowAbsolute, always),
		0xC4: op("CALL NZ,a16", 3, 12, func(c *CPU) { c.call(ifNZ) }).taken(24).writing(refPush).jumping(flowAbsolute, ifNZ),
		0xC5: op("PUSH BC", 1, 16, func(c *CPU) { c.pushStack(c.GetBC()) }).writing(refPush),
		0xC6: op("ADD A,d8", 2, 8, func(c *CPU) { c.add(c.n8(), false) }),
		0xC7: rstOp(0x00),
		0xC8: op("RET Z", 1, 8, func(c *CPU) { c.ret(ifZ) }).taken(20).reading(refPop).jumping(flowReturn, ifZ),
		0xC9: op("RET", 1, 16, func(c *CPU) { c.ret(always) }).reading(refPop).jumping(flowReturn, always),
		0xCA: op("JP Z,a16", 3, 12, func(c *CPU) { c.jp(ifZ, c.n16()) }).taken(16).jumping(flowAbsolute, ifZ),
		0xCB: op("PREFIX CB", 1, 4, func(c *CPU) {}),
		0xCC: op("CALL Z,a16", 3, 12, func(c *CPU) { c.call(ifZ) }).taken(24).writing(refPush).jumping(flowAbsolute, ifZ),
		0xCD: op("CALL a16", 3, 24, func(c *CPU) { c.call(always) }).writing(refPush).jumping(flowAbsolute, always),
		0xCE: op("ADC A,d8", 2, 8, func(c *CPU) { c.add(c.n8(), true) }),
		0xCF: rstOp(0x08),

		0xD0: op("RET NC", 1, 8, func(c *CPU) { c.ret(ifNC) }).taken(20).reading(refPop).jumping(flowReturn, ifNC),
		0xD1: op("POP DE", 1, 12, func(c *CPU) { c.SetDE(c.popStack()) }).reading(refPop),
		0xD2: op("JP NC,a16", 3, 12, func(c *CPU) { c.jp(ifNC, c.n16()) }).taken(16).jumping(flowAbsolute, ifNC),
		0xD3: invalid(0xD3),
		0xD4: op("CALL NC,a16", 3, 12, func(c *CPU) { c.call(ifNC) }).taken(24).writing(refPush).jumping(flowAbsolute, ifNC),
		0xD5: op("PUSH DE", 1, 16, func(c *CPU) { c.pushStack(c.GetDE()) }).writing(refPush),
		0xD6: op("SUB d8", 2, 8, func(c *CPU) { c.a = c.sub(c.n8(), false) }),
		0xD7: rstOp(0x10),
		0xD8: op("RET C", 1, 8, func(c *CPU) { c.ret(ifC) }).taken(20).reading(refPop).jumping(flowReturn, ifC),
		0xD9: op("RETI", 1, 16, func(c *CPU) { c.reti() }).reading(refPop).jumping(flowReturn, always),
		0xDA: op("JP C,a16", 3, 12, func(c *CPU) { c.jp(ifC, c.n16()) }).taken(16).jumping(flowAbsolute, ifC),
		0xDB: invalid(0xDB),
		0xDC: op("CALL C,a16", 3, 12, func(c *CPU) { c.call(ifC) }).taken(24).writing(refPush).jumping(flowAbsolute, ifC),
		0xDD: invalid(0xDD),
		0xDE: op("SBC A,d8", 2, 8, func(c *CPU) { c.a = c.sub(c.n8(), true) }),
		0xDF: rstOp(0x18),

		0xE0: op("LDH (a8),A", 2, 12, func(c *CPU) { c.bus.Write(0xFF00+uint16(c.n8()), c.a) }).writing(refHigh8),
		0xE1: op("POP HL", 1, 12, func(c *CPU) { c.SetHL(c.popStack()) }).reading(refPop),
		0xE2: op("LD (C),A", 1, 8, func(c *CPU) { c.bus.Write(0xFF00+uint16(c.c), c.a) }).writing(refHighC),
		0xE3: invalid(0xE3),
		0xE4: invalid(0xE4),
		0xE5: op("PUSH HL", 1, 16, func(c *CPU) { c.pushStack(c.GetHL()) }).writing(refPush),
		0xE6: op("AND d8", 2, 8, func(c *CPU) { c.and(c.n8()) }),
		0xE7: rstOp(0x20),
		0xE8: op("ADD SP,r8", 2, 16, func(c *CPU) { c.sp = c.spPlusOffset() }),
		0xE9: op("JP (HL)", 1, 4, func(c *CPU) { c.pc = c.GetHL() }).jumping(flowHL, always),
		0xEA: op("LD (a16),A", 3, 16, func(c *CPU) { c.bus.Write(c.n16(), c.a) }).writing(refImm16),
		0xEB: invalid(0xEB),
		0xEC: invalid(0xEC),
		0xED: invalid(0xED),
		0xEE: op("XOR d8", 2, 8, func(c *CPU) { c.xor(c.n8()) }),
		0xEF: rstOp(0x28),

		0xF0: op("LDH A,(a8)", 2, 12, func(c *CPU) { c.a = c.bus.Read(0xFF00 + uint16(c.n8())) }).reading(refHigh8),
		0xF1: op("POP AF", 1, 12, func(c *CPU) { c.SetAF(c.popStack()) }).reading(refPop),
		0xF2: op("LD A,(C)", 1, 8, func(c *CPU) { c.a = c.bus.Read(0xFF00 + uint16(c.c)) }).reading(refHighC),
		0xF3: op("DI", 1, 4, func(c *CPU) { c.di() }),
		0xF4: invalid(0xF4),
		0xF5: op("PUSH AF", 1, 16, func(c *CPU) { c.pushStack(c.GetAF()) }).writing(refPush),
		0xF6: op("OR d8", 2, 8, func(c *CPU) { c.or(c.n8()) }),
		0xF7: rstOp(0x30),
		0xF8: op("LD HL,SP+r8", 2, 12, func(c *CPU) { c.SetHL(c.spPlusOffset()) }),
		0xF9: op("LD SP,HL", 1, 8, func(c *CPU) { c.sp = c.GetHL() }),
		0xFA: op("LD A,(a16)", 3, 16, func(c *CPU) { c.a = c.bus.Read(c.n16()) }).reading(refImm16),
		0xFB: op("EI", 1, 4, func(c *CPU) { c.ei() }),
		0xFC: invalid(0xFC),
		0xFD: invalid(0xFD),
		0xFE: op("CP d8", 2, 8, func(c *CPU) { c.sub(c.n8(), false) }),
		0xFF: rstOp(0x38),
	}

	// 0x40-0x7F: LD r,r' (0x76 is HALT)
	for code := 0x40; code <= 0x7F; code++ {
		if code == 0x76 {
			continue
		}
		dst, src := uint8(code>>3)&7, uint8(code)&7
		o := op("LD "+regNames[dst]+","+regNames[src], 1, 4, func(c *CPU) { c.setReg(dst, c.getReg(src)) })
		if src == regHL {
			o = o.reading(refHL)
			o.cycles = 8
		}
		if dst == regHL {
			o = o.writing(refHL)
			o.cycles = 8
		}
		opcodes[code] = o
	}

	// 0x80-0xBF: ALU A,r
	for code := 0x80; code <= 0xBF; code++ {
		kind, src := uint8(code>>3)&7, uint8(code)&7
		o := op(aluNames[kind]+regNames[src], 1, 4, func(c *CPU) { c.alu(kind, c.getReg(src)) })
		if src == regHL {
			o = o.reading(refHL)
			o.cycles = 8
		}
		opcodes[code] = o
	}

	initCBOpcodes()
}
