package cpu

import "fmt"

var cbRotateNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}

var cbRotateOps = [8]func(*CPU, uint8) uint8{
	(*CPU).rlc, (*CPU).rrc, (*CPU).rl, (*CPU).rr,
	(*CPU).sla, (*CPU).sra, (*CPU).swap, (*CPU).srl,
}

// initCBOpcodes fills the 0xCB prefixed table. The layout is fully regular:
// bits 6-7 pick the group, bits 3-5 the operation or bit index, bits 0-2
// the register.
func initCBOpcodes() {
	for code := 0; code < 0x100; code++ {
		reg := uint8(code) & 7
		index := uint8(code>>3) & 7

		var o opcode
		switch code >> 6 {
		case 0:
			rotate := cbRotateOps[index]
			o = op(cbRotateNames[index]+" "+regNames[reg], 2, 8, func(c *CPU) {
				c.setReg(reg, rotate(c, c.getReg(reg)))
			})
			if reg == regHL {
				o = o.reading(refHL).writing(refHL)
				o.cycles = 16
			}
		case 1:
			o = op(fmt.Sprintf("BIT %d,%s", index, regNames[reg]), 2, 8, func(c *CPU) {
				c.testBit(index, c.getReg(reg))
			})
			if reg == regHL {
				o = o.reading(refHL)
				o.cycles = 12
			}
		case 2:
			o = op(fmt.Sprintf("RES %d,%s", index, regNames[reg]), 2, 8, func(c *CPU) {
				c.setReg(reg, c.getReg(reg)&^(1<<index))
			})
			if reg == regHL {
				o = o.reading(refHL).writing(refHL)
				o.cycles = 16
			}
		case 3:
			o = op(fmt.Sprintf("SET %d,%s", index, regNames[reg]), 2, 8, func(c *CPU) {
				c.setReg(reg, c.getReg(reg)|1<<index)
			})
			if reg == regHL {
				o = o.reading(refHL).writing(refHL)
				o.cycles = 16
			}
		}
		cbOpcodes[code] = o
	}
}
