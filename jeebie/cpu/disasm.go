package cpu

import (
	"fmt"
	"strings"

	"github.com/valerio/jeebie/jeebie/bit"
)

// Reader is the read half of Bus, enough to decode instructions.
type Reader interface {
	Read(address uint16) uint8
}

type decoded struct {
	address uint16
	// code is the opcode, 0xCBxx for prefixed ones
	code    uint16
	operand uint16
	next    uint16
	op      *opcode
}

// decode reads the instruction at pc without side effects. With haltBug set
// the first fetch does not advance, so the opcode byte is read twice.
func decode(r Reader, pc uint16, haltBug bool) decoded {
	cursor := pc
	fetch := func() uint8 {
		v := r.Read(cursor)
		if haltBug {
			haltBug = false
			return v
		}
		cursor++
		return v
	}

	in := decoded{address: pc}
	code := fetch()
	in.code = uint16(code)
	in.op = &opcodes[code]
	if code == 0xCB {
		code = fetch()
		in.code = bit.Combine(0xCB, code)
		in.op = &cbOpcodes[code]
	}

	switch in.operandLength() {
	case 1:
		in.operand = uint16(fetch())
	case 2:
		low := fetch()
		in.operand = bit.Combine(fetch(), low)
	}

	in.next = cursor
	return in
}

func (in decoded) operandLength() uint8 {
	if in.code > 0xFF {
		return 0
	}
	return in.op.length - 1
}

// Instruction is a decoded instruction, computed on demand from memory.
type Instruction struct {
	Address uint16
	// Opcode is the opcode byte, or 0xCBxx for the extended table.
	Opcode  uint16
	Operand uint16
	Length  uint8
	// Cycles is the cost when not branching, CondCycles when branching
	// (0 for instructions that never branch conditionally).
	Cycles     uint8
	CondCycles uint8
	// Mnemonic is the operand-less form, e.g. "LD BC,d16".
	Mnemonic string
	// Text has the operand filled in, e.g. "LD BC,$1234".
	Text string
}

// Disassemble decodes the instruction at address.
func Disassemble(r Reader, address uint16) Instruction {
	in := decode(r, address, false)
	return Instruction{
		Address:    address,
		Opcode:     in.code,
		Operand:    in.operand,
		Length:     in.op.length,
		Cycles:     in.op.cycles,
		CondCycles: in.op.condCycles,
		Mnemonic:   in.op.mnemonic,
		Text:       formatOperand(in.op.mnemonic, in.operand, in.next),
	}
}

// Encode returns the bytes the instruction was decoded from.
func (i Instruction) Encode() []byte {
	out := make([]byte, 0, i.Length)
	if i.Opcode > 0xFF {
		return append(out, 0xCB, bit.Low(i.Opcode))
	}
	out = append(out, uint8(i.Opcode))
	switch i.Length {
	case 2:
		out = append(out, uint8(i.Operand))
	case 3:
		out = append(out, bit.Low(i.Operand), bit.High(i.Operand))
	}
	return out
}

// Next is the address of the following instruction.
func (i Instruction) Next() uint16 {
	return i.Address + uint16(i.Length)
}

func (i Instruction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%04X  ", i.Address)
	for n, v := range i.Encode() {
		if n > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	for n := len(i.Encode()); n < 3; n++ {
		b.WriteString("   ")
	}
	b.WriteString("  ")
	b.WriteString(i.Text)
	return b.String()
}

func formatOperand(mnemonic string, operand, next uint16) string {
	switch {
	case strings.Contains(mnemonic, "d16"):
		return strings.Replace(mnemonic, "d16", fmt.Sprintf("$%04X", operand), 1)
	case strings.Contains(mnemonic, "a16"):
		return strings.Replace(mnemonic, "a16", fmt.Sprintf("$%04X", operand), 1)
	case strings.Contains(mnemonic, "d8"):
		return strings.Replace(mnemonic, "d8", fmt.Sprintf("$%02X", operand), 1)
	case strings.Contains(mnemonic, "a8"):
		return strings.Replace(mnemonic, "a8", fmt.Sprintf("$FF%02X", operand), 1)
	case strings.HasPrefix(mnemonic, "JR"):
		target := next + uint16(int16(int8(operand)))
		return strings.Replace(mnemonic, "r8", fmt.Sprintf("$%04X", target), 1)
	case strings.Contains(mnemonic, "+r8"):
		return strings.Replace(mnemonic, "+r8", fmt.Sprintf("%+d", int8(operand)), 1)
	case strings.Contains(mnemonic, "r8"):
		return strings.Replace(mnemonic, "r8", fmt.Sprintf("%+d", int8(operand)), 1)
	}
	return mnemonic
}
