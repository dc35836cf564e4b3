package disasm

import (
	"fmt"
	"io"

	"github.com/valerio/jeebie/jeebie/cpu"
)

// Line is one row of a disassembly listing.
type Line struct {
	cpu.Instruction
	IsCurrent bool
}

// Range disassembles count instructions starting at start. The listing
// stops early if it would wrap past 0xFFFF.
func Range(r cpu.Reader, start uint16, count int) []cpu.Instruction {
	out := make([]cpu.Instruction, 0, count)
	address := start
	for len(out) < count {
		in := cpu.Disassemble(r, address)
		out = append(out, in)
		if in.Next() < address {
			break
		}
		address = in.Next()
	}
	return out
}

// backwardBytes is how far before pc Around starts decoding. Decoding from
// an arbitrary address can land mid-instruction, so the listing is
// resynchronized on pc.
const backwardBytes = 30

// Around returns up to lines instructions centered on pc, with the
// instruction at pc marked as current.
func Around(r cpu.Reader, pc uint16, lines int) []Line {
	if lines <= 0 {
		return nil
	}

	start := uint16(0)
	if pc > backwardBytes {
		start = pc - backwardBytes
	}

	var all []Line
	current := -1
	for address := start; ; {
		// an instruction straddling pc would hide it, restart from pc
		if address > pc && current < 0 {
			all = all[:0]
			address = pc
		}
		in := cpu.Disassemble(r, address)
		if address == pc {
			current = len(all)
		}
		all = append(all, Line{Instruction: in, IsCurrent: address == pc})

		if current >= 0 && len(all)-current > lines/2 && len(all) >= lines {
			break
		}
		if in.Next() < address {
			break
		}
		address = in.Next()
	}

	if current < 0 {
		return all
	}

	from := max(current-lines/2, 0)
	to := min(from+lines, len(all))
	return all[from:to]
}

// Trace writes one instruction with the register file, in the column layout
// used by --trace.
func Trace(w io.Writer, in cpu.Instruction, regs cpu.Registers) error {
	_, err := fmt.Fprintf(w, "%-32s A:%02X F:%02X B:%02X C:%02X D:%02X E:%02X H:%02X L:%02X SP:%04X\n",
		in.String(), regs.A, regs.F, regs.B, regs.C, regs.D, regs.E, regs.H, regs.L, regs.SP)
	return err
}
