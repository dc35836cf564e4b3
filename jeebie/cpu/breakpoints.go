package cpu

import (
	"cmp"
	"fmt"
	"slices"
)

// BreakpointKind selects what a breakpoint address is matched against.
type BreakpointKind uint8

const (
	// BreakExec matches the address of the next instruction.
	BreakExec BreakpointKind = iota
	// BreakRead matches memory read by the next instruction.
	BreakRead
	// BreakWrite matches memory written by the next instruction.
	BreakWrite
	// BreakJump matches the target of a taken jump, call, return or RST.
	BreakJump

	breakpointKinds
)

func (k BreakpointKind) String() string {
	switch k {
	case BreakExec:
		return "exec"
	case BreakRead:
		return "read"
	case BreakWrite:
		return "write"
	case BreakJump:
		return "jump"
	}
	return fmt.Sprintf("BreakpointKind(%d)", uint8(k))
}

// ParseBreakpointKind is the inverse of BreakpointKind.String.
func ParseBreakpointKind(s string) (BreakpointKind, error) {
	for k := range breakpointKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown breakpoint kind %q", s)
}

type Breakpoint struct {
	Kind    BreakpointKind
	Address uint16
}

func (b Breakpoint) String() string {
	return fmt.Sprintf("%s@%04X", b.Kind, b.Address)
}

type breakpoints [breakpointKinds]map[uint16]struct{}

func (b *breakpoints) empty() bool {
	for _, set := range b {
		if len(set) > 0 {
			return false
		}
	}
	return true
}

func (b *breakpoints) has(kind BreakpointKind, address uint16) bool {
	_, ok := b[kind][address]
	return ok
}

func (c *CPU) AddBreakpoint(kind BreakpointKind, address uint16) {
	if c.breakpoints[kind] == nil {
		c.breakpoints[kind] = make(map[uint16]struct{})
	}
	c.breakpoints[kind][address] = struct{}{}
}

func (c *CPU) RemoveBreakpoint(kind BreakpointKind, address uint16) {
	delete(c.breakpoints[kind], address)
}

func (c *CPU) ClearBreakpoints() {
	c.breakpoints = breakpoints{}
}

// Breakpoints lists every breakpoint ordered by kind, then address.
func (c *CPU) Breakpoints() []Breakpoint {
	var out []Breakpoint
	for kind, set := range c.breakpoints {
		for address := range set {
			out = append(out, Breakpoint{Kind: BreakpointKind(kind), Address: address})
		}
	}
	slices.SortFunc(out, func(a, b Breakpoint) int {
		if a.Kind != b.Kind {
			return cmp.Compare(a.Kind, b.Kind)
		}
		return cmp.Compare(a.Address, b.Address)
	})
	return out
}

// LastBreakpoint returns the breakpoint that stopped the last Step, if any.
func (c *CPU) LastBreakpoint() (Breakpoint, bool) {
	if c.lastBreakpoint == nil {
		return Breakpoint{}, false
	}
	return *c.lastBreakpoint, true
}

// checkBreakpoints matches a decoded instruction against the breakpoint
// sets, before anything is executed.
func (c *CPU) checkBreakpoints(in decoded) (Breakpoint, bool) {
	if c.breakpoints.has(BreakExec, in.address) {
		return Breakpoint{BreakExec, in.address}, true
	}

	for _, address := range c.memoryOperand(in.op.reads, in) {
		if c.breakpoints.has(BreakRead, address) {
			return Breakpoint{BreakRead, address}, true
		}
	}
	for _, address := range c.memoryOperand(in.op.writes, in) {
		if c.breakpoints.has(BreakWrite, address) {
			return Breakpoint{BreakWrite, address}, true
		}
	}

	if target, ok := c.jumpTarget(in); ok && c.breakpoints.has(BreakJump, target) {
		return Breakpoint{BreakJump, target}, true
	}

	return Breakpoint{}, false
}

func (c *CPU) memoryOperand(ref memRef, in decoded) []uint16 {
	switch ref {
	case refBC:
		return []uint16{c.GetBC()}
	case refDE:
		return []uint16{c.GetDE()}
	case refHL:
		return []uint16{c.GetHL()}
	case refImm16:
		return []uint16{in.operand}
	case refHigh8:
		return []uint16{0xFF00 + in.operand&0xFF}
	case refHighC:
		return []uint16{0xFF00 + uint16(c.c)}
	case refPop:
		return []uint16{c.sp, c.sp + 1}
	case refPush:
		return []uint16{c.sp - 1, c.sp - 2}
	}
	return nil
}

// jumpTarget returns where the instruction would jump to, if it jumps.
func (c *CPU) jumpTarget(in decoded) (uint16, bool) {
	if in.op.flow == flowNone || !c.check(in.op.cond) {
		return 0, false
	}
	switch in.op.flow {
	case flowAbsolute:
		return in.operand, true
	case flowRelative:
		return in.next + uint16(int16(int8(in.operand))), true
	case flowHL:
		return c.GetHL(), true
	case flowReturn:
		low := c.bus.Read(c.sp)
		return uint16(c.bus.Read(c.sp+1))<<8 | uint16(low), true
	case flowVector:
		return in.op.vector, true
	}
	return 0, false
}
