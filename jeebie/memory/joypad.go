package memory

import "github.com/valerio/jeebie/jeebie/bit"

// Button is a bitmask of joypad buttons. The low nibble holds the d-pad,
// the high nibble the action buttons, matching the P1 line order.
type Button uint8

const (
	ButtonRight Button = 1 << iota
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
)

var buttonNames = map[Button]string{
	ButtonRight:  "right",
	ButtonLeft:   "left",
	ButtonUp:     "up",
	ButtonDown:   "down",
	ButtonA:      "a",
	ButtonB:      "b",
	ButtonSelect: "select",
	ButtonStart:  "start",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return "buttons"
}

// ParseButton maps a button name (as printed by String) back to a Button.
func ParseButton(name string) (Button, bool) {
	for b, n := range buttonNames {
		if n == name {
			return b, true
		}
	}
	return 0, false
}

// Joypad tracks held buttons and computes P1 from the selection bits.
type Joypad struct {
	held  Button
	lines uint8
}

// Press marks buttons as held, it reports whether any of them was released
// before, i.e. whether a joypad interrupt should be raised.
func (j *Joypad) Press(b Button) bool {
	newly := b &^ j.held
	j.held |= b
	return newly != 0
}

func (j *Joypad) Release(b Button) {
	j.held &^= b
}

// Held returns the currently pressed buttons.
func (j *Joypad) Held() Button { return j.held }

// Select stores the line selection bits (4-5) written to P1.
func (j *Joypad) Select(value uint8) {
	j.lines = value & 0x30
}

// Register computes the value of P1.
//
//   - bit 4 clear selects the d-pad on bits 0-3
//   - bit 5 clear selects A, B, Select, Start on bits 0-3
//   - with both selected the two groups are ANDed, with neither bits 0-3 read 1
//
// A pressed button reads as 0. Bits 6-7 always read as 1.
func (j *Joypad) Register() uint8 {
	dpad := ^uint8(j.held) & 0x0F
	buttons := ^uint8(j.held>>4) & 0x0F

	result := uint8(0xC0) | j.lines
	low := uint8(0x0F)
	if !bit.IsSet(4, j.lines) {
		low &= dpad
	}
	if !bit.IsSet(5, j.lines) {
		low &= buttons
	}
	return result | low
}
