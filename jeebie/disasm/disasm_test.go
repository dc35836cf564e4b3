package disasm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie/cpu"
)

type flat []byte

func (f flat) Read(address uint16) uint8 {
	if int(address) >= len(f) {
		return 0
	}
	return f[address]
}

func program() flat {
	mem := make(flat, 0x10000)
	copy(mem[0x100:], []byte{
		0x00,             // 0100 NOP
		0x01, 0x34, 0x12, // 0101 LD BC,$1234
		0x3E, 0x05, // 0104 LD A,$05
		0xCB, 0x7C, // 0106 BIT 7,H
		0xC3, 0x00, 0x01, // 0108 JP $0100
	})
	return mem
}

func TestRange(t *testing.T) {
	got := Range(program(), 0x100, 5)
	require.Len(t, got, 5)

	var addresses []uint16
	var text []string
	for _, in := range got {
		addresses = append(addresses, in.Address)
		text = append(text, in.Text)
	}
	assert.Equal(t, []uint16{0x100, 0x101, 0x104, 0x106, 0x108}, addresses)
	assert.Equal(t, []string{"NOP", "LD BC,$1234", "LD A,$05", "BIT 7,H", "JP $0100"}, text)
}

func TestRangeStopsAtWrap(t *testing.T) {
	got := Range(program(), 0xFFFE, 10)
	assert.Len(t, got, 2)
}

func TestAround(t *testing.T) {
	t.Run("centered on pc", func(t *testing.T) {
		got := Around(program(), 0x104, 5)
		require.Len(t, got, 5)

		current := 0
		for _, l := range got {
			if l.IsCurrent {
				current++
				assert.Equal(t, uint16(0x104), l.Address)
			}
		}
		assert.Equal(t, 1, current)
	})

	t.Run("resyncs on pc", func(t *testing.T) {
		// 0x0105 is the operand of LD A,$05
		got := Around(program(), 0x105, 3)
		var found bool
		for _, l := range got {
			if l.IsCurrent {
				found = true
				assert.Equal(t, "DEC B", l.Text)
			}
		}
		assert.True(t, found)
	})

	t.Run("no lines", func(t *testing.T) {
		assert.Nil(t, Around(program(), 0x100, 0))
	})
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	in := cpu.Disassemble(program(), 0x101)
	require.NoError(t, Trace(&buf, in, cpu.Registers{A: 0x01, F: 0xB0, SP: 0xFFFE}))

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "0101  01 34 12  LD BC,$1234"))
	assert.Contains(t, line, "A:01 F:B0")
	assert.Contains(t, line, "SP:FFFE")
}
