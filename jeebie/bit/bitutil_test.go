package bit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		high, low uint8
		expected  uint16
	}{
		{0xAB, 0xCD, 0xABCD},
		{0x00, 0x00, 0x0000},
		{0xFF, 0xFF, 0xFFFF},
		{0x12, 0x34, 0x1234},
	}

	for _, tt := range tests {
		result := Combine(tt.high, tt.low)
		if result != tt.expected {
			t.Errorf("Combine(%X, %X) = %X; want %X", tt.high, tt.low, result, tt.expected)
		}
		if High(result) != tt.high || Low(result) != tt.low {
			t.Errorf("High/Low(%X) = %X/%X; want %X/%X", result, High(result), Low(result), tt.high, tt.low)
		}
	}
}

func TestCheckedArithmetic(t *testing.T) {
	tests := []struct {
		desc     string
		a, b     uint8
		sum      uint8
		overflow bool
		diff     uint8
		borrow   bool
	}{
		{"max plus one", 0xFF, 0x01, 0x00, true, 0xFE, false},
		{"zero minus one", 0x00, 0x01, 0x01, false, 0xFF, true},
		{"equal", 0x80, 0x80, 0x00, true, 0x00, false},
		{"small", 0x01, 0x01, 0x02, false, 0x00, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			sum, overflow := CheckedAdd(tt.a, tt.b)
			assert.Equal(t, tt.sum, sum)
			assert.Equal(t, tt.overflow, overflow)

			diff, borrow := CheckedSub(tt.a, tt.b)
			assert.Equal(t, tt.diff, diff)
			assert.Equal(t, tt.borrow, borrow)
		})
	}
}

func TestBitOperations(t *testing.T) {
	assert.True(t, IsSet(7, 0x80))
	assert.False(t, IsSet(6, 0x80))
	assert.True(t, IsSet16(13, 0x2000))
	assert.Equal(t, uint8(0x7F), Clear(7, 0xFF))
	assert.Equal(t, uint8(0x81), Set(0, 0x80))
	assert.Equal(t, uint8(0x04), SetTo(2, 0x00, true))
	assert.Equal(t, uint8(0x00), SetTo(2, 0x04, false))
	assert.Equal(t, uint8(1), Value(3, 0x08))
	assert.Equal(t, uint8(0b101), ExtractBits(0b11010110, 6, 4))
	assert.Equal(t, uint8(0x21), Swap(0x12))
}
