package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeROM(cartType, ramCode uint8, title string) []byte {
	rom := make([]byte, 2*romBankSize)
	copy(rom[titleAddress:], title)
	rom[cartridgeTypeAddress] = cartType
	rom[ramSizeAddress] = ramCode
	rom[headerChecksumAddress] = computeHeaderChecksum(rom)
	return rom
}

func TestNewCartridgeWithData(t *testing.T) {
	tests := []struct {
		name     string
		cartType uint8
		ramCode  uint8
		mbc      MBCType
		ramSize  int
		battery  bool
	}{
		{"ROM only", 0x00, 0x00, NoMBCType, 0, false},
		{"MBC1+RAM+BATTERY", 0x03, 0x03, MBC1Type, 4 * ramBankSize, true},
		{"MBC2+BATTERY", 0x06, 0x00, MBC2Type, 0, true},
		{"MBC3+TIMER+RAM+BATTERY", 0x10, 0x02, MBC3Type, ramBankSize, true},
		{"MBC5+RUMBLE+RAM", 0x1D, 0x04, MBC5Type, 16 * ramBankSize, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart, err := NewCartridgeWithData(makeROM(tt.cartType, tt.ramCode, "TESTCART"))
			require.NoError(t, err)

			assert.Equal(t, "TESTCART", cart.Title())
			assert.Equal(t, tt.mbc, cart.MBC())
			assert.Equal(t, tt.ramSize, cart.RAMSize())
			assert.Equal(t, tt.battery, cart.HasBattery())

			mbc, err := cart.NewBankController()
			require.NoError(t, err)
			assert.NotNil(t, mbc)
		})
	}
}

func TestUnsupportedCartridge(t *testing.T) {
	_, err := NewCartridgeWithData(makeROM(0xFC, 0, "CAMERA"))
	assert.ErrorIs(t, err, ErrUnsupportedCartridge)

	_, err = NewCartridgeWithData(make([]byte, 0x100))
	assert.ErrorIs(t, err, ErrInvalidROM)
}

func TestCleanGameboyTitle(t *testing.T) {
	tests := []struct {
		raw  []byte
		want string
	}{
		{[]byte("TETRIS\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"), "TETRIS"},
		{[]byte("POKEMON RED\x00\x00\x00\x00\x00"), "POKEMON RED"},
		{make([]byte, 16), "(Untitled)"},
		{[]byte("ZELDA\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x80"), "ZELDA?"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanGameboyTitle(tt.raw))
		})
	}
}
