package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bankedROM returns a ROM where every byte holds its bank number.
func bankedROM(banks int) []uint8 {
	rom := make([]uint8, banks*romBankSize)
	for i := range rom {
		rom[i] = uint8(i / romBankSize)
	}
	return rom
}

func TestMBC1(t *testing.T) {
	t.Run("ROM Bank 0 (Fixed)", func(t *testing.T) {
		rom := make([]uint8, 0x8000)
		for i := range rom {
			rom[i] = uint8(i & 0xFF)
		}

		mbc := NewMBC1(rom, false, 0)

		for addr := uint16(0x0000); addr < 0x4000; addr++ {
			got := mbc.Read(addr)
			want := uint8(addr & 0xFF)
			if got != want {
				t.Errorf("Read(0x%04X) = 0x%02X; want 0x%02X", addr, got, want)
			}
		}
	})

	t.Run("ROM Bank Switching", func(t *testing.T) {
		mbc := NewMBC1(bankedROM(4), false, 0)

		tests := []struct {
			name     string
			bankNum  uint8
			wantByte uint8
		}{
			{"Default Bank (1)", 1, 1},
			{"Switch to Bank 2", 2, 2},
			{"Switch to Bank 3", 3, 3},
			{"Bank 0 maps to 1", 0, 1},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mbc.Write(0x2000, tt.bankNum)
				got := mbc.Read(0x4000)
				if got != tt.wantByte {
					t.Errorf("Bank %d: Read(0x4000) = 0x%02X; want 0x%02X",
						tt.bankNum, got, tt.wantByte)
				}
			})
		}
	})

	t.Run("RAM Banking", func(t *testing.T) {
		mbc := NewMBC1(make([]uint8, 0x8000), false, 4)

		t.Run("RAM Disabled by Default", func(t *testing.T) {
			got := mbc.Read(0xA000)
			if got != 0xFF {
				t.Errorf("Read from disabled RAM = 0x%02X; want 0xFF", got)
			}
		})

		t.Run("RAM Enable/Disable", func(t *testing.T) {
			mbc.Write(0x0000, 0x0A)
			mbc.Write(0xA000, 0x42)
			got := mbc.Read(0xA000)
			if got != 0x42 {
				t.Errorf("Read after RAM enable = 0x%02X; want 0x42", got)
			}

			mbc.Write(0x0000, 0x00)
			got = mbc.Read(0xA000)
			if got != 0xFF {
				t.Errorf("Read after RAM disable = 0x%02X; want 0xFF", got)
			}
		})

		t.Run("Multiple RAM Banks", func(t *testing.T) {
			mbc.Write(0x0000, 0x0A)
			mbc.Write(0x6000, 1)

			tests := []struct {
				bankNum uint8
				value   uint8
			}{
				{0, 0x42},
				{1, 0x43},
				{2, 0x44},
				{3, 0x45},
			}

			for _, tt := range tests {
				mbc.Write(0x4000, tt.bankNum)
				mbc.Write(0xA000, tt.value)
			}

			for _, tt := range tests {
				mbc.Write(0x4000, tt.bankNum)
				got := mbc.Read(0xA000)
				if got != tt.value {
					t.Errorf("Bank %d: got 0x%02X; want 0x%02X",
						tt.bankNum, got, tt.value)
				}
			}
		})
	})

	t.Run("Banking Modes", func(t *testing.T) {
		mbc := NewMBC1(bankedROM(64), false, 4)

		mbc.Write(0x2000, 5)
		mbc.Write(0x4000, 1)
		assert.Equal(t, uint8(37), mbc.Read(0x4000), "BANK2 extends the switchable bank")
		assert.Equal(t, uint8(0), mbc.Read(0x0000), "mode 0 keeps bank 0 fixed")

		mbc.Write(0x6000, 1)
		assert.Equal(t, uint8(32), mbc.Read(0x0000), "mode 1 applies BANK2 to the low window")
		assert.Equal(t, uint8(37), mbc.Read(0x4000))
	})

	t.Run("Bank wrapping", func(t *testing.T) {
		mbc := NewMBC1(bankedROM(8), false, 0)
		mbc.Write(0x2000, 5)
		mbc.Write(0x4000, 1) // bank 37 on an 8 bank ROM
		assert.Equal(t, uint8(5), mbc.Read(0x4000))
	})
}

func TestMBC2(t *testing.T) {
	t.Run("address bit 8 selects the register", func(t *testing.T) {
		mbc := NewMBC2(bankedROM(16))

		mbc.Write(0x2100, 0x07)
		assert.Equal(t, uint8(7), mbc.Read(0x4000))

		// bit 8 clear: RAM enable, the bank must not change
		mbc.Write(0x2000, 0x0A)
		assert.Equal(t, uint8(7), mbc.Read(0x4000))
		assert.True(t, mbc.ramEnabled)

		mbc.Write(0x0100, 0x00)
		assert.Equal(t, uint8(1), mbc.Read(0x4000), "bank 0 maps to 1")
	})

	t.Run("half-byte RAM is mirrored", func(t *testing.T) {
		mbc := NewMBC2(bankedROM(2))
		mbc.Write(0x0000, 0x0A)

		mbc.Write(0xA005, 0xAB)
		assert.Equal(t, uint8(0xFB), mbc.Read(0xA005))
		assert.Equal(t, uint8(0xFB), mbc.Read(0xA205))
		assert.Equal(t, uint8(0xFB), mbc.Read(0xBE05))
	})
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestMBC3(t *testing.T) {
	t.Run("ROM banks", func(t *testing.T) {
		mbc := NewMBC3(bankedROM(128), 0, false, nil)
		mbc.Write(0x2000, 0x45)
		assert.Equal(t, uint8(0x45), mbc.Read(0x4000))
		mbc.Write(0x2000, 0x00)
		assert.Equal(t, uint8(1), mbc.Read(0x4000))
	})

	t.Run("RTC latch", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_000_000, 0)}
		mbc := NewMBC3(bankedROM(4), 1, true, clock)
		mbc.Write(0x0000, 0x0A)

		clock.now = clock.now.Add(26*time.Hour + 3*time.Minute + 7*time.Second)
		mbc.Write(0x6000, 0x00)
		mbc.Write(0x6000, 0x01)

		read := func(reg uint8) uint8 {
			mbc.Write(0x4000, 0x08+reg)
			return mbc.Read(0xA000)
		}
		assert.Equal(t, uint8(7), read(rtcSeconds))
		assert.Equal(t, uint8(3), read(rtcMinutes))
		assert.Equal(t, uint8(2), read(rtcHours))
		assert.Equal(t, uint8(1), read(rtcDaysLow))

		// the latched copy does not move until the next latch
		clock.now = clock.now.Add(10 * time.Second)
		assert.Equal(t, uint8(7), read(rtcSeconds))
	})

	t.Run("RAM bank select", func(t *testing.T) {
		mbc := NewMBC3(bankedROM(4), 4, false, nil)
		mbc.Write(0x0000, 0x0A)
		mbc.Write(0x4000, 0x02)
		mbc.Write(0xA010, 0x99)
		mbc.Write(0x4000, 0x00)
		assert.Equal(t, uint8(0x00), mbc.Read(0xA010))
		mbc.Write(0x4000, 0x02)
		assert.Equal(t, uint8(0x99), mbc.Read(0xA010))
	})
}

func TestMBC5(t *testing.T) {
	mbc := NewMBC5(bankedROM(512), false, 16)

	mbc.Write(0x2000, 0x10)
	mbc.Write(0x3000, 0x01)
	// 0x110 = 272, stored as 272 % 256 in the fixture
	assert.Equal(t, uint8(272%256), mbc.Read(0x4000))

	mbc.Write(0x3000, 0x00)
	mbc.Write(0x2000, 0x00)
	assert.Equal(t, uint8(0), mbc.Read(0x4000), "bank 0 is selectable")

	mbc.Write(0x0000, 0x0A)
	mbc.Write(0x4000, 0x0F)
	mbc.Write(0xBFFF, 0x5A)
	assert.Equal(t, uint8(0x5A), mbc.Read(0xBFFF))
}

func TestBankControllerAddressRange(t *testing.T) {
	controllers := map[string]BankController{
		"NoMBC": NewNoMBC(bankedROM(2), false),
		"MBC1":  NewMBC1(bankedROM(2), false, 1),
		"MBC2":  NewMBC2(bankedROM(2)),
		"MBC3":  NewMBC3(bankedROM(2), 1, false, nil),
		"MBC5":  NewMBC5(bankedROM(2), false, 1),
	}

	for name, mbc := range controllers {
		t.Run(name, func(t *testing.T) {
			assert.PanicsWithError(t,
				name+": read at out of range address 0xC000",
				func() { mbc.Read(0xC000) })

			defer func() {
				r := recover()
				require.NotNil(t, r)
				err, ok := r.(*BankAddressError)
				require.True(t, ok)
				assert.True(t, err.Write)
				assert.Equal(t, uint16(0x8000), err.Address)
			}()
			mbc.Write(0x8000, 0)
		})
	}
}

func TestLoadInternalMemory(t *testing.T) {
	mbc := NewMBC1(bankedROM(2), true, 1)
	save := make([]byte, ramBankSize)
	save[0x123] = 0x77

	mbc.LoadInternalMemory(save)
	mbc.Write(0x0000, 0x0A)
	assert.Equal(t, uint8(0x77), mbc.Read(0xA123))
	assert.Equal(t, save, mbc.InternalMemory())
}
