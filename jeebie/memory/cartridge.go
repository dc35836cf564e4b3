package memory

import (
	"errors"
	"fmt"
	"log/slog"
)

const titleLength = 16

// header offsets, see https://gbdev.io/pandocs/The_Cartridge_Header.html
const (
	entryPointAddress      = 0x100
	titleAddress           = 0x134
	cgbFlagAddress         = 0x143
	cartridgeTypeAddress   = 0x147
	romSizeAddress         = 0x148
	ramSizeAddress         = 0x149
	versionNumberAddress   = 0x14C
	headerChecksumAddress  = 0x14D
	globalChecksumAddress  = 0x14E
	minimumCartridgeLength = 0x150
)

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

var (
	// ErrUnsupportedCartridge is returned when the header declares a banking
	// scheme that has no bank controller.
	ErrUnsupportedCartridge = errors.New("unsupported cartridge type")
	// ErrInvalidROM is returned for images too small to carry a header.
	ErrInvalidROM = errors.New("invalid ROM image")
)

// MBCType identifies the bank controller a cartridge needs.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC2Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

func (t MBCType) String() string {
	switch t {
	case NoMBCType:
		return "ROM"
	case MBC1Type:
		return "MBC1"
	case MBC2Type:
		return "MBC2"
	case MBC3Type:
		return "MBC3"
	case MBC5Type:
		return "MBC5"
	}
	return "unknown"
}

// Cartridge is an immutable ROM image plus the header fields derived from it.
type Cartridge struct {
	data           []byte
	title          string
	cartType       uint8
	mbcType        MBCType
	romBankCount   uint16
	ramBankCount   uint8
	version        uint8
	headerChecksum uint8
	globalChecksum uint16
	hasBattery     bool
	hasRTC         bool
	hasRumble      bool
	hasRAM         bool
}

// NewCartridge creates an empty ROM-only cartridge, used when no ROM is loaded.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:         make([]byte, 2*romBankSize),
		title:        "(Untitled)",
		mbcType:      NoMBCType,
		romBankCount: 2,
	}
}

// NewCartridgeWithData parses the header of a ROM image. Unknown banking
// schemes are reported as ErrUnsupportedCartridge.
func NewCartridgeWithData(bytes []byte) (*Cartridge, error) {
	if len(bytes) < minimumCartridgeLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidROM, len(bytes))
	}

	cart := &Cartridge{
		data:           make([]byte, len(bytes)),
		title:          cleanGameboyTitle(bytes[titleAddress : titleAddress+titleLength]),
		cartType:       bytes[cartridgeTypeAddress],
		version:        bytes[versionNumberAddress],
		headerChecksum: bytes[headerChecksumAddress],
		globalChecksum: uint16(bytes[globalChecksumAddress])<<8 | uint16(bytes[globalChecksumAddress+1]),
	}
	copy(cart.data, bytes)

	cart.romBankCount = uint16(len(bytes) / romBankSize)
	if cart.romBankCount < 2 {
		cart.romBankCount = 2
		padded := make([]byte, 2*romBankSize)
		copy(padded, cart.data)
		cart.data = padded
	}

	if err := cart.decodeType(); err != nil {
		return nil, err
	}
	cart.ramBankCount = ramBanksFromCode(bytes[ramSizeAddress])

	if sum := computeHeaderChecksum(bytes); sum != cart.headerChecksum {
		slog.Warn("Cartridge header checksum mismatch",
			"title", cart.title,
			"expected", fmt.Sprintf("0x%02X", cart.headerChecksum),
			"computed", fmt.Sprintf("0x%02X", sum))
	}

	return cart, nil
}

func (c *Cartridge) decodeType() error {
	switch c.cartType {
	case 0x00:
		c.mbcType = NoMBCType
	case 0x08:
		c.mbcType, c.hasRAM = NoMBCType, true
	case 0x09:
		c.mbcType, c.hasRAM, c.hasBattery = NoMBCType, true, true
	case 0x01:
		c.mbcType = MBC1Type
	case 0x02:
		c.mbcType, c.hasRAM = MBC1Type, true
	case 0x03:
		c.mbcType, c.hasRAM, c.hasBattery = MBC1Type, true, true
	case 0x05:
		c.mbcType = MBC2Type
	case 0x06:
		c.mbcType, c.hasBattery = MBC2Type, true
	case 0x0F:
		c.mbcType, c.hasRTC, c.hasBattery = MBC3Type, true, true
	case 0x10:
		c.mbcType, c.hasRTC, c.hasRAM, c.hasBattery = MBC3Type, true, true, true
	case 0x11:
		c.mbcType = MBC3Type
	case 0x12:
		c.mbcType, c.hasRAM = MBC3Type, true
	case 0x13:
		c.mbcType, c.hasRAM, c.hasBattery = MBC3Type, true, true
	case 0x19:
		c.mbcType = MBC5Type
	case 0x1A:
		c.mbcType, c.hasRAM = MBC5Type, true
	case 0x1B:
		c.mbcType, c.hasRAM, c.hasBattery = MBC5Type, true, true
	case 0x1C:
		c.mbcType, c.hasRumble = MBC5Type, true
	case 0x1D:
		c.mbcType, c.hasRumble, c.hasRAM = MBC5Type, true, true
	case 0x1E:
		c.mbcType, c.hasRumble, c.hasRAM, c.hasBattery = MBC5Type, true, true, true
	default:
		c.mbcType = MBCUnknownType
		return fmt.Errorf("%w: 0x%02X", ErrUnsupportedCartridge, c.cartType)
	}
	return nil
}

// ramBanksFromCode decodes the RAM size header byte into 8KiB banks.
func ramBanksFromCode(code uint8) uint8 {
	switch code {
	case 0x01, 0x02:
		// 0x01 is an unofficial 2KiB size, round it up to a full bank
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	}
	return 0
}

func computeHeaderChecksum(bytes []byte) uint8 {
	var sum uint8
	for _, b := range bytes[titleAddress:headerChecksumAddress] {
		sum = sum - b - 1
	}
	return sum
}

// NewBankController builds the bank controller declared by the header.
func (c *Cartridge) NewBankController() (BankController, error) {
	switch c.mbcType {
	case NoMBCType:
		return NewNoMBC(c.data, c.hasRAM), nil
	case MBC1Type:
		return NewMBC1(c.data, c.hasBattery, c.ramBankCount), nil
	case MBC2Type:
		return NewMBC2(c.data), nil
	case MBC3Type:
		return NewMBC3(c.data, c.ramBankCount, c.hasRTC, nil), nil
	case MBC5Type:
		return NewMBC5(c.data, c.hasRumble, c.ramBankCount), nil
	}
	return nil, fmt.Errorf("%w: 0x%02X", ErrUnsupportedCartridge, c.cartType)
}

// Title returns the cleaned up cartridge title.
func (c *Cartridge) Title() string { return c.title }

// Type returns the raw cartridge type byte (0x147).
func (c *Cartridge) Type() uint8 { return c.cartType }

// MBC returns the decoded bank controller kind.
func (c *Cartridge) MBC() MBCType { return c.mbcType }

// RAMSize returns the declared external RAM size in bytes.
func (c *Cartridge) RAMSize() int { return int(c.ramBankCount) * ramBankSize }

// ROMBanks returns the number of 16KiB ROM banks in the image.
func (c *Cartridge) ROMBanks() int { return int(c.romBankCount) }

// HasBattery reports whether the external RAM is battery backed.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// Data returns the raw ROM image.
func (c *Cartridge) Data() []byte { return c.data }
