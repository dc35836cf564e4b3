package memory

import (
	"fmt"
	"time"

	"github.com/valerio/jeebie/jeebie/snapshot"
)

// BankController maps the cartridge windows (0x0000-0x7FFF ROM and
// 0xA000-0xBFFF external RAM) onto the ROM image and the cartridge RAM.
// Accesses outside those windows are programming errors and panic with a
// *BankAddressError.
type BankController interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	// LoadInternalMemory replaces the cartridge RAM, e.g. from a battery save.
	LoadInternalMemory(data []byte)
	// InternalMemory returns the cartridge RAM backing slice.
	InternalMemory() []byte

	State() snapshot.Bank
	SetState(state snapshot.Bank)
}

// BankAddressError is raised when a bank controller is handed an address
// that does not belong to the cartridge.
type BankAddressError struct {
	Controller string
	Address    uint16
	Write      bool
}

func (e *BankAddressError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	return fmt.Sprintf("%s: %s at out of range address 0x%04X", e.Controller, op, e.Address)
}

func checkBankAddress(controller string, addr uint16, write bool) {
	if addr <= 0x7FFF || (addr >= 0xA000 && addr <= 0xBFFF) {
		return
	}
	panic(&BankAddressError{Controller: controller, Address: addr, Write: write})
}

// readROM reads from a 16KiB bank, wrapping banks past the end of the image.
func readROM(rom []uint8, bank int, addr uint16) uint8 {
	return rom[(bank*romBankSize+int(addr&0x3FFF))%len(rom)]
}

func ramIndex(ram []uint8, bank int, addr uint16) int {
	return (bank*ramBankSize + int(addr-0xA000)) % len(ram)
}

func copyRAM(ram []uint8) []byte {
	if len(ram) == 0 {
		return nil
	}
	out := make([]byte, len(ram))
	copy(out, ram)
	return out
}

// NoMBC represents cartridges with no memory banking capabilities.
// The ROM is directly mapped to 0x0000-0x7FFF. Types 0x08/0x09 add a single
// always-enabled 8KiB RAM bank.
type NoMBC struct {
	rom []uint8
	ram []uint8
}

// NewNoMBC creates a new NoMBC controller
func NewNoMBC(romData []uint8, hasRAM bool) *NoMBC {
	m := &NoMBC{rom: romData}
	if hasRAM {
		m.ram = make([]uint8, ramBankSize)
	}
	return m
}

func (m *NoMBC) Read(addr uint16) uint8 {
	checkBankAddress("NoMBC", addr, false)
	if addr <= 0x7FFF {
		return m.rom[int(addr)%len(m.rom)]
	}
	if len(m.ram) == 0 {
		return 0xFF
	}
	return m.ram[ramIndex(m.ram, 0, addr)]
}

func (m *NoMBC) Write(addr uint16, value uint8) {
	checkBankAddress("NoMBC", addr, true)
	if addr >= 0xA000 && len(m.ram) > 0 {
		m.ram[ramIndex(m.ram, 0, addr)] = value
	}
}

func (m *NoMBC) LoadInternalMemory(data []byte) { copy(m.ram, data) }
func (m *NoMBC) InternalMemory() []byte         { return m.ram }

func (m *NoMBC) State() snapshot.Bank {
	return snapshot.Bank{RAM: copyRAM(m.ram)}
}

func (m *NoMBC) SetState(state snapshot.Bank) {
	copy(m.ram, state.RAM)
}

// MBC1 is the first and most common MBC chip. Features include:
//   - up to 2MB ROM (125 usable 16KiB banks) and 32KiB RAM (4 8KiB banks)
//   - a 5-bit bank register (BANK1) and a 2-bit register (BANK2)
//   - mode 0: BANK2 extends the switchable ROM bank only
//   - mode 1: BANK2 also selects the RAM bank and the bank seen at 0x0000-0x3FFF
type MBC1 struct {
	rom        []uint8
	ram        []uint8
	bank1      uint8
	bank2      uint8
	mode       uint8
	ramEnabled bool
	hasBattery bool
}

// NewMBC1 creates a new MBC1 controller
func NewMBC1(romData []uint8, hasBattery bool, ramBankCount uint8) *MBC1 {
	return &MBC1{
		rom:        romData,
		ram:        make([]uint8, int(ramBankCount)*ramBankSize),
		bank1:      1,
		hasBattery: hasBattery,
	}
}

func (m *MBC1) Read(addr uint16) uint8 {
	checkBankAddress("MBC1", addr, false)
	switch {
	case addr <= 0x3FFF:
		bank := 0
		if m.mode == 1 {
			bank = int(m.bank2) << 5
		}
		return readROM(m.rom, bank, addr)
	case addr <= 0x7FFF:
		return readROM(m.rom, int(m.bank2)<<5|int(m.bank1), addr)
	default:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[ramIndex(m.ram, m.ramBank(), addr)]
	}
}

func (m *MBC1) ramBank() int {
	if m.mode == 1 {
		return int(m.bank2)
	}
	return 0
}

func (m *MBC1) Write(addr uint16, value uint8) {
	checkBankAddress("MBC1", addr, true)
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr <= 0x3FFF:
		m.bank1 = value & 0x1F
		if m.bank1 == 0 {
			m.bank1 = 1
		}
	case addr <= 0x5FFF:
		m.bank2 = value & 0x03
	case addr <= 0x7FFF:
		m.mode = value & 0x01
	default:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		m.ram[ramIndex(m.ram, m.ramBank(), addr)] = value
	}
}

func (m *MBC1) LoadInternalMemory(data []byte) { copy(m.ram, data) }
func (m *MBC1) InternalMemory() []byte         { return m.ram }

func (m *MBC1) State() snapshot.Bank {
	return snapshot.Bank{
		ROMBank:    uint16(m.bank1),
		RAMBank:    m.bank2,
		Mode:       m.mode,
		RAMEnabled: m.ramEnabled,
		RAM:        copyRAM(m.ram),
	}
}

func (m *MBC1) SetState(state snapshot.Bank) {
	m.bank1 = uint8(state.ROMBank)
	m.bank2 = state.RAMBank
	m.mode = state.Mode
	m.ramEnabled = state.RAMEnabled
	copy(m.ram, state.RAM)
}

// mbc2RAMSize is the size of the MBC2 built-in 512x4 bit RAM.
const mbc2RAMSize = 512

// MBC2 is a simpler MBC chip with built-in RAM:
//   - up to 256KiB ROM (16 banks)
//   - 512 half-bytes of RAM, mirrored across 0xA000-0xBFFF
//   - bit 8 of the address selects the register written in 0x0000-0x3FFF:
//     clear for RAM enable, set for the ROM bank number
type MBC2 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint8
	ramEnabled bool
}

// NewMBC2 creates a new MBC2 controller
func NewMBC2(romData []uint8) *MBC2 {
	return &MBC2{
		rom:     romData,
		ram:     make([]uint8, mbc2RAMSize),
		romBank: 1,
	}
}

func (m *MBC2) Read(addr uint16) uint8 {
	checkBankAddress("MBC2", addr, false)
	switch {
	case addr <= 0x3FFF:
		return readROM(m.rom, 0, addr)
	case addr <= 0x7FFF:
		return readROM(m.rom, int(m.romBank), addr)
	default:
		if !m.ramEnabled {
			return 0xFF
		}
		// only the low nibble exists, the upper one reads as set
		return m.ram[addr&0x1FF] | 0xF0
	}
}

func (m *MBC2) Write(addr uint16, value uint8) {
	checkBankAddress("MBC2", addr, true)
	switch {
	case addr <= 0x3FFF:
		if addr&0x0100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
			return
		}
		m.romBank = value & 0x0F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr <= 0x7FFF:
		// no registers here
	default:
		if m.ramEnabled {
			m.ram[addr&0x1FF] = value & 0x0F
		}
	}
}

func (m *MBC2) LoadInternalMemory(data []byte) {
	for i := 0; i < len(data) && i < len(m.ram); i++ {
		m.ram[i] = data[i] & 0x0F
	}
}

func (m *MBC2) InternalMemory() []byte { return m.ram }

func (m *MBC2) State() snapshot.Bank {
	return snapshot.Bank{
		ROMBank:    uint16(m.romBank),
		RAMEnabled: m.ramEnabled,
		RAM:        copyRAM(m.ram),
	}
}

func (m *MBC2) SetState(state snapshot.Bank) {
	m.romBank = uint8(state.ROMBank)
	m.ramEnabled = state.RAMEnabled
	m.LoadInternalMemory(state.RAM)
}

// Clock is the time source of the MBC3 real time clock.
type Clock interface {
	Now() time.Time
}

type systemClockFunc func() time.Time

func (s systemClockFunc) Now() time.Time {
	return s()
}

// rtc register indices, selected with RAM bank values 0x08-0x0C
const (
	rtcSeconds = iota
	rtcMinutes
	rtcHours
	rtcDaysLow
	rtcDaysHigh
)

const (
	rtcHaltFlag  = 0x40
	rtcCarryFlag = 0x80
)

// MBC3 is an MBC1-like chip with a 7-bit ROM bank register and an optional
// real time clock. RAM bank values 0x08-0x0C map the clock registers into
// the external RAM window instead of RAM. Writing 0x00 then 0x01 to
// 0x6000-0x7FFF latches the running clock into the readable registers.
type MBC3 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint8
	ramBank    uint8
	ramEnabled bool

	hasRTC     bool
	rtc        [5]uint8
	rtcLatched [5]uint8
	latchArm   uint8
	clock      Clock
	rtcTime    time.Time
}

// NewMBC3 creates a new MBC3 controller, a nil clock uses the system time.
func NewMBC3(romData []uint8, ramBankCount uint8, hasRTC bool, clock Clock) *MBC3 {
	if clock == nil {
		clock = systemClockFunc(time.Now)
	}

	return &MBC3{
		rom:      romData,
		ram:      make([]uint8, int(ramBankCount)*ramBankSize),
		romBank:  1,
		hasRTC:   hasRTC,
		latchArm: 0xFF,
		clock:    clock,
		rtcTime:  clock.Now(),
	}
}

func (m *MBC3) Read(addr uint16) uint8 {
	checkBankAddress("MBC3", addr, false)
	switch {
	case addr <= 0x3FFF:
		return readROM(m.rom, 0, addr)
	case addr <= 0x7FFF:
		return readROM(m.rom, int(m.romBank), addr)
	}

	if !m.ramEnabled {
		return 0xFF
	}
	switch {
	case m.ramBank <= 0x03 && len(m.ram) > 0:
		return m.ram[ramIndex(m.ram, int(m.ramBank), addr)]
	case m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C:
		return m.rtcLatched[m.ramBank-0x08]
	}
	return 0xFF
}

func (m *MBC3) Write(addr uint16, value uint8) {
	checkBankAddress("MBC3", addr, true)
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr <= 0x3FFF:
		m.romBank = value & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr <= 0x5FFF:
		m.ramBank = value
	case addr <= 0x7FFF:
		if m.latchArm == 0x00 && value == 0x01 && m.hasRTC {
			m.updateRTC()
			m.rtcLatched = m.rtc
		}
		m.latchArm = value
	default:
		if !m.ramEnabled {
			return
		}
		switch {
		case m.ramBank <= 0x03 && len(m.ram) > 0:
			m.ram[ramIndex(m.ram, int(m.ramBank), addr)] = value
		case m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C:
			m.updateRTC()
			m.rtc[m.ramBank-0x08] = value
			m.rtcLatched[m.ramBank-0x08] = value
		}
	}
}

// updateRTC advances the running clock registers by the whole seconds
// elapsed since the last update.
func (m *MBC3) updateRTC() {
	now := m.clock.Now()
	elapsed := int64(now.Sub(m.rtcTime) / time.Second)
	if elapsed <= 0 {
		return
	}
	m.rtcTime = m.rtcTime.Add(time.Duration(elapsed) * time.Second)

	if m.rtc[rtcDaysHigh]&rtcHaltFlag != 0 {
		return
	}

	days := int64(m.rtc[rtcDaysLow]) | int64(m.rtc[rtcDaysHigh]&0x01)<<8
	total := int64(m.rtc[rtcSeconds]) +
		int64(m.rtc[rtcMinutes])*60 +
		int64(m.rtc[rtcHours])*3600 +
		days*86400 +
		elapsed

	days = total / 86400
	carry := m.rtc[rtcDaysHigh] & rtcCarryFlag
	if days > 0x1FF {
		carry = rtcCarryFlag
		days &= 0x1FF
	}

	m.rtc[rtcSeconds] = uint8(total % 60)
	m.rtc[rtcMinutes] = uint8(total / 60 % 60)
	m.rtc[rtcHours] = uint8(total / 3600 % 24)
	m.rtc[rtcDaysLow] = uint8(days)
	m.rtc[rtcDaysHigh] = carry | m.rtc[rtcDaysHigh]&rtcHaltFlag | uint8(days>>8)
}

func (m *MBC3) LoadInternalMemory(data []byte) { copy(m.ram, data) }
func (m *MBC3) InternalMemory() []byte         { return m.ram }

func (m *MBC3) State() snapshot.Bank {
	state := snapshot.Bank{
		ROMBank:    uint16(m.romBank),
		RAMBank:    m.ramBank,
		RAMEnabled: m.ramEnabled,
		RAM:        copyRAM(m.ram),
		RTCLatch:   m.latchArm,
	}
	if m.hasRTC {
		state.RTC = append([]byte(nil), m.rtc[:]...)
		state.RTCLatched = append([]byte(nil), m.rtcLatched[:]...)
		state.RTCTime = m.rtcTime.Unix()
	}
	return state
}

func (m *MBC3) SetState(state snapshot.Bank) {
	m.romBank = uint8(state.ROMBank)
	m.ramBank = state.RAMBank
	m.ramEnabled = state.RAMEnabled
	m.latchArm = state.RTCLatch
	copy(m.ram, state.RAM)
	if m.hasRTC {
		copy(m.rtc[:], state.RTC)
		copy(m.rtcLatched[:], state.RTCLatched)
		m.rtcTime = time.Unix(state.RTCTime, 0)
	}
}

// MBC5 is the most regular MBC chip:
//   - a 9-bit ROM bank number, bank 0 is selectable at 0x4000-0x7FFF
//   - up to 16 RAM banks, on rumble carts bit 3 drives the motor instead
type MBC5 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint16
	ramBank    uint8
	ramEnabled bool
	hasRumble  bool
	rumble     bool
}

// NewMBC5 creates a new MBC5 controller
func NewMBC5(romData []uint8, hasRumble bool, ramBankCount uint8) *MBC5 {
	return &MBC5{
		rom:       romData,
		ram:       make([]uint8, int(ramBankCount)*ramBankSize),
		romBank:   1,
		hasRumble: hasRumble,
	}
}

func (m *MBC5) Read(addr uint16) uint8 {
	checkBankAddress("MBC5", addr, false)
	switch {
	case addr <= 0x3FFF:
		return readROM(m.rom, 0, addr)
	case addr <= 0x7FFF:
		return readROM(m.rom, int(m.romBank), addr)
	default:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[ramIndex(m.ram, int(m.ramBank), addr)]
	}
}

func (m *MBC5) Write(addr uint16, value uint8) {
	checkBankAddress("MBC5", addr, true)
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr <= 0x2FFF:
		m.romBank = m.romBank&0x100 | uint16(value)
	case addr <= 0x3FFF:
		m.romBank = m.romBank&0xFF | uint16(value&0x01)<<8
	case addr <= 0x5FFF:
		if m.hasRumble {
			m.rumble = value&0x08 != 0
			value &= 0x07
		}
		m.ramBank = value & 0x0F
	case addr <= 0x7FFF:
		// unused
	default:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		m.ram[ramIndex(m.ram, int(m.ramBank), addr)] = value
	}
}

// Rumble reports whether the rumble motor is currently driven.
func (m *MBC5) Rumble() bool { return m.rumble }

func (m *MBC5) LoadInternalMemory(data []byte) { copy(m.ram, data) }
func (m *MBC5) InternalMemory() []byte         { return m.ram }

func (m *MBC5) State() snapshot.Bank {
	return snapshot.Bank{
		ROMBank:    m.romBank,
		RAMBank:    m.ramBank,
		RAMEnabled: m.ramEnabled,
		RAM:        copyRAM(m.ram),
	}
}

func (m *MBC5) SetState(state snapshot.Bank) {
	m.romBank = state.ROMBank
	m.ramBank = state.RAMBank
	m.ramEnabled = state.RAMEnabled
	copy(m.ram, state.RAM)
}
