package memory

import (
	"errors"
	"fmt"

	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/serial"
	"github.com/valerio/jeebie/jeebie/snapshot"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// dmaTicks is how long an OAM DMA transfer takes: 160 bytes, one per
// machine cycle.
const dmaTicks = addr.OAMSize * 4

// ErrDMAActive is raised when DMA is triggered while a transfer is still
// in flight.
var ErrDMAActive = errors.New("DMA triggered while a transfer is in progress")

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations only receive reads and writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value uint8)
	Read(address uint16) uint8
	Tick(cycles int)
	Reset()
	State() snapshot.Serial
	SetState(state snapshot.Serial)
}

// RegisterHandler is notified after a CPU write lands on one of the I/O
// registers it was mapped to. The value is already stored, handlers use
// LowLevelWrite to adjust what reads back.
type RegisterHandler interface {
	HandleMemoryChange(address uint16, value uint8)
}

type dmaState struct {
	active bool
	source uint16
	ticks  uint16
}

// MMU allows access to all memory mapped I/O and data/registers.
// Everything that is not owned by the cartridge, the timer, the serial
// port or the joypad lives in one flat 64KiB array.
type MMU struct {
	cart      *Cartridge
	mbc       BankController
	memory    [0x10000]uint8
	regionMap [256]memRegion
	handlers  [0x100]RegisterHandler

	dirtyLow, dirtyHigh uint16

	dma        dmaState
	onDMAReady func()

	joypad Joypad
	serial SerialPort
	timer  Timer
}

// New creates a new memory unit with no cartridge loaded. Equivalent to
// turning on a Gameboy with an empty slot.
func New() *MMU {
	mmu, _ := NewWithCartridge(NewCartridge())
	return mmu
}

// NewWithCartridge creates a new memory unit with the cartridge loaded and
// its bank controller attached.
func NewWithCartridge(cart *Cartridge) (*MMU, error) {
	mbc, err := cart.NewBankController()
	if err != nil {
		return nil, err
	}

	mmu := &MMU{
		cart: cart,
		mbc:  mbc,
	}
	mmu.serial = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.timer = newTimer(func() { mmu.RequestInterrupt(addr.TimerInterrupt) })
	initRegionMap(mmu)
	mmu.memory[addr.IF] = 0xE1
	mmu.memory[addr.P1] = mmu.joypad.Register()

	return mmu, nil
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// AttachSerial replaces the device plugged into the link port.
func (m *MMU) AttachSerial(port SerialPort) {
	m.serial = port
}

// MapRegisters routes writes to [start, end] in the I/O page to h.
func (m *MMU) MapRegisters(start, end uint16, h RegisterHandler) {
	for a := start; a <= end; a++ {
		m.handlers[a&0xFF] = h
	}
}

// OnDMAReady registers a callback run once an OAM DMA transfer completes.
func (m *MMU) OnDMAReady(fn func()) {
	m.onDMAReady = fn
}

// Cartridge returns the loaded cartridge.
func (m *MMU) Cartridge() *Cartridge { return m.cart }

// BankController returns the bank controller of the loaded cartridge.
func (m *MMU) BankController() BankController { return m.mbc }

// SetTimerSeed initializes the internal timer divider.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// Tick advances the timer, the serial port and any DMA transfer.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
	if m.dma.active {
		m.tickDMA(cycles)
	}
}

// RequestInterrupt sets the interrupt's bit in IF.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] |= uint8(interrupt) | 0xE0
}

// DirtyRange returns the span touched by the most recent write.
func (m *MMU) DirtyRange() (low, high uint16) {
	return m.dirtyLow, m.dirtyHigh
}

// DMAActive reports whether an OAM DMA transfer is in flight.
func (m *MMU) DMAActive() bool {
	return m.dma.active
}

// LowLevelRead reads the flat memory array, bypassing every handler.
func (m *MMU) LowLevelRead(address uint16) uint8 {
	return m.memory[address]
}

// LowLevelWrite writes the flat memory array, bypassing every handler.
func (m *MMU) LowLevelWrite(address uint16, value uint8) {
	m.memory[address] = value
}

func (m *MMU) Read(address uint16) uint8 {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return m.mbc.Read(address)
	case regionVRAM, regionWRAM, regionEcho:
		return m.memory[address]
	case regionOAM:
		if address > addr.OAMEnd {
			return 0xFF
		}
		return m.memory[address]
	case regionIO:
		return m.readIO(address)
	}
	panic(fmt.Sprintf("Attempted read at unmapped address: 0x%04X", address))
}

func (m *MMU) readIO(address uint16) uint8 {
	switch address {
	case addr.P1:
		return m.joypad.Register()
	case addr.SB, addr.SC:
		return m.serial.Read(address)
	case addr.DIV, addr.TIMA, addr.TMA, addr.TAC:
		return m.timer.Read(address)
	case addr.IF:
		// upper 3 bits are unused and always read as 1
		return m.memory[address] | 0xE0
	}
	return m.memory[address]
}

func (m *MMU) Write(address uint16, value uint8) {
	m.dirtyLow, m.dirtyHigh = address, address

	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		m.mbc.Write(address, value)
	case regionVRAM:
		m.memory[address] = value
	case regionWRAM:
		m.memory[address] = value
		if address+0x2000 <= addr.EchoEnd {
			m.memory[address+0x2000] = value
		}
	case regionEcho:
		m.memory[address] = value
		m.memory[address-0x2000] = value
	case regionOAM:
		if address <= addr.OAMEnd {
			m.memory[address] = value
		}
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%04X", address))
	}
}

func (m *MMU) writeIO(address uint16, value uint8) {
	switch address {
	case addr.P1:
		m.joypad.Select(value)
		m.memory[address] = m.joypad.Register()
		return
	case addr.SB, addr.SC:
		m.serial.Write(address, value)
		return
	case addr.DIV, addr.TIMA, addr.TMA, addr.TAC:
		m.timer.Write(address, value)
		return
	case addr.IF:
		m.memory[address] = value | 0xE0
		return
	case addr.DMA:
		m.startDMA(value)
		return
	}

	m.memory[address] = value
	if h := m.handlers[address&0xFF]; h != nil {
		h.HandleMemoryChange(address, value)
	}
}

func (m *MMU) startDMA(value uint8) {
	if m.dma.active {
		panic(ErrDMAActive)
	}
	m.memory[addr.DMA] = value
	m.dma = dmaState{
		active: true,
		source: uint16(value) << 8,
	}
}

func (m *MMU) tickDMA(cycles int) {
	m.dma.ticks += uint16(cycles)
	if m.dma.ticks < dmaTicks {
		return
	}

	for i := range uint16(addr.OAMSize) {
		m.memory[addr.OAMStart+i] = m.Read(m.dma.source + i)
	}
	m.dirtyLow, m.dirtyHigh = addr.OAMStart, addr.OAMEnd
	m.dma = dmaState{}

	if m.onDMAReady != nil {
		m.onDMAReady()
	}
}

// Press marks buttons as held, raising the joypad interrupt for any button
// that was not held before.
func (m *MMU) Press(b Button) {
	if m.joypad.Press(b) {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}
	m.memory[addr.P1] = m.joypad.Register()
}

// Release marks buttons as released.
func (m *MMU) Release(b Button) {
	m.joypad.Release(b)
	m.memory[addr.P1] = m.joypad.Register()
}

// Buttons returns the buttons currently held.
func (m *MMU) Buttons() Button {
	return m.joypad.Held()
}

func (m *MMU) State() *snapshot.Memory {
	state := &snapshot.Memory{
		Data:      make([]byte, len(m.memory)),
		DirtyLow:  m.dirtyLow,
		DirtyHigh: m.dirtyHigh,
		DMAActive: m.dma.active,
		DMASource: m.dma.source,
		DMATicks:  m.dma.ticks,
		Buttons:   uint8(m.joypad.held),
		Timer:     m.timer.State(),
		Serial:    m.serial.State(),
		Bank:      m.mbc.State(),
	}
	copy(state.Data, m.memory[:])
	return state
}

func (m *MMU) SetState(state *snapshot.Memory) error {
	if len(state.Data) != len(m.memory) {
		return fmt.Errorf("memory snapshot has %d bytes, want %d", len(state.Data), len(m.memory))
	}
	copy(m.memory[:], state.Data)
	m.dirtyLow, m.dirtyHigh = state.DirtyLow, state.DirtyHigh
	m.dma = dmaState{
		active: state.DMAActive,
		source: state.DMASource,
		ticks:  state.DMATicks,
	}
	m.joypad.held = Button(state.Buttons)
	m.joypad.Select(m.memory[addr.P1])
	m.timer.SetState(state.Timer)
	m.serial.SetState(state.Serial)
	m.mbc.SetState(state.Bank)
	return nil
}
