package jeebie

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/audio"
	"github.com/valerio/jeebie/jeebie/cpu"
	"github.com/valerio/jeebie/jeebie/diag"
	"github.com/valerio/jeebie/jeebie/events"
	"github.com/valerio/jeebie/jeebie/memory"
	"github.com/valerio/jeebie/jeebie/timing"
	"github.com/valerio/jeebie/jeebie/video"
)

// timerSeed is the internal divider value left by the boot ROM.
const timerSeed = 0xABCC

// ioDefaults are the register values the DMG boot ROM leaves behind. Audio
// registers are set by the APU's own reset.
var ioDefaults = []struct {
	address uint16
	value   uint8
}{
	{addr.LCDC, 0x91},
	{addr.STAT, 0x85},
	{addr.SCY, 0x00},
	{addr.SCX, 0x00},
	{addr.LYC, 0x00},
	{addr.BGP, 0xFC},
	{addr.OBP0, 0xFF},
	{addr.OBP1, 0xFF},
	{addr.WY, 0x00},
	{addr.WX, 0x00},
	{addr.IE, 0x00},
}

// DMG is the whole console: CPU, memory bus, display controller and APU
// stepped in lockstep on the caller's goroutine.
type DMG struct {
	cpu *cpu.CPU
	mem *memory.MMU
	gpu *video.GPU
	apu *audio.APU

	hub    *events.Hub
	diag   diag.Sink
	logger *slog.Logger

	sampleRate int

	ticks      uint64
	frameTicks int
	vblank     bool // set by the GPU, consumed by the same step
	frameDone  bool // set when a step completed a frame
	stats      diag.Frame

	// resume makes the next step run the instruction a breakpoint stopped
	// in front of.
	resume bool
	fatal  *FatalError

	closers []func() error
}

// Option configures a DMG at construction.
type Option func(*DMG)

// WithSampleRate sets the APU output rate in Hz.
func WithSampleRate(rate int) Option {
	return func(d *DMG) { d.sampleRate = rate }
}

// WithDiagnostics installs a sink receiving per-frame counters.
func WithDiagnostics(s diag.Sink) Option {
	return func(d *DMG) { d.diag = s }
}

// WithLogger replaces slog.Default for the driver.
func WithLogger(l *slog.Logger) Option {
	return func(d *DMG) { d.logger = l }
}

// New returns a DMG with an empty cartridge slot.
func New(opts ...Option) *DMG {
	d, _ := NewWithCartridge(memory.NewCartridge(), opts...)
	return d
}

// NewWithFile loads the ROM at path.
func NewWithFile(path string, opts ...Option) (*DMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ROM: %w", err)
	}
	return NewWithROM(data, opts...)
}

// NewWithROM parses a ROM image and powers the console on.
func NewWithROM(data []byte, opts ...Option) (*DMG, error) {
	cart, err := memory.NewCartridgeWithData(data)
	if err != nil {
		return nil, fmt.Errorf("loading ROM: %w", err)
	}
	return NewWithCartridge(cart, opts...)
}

// NewWithCartridge powers the console on with cart inserted. An unsupported
// banking scheme is reported as an error.
func NewWithCartridge(cart *memory.Cartridge, opts ...Option) (*DMG, error) {
	mem, err := memory.NewWithCartridge(cart)
	if err != nil {
		return nil, fmt.Errorf("loading cartridge %q: %w", cart.Title(), err)
	}

	d := &DMG{
		mem:        mem,
		hub:        events.NewHub(),
		diag:       diag.NoOp{},
		logger:     slog.Default(),
		sampleRate: audio.DefaultSampleRate,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.cpu = cpu.New(mem)
	d.gpu = video.NewGPU(mem)
	d.apu = audio.New(mem, d.sampleRate)

	mem.MapRegisters(addr.LCDC, addr.WX, d.gpu)
	mem.MapRegisters(addr.AudioStart, addr.AudioEnd, d.apu)

	d.gpu.OnFrame(func() { d.vblank = true })
	d.cpu.SetHooks(cpu.Hooks{
		OnInterrupt:  d.interruptHappened,
		OnBreakpoint: d.breakpointFound,
	})

	d.powerOn()

	d.logger.Info("Loaded cartridge",
		"title", cart.Title(),
		"mbc", cart.MBC(),
		"rom_banks", cart.ROMBanks(),
		"ram_bytes", cart.RAMSize())

	return d, nil
}

// powerOn puts every register where the boot ROM leaves it.
func (d *DMG) powerOn() {
	for _, r := range ioDefaults {
		d.mem.LowLevelWrite(r.address, r.value)
	}
	d.mem.SetTimerSeed(timerSeed)
	d.gpu.Reset()
	d.apu.Reset()
}

func (d *DMG) interruptHappened(irq addr.Interrupt) {
	if !d.hub.Has(events.InterruptHappened) {
		return
	}
	d.hub.Publish(d.event(events.InterruptHappened, func(e *events.Event) { e.Interrupt = irq }))
}

func (d *DMG) breakpointFound(bp cpu.Breakpoint) {
	d.hub.Publish(d.event(events.BreakpointFound, func(e *events.Event) { e.Breakpoint = bp }))
}

func (d *DMG) event(t events.EventType, fill func(*events.Event)) events.Event {
	e := events.Event{
		Type:  t,
		Ticks: d.ticks,
		Frame: d.gpu.Frames(),
		PC:    d.cpu.GetPC(),
	}
	if fill != nil {
		fill(&e)
	}
	return e
}

// Step executes one instruction (or interrupt dispatch, or idle period)
// and advances every other component by the same number of ticks. It
// returns the ticks taken, ErrBreakpoint, or a *FatalError once an internal
// invariant is violated; after that every call returns the same error.
func (d *DMG) Step() (ticks int, err error) {
	if d.fatal != nil {
		return 0, d.fatal
	}
	defer d.recoverFatal(&err)
	return d.step()
}

func (d *DMG) step() (int, error) {
	ignore := d.resume
	d.resume = false

	ticks := int(d.cpu.Step(ignore))
	if ticks == 0 {
		if _, hit := d.cpu.LastBreakpoint(); hit {
			d.resume = true
			return 0, ErrBreakpoint
		}
	}

	d.stats.CPUTicks += uint64(ticks)
	if d.mem.DMAActive() {
		d.stats.DMATicks += uint64(ticks)
	}

	d.mem.Tick(ticks)
	d.apu.Tick(ticks)
	d.gpu.Step(ticks)

	d.ticks += uint64(ticks)
	d.frameTicks += ticks

	// with the LCD off no VBlank arrives, keep frames coming at the same rate
	if !d.gpu.Enabled() && d.frameTicks >= timing.CyclesPerFrame {
		d.vblank = true
	}

	if d.vblank {
		d.vblank = false
		d.stats.Samples += d.apu.Render()
		d.finishFrame()
	} else if d.apu.PendingTicks() >= timing.CyclesPerFrame {
		d.stats.Samples += d.apu.Render()
	}

	if d.hub.Has(events.StepCompleted) {
		d.hub.Publish(d.event(events.StepCompleted, func(e *events.Event) { e.StepTicks = uint8(ticks) }))
	}
	return ticks, nil
}

func (d *DMG) finishFrame() {
	d.stats.Frame = d.gpu.Frames()
	d.diag.RecordFrame(d.stats)
	d.stats = diag.Frame{}
	d.frameTicks = 0
	d.frameDone = true
	d.hub.Publish(d.event(events.FrameCompleted, nil))
}

// RunUntilFrame steps until a frame has been completed. It stops early on
// a breakpoint or a fatal error.
func (d *DMG) RunUntilFrame() (err error) {
	if d.fatal != nil {
		return d.fatal
	}
	defer d.recoverFatal(&err)

	d.frameDone = false
	for !d.frameDone {
		if _, err := d.step(); err != nil {
			return err
		}
	}
	d.frameDone = false
	return nil
}

// Subscribe registers fn for one of the core signals, see package events.
// Handlers run synchronously on the goroutine stepping the emulator.
func (d *DMG) Subscribe(t events.EventType, fn events.Handler) (unsubscribe func()) {
	return d.hub.Subscribe(t, fn)
}

// Events exposes the signal hub, e.g. for channel subscriptions.
func (d *DMG) Events() *events.Hub { return d.hub }

// Press marks buttons as held.
func (d *DMG) Press(b memory.Button) { d.mem.Press(b) }

// Release marks buttons as released.
func (d *DMG) Release(b memory.Button) { d.mem.Release(b) }

// Fatal returns the error that halted emulation, if any.
func (d *DMG) Fatal() error {
	if d.fatal == nil {
		return nil
	}
	return d.fatal
}

func (d *DMG) CPU() *cpu.CPU                 { return d.cpu }
func (d *DMG) MMU() *memory.MMU              { return d.mem }
func (d *DMG) GPU() *video.GPU               { return d.gpu }
func (d *DMG) APU() *audio.APU               { return d.apu }
func (d *DMG) Screen() *video.FrameBuffer    { return d.gpu.Screen() }
func (d *DMG) AudioProvider() audio.Provider { return d.apu }
func (d *DMG) Ticks() uint64                 { return d.ticks }
func (d *DMG) Frames() uint64                { return d.gpu.Frames() }

// Title is the cartridge title from the ROM header.
func (d *DMG) Title() string { return d.mem.Cartridge().Title() }

// OnClose registers fn to run when the DMG is closed, e.g. to flush an
// output fed by an event handler.
func (d *DMG) OnClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Close flushes the diagnostics sink, any WAV exporter attached to the APU
// and everything registered with OnClose.
func (d *DMG) Close() error {
	var errs []error
	for _, fn := range d.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, e := range d.apu.Exporters() {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.diag.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
