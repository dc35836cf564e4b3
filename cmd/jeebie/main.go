package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/valerio/jeebie/jeebie"
	"github.com/valerio/jeebie/jeebie/audio"
	"github.com/valerio/jeebie/jeebie/backend"
	"github.com/valerio/jeebie/jeebie/backend/headless"
	"github.com/valerio/jeebie/jeebie/backend/terminal"
	"github.com/valerio/jeebie/jeebie/config"
	"github.com/valerio/jeebie/jeebie/cpu"
	"github.com/valerio/jeebie/jeebie/debug"
	"github.com/valerio/jeebie/jeebie/diag"
	"github.com/valerio/jeebie/jeebie/disasm"
	"github.com/valerio/jeebie/jeebie/events"
	"github.com/valerio/jeebie/jeebie/input"
	"github.com/valerio/jeebie/jeebie/timing"
	"github.com/valerio/jeebie/jeebie/video"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "Jeebie"
	app.Description = "A simple gameboy emulator"
	app.Usage = "jeebie [options] <ROM file>"
	app.Version = "2.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "Path to the TOML configuration file (default: user config dir)",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without an interface, as fast as possible",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.StringFlag{
			Name:  "wav",
			Usage: "Record the audio output to a WAV file",
		},
		cli.BoolFlag{
			Name:  "wav-per-channel",
			Usage: "Also record every audio channel to its own WAV file",
		},
		cli.StringFlag{
			Name:  "load-state",
			Usage: "Restore a save state before running",
		},
		cli.StringFlag{
			Name:  "save-state",
			Usage: "Save state path, written on exit in headless mode and by F5",
		},
		cli.StringFlag{
			Name:  "trace",
			Usage: "Write every executed instruction with the registers to a file",
		},
		cli.StringFlag{
			Name:  "limiter",
			Usage: "Frame pacing: adaptive, ticker or none",
		},
		cli.Float64Flag{
			Name:  "speed",
			Usage: "Emulation speed multiplier, 0 runs unthrottled",
			Value: -1,
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn or error",
		},
		cli.StringFlag{
			Name:  "diag-csv",
			Usage: "Write per-frame counters to a CSV file",
		},
		cli.StringSliceFlag{
			Name:  "breakpoint",
			Usage: "Add a breakpoint as kind:address, e.g. exec:0x0150 (kinds: exec, read, write, jump)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Show the debug panels on start",
		},
	}
	app.Action = runEmulator
	return app
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
		romPath = c.Args().Get(0)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level, _ := cfg.LogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts := []jeebie.Option{jeebie.WithSampleRate(cfg.Audio.SampleRate)}
	if path := c.String("diag-csv"); path != "" {
		sink, err := diag.CreateCSVSink(path)
		if err != nil {
			return err
		}
		opts = append(opts, jeebie.WithDiagnostics(sink))
	}

	emu, err := jeebie.NewWithFile(romPath, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := emu.Close(); err != nil {
			slog.Error("Failed to close emulator outputs", "error", err)
		}
	}()

	if err := setup(c, emu, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Bool("headless") {
		return runHeadless(ctx, c, emu, romPath)
	}
	return runInteractive(ctx, c, emu, cfg)
}

// loadConfig reads the configuration file and applies the flags on top.
func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return cfg, err
	}

	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String("limiter"); v != "" {
		cfg.Emulation.Limiter = v
	}
	if v := c.Float64("speed"); v >= 0 {
		cfg.Emulation.Speed = v
	}
	if v := c.String("wav"); v != "" {
		cfg.Audio.WavPath = v
	}
	if c.Bool("wav-per-channel") {
		cfg.Audio.WavPerChannel = true
	}
	return cfg, cfg.Validate()
}

// setup applies everything that is not a construction option: palette,
// audio routing, breakpoints, tracing and the initial state.
func setup(c *cli.Context, emu *jeebie.DMG, cfg config.Config) error {
	shades, err := cfg.Shades()
	if err != nil {
		return err
	}
	emu.GPU().SetShades(shades)

	layers, _ := video.ParseLayers(cfg.Video.DebugLayers)
	emu.GPU().DebugLayers().Set(layers)

	if cfg.Audio.Muted {
		for ch := audio.Square1; ch <= audio.Noise; ch++ {
			emu.APU().MuteChannel(ch, true)
		}
	}
	if err := attachWavExporters(emu, cfg.Audio); err != nil {
		return err
	}

	for _, spec := range c.StringSlice("breakpoint") {
		bp, err := parseBreakpoint(spec)
		if err != nil {
			return err
		}
		emu.CPU().AddBreakpoint(bp.Kind, bp.Address)
		slog.Info("Breakpoint added", "breakpoint", bp.String())
	}
	emu.Subscribe(events.BreakpointFound, func(e events.Event) {
		slog.Info("Breakpoint hit", "breakpoint", e.Breakpoint.String(), "frame", e.Frame, "pc", fmt.Sprintf("0x%04X", e.PC))
	})

	if path := c.String("trace"); path != "" {
		if err := attachTrace(emu, path); err != nil {
			return err
		}
	}

	if path := c.String("load-state"); path != "" {
		if err := emu.LoadStateFile(path); err != nil {
			return err
		}
		slog.Info("State loaded", "path", path)
	}
	return nil
}

func attachWavExporters(emu *jeebie.DMG, cfg config.AudioConfig) error {
	if cfg.WavPath == "" {
		return nil
	}
	rate := emu.APU().SampleRate()

	mix, err := audio.CreateWavExporter(cfg.WavPath, rate)
	if err != nil {
		return err
	}
	emu.APU().AttachExporter(mix)
	slog.Info("Recording audio", "path", cfg.WavPath)

	if !cfg.WavPerChannel {
		return nil
	}
	ext := filepath.Ext(cfg.WavPath)
	base := strings.TrimSuffix(cfg.WavPath, ext)
	for ch := audio.Square1; ch <= audio.Noise; ch++ {
		path := fmt.Sprintf("%s_ch%d%s", base, ch, ext)
		e, err := audio.CreateWavExporter(path, rate)
		if err != nil {
			return err
		}
		if err := emu.APU().AttachChannelExporter(ch, e); err != nil {
			return errors.Join(err, e.Close())
		}
	}
	return nil
}

// parseBreakpoint parses kind:address, the kind defaults to exec.
func parseBreakpoint(s string) (cpu.Breakpoint, error) {
	kind, address := cpu.BreakExec, s
	if k, a, found := strings.Cut(s, ":"); found {
		var err error
		if kind, err = cpu.ParseBreakpointKind(k); err != nil {
			return cpu.Breakpoint{}, err
		}
		address = a
	}
	v, err := strconv.ParseUint(address, 0, 16)
	if err != nil {
		return cpu.Breakpoint{}, fmt.Errorf("invalid breakpoint address %q: %w", address, err)
	}
	return cpu.Breakpoint{Kind: kind, Address: uint16(v)}, nil
}

// attachTrace logs the next instruction with the register file after every
// step. The file is flushed when the emulator is closed.
func attachTrace(emu *jeebie.DMG, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	w := bufio.NewWriter(f)

	var traceErr error
	emu.Subscribe(events.StepCompleted, func(events.Event) {
		if traceErr != nil {
			return
		}
		regs := emu.CPU().Registers()
		traceErr = disasm.Trace(w, cpu.Disassemble(emu.MMU(), regs.PC), regs)
	})
	emu.OnClose(func() error {
		return errors.Join(traceErr, w.Flush(), f.Close())
	})
	return nil
}

func runHeadless(ctx context.Context, c *cli.Context, emu *jeebie.DMG, romPath string) error {
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("headless mode requires --frames option with a positive value")
	}

	snapshots, err := headless.CreateSnapshotConfig(c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath)
	if err != nil {
		return err
	}

	h := headless.New(frames, snapshots)
	if err := h.Run(ctx, emu); err != nil {
		return err
	}

	if snapshots.Enabled {
		saveDebugLayers(emu.GPU().DebugLayers(), snapshots.Directory, snapshots.ROMName)
	}
	if path := c.String("save-state"); path != "" {
		if err := emu.SaveStateFile(path); err != nil {
			return err
		}
		slog.Info("State saved", "path", path)
	}
	return nil
}

func saveDebugLayers(layers *video.DebugLayers, dir, romName string) {
	for _, l := range []struct {
		layer video.Layer
		name  string
		fb    *video.FrameBuffer
	}{
		{video.LayerBackground, "bg", layers.Background},
		{video.LayerWindow, "window", layers.Window},
		{video.LayerSprites, "sprites", layers.Sprites},
		{video.LayerTiming, "timing", layers.Timing},
	} {
		if !layers.Enabled(l.layer) {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_layer_%s.png", romName, l.name))
		if err := debug.SaveFramePNG(l.fb, path); err != nil {
			slog.Error("Failed to save debug layer", "layer", l.name, "error", err)
		}
	}
}

func runInteractive(ctx context.Context, c *cli.Context, emu *jeebie.DMG, cfg config.Config) error {
	limiter, err := timing.New(cfg.Emulation.Limiter, cfg.Emulation.Speed)
	if err != nil {
		return err
	}
	bindings, err := cfg.Bindings()
	if err != nil {
		return err
	}

	statePath := c.String("save-state")
	if statePath == "" {
		statePath = stateFileName(emu.Title())
	}

	session := backend.NewSession(emu, terminal.New(nil), backend.SessionConfig{
		Backend: backend.Config{
			Title:     emu.Title(),
			Scale:     cfg.Video.Scale,
			ShowDebug: c.Bool("debug"),
			KeyMap:    input.KeyMap(bindings),
		},
		StatePath:   statePath,
		SnapshotDir: c.String("snapshot-dir"),
	},
		jeebie.WithLimiter(limiter),
		jeebie.WithPauseOnBreakpoint(cfg.Emulation.PauseOnBreakpoint),
	)
	return session.Run(ctx)
}

// stateFileName derives the default save state file from the cartridge
// title.
func stateFileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '_'
		}
		return -1
	}, strings.TrimSpace(title))
	if name == "" {
		name = "jeebie"
	}
	return name + ".state"
}
