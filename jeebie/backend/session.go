package backend

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valerio/jeebie/jeebie"
	"github.com/valerio/jeebie/jeebie/debug"
	"github.com/valerio/jeebie/jeebie/input"
	"github.com/valerio/jeebie/jeebie/input/action"
	"github.com/valerio/jeebie/jeebie/input/event"
	"github.com/valerio/jeebie/jeebie/memory"
	"github.com/valerio/jeebie/jeebie/video"
)

const (
	// refreshRate is how often the backend is updated, independently of the
	// emulation speed.
	refreshRate = time.Second / 60

	// disasmLines is the length of the disassembly captured for backends.
	disasmLines = 9
)

// SessionConfig configures an interactive session.
type SessionConfig struct {
	Backend   Config
	StatePath string // save-state file for the save/load actions
	// SnapshotDir receives PNG snapshots, the working directory when empty
	SnapshotDir string
}

// Session runs a DMG in real time behind a Backend: frames flow from the
// runner to the backend, actions from the backend's input to the runner.
type Session struct {
	dmg     *jeebie.DMG
	runner  *jeebie.Runner
	backend Backend
	input   *input.Manager
	config  SessionConfig

	frameMu sync.Mutex
	frame   *video.FrameBuffer

	debugData    atomic.Pointer[debug.Data]
	debugPending atomic.Bool

	quitOnce sync.Once
	quit     chan struct{}
}

// NewSession prepares a session. runnerOpts are passed to the runner, the
// frame handler is always installed by the session.
func NewSession(d *jeebie.DMG, b Backend, cfg SessionConfig, runnerOpts ...jeebie.RunnerOption) *Session {
	s := &Session{
		dmg:     d,
		backend: b,
		config:  cfg,
		frame:   video.NewFrameBuffer(video.FramebufferWidth, video.FramebufferHeight),
		quit:    make(chan struct{}),
	}
	runnerOpts = append(runnerOpts, jeebie.WithFrameHandler(s.storeFrame))
	s.runner = jeebie.NewRunner(d, runnerOpts...)
	s.input = input.NewManager(runnerButtons{s.runner})
	s.registerActions()
	return s
}

// Input returns the manager backends trigger actions on.
func (s *Session) Input() *input.Manager { return s.input }

// Runner exposes the runner, e.g. to pause before Run.
func (s *Session) Runner() *jeebie.Runner { return s.runner }

// Quit ends Run.
func (s *Session) Quit() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Run drives the backend until it quits, ctx ends or emulation halts. The
// returned error is the one that halted emulation, if any.
func (s *Session) Run(ctx context.Context) error {
	cfg := s.config.Backend
	cfg.Input = s.input
	if cfg.Callbacks.OnQuit == nil {
		cfg.Callbacks.OnQuit = s.Quit
	}
	if err := s.backend.Init(cfg); err != nil {
		return err
	}

	s.runner.Start(ctx)
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	display := video.NewFrameBuffer(video.FramebufferWidth, video.FramebufferHeight)
	var updateErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-s.quit:
			break loop
		case <-s.runner.Done():
			break loop
		case <-ticker.C:
			s.requestDebugData()
			s.frameMu.Lock()
			display.CopyFrom(s.frame)
			s.frameMu.Unlock()
			updateErr = s.backend.Update(display, s.debugData.Load())
			if updateErr != nil {
				break loop
			}
		}
	}

	runErr := s.runner.Stop()
	return errors.Join(updateErr, runErr, s.backend.Cleanup())
}

func (s *Session) storeFrame(fb *video.FrameBuffer) {
	s.frameMu.Lock()
	s.frame.CopyFrom(fb)
	s.frameMu.Unlock()
}

// requestDebugData asks the emulation goroutine for a fresh debug view,
// at most one request in flight.
func (s *Session) requestDebugData() {
	if !s.debugPending.CompareAndSwap(false, true) {
		return
	}
	paused := s.runner.Paused()
	queued := s.runner.Do(func(d *jeebie.DMG) {
		data := d.DebugData(disasmLines)
		if data != nil && paused {
			data.DebuggerState = debug.DebuggerPaused
		}
		s.debugData.Store(data)
		s.debugPending.Store(false)
	})
	if !queued {
		s.debugPending.Store(false)
	}
}

func (s *Session) registerActions() {
	on := func(a action.Action, fn func()) { s.input.On(a, event.Press, fn) }

	on(action.EmulatorQuit, s.Quit)
	on(action.EmulatorPauseToggle, func() {
		s.runner.TogglePause()
		slog.Info("Emulation paused", "paused", s.runner.Paused())
	})
	on(action.EmulatorStepFrame, func() {
		s.runner.Pause()
		s.runner.Do(func(d *jeebie.DMG) {
			if err := d.RunUntilFrame(); err != nil {
				slog.Warn("Frame step stopped", "error", err)
			}
			s.storeFrame(d.Screen())
		})
	})
	on(action.EmulatorStepInstruction, func() {
		s.runner.Pause()
		s.runner.Do(func(d *jeebie.DMG) {
			if _, err := d.Step(); err != nil {
				slog.Warn("Instruction step stopped", "error", err)
			}
		})
	})
	on(action.EmulatorSaveState, func() {
		s.runner.Do(func(d *jeebie.DMG) {
			if err := d.SaveStateFile(s.config.StatePath); err != nil {
				slog.Error("Failed to save state", "path", s.config.StatePath, "error", err)
				return
			}
			slog.Info("State saved", "path", s.config.StatePath)
		})
	})
	on(action.EmulatorLoadState, func() {
		s.runner.Do(func(d *jeebie.DMG) {
			if err := d.LoadStateFile(s.config.StatePath); err != nil {
				slog.Error("Failed to load state", "path", s.config.StatePath, "error", err)
				return
			}
			slog.Info("State loaded", "path", s.config.StatePath)
		})
	})
	on(action.EmulatorSnapshot, s.snapshot)

	for _, a := range []action.Action{
		action.AudioToggleChannel1, action.AudioToggleChannel2,
		action.AudioToggleChannel3, action.AudioToggleChannel4,
	} {
		ch, _ := a.AudioChannel()
		on(a, func() { s.runner.Do(func(d *jeebie.DMG) { d.AudioProvider().ToggleChannel(ch) }) })
	}
	for _, a := range []action.Action{
		action.AudioSoloChannel1, action.AudioSoloChannel2,
		action.AudioSoloChannel3, action.AudioSoloChannel4,
	} {
		ch, _ := a.AudioChannel()
		on(a, func() { s.runner.Do(func(d *jeebie.DMG) { d.AudioProvider().SoloChannel(ch) }) })
	}
	on(action.AudioUnmuteAll, func() { s.runner.Do(func(d *jeebie.DMG) { d.AudioProvider().UnmuteAll() }) })
}

func (s *Session) snapshot() {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	dir := s.config.SnapshotDir
	if dir == "" {
		dir = "."
	}
	path, err := debug.SaveFramePNGToDir(s.frame, "snapshot", dir)
	if err != nil {
		slog.Error("Failed to save snapshot", "error", err)
		return
	}
	slog.Info("Snapshot saved", "path", path)
}

// runnerButtons forwards joypad input to the emulation goroutine.
type runnerButtons struct {
	runner *jeebie.Runner
}

func (b runnerButtons) Press(btn memory.Button) {
	b.runner.Do(func(d *jeebie.DMG) { d.Press(btn) })
}

func (b runnerButtons) Release(btn memory.Button) {
	b.runner.Do(func(d *jeebie.DMG) { d.Release(btn) })
}
