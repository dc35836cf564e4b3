package jeebie

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/valerio/jeebie/jeebie/timing"
	"github.com/valerio/jeebie/jeebie/video"
)

// frameBuffers is the number of screen copies in flight between the
// emulation goroutine and the frame handler.
const frameBuffers = 3

// FrameHandler receives a copy of every presented frame. It runs on its own
// goroutine and may hold fb until it returns.
type FrameHandler func(fb *video.FrameBuffer)

// Runner drives a DMG in real time on a background goroutine, pacing frames
// with a timing.Limiter. Everything touching the DMG while the runner is
// active must go through Do.
type Runner struct {
	dmg               *DMG
	limiter           timing.Limiter
	onFrame           FrameHandler
	pauseOnBreakpoint bool

	cmds     chan func(*DMG)
	cmdMu    sync.Mutex
	stopped  bool
	stopping chan struct{}
	frames   chan *video.FrameBuffer
	free     chan *video.FrameBuffer

	mu     sync.Mutex
	paused bool
	wake   chan struct{}

	cancel context.CancelFunc
	group  *errgroup.Group
	done   chan struct{}
}

type RunnerOption func(*Runner)

// WithLimiter sets the frame pacing, the default does not limit.
func WithLimiter(l timing.Limiter) RunnerOption {
	return func(r *Runner) { r.limiter = l }
}

// WithFrameHandler installs the consumer of presented frames.
func WithFrameHandler(fn FrameHandler) RunnerOption {
	return func(r *Runner) { r.onFrame = fn }
}

// WithPauseOnBreakpoint pauses the runner when a breakpoint is hit instead
// of continuing past it.
func WithPauseOnBreakpoint(pause bool) RunnerOption {
	return func(r *Runner) { r.pauseOnBreakpoint = pause }
}

func NewRunner(d *DMG, opts ...RunnerOption) *Runner {
	r := &Runner{
		dmg:     d,
		limiter: timing.NewNoOpLimiter(),
		cmds:     make(chan func(*DMG), 64),
		stopping: make(chan struct{}),
		frames:   make(chan *video.FrameBuffer, frameBuffers),
		free:     make(chan *video.FrameBuffer, frameBuffers),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	for range frameBuffers {
		r.free <- video.NewFrameBuffer(video.FramebufferWidth, video.FramebufferHeight)
	}
	return r
}

// Start launches the emulation goroutine, and the frame handler goroutine
// when one is configured. It must be called once.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	r.group = g

	r.limiter.Reset()
	g.Go(func() error { return r.emulate(gctx) })
	if r.onFrame != nil {
		g.Go(func() error { return r.present(gctx) })
	}

	go func() {
		_ = g.Wait()
		close(r.done)
	}()
}

// Stop cancels emulation and waits for both goroutines. It returns the
// *FatalError that halted emulation, if any.
func (r *Runner) Stop() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	return r.group.Wait()
}

// Done is closed once the runner has stopped, by Stop or a fatal error.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the runner stops on its own or ctx ends.
func (r *Runner) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.group.Wait()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause stops emulation at the next frame boundary. Commands sent with Do
// still run while paused.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.paused {
		r.paused = true
		r.wake = make(chan struct{})
	}
}

func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		r.paused = false
		close(r.wake)
	}
}

// TogglePause flips between paused and running.
func (r *Runner) TogglePause() {
	if r.Paused() {
		r.Resume()
	} else {
		r.Pause()
	}
}

func (r *Runner) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Do queues fn to run on the emulation goroutine between two frames. It
// returns false if the runner has stopped, a queued fn always runs.
func (r *Runner) Do(fn func(*DMG)) bool {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	if r.stopped {
		return false
	}
	select {
	case r.cmds <- fn:
		return true
	case <-r.stopping:
		return false
	}
}

// finish runs on the emulation goroutine as it exits: once stopped is set
// no command can be queued, the ones already queued are run.
func (r *Runner) finish() {
	close(r.stopping)
	r.cmdMu.Lock()
	r.stopped = true
	r.cmdMu.Unlock()
	r.runCommands()
}

func (r *Runner) emulate(ctx context.Context) error {
	defer r.finish()
	for {
		if err := r.waitWhilePaused(ctx); err != nil {
			return nil
		}
		r.runCommands()

		err := r.dmg.RunUntilFrame()
		switch {
		case errors.Is(err, ErrBreakpoint):
			if r.pauseOnBreakpoint {
				r.Pause()
			}
			continue
		case err != nil:
			return err
		}

		r.publish()
		if err := r.limiter.Wait(ctx); err != nil {
			return nil
		}
	}
}

func (r *Runner) waitWhilePaused(ctx context.Context) error {
	for {
		r.mu.Lock()
		paused, wake := r.paused, r.wake
		r.mu.Unlock()
		if !paused {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-r.cmds:
			fn(r.dmg)
		case <-wake:
			r.limiter.Reset()
		}
	}
}

func (r *Runner) runCommands() {
	for {
		select {
		case fn := <-r.cmds:
			fn(r.dmg)
		default:
			return
		}
	}
}

// publish copies the screen into a free buffer, dropping the frame when
// the handler still holds all of them.
func (r *Runner) publish() {
	if r.onFrame == nil {
		return
	}
	select {
	case fb := <-r.free:
		fb.CopyFrom(r.dmg.Screen())
		r.frames <- fb
	default:
	}
}

func (r *Runner) present(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fb := <-r.frames:
			r.onFrame(fb)
			r.free <- fb
		}
	}
}
