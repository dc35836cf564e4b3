package timing

import (
	"context"
	"fmt"
	"time"

	"github.com/valerio/jeebie/jeebie/audio"
)

// Limiter paces emulation to the hardware frame rate.
type Limiter interface {
	// Wait blocks until the next frame is due, returning early with the
	// context error on cancellation. It returns immediately when running
	// behind schedule.
	Wait(ctx context.Context) error

	// Reset restarts the schedule, used after a pause.
	Reset()
}

// Limiter names accepted by New.
const (
	Adaptive = "adaptive"
	Ticker   = "ticker"
	None     = "none"
)

// CyclesPerFrame is the length of a full frame, VBlank included.
const CyclesPerFrame = 70224

// New returns the limiter called name running at speed times the hardware
// frame rate. A speed of 0 or less disables pacing.
func New(name string, speed float64) (Limiter, error) {
	if speed <= 0 {
		return NewNoOpLimiter(), nil
	}
	d := time.Duration(float64(FrameDuration()) / speed)

	switch name {
	case Adaptive, "":
		return NewAdaptiveLimiter(d), nil
	case Ticker:
		return NewTickerLimiter(d), nil
	case None:
		return NewNoOpLimiter(), nil
	}
	return nil, fmt.Errorf("unknown frame limiter %q", name)
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return noOpLimiter{}
}

type noOpLimiter struct{}

func (noOpLimiter) Wait(ctx context.Context) error { return ctx.Err() }
func (noOpLimiter) Reset()                         {}

// TargetFPS is the exact DMG frame rate, about 59.73Hz.
func TargetFPS() float64 {
	return float64(audio.CPUFrequency) / float64(CyclesPerFrame)
}

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}
