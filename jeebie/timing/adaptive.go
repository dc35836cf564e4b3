package timing

import (
	"context"
	"log/slog"
	"time"
)

const (
	spinThreshold  = 2 * time.Millisecond
	resyncBehind   = 5 * time.Millisecond
	driftThreshold = 10 * time.Millisecond
	driftCheck     = 60
)

// AdaptiveLimiter sleeps for most of the frame and spins for the last
// couple of milliseconds, correcting accumulated drift once a second.
type AdaptiveLimiter struct {
	frame  time.Duration
	next   time.Time
	frames int64
	now    func() time.Time
}

func NewAdaptiveLimiter(frame time.Duration) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		frame: frame,
		next:  time.Now(),
		now:   time.Now,
	}
}

func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	now := a.now()
	remaining := a.next.Sub(now)

	switch {
	case remaining > spinThreshold:
		t := time.NewTimer(remaining - time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		a.spin()
	case remaining > 0:
		a.spin()
	case remaining < -resyncBehind:
		// too far behind to catch up, start over from now
		a.next = now
	}

	a.next = a.next.Add(a.frame)
	a.frames++

	if a.frames%driftCheck == 0 {
		drift := a.now().Sub(a.next)
		if drift.Abs() > driftThreshold {
			a.next = a.next.Add(drift / 10)
			slog.Debug("Frame timing drift correction", "drift_ms", drift.Milliseconds(), "frames", a.frames)
		}
	}
	return ctx.Err()
}

func (a *AdaptiveLimiter) spin() {
	for a.now().Before(a.next) {
	}
}

func (a *AdaptiveLimiter) Reset() {
	a.next = a.now()
	a.frames = 0
}
