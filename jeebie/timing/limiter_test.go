package timing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		want  any
	}{
		{"adaptive", 1, &AdaptiveLimiter{}},
		{"", 1, &AdaptiveLimiter{}},
		{"ticker", 2, &TickerLimiter{}},
		{"none", 1, noOpLimiter{}},
		{"ticker", 0, noOpLimiter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.name, tt.speed)
			require.NoError(t, err)
			assert.IsType(t, tt.want, l)
			if tl, ok := l.(*TickerLimiter); ok {
				tl.Stop()
			}
		})
	}

	_, err := New("vsync", 1)
	assert.Error(t, err)
}

func TestFrameDuration(t *testing.T) {
	assert.InDelta(t, 59.7275, TargetFPS(), 0.001)
	assert.InDelta(t, float64(16742*time.Microsecond), float64(FrameDuration()), float64(10*time.Microsecond))
}

func TestAdaptiveLimiter(t *testing.T) {
	t.Run("behind schedule resyncs", func(t *testing.T) {
		clock := time.Unix(100, 0)
		a := NewAdaptiveLimiter(10 * time.Millisecond)
		a.now = func() time.Time { return clock }
		a.next = clock.Add(-time.Second)

		require.NoError(t, a.Wait(context.Background()))
		assert.Equal(t, clock.Add(10*time.Millisecond), a.next)
	})

	t.Run("cancellation", func(t *testing.T) {
		a := NewAdaptiveLimiter(time.Hour)
		a.next = time.Now().Add(time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, a.Wait(ctx), context.Canceled)
	})

	t.Run("paces frames", func(t *testing.T) {
		a := NewAdaptiveLimiter(5 * time.Millisecond)
		a.Reset()
		start := time.Now()
		for range 4 {
			require.NoError(t, a.Wait(context.Background()))
		}
		assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	})
}

func TestTickerLimiterCancel(t *testing.T) {
	l := NewTickerLimiter(time.Hour)
	defer l.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestNoOpLimiter(t *testing.T) {
	l := NewNoOpLimiter()
	assert.NoError(t, l.Wait(context.Background()))
	l.Reset()
}
