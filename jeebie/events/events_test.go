package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie/addr"
)

func TestHubSubscribe(t *testing.T) {
	h := NewHub()
	var frames, interrupts []Event

	stopFrames := h.Subscribe(FrameCompleted, func(e Event) { frames = append(frames, e) })
	h.Subscribe(InterruptHappened, func(e Event) { interrupts = append(interrupts, e) })

	assert.True(t, h.Has(FrameCompleted))
	assert.False(t, h.Has(StepCompleted))

	h.Publish(Event{Type: FrameCompleted, Frame: 1})
	h.Publish(Event{Type: InterruptHappened, Interrupt: addr.VBlankInterrupt})
	h.Publish(Event{Type: StepCompleted})

	require.Len(t, frames, 1)
	assert.Equal(t, uint64(1), frames[0].Frame)
	require.Len(t, interrupts, 1)
	assert.Equal(t, addr.VBlankInterrupt, interrupts[0].Interrupt)

	stopFrames()
	stopFrames()
	assert.False(t, h.Has(FrameCompleted))
	h.Publish(Event{Type: FrameCompleted, Frame: 2})
	assert.Len(t, frames, 1)
}

func TestHubOrder(t *testing.T) {
	h := NewHub()
	var order []int
	for i := range 3 {
		h.Subscribe(StepCompleted, func(Event) { order = append(order, i) })
	}
	h.Publish(Event{Type: StepCompleted})
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestHubUnsubscribeDuringPublish(t *testing.T) {
	h := NewHub()
	calls := 0
	var stop func()
	stop = h.Subscribe(FrameCompleted, func(Event) {
		calls++
		stop()
	})
	h.Subscribe(FrameCompleted, func(Event) { calls++ })

	h.Publish(Event{Type: FrameCompleted})
	assert.Equal(t, 2, calls)
	h.Publish(Event{Type: FrameCompleted})
	assert.Equal(t, 3, calls)
}

func TestHubInvalidType(t *testing.T) {
	h := NewHub()
	stop := h.Subscribe(EventType(42), func(Event) { t.Fatal("called") })
	stop()
	assert.False(t, h.Has(EventType(42)))
	h.Publish(Event{Type: EventType(42)})
}

func TestHubChannel(t *testing.T) {
	h := NewHub()
	ch, stop := h.Channel(2, FrameCompleted, BreakpointFound)

	h.Publish(Event{Type: FrameCompleted, Frame: 1})
	h.Publish(Event{Type: BreakpointFound, PC: 0x150})
	h.Publish(Event{Type: FrameCompleted, Frame: 2})

	assert.Equal(t, uint64(1), h.Dropped())
	assert.Equal(t, FrameCompleted, (<-ch).Type)
	assert.Equal(t, uint16(0x150), (<-ch).PC)

	stop()
	stop()
	_, open := <-ch
	assert.False(t, open)

	h.Publish(Event{Type: FrameCompleted})
	assert.Equal(t, uint64(1), h.Dropped())
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{FrameCompleted, "frame"},
		{BreakpointFound, "breakpoint"},
		{InterruptHappened, "interrupt"},
		{StepCompleted, "step"},
		{EventType(9), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.t.String())
		})
	}
}
