package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameSequencer(t *testing.T) {
	t.Run("one full step clocks once", func(t *testing.T) {
		var f FrameSequencer
		f.Step(cyclesPerStep)
		assert.True(t, f.Clocked())
		assert.Equal(t, uint8(1), f.Value())
	})

	t.Run("small steps clock exactly once per 8192 ticks", func(t *testing.T) {
		var f FrameSequencer
		clocks := 0
		for range cyclesPerStep / 4 {
			f.Step(4)
			if f.Clocked() {
				clocks++
			}
		}
		assert.Equal(t, 1, clocks)
		assert.Equal(t, uint8(1), f.Value())
		f.Step(4)
		assert.False(t, f.Clocked())
	})

	t.Run("value wraps after 8 steps", func(t *testing.T) {
		var f FrameSequencer
		for i := range 8 {
			assert.Equal(t, uint8(i), f.Value())
			f.Step(cyclesPerStep)
		}
		assert.Equal(t, uint8(0), f.Value())
	})

	t.Run("sub clocks", func(t *testing.T) {
		var f FrameSequencer
		var length, sweep, env []uint8
		for range 8 {
			f.Step(cyclesPerStep)
			if f.clocksLength() {
				length = append(length, f.Value())
			}
			if f.clocksSweep() {
				sweep = append(sweep, f.Value())
			}
			if f.clocksEnvelope() {
				env = append(env, f.Value())
			}
		}
		assert.ElementsMatch(t, []uint8{0, 2, 4, 6}, length)
		assert.ElementsMatch(t, []uint8{2, 6}, sweep)
		assert.Equal(t, []uint8{7}, env)
	})
}

func TestEventQueue(t *testing.T) {
	t.Run("overflow panics", func(t *testing.T) {
		q := &eventQueue{}
		assert.PanicsWithValue(t, ErrEventQueueOverflow, func() {
			for range eventQueueSize + 1 {
				q.push(event{})
			}
		})
	})

	t.Run("keeps order across the wrap", func(t *testing.T) {
		q := &eventQueue{}
		for i := range eventQueueSize {
			q.push(event{value: uint32(i)})
		}
		for range eventQueueSize / 2 {
			q.pop()
		}
		for i := range eventQueueSize / 2 {
			q.push(event{value: uint32(eventQueueSize + i)})
		}
		assert.Equal(t, eventQueueSize, q.len())
		for i := range eventQueueSize {
			e := q.peek()
			if !assert.NotNil(t, e) {
				return
			}
			assert.Equal(t, uint32(eventQueueSize/2+i), e.value)
			q.pop()
		}
		assert.Nil(t, q.peek())
	})
}
