package events

import (
	"sync"
	"sync/atomic"

	"github.com/valerio/jeebie/jeebie/addr"
	"github.com/valerio/jeebie/jeebie/cpu"
)

// EventType is one of the discrete signals raised by the emulation core.
type EventType int

const (
	FrameCompleted EventType = iota
	BreakpointFound
	InterruptHappened
	StepCompleted

	eventTypes
)

func (t EventType) String() string {
	switch t {
	case FrameCompleted:
		return "frame"
	case BreakpointFound:
		return "breakpoint"
	case InterruptHappened:
		return "interrupt"
	case StepCompleted:
		return "step"
	}
	return "unknown"
}

// Event carries the state of the core at the time a signal was raised.
// Only the fields relevant to Type are set.
type Event struct {
	Type  EventType
	Ticks uint64 // total ticks emulated so far
	Frame uint64
	PC    uint16

	Interrupt  addr.Interrupt
	Breakpoint cpu.Breakpoint
	StepTicks  uint8
}

// Handler is called synchronously on the emulation goroutine.
type Handler func(Event)

type subscriber struct {
	id uint64
	fn Handler
}

// Hub fans core signals out to subscribers. Subscribing and unsubscribing
// is safe from any goroutine, Publish is meant to be called from the
// emulation goroutine only.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   [eventTypes][]subscriber
	counts [eventTypes]atomic.Int32

	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers fn for events of type t. The returned function
// removes the subscription.
func (h *Hub) Subscribe(t EventType, fn Handler) (unsubscribe func()) {
	if t < 0 || t >= eventTypes || fn == nil {
		return func() {}
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[t] = append(h.subs[t], subscriber{id: id, fn: fn})
	h.counts[t].Add(1)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(t, id) })
	}
}

func (h *Hub) remove(t EventType, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[t]
	for i, s := range subs {
		if s.id == id {
			// copy so a Publish iterating the old slice is unaffected
			h.subs[t] = append(subs[:i:i], subs[i+1:]...)
			h.counts[t].Add(-1)
			return
		}
	}
}

// Channel subscribes a buffered channel to the given event types. Events
// are dropped, and counted in Dropped, when the buffer is full so a slow
// reader never stalls emulation. The channel is closed by the returned
// function.
func (h *Hub) Channel(bufferSize int, types ...EventType) (<-chan Event, func()) {
	ch := make(chan Event, bufferSize)
	var mu sync.Mutex
	closed := false

	send := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			h.dropped.Add(1)
		}
	}

	cancels := make([]func(), 0, len(types))
	for _, t := range types {
		cancels = append(cancels, h.Subscribe(t, send))
	}

	return ch, func() {
		for _, cancel := range cancels {
			cancel()
		}
		mu.Lock()
		if !closed {
			closed = true
			close(ch)
		}
		mu.Unlock()
	}
}

// Has reports whether anyone listens to t, letting hot paths skip building
// events nobody reads.
func (h *Hub) Has(t EventType) bool {
	if t < 0 || t >= eventTypes {
		return false
	}
	return h.counts[t].Load() > 0
}

// Publish delivers e to every subscriber of e.Type, in subscription order.
func (h *Hub) Publish(e Event) {
	if !h.Has(e.Type) {
		return
	}

	h.mu.RLock()
	subs := h.subs[e.Type]
	h.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Dropped is the number of events discarded by full channel subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
