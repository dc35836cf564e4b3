package audio

import (
	"errors"

	"github.com/valerio/jeebie/jeebie/snapshot"
)

// ErrEventQueueOverflow is raised (as a panic) when a channel records more
// register events than it can hold before they are replayed. It means
// nothing is rendering samples.
var ErrEventQueueOverflow = errors.New("audio event queue overflow")

const eventQueueSize = 4096

type eventKind uint8

const (
	eventEnable eventKind = iota
	eventVolume
	eventThreshold
	eventDuty
	eventMemory
	eventWidth
	eventInit
)

// event is a change to the synthesis side of a channel, delta is the
// number of ticks since the previous event of the same channel.
type event struct {
	delta uint32
	kind  eventKind
	value uint32
}

type eventQueue struct {
	buf   [eventQueueSize]event
	head  int
	count int
}

func (q *eventQueue) push(e event) {
	if q.count == len(q.buf) {
		panic(ErrEventQueueOverflow)
	}
	q.buf[(q.head+q.count)%len(q.buf)] = e
	q.count++
}

func (q *eventQueue) peek() *event {
	if q.count == 0 {
		return nil
	}
	return &q.buf[q.head]
}

func (q *eventQueue) pop() {
	q.head = (q.head + 1) % len(q.buf)
	q.count--
}

func (q *eventQueue) len() int {
	return q.count
}

func (q *eventQueue) clear() {
	q.head, q.count = 0, 0
}

func (q *eventQueue) state() []snapshot.Event {
	out := make([]snapshot.Event, q.count)
	for i := range q.count {
		e := q.buf[(q.head+i)%len(q.buf)]
		out[i] = snapshot.Event{Delta: e.delta, Kind: uint8(e.kind), Value: e.value}
	}
	return out
}

func (q *eventQueue) setState(events []snapshot.Event) error {
	if len(events) > len(q.buf) {
		return ErrEventQueueOverflow
	}
	q.clear()
	for _, e := range events {
		q.push(event{delta: e.Delta, kind: eventKind(e.Kind), value: e.Value})
	}
	return nil
}
