package input

import (
	"sync"
	"time"

	"github.com/valerio/jeebie/jeebie/input/action"
	"github.com/valerio/jeebie/jeebie/input/event"
	"github.com/valerio/jeebie/jeebie/memory"
)

const (
	// debounceDuration is the minimum time between two presses of the same
	// emulator action
	debounceDuration = 300 * time.Millisecond
)

// ButtonSink receives joypad presses, typically the emulator.
type ButtonSink interface {
	Press(b memory.Button)
	Release(b memory.Button)
}

// Manager routes actions: Game Boy controls go straight to the joypad,
// everything else to the registered callbacks, with presses debounced.
type Manager struct {
	mu            sync.Mutex
	handlers      map[action.Action]map[event.Type][]func()
	lastTriggered map[action.Action]time.Time
	buttons       ButtonSink
	now           func() time.Time
}

func NewManager(buttons ButtonSink) *Manager {
	return &Manager{
		handlers:      make(map[action.Action]map[event.Type][]func()),
		lastTriggered: make(map[action.Action]time.Time),
		buttons:       buttons,
		now:           time.Now,
	}
}

// On registers a callback for a specific action and event type
func (m *Manager) On(act action.Action, evt event.Type, callback func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handlers[act] == nil {
		m.handlers[act] = make(map[event.Type][]func())
	}
	m.handlers[act][evt] = append(m.handlers[act][evt], callback)
}

// Trigger handles the given action and event type. It reports whether the
// event was delivered, false when debounced or unhandled.
func (m *Manager) Trigger(act action.Action, evt event.Type) bool {
	if b, ok := act.Button(); ok && m.buttons != nil {
		switch evt {
		case event.Press:
			m.buttons.Press(b)
		case event.Release:
			m.buttons.Release(b)
		default:
			return false
		}
		return true
	}

	m.mu.Lock()
	if evt == event.Press {
		now := m.now()
		if last, seen := m.lastTriggered[act]; seen && now.Sub(last) < debounceDuration {
			m.mu.Unlock()
			return false
		}
		m.lastTriggered[act] = now
	}
	callbacks := m.handlers[act][evt]
	m.mu.Unlock()

	for _, callback := range callbacks {
		callback()
	}
	return len(callbacks) > 0
}
