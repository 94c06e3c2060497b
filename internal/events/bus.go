// Package events is the typed notification channel between actions and
// whatever renders feedback (CLI, TUI, SSE clients).
package events

import (
	"fmt"
	"sync"
	"time"
)

// Kind identifies the payload carried by an Event.
type Kind string

const (
	KindToast        Kind = "toast"
	KindModal        Kind = "modal"
	KindStateChanged Kind = "state_changed"
	KindRulesRun     Kind = "rules_run"
)

// Level is the severity of a toast.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toast is short user feedback.
type Toast struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Modal asks the front end to open a named dialog.
type Modal struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// StateChange is published after every committed store update.
type StateChange struct {
	LastUpdate time.Time `json:"last_update"`
	Revision   int64     `json:"revision"`
}

// RulesRun reports a rules engine run.
type RulesRun struct {
	Changes int            `json:"changes"`
	ByPass  map[string]int `json:"by_pass,omitempty"`
}

// Event is one bus message. Exactly one payload field is set, matching Kind.
type Event struct {
	ID        int64        `json:"id"`
	Kind      Kind         `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Toast     *Toast       `json:"toast,omitempty"`
	Modal     *Modal       `json:"modal,omitempty"`
	State     *StateChange `json:"state,omitempty"`
	Rules     *RulesRun    `json:"rules,omitempty"`
}

// Bus fans events out to channel subscribers and keeps a ring of the most
// recent ones. Slow subscribers miss events rather than block publishers.
type Bus struct {
	mu      sync.RWMutex
	buffer  int
	nextID  int64
	events  []Event
	nextSub int
	subs    map[int]chan Event
}

// NewBus returns a bus that retains up to buffer recent events.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 200
	}
	return &Bus{
		buffer: buffer,
		subs:   make(map[int]chan Event),
	}
}

// Publish stamps ev with an id (and a timestamp when unset) and delivers it.
func (b *Bus) Publish(ev Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	ev.ID = b.nextID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.events = append(b.events, ev)
	if len(b.events) > b.buffer {
		b.events = b.events[len(b.events)-b.buffer:]
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Toast publishes a formatted toast.
func (b *Bus) Toast(level Level, format string, args ...any) Event {
	return b.Publish(Event{
		Kind:  KindToast,
		Toast: &Toast{Level: level, Message: fmt.Sprintf(format, args...)},
	})
}

// OpenModal publishes a modal request.
func (b *Bus) OpenModal(name string, params map[string]string) Event {
	return b.Publish(Event{
		Kind:  KindModal,
		Modal: &Modal{Name: name, Params: params},
	})
}

// Subscribe returns a channel receiving every event published from now on and
// a function that unsubscribes and closes the channel.
func (b *Bus) Subscribe(size int) (<-chan Event, func()) {
	if size < 1 {
		size = 16
	}
	ch := make(chan Event, size)

	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Recent returns a copy of the retained events, oldest first.
func (b *Bus) Recent() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
