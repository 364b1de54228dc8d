package events

import (
	"sync"
	"sync/atomic"

	"kaiadefi/core/types"
)

// Event represents a structured ledger state change.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. websocket clients,
// indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(ev Event) {
	if f != nil {
		f(ev)
	}
}

// Buffer collects events raised while an operation is in flight. The ledger
// flushes it only once the operation's writes are committed, so rejected
// operations never surface events.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(ev Event) {
	if b == nil || ev == nil {
		return
	}
	b.events = append(b.events, ev)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Flush forwards the buffered events to dst and resets the buffer.
func (b *Buffer) Flush(dst Emitter) {
	if b == nil {
		return
	}
	if dst != nil {
		for _, ev := range b.events {
			dst.Emit(ev)
		}
	}
	b.events = nil
}

// Reset drops all buffered events.
func (b *Buffer) Reset() {
	if b != nil {
		b.events = nil
	}
}

// Bus fans events out to attached sinks and channel subscribers. Slow channel
// subscribers drop events instead of blocking the ledger.
type Bus struct {
	mu      sync.RWMutex
	sinks   []Emitter
	subs    map[uint64]chan Event
	nextID  uint64
	dropped atomic.Uint64
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan Event)}
}

// Attach registers a synchronous sink such as the indexer.
func (b *Bus) Attach(sink Emitter) {
	if b == nil || sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Subscribe returns a channel receiving every subsequent event and a cancel
// function that closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Emit implements the Emitter interface.
func (b *Bus) Emit(ev Event) {
	if b == nil || ev == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sink := range b.sinks {
		sink.Emit(ev)
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was
// full.
func (b *Bus) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}
