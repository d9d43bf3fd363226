// Package eventbus implements the multi-listener pub/sub hub that
// threads observability through the scheduler: job:start/success/
// failure/timeout/retry events fan out to whatever the dashboard (or
// any other observer) subscribed. It is grounded on
// devclaw/copilot/events.go's EventBus — synchronous fan-out,
// unsubscribe via a returned closure — generalized with a type keyed
// listener table (instead of one global list) plus a wildcard channel,
// and listener panics are recovered instead of only trusted not to occur.
package eventbus

import (
	"sync"

	"github.com/jholhewres/jobweave/pkg/jobweave/job"
)

// Listener receives emitted events. Panics and errors from a listener
// never propagate to the emitter.
type Listener func(event job.ExecutionEvent)

// Unsubscribe removes the listener it was returned for.
type Unsubscribe func()

const wildcard = "*"

type entry struct {
	id       uint64
	listener Listener
}

// Bus is a thread-safe, synchronous pub/sub hub keyed by event type,
// with a wildcard subscription that receives every event.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	byType    map[job.EventType][]entry
	wildcards []entry
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{byType: make(map[job.EventType][]entry)}
}

// On registers listener under eventType. Passing the literal "*"
// registers a wildcard subscription, the same as OnAny.
func (b *Bus) On(eventType job.EventType, listener Listener) Unsubscribe {
	if eventType == wildcard {
		return b.OnAny(listener)
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.byType[eventType] = append(b.byType[eventType], entry{id: id, listener: listener})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byType[eventType] = removeEntry(b.byType[eventType], id)
	}
}

// OnAny registers a wildcard listener that receives every event,
// invoked after the specific-type listeners for that event.
func (b *Bus) OnAny(listener Listener) Unsubscribe {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.wildcards = append(b.wildcards, entry{id: id, listener: listener})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.wildcards = removeEntry(b.wildcards, id)
	}
}

// Emit invokes specific-type listeners first (in registration order),
// then wildcard listeners (in registration order). Listener panics are
// recovered so one bad observer can never break the emitter or its
// neighbors.
func (b *Bus) Emit(event job.ExecutionEvent) {
	b.mu.Lock()
	specific := append([]entry(nil), b.byType[event.Type]...)
	wild := append([]entry(nil), b.wildcards...)
	b.mu.Unlock()

	for _, e := range specific {
		invoke(e.listener, event)
	}
	for _, e := range wild {
		invoke(e.listener, event)
	}
}

func invoke(fn Listener, event job.ExecutionEvent) {
	defer func() {
		_ = recover()
	}()
	fn(event)
}

// RemoveAllListeners clears every subscription, specific and wildcard.
func (b *Bus) RemoveAllListeners() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType = make(map[job.EventType][]entry)
	b.wildcards = nil
}

func removeEntry(entries []entry, id uint64) []entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}
