package emit

import (
	"context"
	"sync"
)

// BufferedEmitter retains every event in memory. Tests use it as the
// wire log to assert on message flow; a run can also flush it into
// another emitter at shutdown.
type BufferedEmitter struct {
	mu     sync.Mutex
	events []Event
	inner  Emitter
}

// NewBufferedEmitter creates a buffering emitter. inner may be nil;
// when set, Flush forwards the buffered events to it.
func NewBufferedEmitter(inner Emitter) *BufferedEmitter {
	return &BufferedEmitter{inner: inner}
}

// Emit appends the event to the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// EmitBatch appends the events in order.
func (b *BufferedEmitter) EmitBatch(ctx context.Context, events []Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	return nil
}

// Events returns a snapshot of the buffered events in emission order.
func (b *BufferedEmitter) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// EventsByMsg returns the buffered events whose Msg equals msg.
func (b *BufferedEmitter) EventsByMsg(msg string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, e := range b.events {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

// Flush forwards the buffer to the inner emitter, if any, and clears
// it.
func (b *BufferedEmitter) Flush(ctx context.Context) error {
	b.mu.Lock()
	events := b.events
	b.events = nil
	inner := b.inner
	b.mu.Unlock()

	if inner == nil || len(events) == 0 {
		return ctx.Err()
	}
	return inner.EmitBatch(ctx, events)
}
