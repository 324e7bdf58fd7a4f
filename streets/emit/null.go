package emit

import "context"

// NullEmitter discards every event. It is the default when no
// observability backend is configured.
type NullEmitter struct{}

// NewNullEmitter returns an emitter that drops everything.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}

// EmitBatch discards the events.
func (n *NullEmitter) EmitBatch(context.Context, []Event) error {
	return nil
}

// Flush has nothing to deliver.
func (n *NullEmitter) Flush(context.Context) error {
	return nil
}
