// Package emit provides event emission and observability for
// simulation runs.
package emit

import "context"

// Event is one observable occurrence in a simulation: a wire message
// crossing ranks, a vehicle parking, a vehicle being handed back.
type Event struct {
	// Rank is the rank the event was observed on.
	Rank int `json:"rank"`

	// VehicleID identifies the vehicle involved, if any.
	VehicleID string `json:"vehicle_id,omitempty"`

	// Tag is the wire tag involved, or 0 for lifecycle events.
	Tag int `json:"tag,omitempty"`

	// Msg names the event, e.g. "vehicle_dispatched",
	// "vehicle_finished", "terminate_broadcast".
	Msg string `json:"msg"`

	// Meta carries event-specific fields.
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// Emitter receives observability events from a running simulation.
//
// Implementations should be:
//   - Non-blocking: never stall the simulation on a slow backend.
//   - Thread-safe: ranks and workers emit concurrently.
//   - Resilient: a failing backend must not crash the run.
type Emitter interface {
	// Emit sends one event. Emit must not panic; backend errors are
	// handled internally.
	Emit(event Event)

	// EmitBatch sends multiple events in order. Returns an error only
	// on catastrophic failures; individual event failures are logged
	// and skipped.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush delivers any buffered events, blocking until done or the
	// context expires. Safe to call repeatedly.
	Flush(ctx context.Context) error
}
