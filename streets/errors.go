// Package streets implements the partitioned street network and the
// vehicle agents that traverse it.
package streets

import "errors"

// ErrEmptyInput is returned when an operation requires a non-empty
// sequence, such as building a bounding rectangle over zero vertices.
var ErrEmptyInput = errors.New("input sequence is empty")

// ErrNoRank is returned when a vehicle's next node has no owning rank.
// The dispatcher drops the vehicle and retries with a fresh one.
var ErrNoRank = errors.New("no rank owns node")

// ErrMissingEdge names the condition of an expected outgoing edge
// being absent from the local partition. Vehicle stepping does not
// return it; a missing edge marks the vehicle for handoff instead.
var ErrMissingEdge = errors.New("edge not in graph")

// ErrNoPath is returned by the vehicle factory when no route exists
// between the chosen origin and destination.
var ErrNoPath = errors.New("no path between vertices")

// SimError is a structured error carrying a machine-readable code.
//
// Codes in use:
//   - PARTITION_INCOMPLETE: node→rank coverage mismatch at startup.
//   - WORLD_TOO_SMALL: distributed mode with fewer than two ranks.
//   - VEHICLE_OVERFLOW: vehicle count above the configured bound.
type SimError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *SimError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *SimError) Unwrap() error {
	return e.Cause
}
