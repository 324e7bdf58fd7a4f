package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter writes events to a writer, either as human-readable
// key=value lines or as one JSON object per line.
//
// Text output:
//
//	[vehicle_finished] rank=0 vehicle=3fa9c1d2e4 tag=5
//
// JSON output:
//
//	{"rank":0,"vehicle_id":"3fa9c1d2e4","tag":5,"msg":"vehicle_finished"}
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter. A nil writer defaults to stdout.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes one event. Write failures are swallowed: losing a log
// line must not disturb the run.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(event)
}

func (l *LogEmitter) write(event Event) {
	if l.jsonMode {
		data, err := json.Marshal(event)
		if err != nil {
			return
		}
		_, _ = l.writer.Write(append(data, '\n'))
		return
	}

	line := fmt.Sprintf("[%s] rank=%d", event.Msg, event.Rank)
	if event.VehicleID != "" {
		line += " vehicle=" + event.VehicleID
	}
	if event.Tag != 0 {
		line += fmt.Sprintf(" tag=%d", event.Tag)
	}
	for k, v := range event.Meta {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	_, _ = fmt.Fprintln(l.writer, line)
}

// EmitBatch writes the events in order.
func (l *LogEmitter) EmitBatch(ctx context.Context, events []Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.write(e)
	}
	return nil
}

// Flush is a no-op; the emitter writes through.
func (l *LogEmitter) Flush(ctx context.Context) error {
	return ctx.Err()
}
