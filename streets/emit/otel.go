package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each event into an OpenTelemetry span.
//
// Span name is the event Msg; rank, vehicle id, wire tag and all Meta
// fields become attributes. Spans are ended immediately — events are
// instants, not intervals.
//
// Usage:
//
//	tracer := otel.Tracer("streetsim")
//	emitter := emit.NewOTelEmitter(tracer)
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an emitter over the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records the event as an immediately-ended span.
func (o *OTelEmitter) Emit(event Event) {
	o.emit(context.Background(), event)
}

func (o *OTelEmitter) emit(ctx context.Context, event Event) {
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.Int("sim.rank", event.Rank),
	}
	if event.VehicleID != "" {
		attrs = append(attrs, attribute.String("sim.vehicle_id", event.VehicleID))
	}
	if event.Tag != 0 {
		attrs = append(attrs, attribute.Int("sim.tag", event.Tag))
	}
	for k, v := range event.Meta {
		attrs = append(attrs, attribute.String("sim.meta."+k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)
}

// EmitBatch records each event as a span.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.emit(ctx, e)
	}
	return nil
}

// Flush is a no-op; span export is the provider's concern.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	return ctx.Err()
}
