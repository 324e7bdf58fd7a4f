package emit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLogEmitter(t *testing.T) {
	t.Run("text mode", func(t *testing.T) {
		var sb strings.Builder
		e := NewLogEmitter(&sb, false)

		e.Emit(Event{Rank: 1, VehicleID: "abc", Tag: 5, Msg: "vehicle_finish_sent"})

		out := sb.String()
		assert.Contains(t, out, "[vehicle_finish_sent]")
		assert.Contains(t, out, "rank=1")
		assert.Contains(t, out, "vehicle=abc")
		assert.Contains(t, out, "tag=5")
	})

	t.Run("json mode", func(t *testing.T) {
		var sb strings.Builder
		e := NewLogEmitter(&sb, true)

		e.Emit(Event{Rank: 0, Msg: "terminate_broadcast"})

		assert.Contains(t, sb.String(), `"msg":"terminate_broadcast"`)
		assert.True(t, strings.HasSuffix(sb.String(), "\n"))
	})

	t.Run("batch preserves order", func(t *testing.T) {
		var sb strings.Builder
		e := NewLogEmitter(&sb, true)

		err := e.EmitBatch(context.Background(), []Event{
			{Msg: "first"}, {Msg: "second"},
		})
		require.NoError(t, err)

		first := strings.Index(sb.String(), "first")
		second := strings.Index(sb.String(), "second")
		assert.Less(t, first, second)
	})
}

func TestBufferedEmitter(t *testing.T) {
	t.Run("retains events in order", func(t *testing.T) {
		b := NewBufferedEmitter(nil)
		b.Emit(Event{Msg: "a"})
		b.Emit(Event{Msg: "b"})

		events := b.Events()
		require.Len(t, events, 2)
		assert.Equal(t, "a", events[0].Msg)
		assert.Equal(t, "b", events[1].Msg)
	})

	t.Run("filters by message", func(t *testing.T) {
		b := NewBufferedEmitter(nil)
		b.Emit(Event{Msg: "x", Rank: 1})
		b.Emit(Event{Msg: "y"})
		b.Emit(Event{Msg: "x", Rank: 2})

		got := b.EventsByMsg("x")
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Rank)
		assert.Equal(t, 2, got[1].Rank)
	})

	t.Run("flush forwards to inner", func(t *testing.T) {
		inner := NewBufferedEmitter(nil)
		b := NewBufferedEmitter(inner)
		b.Emit(Event{Msg: "m"})

		require.NoError(t, b.Flush(context.Background()))
		assert.Len(t, inner.Events(), 1)
		assert.Empty(t, b.Events())
	})
}

func TestNullEmitter(t *testing.T) {
	n := NewNullEmitter()
	n.Emit(Event{Msg: "ignored"})
	assert.NoError(t, n.EmitBatch(context.Background(), []Event{{Msg: "x"}}))
	assert.NoError(t, n.Flush(context.Background()))
}

func TestOTelEmitter(t *testing.T) {
	t.Run("creates one span per event", func(t *testing.T) {
		recorder := tracetest.NewSpanRecorder()
		provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
		e := NewOTelEmitter(provider.Tracer("streetsim-test"))

		e.Emit(Event{Rank: 2, VehicleID: "v1", Tag: 1, Msg: "vehicle_dispatched"})

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "vehicle_dispatched", spans[0].Name())
	})

	t.Run("batch emits every event", func(t *testing.T) {
		recorder := tracetest.NewSpanRecorder()
		provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
		e := NewOTelEmitter(provider.Tracer("streetsim-test"))

		err := e.EmitBatch(context.Background(), []Event{{Msg: "a"}, {Msg: "b"}})
		require.NoError(t, err)
		assert.Len(t, recorder.Ended(), 2)
	})
}
