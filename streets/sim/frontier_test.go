package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleFrontier(t *testing.T) {
	t.Run("fifo delivery", func(t *testing.T) {
		f := newVehicleFrontier(4, nil)
		ctx := context.Background()

		require.NoError(t, f.enqueue(ctx, []byte{1}))
		require.NoError(t, f.enqueue(ctx, []byte{2}))

		got, err := f.dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, byte(1), got[0])
		got, err = f.dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, byte(2), got[0])
	})

	t.Run("full queue blocks until a worker drains", func(t *testing.T) {
		f := newVehicleFrontier(1, nil)
		ctx := context.Background()

		require.NoError(t, f.enqueue(ctx, []byte{1}))

		unblocked := make(chan struct{})
		go func() {
			_ = f.enqueue(ctx, []byte{2})
			close(unblocked)
		}()

		select {
		case <-unblocked:
			t.Fatal("enqueue should block while the queue is full")
		case <-time.After(20 * time.Millisecond):
		}

		_, err := f.dequeue(ctx)
		require.NoError(t, err)

		select {
		case <-unblocked:
		case <-time.After(time.Second):
			t.Fatal("enqueue did not unblock after a dequeue")
		}
	})

	t.Run("cancelled enqueue returns context error", func(t *testing.T) {
		f := newVehicleFrontier(1, nil)
		require.NoError(t, f.enqueue(context.Background(), []byte{1}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, f.enqueue(ctx, []byte{2}), context.Canceled)
	})

	t.Run("close drains then reports closed", func(t *testing.T) {
		f := newVehicleFrontier(2, nil)
		ctx := context.Background()

		require.NoError(t, f.enqueue(ctx, []byte{9}))
		f.close()

		got, err := f.dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, byte(9), got[0])

		_, err = f.dequeue(ctx)
		assert.ErrorIs(t, err, errFrontierClosed)
	})

	t.Run("tracks peak depth", func(t *testing.T) {
		f := newVehicleFrontier(8, nil)
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, f.enqueue(ctx, []byte{byte(i)}))
		}
		assert.Equal(t, int32(5), f.peakDepth.Load())
		assert.Equal(t, int64(5), f.totalEnqueued.Load())
	})
}
