package sim

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dshills/streetsim-go/streets"
)

// errFrontierClosed signals workers that no more vehicles will arrive.
var errFrontierClosed = errors.New("frontier closed")

// vehicleFrontier is the bounded queue feeding a leaf's cooperative
// worker pool. The leaf's event loop enqueues raw vehicle payloads;
// workers dequeue and drive them. A full queue blocks the event loop,
// which is the backpressure that keeps a flooded leaf from buffering
// unboundedly.
//
// Enqueue and close are called only from the leaf's event loop;
// dequeue is safe for any number of workers.
type vehicleFrontier struct {
	queue   chan []byte
	metrics *streets.Metrics
	depth   atomic.Int32

	totalEnqueued atomic.Int64
	peakDepth     atomic.Int32
}

func newVehicleFrontier(capacity int, metrics *streets.Metrics) *vehicleFrontier {
	return &vehicleFrontier{
		queue:   make(chan []byte, capacity),
		metrics: metrics,
	}
}

// enqueue queues one payload, blocking when the queue is full until a
// worker frees a slot or the context is cancelled.
func (f *vehicleFrontier) enqueue(ctx context.Context, payload []byte) error {
	select {
	case f.queue <- payload:
	case <-ctx.Done():
		return ctx.Err()
	}

	depth := f.depth.Add(1)
	f.totalEnqueued.Add(1)
	for {
		peak := f.peakDepth.Load()
		if depth <= peak || f.peakDepth.CompareAndSwap(peak, depth) {
			break
		}
	}
	f.metrics.SetFrontierDepth(int(depth))
	return nil
}

// dequeue removes the next payload, blocking until one arrives, the
// queue closes, or the context is cancelled.
func (f *vehicleFrontier) dequeue(ctx context.Context) ([]byte, error) {
	select {
	case payload, ok := <-f.queue:
		if !ok {
			return nil, errFrontierClosed
		}
		f.metrics.SetFrontierDepth(int(f.depth.Add(-1)))
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// close stops the queue. Workers drain what is buffered and then see
// errFrontierClosed.
func (f *vehicleFrontier) close() {
	close(f.queue)
}
