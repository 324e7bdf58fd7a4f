// Package sim runs the partitioned simulation: the root coordinator,
// the leaf workers and the non-distributed driver.
package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/aidarkhanov/nanoid"

	"github.com/dshills/streetsim-go/streets"
	"github.com/dshills/streetsim-go/streets/emit"
	"github.com/dshills/streetsim-go/streets/store"
)

// RootRank is the coordinator's rank. Every other rank is a leaf.
const RootRank = 0

// MaxNumVehicles bounds the vehicle population to keep counter
// arithmetic comfortably clear of overflow.
const MaxNumVehicles = math.MaxInt / 2

// Parallelism selects how a leaf processes vehicles.
type Parallelism string

const (
	// ParallelismSingleThreaded drives each vehicle inline on the
	// leaf's event loop.
	ParallelismSingleThreaded Parallelism = "single-threaded"

	// ParallelismMultiThreaded drives vehicles concurrently, using
	// the configured thread runtime.
	ParallelismMultiThreaded Parallelism = "multi-threaded"
)

// ThreadRuntime selects the concurrency strategy for multi-threaded
// vehicle processing.
type ThreadRuntime string

const (
	// RuntimeOSThreads spawns one goroutine per received vehicle.
	RuntimeOSThreads ThreadRuntime = "os-threads"

	// RuntimeCooperativeTasks feeds received vehicles through a
	// bounded frontier queue into a fixed worker pool.
	RuntimeCooperativeTasks ThreadRuntime = "cooperative-tasks"
)

// Factory produces one vehicle for dispatch. The default factory draws
// random shortest-path routes over the root graph.
type Factory func(rng *rand.Rand) (*streets.Vehicle, error)

// Config carries the knobs shared by the distributed and the
// non-distributed runs. The zero value is completed by withDefaults.
type Config struct {
	// NumVehicles is the population size.
	NumVehicles int

	// ErrorRate lowers the finish threshold to tolerate lost
	// vehicles. Must be in [0, 1].
	ErrorRate float64

	// MinSpeed and MaxSpeed bound the random vehicle velocity in m/s.
	MinSpeed float64
	MaxSpeed float64

	// Parallelism and ThreadRuntime select the leaf's concurrency
	// strategy.
	Parallelism   Parallelism
	ThreadRuntime ThreadRuntime

	// Workers sizes the cooperative-task pool. Default 8.
	Workers int

	// QueueDepth caps the cooperative frontier queue. Default 1024.
	QueueDepth int

	// Seed feeds the run's random source. A zero seed keeps runs
	// deterministic with seed 0; pass a varied seed for varied runs.
	Seed int64

	// RunID labels stored results. Generated when empty.
	RunID string

	// Factory overrides vehicle generation. Nil uses random
	// shortest-path vehicles over the root graph.
	Factory Factory

	// Metrics is optional; nil records nothing.
	Metrics *streets.Metrics

	// Emitter is optional; nil discards events.
	Emitter emit.Emitter

	// Store is optional; nil persists nothing.
	Store store.Store
}

// FinishThreshold is the number of finish notifications after which
// the run terminates: ceil(NumVehicles · (1 − ErrorRate)).
func (c Config) FinishThreshold() int {
	return int(math.Ceil(float64(c.NumVehicles) * (1 - c.ErrorRate)))
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.NumVehicles < 0 || c.NumVehicles >= MaxNumVehicles {
		return &streets.SimError{
			Code:    "VEHICLE_OVERFLOW",
			Message: fmt.Sprintf("number of vehicles must be in [0, %d), got %d", MaxNumVehicles, c.NumVehicles),
		}
	}
	if c.ErrorRate < 0 || c.ErrorRate > 1 {
		return fmt.Errorf("error rate must be in [0, 1], got %g", c.ErrorRate)
	}
	if c.MinSpeed > c.MaxSpeed {
		return fmt.Errorf("min speed %g above max speed %g", c.MinSpeed, c.MaxSpeed)
	}
	return nil
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Parallelism == "" {
		c.Parallelism = ParallelismSingleThreaded
	}
	if c.ThreadRuntime == "" {
		c.ThreadRuntime = RuntimeOSThreads
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = 1024
	}
	if c.MinSpeed == 0 && c.MaxSpeed == 0 {
		c.MinSpeed = 8.5
		c.MaxSpeed = 13.8
	}
	if c.RunID == "" {
		id, err := nanoid.New()
		if err == nil {
			c.RunID = id
		} else {
			c.RunID = "run"
		}
	}
	if c.Emitter == nil {
		c.Emitter = emit.NewNullEmitter()
	}
	return c
}
