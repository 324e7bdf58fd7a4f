package sim

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/streetsim-go/streets"
	"github.com/dshills/streetsim-go/streets/emit"
	"github.com/dshills/streetsim-go/streets/store"
	"github.com/dshills/streetsim-go/streets/wire"
)

// lineData builds n collinear vertices ids 1..n at x = 0..n-1 with a
// directed chain of edges of the given length.
func lineData(n int, length float64) streets.GraphData {
	var data streets.GraphData
	for i := 1; i <= n; i++ {
		data.Vertices = append(data.Vertices, streets.Vertex{
			X: float64(i - 1), OSMID: streets.OSMID(i),
		})
	}
	for i := 1; i < n; i++ {
		data.Edges = append(data.Edges, streets.Edge{
			From: streets.OSMID(i), To: streets.OSMID(i + 1), Length: length,
		})
	}
	return data
}

func mustGraph(t *testing.T, data streets.GraphData) *streets.OSMGraph {
	t.Helper()
	g, err := streets.NewOSMGraph(data)
	require.NoError(t, err)
	return g
}

// sequenceFactory hands out the given vehicles one per call, freshly
// copied so runs cannot alias each other's state.
func sequenceFactory(vehicles ...*streets.Vehicle) Factory {
	i := 0
	return func(*rand.Rand) (*streets.Vehicle, error) {
		v := *vehicles[i%len(vehicles)]
		v.PathIDs = append([]streets.OSMID(nil), vehicles[i%len(vehicles)].PathIDs...)
		i++
		return &v, nil
	}
}

func runLocalWithTimeout(t *testing.T, g *streets.OSMGraph, cfg Config, ranks int) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return RunLocal(ctx, g, cfg, ranks)
}

func TestRunLocalCrossPartitionHandoff(t *testing.T) {
	g := mustGraph(t, lineData(4, 50))

	events := emit.NewBufferedEmitter(nil)
	results := store.NewMemStore()
	cfg := Config{
		NumVehicles: 1,
		RunID:       "handoff",
		Emitter:     events,
		Store:       results,
		Factory: sequenceFactory(&streets.Vehicle{
			ID: "crossing01", PathIDs: []streets.OSMID{1, 2, 3, 4},
			Speed: 10, PrevID: 1, NextID: 2,
		}),
	}

	require.NoError(t, runLocalWithTimeout(t, g, cfg, 3))

	dispatched := events.EventsByMsg("vehicle_dispatched")
	require.Len(t, dispatched, 2, "initial dispatch plus one re-dispatch")
	assert.Equal(t, 1, dispatched[0].Meta["dest"])
	assert.Equal(t, 2, dispatched[1].Meta["dest"])

	handbacks := events.EventsByMsg("vehicle_handback")
	require.Len(t, handbacks, 1)
	assert.Equal(t, 1, handbacks[0].Rank)
	assert.Equal(t, wire.TagLeafRootVehicle, handbacks[0].Tag)

	finishes := events.EventsByMsg("vehicle_finish_sent")
	require.Len(t, finishes, 1)
	assert.Equal(t, 2, finishes[0].Rank, "the vehicle must finish on the second leaf")

	recs, err := results.Finishes(context.Background(), "handoff")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "crossing01", recs[0].VehicleID)
	assert.Equal(t, uint64(2), recs[0].Steps)
}

func TestRunLocalTerminationThreshold(t *testing.T) {
	g := mustGraph(t, lineData(2, 100))

	events := emit.NewBufferedEmitter(nil)
	results := store.NewMemStore()
	cfg := Config{
		NumVehicles: 10,
		ErrorRate:   0.2,
		RunID:       "threshold",
		Emitter:     events,
		Store:       results,
		Factory: sequenceFactory(&streets.Vehicle{
			ID: "commuter01", PathIDs: []streets.OSMID{1, 2},
			Speed: 10, PrevID: 1, NextID: 2,
		}),
	}

	require.NoError(t, runLocalWithTimeout(t, g, cfg, 2))

	assert.Len(t, events.EventsByMsg("terminate_broadcast"), 1,
		"terminate must broadcast exactly once")
	assert.Len(t, events.EventsByMsg("vehicle_finished"), 8,
		"root stops counting at the threshold")

	summary, err := results.LoadSummary(context.Background(), "threshold")
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Vehicles)
	assert.Equal(t, 8, summary.Threshold)
	assert.Equal(t, 8, summary.Finished)
}

func TestRunLocalZeroVehicles(t *testing.T) {
	g := mustGraph(t, lineData(3, 10))

	events := emit.NewBufferedEmitter(nil)
	cfg := Config{NumVehicles: 0, RunID: "empty", Emitter: events}

	require.NoError(t, runLocalWithTimeout(t, g, cfg, 3))
	assert.Len(t, events.EventsByMsg("terminate_broadcast"), 1)
	assert.Empty(t, events.EventsByMsg("vehicle_dispatched"))
}

func TestRunLocalDropsUnroutableVehicles(t *testing.T) {
	g := mustGraph(t, lineData(2, 40))

	events := emit.NewBufferedEmitter(nil)
	results := store.NewMemStore()
	cfg := Config{
		NumVehicles: 1,
		RunID:       "unroutable",
		Emitter:     events,
		Store:       results,
		Factory: sequenceFactory(
			// Routed to a node no rank owns: dropped, factory retried.
			&streets.Vehicle{
				ID: "lost000001", PathIDs: []streets.OSMID{998, 999},
				Speed: 10, PrevID: 998, NextID: 999,
			},
			&streets.Vehicle{
				ID: "found00001", PathIDs: []streets.OSMID{1, 2},
				Speed: 10, PrevID: 1, NextID: 2,
			},
		),
	}

	require.NoError(t, runLocalWithTimeout(t, g, cfg, 2))

	dispatched := events.EventsByMsg("vehicle_dispatched")
	require.Len(t, dispatched, 1)
	assert.Equal(t, "found00001", dispatched[0].VehicleID)

	recs, err := results.Finishes(context.Background(), "unroutable")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "found00001", recs[0].VehicleID)
}

func TestRunLocalTerminalVehicleStillCounts(t *testing.T) {
	g := mustGraph(t, lineData(2, 40))

	events := emit.NewBufferedEmitter(nil)
	cfg := Config{
		NumVehicles: 1,
		RunID:       "terminal",
		Emitter:     events,
		// prev == next: the leaf must emit a finish notification
		// instead of silently swallowing the vehicle.
		Factory: sequenceFactory(&streets.Vehicle{
			ID: "idler00001", PathIDs: []streets.OSMID{1, 2},
			Speed: 10, PrevID: 2, NextID: 2,
		}),
	}

	require.NoError(t, runLocalWithTimeout(t, g, cfg, 2))
	assert.Len(t, events.EventsByMsg("vehicle_finish_sent"), 1)
	assert.Len(t, events.EventsByMsg("vehicle_finished"), 1)
}

func TestRunLocalMultiThreadedStrategies(t *testing.T) {
	for _, rt := range []ThreadRuntime{RuntimeOSThreads, RuntimeCooperativeTasks} {
		rt := rt
		t.Run(string(rt), func(t *testing.T) {
			g := mustGraph(t, lineData(6, 30))

			results := store.NewMemStore()
			cfg := Config{
				NumVehicles:   6,
				RunID:         "mt-" + string(rt),
				Parallelism:   ParallelismMultiThreaded,
				ThreadRuntime: rt,
				Workers:       4,
				Store:         results,
				Factory: sequenceFactory(&streets.Vehicle{
					ID: "parallel01", PathIDs: []streets.OSMID{1, 2, 3, 4, 5, 6},
					Speed: 15, PrevID: 1, NextID: 2,
				}),
			}

			require.NoError(t, runLocalWithTimeout(t, g, cfg, 3))

			summary, err := results.LoadSummary(context.Background(), cfg.RunID)
			require.NoError(t, err)
			assert.Equal(t, 6, summary.Finished)
		})
	}
}

func TestRunLocalRejectsSmallWorld(t *testing.T) {
	g := mustGraph(t, lineData(2, 10))
	err := RunLocal(context.Background(), g, Config{NumVehicles: 1}, 1)
	require.Error(t, err)

	var simErr *streets.SimError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, "WORLD_TOO_SMALL", simErr.Code)
}
