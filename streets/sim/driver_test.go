package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/streetsim-go/streets"
	"github.com/dshills/streetsim-go/streets/emit"
	"github.com/dshills/streetsim-go/streets/store"
)

func TestDrive(t *testing.T) {
	strategies := []struct {
		name        string
		parallelism Parallelism
		runtime     ThreadRuntime
	}{
		{"single-threaded", ParallelismSingleThreaded, RuntimeOSThreads},
		{"multi-threaded os-threads", ParallelismMultiThreaded, RuntimeOSThreads},
		{"multi-threaded cooperative", ParallelismMultiThreaded, RuntimeCooperativeTasks},
	}

	for _, tc := range strategies {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			g := mustGraph(t, lineData(5, 30))

			events := emit.NewBufferedEmitter(nil)
			results := store.NewMemStore()
			cfg := Config{
				NumVehicles:   4,
				RunID:         "drive-" + tc.name,
				Parallelism:   tc.parallelism,
				ThreadRuntime: tc.runtime,
				Workers:       2,
				Emitter:       events,
				Store:         results,
				Factory: sequenceFactory(&streets.Vehicle{
					ID: "localdrive", PathIDs: []streets.OSMID{1, 2, 3, 4, 5},
					Speed: 12, PrevID: 1, NextID: 2,
				}),
			}

			require.NoError(t, Drive(context.Background(), g, cfg))

			assert.Len(t, events.EventsByMsg("vehicle_parked"), 4)

			summary, err := results.LoadSummary(context.Background(), cfg.RunID)
			require.NoError(t, err)
			assert.Equal(t, 4, summary.Vehicles)
			assert.Equal(t, 4, summary.Finished)
			assert.Greater(t, summary.TotalSteps, uint64(0))
		})
	}
}

func TestDriveWithRandomVehicles(t *testing.T) {
	g := mustGraph(t, lineData(8, 20))

	results := store.NewMemStore()
	cfg := Config{
		NumVehicles: 3,
		RunID:       "random",
		Seed:        99,
		Store:       results,
	}

	require.NoError(t, Drive(context.Background(), g, cfg))

	recs, err := results.Finishes(context.Background(), "random")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestDriveValidatesConfig(t *testing.T) {
	g := mustGraph(t, lineData(2, 10))
	err := Drive(context.Background(), g, Config{NumVehicles: -2})
	assert.Error(t, err)
}

func TestDriveZeroVehicles(t *testing.T) {
	g := mustGraph(t, lineData(2, 10))
	results := store.NewMemStore()

	require.NoError(t, Drive(context.Background(), g, Config{RunID: "none", Store: results}))

	summary, err := results.LoadSummary(context.Background(), "none")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Finished)
}
