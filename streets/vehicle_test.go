package streets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGraph(t *testing.T, data GraphData) *OSMGraph {
	t.Helper()
	g, err := NewOSMGraph(data)
	require.NoError(t, err)
	return g
}

func TestVehicleStep(t *testing.T) {
	t.Run("two node trivial path", func(t *testing.T) {
		g := mustGraph(t, GraphData{
			Vertices: []Vertex{{X: 0, OSMID: 1}, {X: 1, OSMID: 2}},
			Edges:    []Edge{{From: 1, To: 2, Length: 100}},
		})
		v := &Vehicle{
			ID: "t1", PathIDs: []OSMID{1, 2},
			Speed: 10, PrevID: 1, NextID: 2,
		}

		v.Drive(g)

		assert.True(t, v.IsParked)
		assert.Equal(t, uint64(1), v.Steps)
		assert.Equal(t, 0.0, v.Delta)
	})

	t.Run("residual distance carries into the next edge", func(t *testing.T) {
		g := mustGraph(t, lineGraph(4, 25))
		v := &Vehicle{
			ID: "t2", PathIDs: []OSMID{1, 2, 3, 4},
			Speed: 10, PrevID: 1, NextID: 2,
		}

		v.Step(g)

		require.False(t, v.IsParked)
		assert.Equal(t, 5.0, v.Delta, "25 mod 10 carries over")
		assert.Equal(t, OSMID(2), v.PrevID)
		assert.Equal(t, OSMID(3), v.NextID)
		assert.Equal(t, uint64(1), v.Steps)
	})

	t.Run("steps never decrease", func(t *testing.T) {
		g := mustGraph(t, lineGraph(6, 30))
		v := &Vehicle{
			ID: "t3", PathIDs: []OSMID{1, 2, 3, 4, 5, 6},
			Speed: 7, PrevID: 1, NextID: 2,
		}

		prev := uint64(0)
		for i := 0; i < 20; i++ {
			v.Step(g)
			if v.Steps < prev {
				t.Fatalf("steps decreased from %d to %d", prev, v.Steps)
			}
			prev = v.Steps
		}
	})

	t.Run("terminal absorption", func(t *testing.T) {
		g := mustGraph(t, lineGraph(2, 10))
		v := &Vehicle{
			ID: "t4", PathIDs: []OSMID{1, 2},
			Speed: 10, PrevID: 1, NextID: 2,
		}
		v.Drive(g)
		require.True(t, v.IsParked)

		before := *v
		v.Step(g)
		assert.Equal(t, before, *v, "stepping a parked vehicle must not change it")
	})

	t.Run("marks for handoff when next node leaves partition", func(t *testing.T) {
		g := mustGraph(t, lineGraph(4, 50))
		part, err := g.Partition(2, 0)
		require.NoError(t, err)
		require.True(t, part.HasVertex(2))
		require.False(t, part.HasVertex(3))

		v := &Vehicle{
			ID: "t5", PathIDs: []OSMID{1, 2, 3, 4},
			Speed: 10, PrevID: 1, NextID: 2,
		}

		v.Drive(part)

		assert.False(t, v.IsParked)
		assert.True(t, v.MarkedForDeletion)
		assert.Equal(t, OSMID(3), v.PrevID, "handoff pre-advances onto the next partition's first edge")
		assert.Equal(t, OSMID(4), v.NextID)
	})

	t.Run("resyncs onto partition after handoff", func(t *testing.T) {
		g := mustGraph(t, lineGraph(6, 40))
		part, err := g.Partition(2, 1)
		require.NoError(t, err)
		require.True(t, part.HasVertex(4))

		// As handed over: positioned on the straddling edge the
		// receiving partition has never seen.
		v := &Vehicle{
			ID: "t6", PathIDs: []OSMID{1, 2, 3, 4, 5, 6},
			Speed: 10, PrevID: 3, NextID: 4,
		}

		v.Drive(part)

		assert.True(t, v.IsParked)
		assert.GreaterOrEqual(t, v.Steps, uint64(1))
	})

	t.Run("missing edge marks for handoff", func(t *testing.T) {
		g := mustGraph(t, lineGraph(4, 50))
		v := &Vehicle{
			ID: "t7", PathIDs: []OSMID{1, 2, 3, 4},
			Speed: 10, PrevID: 1, NextID: 99,
		}

		v.Step(g)

		assert.True(t, v.MarkedForDeletion)
		assert.False(t, v.IsParked)
		assert.Equal(t, uint64(0), v.Steps)
	})

	t.Run("off-path continuation abandons the vehicle", func(t *testing.T) {
		data := lineGraph(4, 50)
		data.Vertices = append(data.Vertices, Vertex{X: 0.5, Y: 1, OSMID: 5})
		data.Edges = append(data.Edges, Edge{From: 1, To: 5, Length: 20})
		g := mustGraph(t, data)

		v := &Vehicle{
			ID: "t8", PathIDs: []OSMID{1, 2, 3, 4},
			Speed: 10, PrevID: 1, NextID: 5,
		}

		v.Step(g)

		assert.True(t, v.IsParked)
		assert.False(t, v.MarkedForDeletion)
	})
}
