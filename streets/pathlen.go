package streets

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
)

// PathLength answers the edge-length oracle query for (from, to).
//
// If the directed edge exists its length is returned directly. If not,
// the length of the shortest path from from to to is computed with A*
// under a nil heuristic — uniform-cost search over the non-negative
// edge lengths. If no path exists, or either endpoint is unknown, the
// result is 0.
func (g *OSMGraph) PathLength(from, to OSMID) float64 {
	if w, ok := g.EdgeLength(from, to); ok {
		return w
	}

	src := g.w.Node(from)
	dst := g.w.Node(to)
	if src == nil || dst == nil {
		return 0
	}

	shortest, _ := path.AStar(src, dst, g.w, nil)
	route, weight := shortest.To(to)
	if len(route) == 0 || math.IsInf(weight, 1) {
		return 0
	}
	return weight
}

// ShortestPath returns the node ids of the shortest route between two
// vertices, origin and destination included. ErrNoPath is returned
// when the destination is unreachable.
func (g *OSMGraph) ShortestPath(from, to OSMID) ([]OSMID, error) {
	src := g.w.Node(from)
	dst := g.w.Node(to)
	if src == nil || dst == nil {
		return nil, ErrNoPath
	}

	shortest, _ := path.AStar(src, dst, g.w, nil)
	route, weight := shortest.To(to)
	if len(route) == 0 || math.IsInf(weight, 1) {
		return nil, ErrNoPath
	}

	ids := make([]OSMID, len(route))
	for i, n := range route {
		ids[i] = n.ID()
	}
	return ids, nil
}
