package streets

import "fmt"

// Partition slices the graph into n disjoint child graphs along the
// x-axis and returns child i. The bounding rectangle of the
// coordinate-bearing vertices is cut into n equal-width vertical
// bands; band j receives every directed edge whose endpoints both fall
// inside it, together with those endpoints. Edges straddling two bands
// belong to no child; the root's node→rank map carries them implicitly
// for cross-partition handoff.
//
// Vertices captured by no band — isolated vertices, straddle-only
// endpoints, boundary-epsilon casualties, nodes without coordinates —
// are appended to child zero as isolated nodes, so the children always
// cover the node set of g. Coverage is guaranteed; an even workload is
// not.
func (g *OSMGraph) Partition(n, i int) (*OSMGraph, error) {
	if n < 1 {
		return nil, fmt.Errorf("partition count must be at least 1, got %d", n)
	}
	if i < 0 || i >= n {
		return nil, fmt.Errorf("partition index %d out of range [0,%d)", i, n)
	}

	children, err := g.partitionAll(n)
	if err != nil {
		return nil, err
	}
	return children[i], nil
}

// partitionAll builds every band child and absorbs orphans into child
// zero. The full family is needed even when the caller wants a single
// child: orphans are defined against the union of all bands.
func (g *OSMGraph) partitionAll(n int) ([]*OSMGraph, error) {
	bounds, err := NewRect(g.Vertices())
	if err != nil {
		return nil, err
	}

	xDelta := (bounds.TopRight.X - bounds.BottomLeft.X) / float64(n)

	children := make([]*OSMGraph, n)
	owned := make(map[OSMID]bool, len(g.order))
	for j := 0; j < n; j++ {
		band := Rect{
			BottomLeft: Point{X: bounds.BottomLeft.X + xDelta*float64(j), Y: bounds.BottomLeft.Y},
			TopRight:   Point{X: bounds.BottomLeft.X + xDelta*float64(j+1), Y: bounds.TopRight.Y},
		}
		children[j] = g.bandChild(band)
		for _, id := range children[j].NodeIDs() {
			owned[id] = true
		}
	}

	// Whatever no band claimed lands in child zero.
	for _, id := range g.order {
		if !owned[id] {
			children[0].addNode(id)
			if v, ok := g.vertices[id]; ok {
				children[0].vertices[id] = v
			}
		}
	}

	return children, nil
}

// bandChild extracts the subgraph spanned by the band's interior
// edges: directed edges whose endpoints both fall inside the band.
// Vertices enter a child only as endpoints of such an edge — an
// isolated vertex, or one whose edges all straddle band boundaries,
// is claimed by no band and flows to partition zero via the orphan
// rule.
func (g *OSMGraph) bandChild(band Rect) *OSMGraph {
	child := newEmptyGraph()

	inside := make(map[OSMID]bool)
	for _, id := range g.order {
		if v, ok := g.vertices[id]; ok && band.Contains(v) {
			inside[id] = true
		}
	}

	for _, id := range g.order {
		if !inside[id] {
			continue
		}
		to := g.w.From(id)
		for to.Next() {
			target := to.Node().ID()
			if !inside[target] {
				continue
			}
			w, ok := g.EdgeLength(id, target)
			if !ok {
				continue
			}
			child.addVertex(g.vertices[id])
			child.addVertex(g.vertices[target])
			child.addEdge(id, target, w)
		}
	}

	return child
}
