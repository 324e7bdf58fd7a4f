package streets

import (
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/graph/simple"
)

// OSMGraph is a directed street network keyed on OSM vertex ids. The
// adjacency lives in a gonum weighted digraph whose node ids are the
// OSM ids themselves; vertex coordinates are kept alongside for the
// spatial partitioner.
//
// Nodes remain present even when isolated: a vertex listed in the
// input (or assigned to a partition) is a node of the graph whether or
// not any edge touches it. An edge exists only if both endpoints are
// nodes. Duplicate directed edges (u,v) fold to one; the last length
// seen wins. Edge lengths are non-negative and finite; offending input
// edges are dropped with a warning.
type OSMGraph struct {
	w        *simple.WeightedDirectedGraph
	vertices map[OSMID]Vertex
	order    []OSMID
}

func newEmptyGraph() *OSMGraph {
	return &OSMGraph{
		w:        simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		vertices: make(map[OSMID]Vertex),
	}
}

// NewOSMGraph builds the root graph from an exported vertex and edge
// list. Every listed vertex becomes a node; edge endpoints missing
// from the vertex list are added as nodes without coordinates and are
// later absorbed by partition zero (they can fall in no band).
func NewOSMGraph(data GraphData) (*OSMGraph, error) {
	g := newEmptyGraph()

	for _, v := range data.Vertices {
		g.addVertex(v)
	}
	for _, e := range data.Edges {
		g.addEdge(e.From, e.To, e.Length)
	}

	return g, nil
}

// addVertex registers a vertex with coordinates. Re-registering an id
// keeps the first coordinates seen.
func (g *OSMGraph) addVertex(v Vertex) {
	if _, seen := g.vertices[v.OSMID]; seen {
		return
	}
	g.vertices[v.OSMID] = v
	g.addNode(v.OSMID)
}

// addNode ensures id is a node of the adjacency, isolated or not.
func (g *OSMGraph) addNode(id OSMID) {
	if g.w.Node(id) == nil {
		g.w.AddNode(simple.Node(id))
		g.order = append(g.order, id)
	}
}

// addEdge folds a directed edge into the adjacency, creating endpoint
// nodes as needed. Self-loops and malformed lengths are dropped.
func (g *OSMGraph) addEdge(from, to OSMID, length float64) {
	if from == to {
		log.Debug().Int64("osm_id", from).Msg("Skipping self-loop edge")
		return
	}
	if length < 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		log.Warn().
			Int64("from", from).
			Int64("to", to).
			Float64("length", length).
			Msg("Skipping edge with malformed length")
		return
	}
	g.addNode(from)
	g.addNode(to)
	g.w.SetWeightedEdge(simple.WeightedEdge{
		F: simple.Node(from),
		T: simple.Node(to),
		W: length,
	})
}

// HasVertex reports whether id is a node of this graph.
func (g *OSMGraph) HasVertex(id OSMID) bool {
	return g.w.Node(id) != nil
}

// VertexByID returns the coordinate-bearing vertex for id, if known.
func (g *OSMGraph) VertexByID(id OSMID) (Vertex, bool) {
	v, ok := g.vertices[id]
	return v, ok
}

// Vertices returns the coordinate-bearing vertices in input order.
func (g *OSMGraph) Vertices() []Vertex {
	out := make([]Vertex, 0, len(g.vertices))
	for _, id := range g.order {
		if v, ok := g.vertices[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

// NodeIDs returns every node id, isolated nodes included, in input
// order. The order is stable for a fixed input, which keeps the
// partitioner deterministic.
func (g *OSMGraph) NodeIDs() []OSMID {
	out := make([]OSMID, len(g.order))
	copy(out, g.order)
	return out
}

// NodeCount returns the number of nodes.
func (g *OSMGraph) NodeCount() int {
	return g.w.Nodes().Len()
}

// EdgeCount returns the number of directed edges.
func (g *OSMGraph) EdgeCount() int {
	return g.w.Edges().Len()
}

// HasEdge reports whether the directed edge (from, to) exists.
func (g *OSMGraph) HasEdge(from, to OSMID) bool {
	return g.w.HasEdgeFromTo(from, to)
}

// EdgeLength returns the length of the directed edge (from, to).
func (g *OSMGraph) EdgeLength(from, to OSMID) (float64, bool) {
	e := g.w.WeightedEdge(from, to)
	if e == nil {
		return 0, false
	}
	return e.Weight(), true
}

// Weighted exposes the underlying adjacency for path searches. The
// graph is immutable after construction; callers must not add nodes or
// edges through the returned handle.
func (g *OSMGraph) Weighted() *simple.WeightedDirectedGraph {
	return g.w
}
