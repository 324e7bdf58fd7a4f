package streets

import "github.com/rs/zerolog/log"

// lookahead classifies the result of a path lookahead query.
type lookahead int

const (
	// lookNext: the lookahead found the next on-path node inside the
	// local partition.
	lookNext lookahead = iota
	// lookParked: the lookahead hit the end of the path; the vehicle
	// has been parked.
	lookParked
	// lookHandoff: the next on-path node lives in another partition;
	// the vehicle has been marked for handoff.
	lookHandoff
	// lookMissing: the queried node does not appear on the path at
	// all. Malformed state; the caller decides how to degrade.
	lookMissing
)

// Vehicle is a single agent driving a precomputed path across the
// street network. A vehicle is mutated only by the process that
// currently owns it; ownership moves between ranks as wire payloads.
//
// PrevID/NextID name the edge currently being traversed. Delta is the
// residual distance carried from one edge into the next when a step
// overshoots. A parked vehicle is terminal; a vehicle marked for
// deletion has crossed out of the local partition and must be handed
// back to the root for re-routing.
type Vehicle struct {
	ID                string
	PathIDs           []OSMID
	Speed             float64
	Delta             float64
	PrevID            OSMID
	NextID            OSMID
	DistanceRemaining float64
	IsParked          bool
	MarkedForDeletion bool
	Steps             uint64
}

// park transitions the vehicle into its terminal state. Residual
// distances are meaningless once parked and are cleared.
func (v *Vehicle) park() {
	v.IsParked = true
	v.Delta = 0
	v.DistanceRemaining = 0
}

// pathIndex returns the position of id in the path, or -1.
func (v *Vehicle) pathIndex(id OSMID) int {
	for i, p := range v.PathIDs {
		if p == id {
			return i
		}
	}
	return -1
}

// nextNode looks one hop ahead of prev along the precomputed path.
//
// Reaching the last or second-to-last path entry parks the vehicle.
// When the next on-path node is not a node of p, the vehicle is marked
// for handoff and (PrevID, NextID) are advanced to the first edge
// inside the next partition, so the receiving rank resumes without
// recomputation.
func (v *Vehicle) nextNode(prev OSMID, p *OSMGraph) (OSMID, lookahead) {
	last := len(v.PathIDs) - 1
	if prev == v.PathIDs[last] || prev == v.PathIDs[last-1] {
		v.park()
		return 0, lookParked
	}

	idx := v.pathIndex(prev)
	if idx < 0 {
		return 0, lookMissing
	}

	next := v.PathIDs[idx+1]
	if !p.HasVertex(next) {
		v.MarkedForDeletion = true
		v.PrevID = next
		v.NextID = v.PathIDs[idx+2]
		return 0, lookHandoff
	}

	return next, lookNext
}

// Step performs one discrete advance of the vehicle over the local
// partition p. A parked or handoff-marked vehicle is left untouched.
func (v *Vehicle) Step(p *OSMGraph) {
	if v.IsParked || v.MarkedForDeletion {
		return
	}

	// Resync onto the partition when the current edge is not local,
	// which happens on the first step after a cross-partition handoff.
	if !p.HasEdge(v.PrevID, v.NextID) {
		prev := v.PrevID
		v.PrevID = v.NextID
		switch id, state := v.nextNode(v.PrevID, p); state {
		case lookParked, lookHandoff:
			return
		case lookMissing:
			log.Error().
				Str("vehicle", v.ID).
				Int64("prev", prev).
				Int64("next", v.NextID).
				Msg("Vehicle position not on path during resync")
			v.PrevID = prev
		case lookNext:
			v.NextID = id
		}
	}

	length, ok := p.EdgeLength(v.PrevID, v.NextID)
	if !ok {
		v.MarkedForDeletion = true
		return
	}

	// Consume whole speed units of the edge; the remainder carries
	// into the next edge as delta.
	v.DistanceRemaining = length + v.Delta
	for v.DistanceRemaining >= v.Speed && v.DistanceRemaining-v.Speed > 0 {
		v.DistanceRemaining -= v.Speed
	}
	v.Delta = v.DistanceRemaining
	v.DistanceRemaining = 0

	// The edge has been consumed: this counts as a step no matter how
	// the advance below resolves.
	v.Steps++

	switch tmp, state := v.nextNode(v.NextID, p); state {
	case lookHandoff:
		return
	case lookParked:
		return
	case lookMissing:
		log.Error().
			Str("vehicle", v.ID).
			Int64("next", v.NextID).
			Msg("Vehicle path has no continuation, abandoning")
		v.park()
		return
	case lookNext:
		if v.PathIDs[len(v.PathIDs)-1] == v.PrevID {
			v.park()
			return
		}
		v.PrevID = v.NextID
		v.NextID = tmp
	}
}

// Drive steps the vehicle until it parks or leaves the partition.
func (v *Vehicle) Drive(p *OSMGraph) {
	for !v.IsParked && !v.MarkedForDeletion {
		v.Step(p)
	}
}
