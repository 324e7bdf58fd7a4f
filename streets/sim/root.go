package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dshills/streetsim-go/streets"
	"github.com/dshills/streetsim-go/streets/comm"
	"github.com/dshills/streetsim-go/streets/emit"
	"github.com/dshills/streetsim-go/streets/store"
	"github.com/dshills/streetsim-go/streets/wire"
)

// Root is the coordinator. It owns the full graph and the node→rank
// map, dispatches vehicles to the leaf owning their next node, answers
// edge-length queries, and terminates the run once enough vehicles
// have parked.
//
// The root is single-threaded: messages are processed serially in
// arrival order (FIFO per source, arbitrary across sources).
type Root struct {
	comm  comm.Comm
	graph *streets.OSMGraph
	cfg   Config

	nodeToRank map[streets.OSMID]int
	rng        *rand.Rand
	factory    Factory

	finished   int
	totalSteps uint64
	started    time.Time
}

// NewRoot creates the coordinator over the full graph.
func NewRoot(c comm.Comm, g *streets.OSMGraph, cfg Config) *Root {
	cfg = cfg.withDefaults()
	r := &Root{
		comm:    c,
		graph:   g,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		factory: cfg.Factory,
	}
	if r.factory == nil {
		r.factory = func(rng *rand.Rand) (*streets.Vehicle, error) {
			return streets.RandomVehicle(g, rng, cfg.MinSpeed, cfg.MaxSpeed)
		}
	}
	return r
}

// Run executes the coordinator until the finish threshold is reached
// or the context is cancelled.
func (r *Root) Run(ctx context.Context) error {
	r.started = time.Now()

	if err := r.buildNodeToRank(); err != nil {
		return err
	}
	if err := r.dispatchInitial(ctx); err != nil {
		return err
	}

	threshold := r.cfg.FinishThreshold()
	if threshold > 0 {
		if err := r.eventLoop(ctx, threshold); err != nil {
			return err
		}
	} else {
		// Nothing to wait for; release the leaves immediately.
		r.broadcastTerminate()
	}

	return r.recordSummary(ctx, threshold)
}

// buildNodeToRank assigns every node of the full graph to the leaf
// rank owning its partition. Coverage is asserted: a node without an
// owner would strand every vehicle routed through it, so a mismatch
// aborts the run.
func (r *Root) buildNodeToRank() error {
	size := r.comm.Size()
	partitions := size - 1
	if partitions < 1 {
		return &streets.SimError{
			Code:    "WORLD_TOO_SMALL",
			Message: fmt.Sprintf("distributed mode needs at least 2 ranks, have %d", size),
		}
	}

	r.nodeToRank = make(map[streets.OSMID]int, r.graph.NodeCount())
	for rank := 1; rank < size; rank++ {
		part, err := r.graph.Partition(partitions, rank-1)
		if err != nil {
			return err
		}
		for _, id := range part.NodeIDs() {
			r.nodeToRank[id] = rank
		}
	}

	if len(r.nodeToRank) != r.graph.NodeCount() {
		return &streets.SimError{
			Code: "PARTITION_INCOMPLETE",
			Message: fmt.Sprintf("node to rank mapping is incomplete: %d != %d",
				len(r.nodeToRank), r.graph.NodeCount()),
		}
	}

	log.Debug().Int("nodes", len(r.nodeToRank)).Int("leaves", partitions).
		Msg("[0] Built node to rank mapping")
	return nil
}

// dispatchInitial generates and routes the initial population. A
// vehicle whose next node has no owner is dropped with a warning and
// does not count; generation retries until NumVehicles have shipped.
func (r *Root) dispatchInitial(ctx context.Context) error {
	sent := 0
	for sent < r.cfg.NumVehicles {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, err := r.factory(r.rng)
		if err != nil {
			log.Warn().Err(err).Msg("[0] Failed to build vehicle")
			continue
		}
		if err := r.dispatch(v); err != nil {
			continue
		}
		sent++
	}
	log.Debug().Int("vehicles", sent).Msg("[0] Sent vehicles to ranks")
	return nil
}

// dispatch routes one vehicle to the leaf owning its next node.
func (r *Root) dispatch(v *streets.Vehicle) error {
	rank, ok := r.nodeToRank[v.NextID]
	if !ok {
		log.Warn().Str("vehicle", v.ID).Int64("node", v.NextID).
			Msg("[0] No rank found for node, dropping vehicle")
		r.cfg.Metrics.VehicleDropped()
		return streets.ErrNoRank
	}

	if err := r.comm.Send(wire.EncodeVehicle(v), rank, wire.TagRootLeafVehicle); err != nil {
		return err
	}
	r.cfg.Metrics.VehicleDispatched()
	r.cfg.Emitter.Emit(emit.Event{
		Rank:      RootRank,
		VehicleID: v.ID,
		Tag:       wire.TagRootLeafVehicle,
		Msg:       "vehicle_dispatched",
		Meta:      map[string]interface{}{"dest": rank},
	})
	return nil
}

// eventLoop serves leaf messages until threshold finishes arrive.
func (r *Root) eventLoop(ctx context.Context, threshold int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, status, err := r.comm.Recv(comm.AnySource, comm.AnyTag)
		if err != nil {
			return err
		}

		switch status.Tag {
		case wire.TagLeafRootVehicle:
			r.handleHandback(payload, status)

		case wire.TagEdgeLengthRequest:
			r.handleEdgeLengthRequest(payload, status)

		case wire.TagLeafRootVehicleFinish:
			r.handleFinish(ctx, payload, status)
			if r.finished >= threshold {
				log.Info().Int("finished", r.finished).
					Msg("[0] Finish threshold reached, terminating")
				r.broadcastTerminate()
				return nil
			}

		default:
			log.Error().Int("tag", status.Tag).Int("source", status.Source).
				Msg("[0] Received message with unknown tag")
		}
	}
}

func (r *Root) handleHandback(payload []byte, status comm.Status) {
	v, err := wire.DecodeVehicle(payload)
	if err != nil {
		log.Error().Err(err).Int("source", status.Source).
			Msg("[0] Failed to decode handed-back vehicle")
		r.cfg.Metrics.VehicleDropped()
		return
	}

	r.cfg.Metrics.VehicleRerouted()
	log.Debug().Str("vehicle", v.ID).Int("source", status.Source).
		Msg("[0] Received vehicle for re-routing")

	// Dropped vehicles are already logged and counted inside dispatch.
	_ = r.dispatch(v)
}

func (r *Root) handleEdgeLengthRequest(payload []byte, status comm.Status) {
	req, err := wire.DecodeEdgeLengthRequest(payload)
	if err != nil {
		log.Error().Err(err).Int("source", status.Source).
			Msg("[0] Failed to decode edge length request")
		return
	}

	length := r.graph.PathLength(req.From, req.To)
	if err := r.comm.Send(wire.EncodeFloat64(length), status.Source, wire.TagEdgeLengthResponse); err != nil {
		log.Error().Err(err).Int("dest", status.Source).
			Msg("[0] Failed to send edge length response")
	}
}

func (r *Root) handleFinish(ctx context.Context, payload []byte, status comm.Status) {
	v, err := wire.DecodeVehicle(payload)
	if err != nil {
		log.Error().Err(err).Int("source", status.Source).
			Msg("[0] Failed to decode finished vehicle")
		r.cfg.Metrics.VehicleDropped()
		return
	}

	r.finished++
	r.totalSteps += v.Steps
	r.cfg.Metrics.VehicleFinished(v.Steps)
	r.cfg.Emitter.Emit(emit.Event{
		Rank:      RootRank,
		VehicleID: v.ID,
		Tag:       wire.TagLeafRootVehicleFinish,
		Msg:       "vehicle_finished",
		Meta:      map[string]interface{}{"source": status.Source, "steps": v.Steps},
	})

	if r.cfg.Store != nil {
		rec := store.FinishRecord{
			VehicleID:  v.ID,
			Steps:      v.Steps,
			Rank:       status.Source,
			FinishedAt: time.Now(),
		}
		if err := r.cfg.Store.RecordFinish(ctx, r.cfg.RunID, rec); err != nil {
			log.Warn().Err(err).Msg("[0] Failed to record finish")
		}
	}
}

// broadcastTerminate tells every leaf to shut down.
func (r *Root) broadcastTerminate() {
	for rank := 1; rank < r.comm.Size(); rank++ {
		if err := r.comm.Send([]byte{1}, rank, wire.TagRootLeafTerminate); err != nil {
			log.Error().Err(err).Int("dest", rank).
				Msg("[0] Failed to send termination notification")
		}
	}
	r.cfg.Emitter.Emit(emit.Event{
		Rank: RootRank,
		Tag:  wire.TagRootLeafTerminate,
		Msg:  "terminate_broadcast",
		Meta: map[string]interface{}{"leaves": r.comm.Size() - 1},
	})
}

func (r *Root) recordSummary(ctx context.Context, threshold int) error {
	if r.cfg.Store == nil {
		return nil
	}
	return r.cfg.Store.RecordSummary(ctx, r.cfg.RunID, store.Summary{
		Vehicles:   r.cfg.NumVehicles,
		Threshold:  threshold,
		Finished:   r.finished,
		TotalSteps: r.totalSteps,
		Elapsed:    time.Since(r.started),
	})
}
