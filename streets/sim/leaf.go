package sim

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dshills/streetsim-go/streets"
	"github.com/dshills/streetsim-go/streets/comm"
	"github.com/dshills/streetsim-go/streets/emit"
	"github.com/dshills/streetsim-go/streets/wire"
)

// drainGrace bounds how long a terminating leaf waits for in-flight
// workers before abandoning them.
const drainGrace = 5 * time.Second

// Leaf is a worker rank. It owns one partition and drives every
// vehicle the root routes to it until the vehicle parks or crosses out
// of the partition.
//
// The partition is immutable after construction but is still guarded
// by a mutex: workers take it for the duration of a drive, serializing
// access against any future rebuild path.
//
// Edge-length queries to the root are serialized per leaf. The
// response arrives tag-filtered at a self-receive; with at most one
// outstanding request per leaf, a response can never be consumed by
// the wrong worker.
type Leaf struct {
	comm comm.Comm
	part *streets.OSMGraph
	cfg  Config

	partMu   sync.Mutex
	oracleMu sync.Mutex
}

// NewLeaf creates a worker over its partition.
func NewLeaf(c comm.Comm, part *streets.OSMGraph, cfg Config) *Leaf {
	return &Leaf{comm: c, part: part, cfg: cfg.withDefaults()}
}

// Run serves root messages until a termination notification arrives or
// the transport closes.
func (l *Leaf) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rank := l.comm.Rank()
	var wg sync.WaitGroup

	var frontier *vehicleFrontier
	cooperative := l.cfg.Parallelism == ParallelismMultiThreaded &&
		l.cfg.ThreadRuntime == RuntimeCooperativeTasks
	if cooperative {
		frontier = newVehicleFrontier(l.cfg.QueueDepth, l.cfg.Metrics)
		for i := 0; i < l.cfg.Workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					payload, err := frontier.dequeue(ctx)
					if err != nil {
						return
					}
					l.processVehicle(ctx, payload)
				}
			}()
		}
	}

loop:
	for {
		payload, status, err := l.comm.Recv(comm.AnySource, comm.AnyTag)
		if err != nil {
			break
		}

		switch status.Tag {
		case wire.TagRootLeafVehicle:
			switch {
			case l.cfg.Parallelism == ParallelismSingleThreaded:
				l.processVehicle(ctx, payload)
			case cooperative:
				if err := frontier.enqueue(ctx, payload); err != nil {
					break loop
				}
			default:
				wg.Add(1)
				go func(p []byte) {
					defer wg.Done()
					l.processVehicle(ctx, p)
				}(payload)
			}

		case wire.TagRootLeafTerminate:
			log.Info().Msgf("[%d] Received termination notification", rank)
			l.cfg.Emitter.Emit(emit.Event{
				Rank: rank,
				Tag:  wire.TagRootLeafTerminate,
				Msg:  "terminate_received",
			})
			break loop

		case wire.TagEdgeLengthResponse:
			// A response surfaced on the event loop instead of the
			// worker's tag-filtered receive; forward it to self so
			// the blocked worker can consume it.
			if err := l.comm.Send(payload, rank, wire.TagEdgeLengthResponse); err != nil {
				log.Error().Err(err).Msgf("[%d] Failed to forward edge length response", rank)
			}

		default:
			log.Error().Int("tag", status.Tag).Int("source", status.Source).
				Msgf("[%d] Received message with unknown tag", rank)
		}
	}

	cancel()
	if frontier != nil {
		frontier.close()
	}

	// Workers blocked on an oracle round-trip the root will never
	// answer are abandoned after a grace period.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainGrace):
		log.Warn().Msgf("[%d] Abandoning in-flight workers on shutdown", rank)
	}

	return nil
}

// processVehicle drives one received vehicle to its local conclusion:
// parked (finish notification) or out of the partition (hand-back).
func (l *Leaf) processVehicle(ctx context.Context, payload []byte) {
	rank := l.comm.Rank()

	v, err := wire.DecodeVehicle(payload)
	if err != nil {
		log.Error().Err(err).Msgf("[%d] Failed to decode vehicle", rank)
		l.cfg.Metrics.VehicleDropped()
		return
	}

	// A vehicle that arrives terminal still gets a finish
	// notification, otherwise the root's threshold drifts
	// unreachable.
	if v.IsParked || v.PrevID == v.NextID {
		log.Info().Msgf("[%d] Vehicle %s is done driving", rank, v.ID)
		l.sendFinish(v)
		return
	}

	v.MarkedForDeletion = false

	length, err := l.edgeLength(v.PrevID, v.NextID)
	if err != nil {
		// Transport shut down mid-query; the vehicle is lost to this
		// run and accounted for by the error rate.
		return
	}
	v.Delta += length

	log.Debug().Msgf("[%d] Vehicle %s is driving from %d to %d", rank, v.ID, v.PrevID, v.NextID)

	l.partMu.Lock()
	for !v.IsParked && !v.MarkedForDeletion {
		if ctx.Err() != nil {
			l.partMu.Unlock()
			return
		}
		v.Step(l.part)
	}
	l.partMu.Unlock()

	if v.IsParked {
		log.Info().Msgf("[%d] Vehicle %s is done driving", rank, v.ID)
		l.sendFinish(v)
		return
	}
	l.sendHandback(v)
}

// edgeLength asks the root for the length of (from, to), blocking for
// the tag-filtered response. Round-trips are serialized per leaf.
func (l *Leaf) edgeLength(from, to streets.OSMID) (float64, error) {
	l.oracleMu.Lock()
	defer l.oracleMu.Unlock()

	start := time.Now()
	req := wire.EncodeEdgeLengthRequest(wire.EdgeLengthRequest{From: from, To: to})
	if err := l.comm.Send(req, RootRank, wire.TagEdgeLengthRequest); err != nil {
		return 0, err
	}

	payload, _, err := l.comm.Recv(comm.AnySource, wire.TagEdgeLengthResponse)
	if err != nil {
		return 0, err
	}
	l.cfg.Metrics.ObserveOracleLatency(time.Since(start))

	return wire.DecodeFloat64(payload)
}

func (l *Leaf) sendFinish(v *streets.Vehicle) {
	rank := l.comm.Rank()
	if err := l.comm.Send(wire.EncodeVehicle(v), RootRank, wire.TagLeafRootVehicleFinish); err != nil {
		log.Error().Err(err).Msgf("[%d] Failed to send finish notification", rank)
		return
	}
	l.cfg.Emitter.Emit(emit.Event{
		Rank:      rank,
		VehicleID: v.ID,
		Tag:       wire.TagLeafRootVehicleFinish,
		Msg:       "vehicle_finish_sent",
		Meta:      map[string]interface{}{"steps": v.Steps},
	})
}

func (l *Leaf) sendHandback(v *streets.Vehicle) {
	rank := l.comm.Rank()
	log.Debug().Msgf("[%d] Sending vehicle %s to root", rank, v.ID)
	if err := l.comm.Send(wire.EncodeVehicle(v), RootRank, wire.TagLeafRootVehicle); err != nil {
		log.Error().Err(err).Msgf("[%d] Failed to send vehicle to root", rank)
		return
	}
	l.cfg.Emitter.Emit(emit.Event{
		Rank:      rank,
		VehicleID: v.ID,
		Tag:       wire.TagLeafRootVehicle,
		Msg:       "vehicle_handback",
		Meta:      map[string]interface{}{"next": v.NextID},
	})
}
