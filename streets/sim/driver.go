package sim

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/streetsim-go/streets"
	"github.com/dshills/streetsim-go/streets/emit"
	"github.com/dshills/streetsim-go/streets/store"
)

// buildAttempts bounds how many factory failures the driver tolerates
// per requested vehicle before giving up on the population.
const buildAttempts = 8

// Drive runs the simulation without partitioning: every vehicle steps
// over the full graph in this process, no wire protocol involved. The
// stepping semantics are identical to the distributed engine's; a
// vehicle can never leave the full graph, so it runs until parked.
func Drive(ctx context.Context, g *streets.OSMGraph, cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	factory := cfg.Factory
	if factory == nil {
		factory = func(rng *rand.Rand) (*streets.Vehicle, error) {
			return streets.RandomVehicle(g, rng, cfg.MinSpeed, cfg.MaxSpeed)
		}
	}

	vehicles := make([]*streets.Vehicle, 0, cfg.NumVehicles)
	for len(vehicles) < cfg.NumVehicles {
		var v *streets.Vehicle
		var err error
		for attempt := 0; attempt < buildAttempts; attempt++ {
			if v, err = factory(rng); err == nil {
				break
			}
			log.Warn().Err(err).Msg("Failed to build vehicle")
		}
		if err != nil {
			return err
		}
		vehicles = append(vehicles, v)
	}

	started := time.Now()
	log.Info().Int("vehicles", len(vehicles)).Msg("Starting vehicles")

	var totalSteps uint64
	switch cfg.Parallelism {
	case ParallelismMultiThreaded:
		eg, egCtx := errgroup.WithContext(ctx)
		if cfg.ThreadRuntime == RuntimeCooperativeTasks {
			eg.SetLimit(cfg.Workers)
		}
		for _, v := range vehicles {
			v := v
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				v.Drive(g)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	default:
		for _, v := range vehicles {
			if err := ctx.Err(); err != nil {
				return err
			}
			v.Drive(g)
		}
	}

	for _, v := range vehicles {
		totalSteps += v.Steps
		cfg.Metrics.VehicleFinished(v.Steps)
		cfg.Emitter.Emit(emit.Event{
			Rank:      0,
			VehicleID: v.ID,
			Msg:       "vehicle_parked",
			Meta:      map[string]interface{}{"steps": v.Steps},
		})
		if cfg.Store != nil {
			rec := store.FinishRecord{
				VehicleID:  v.ID,
				Steps:      v.Steps,
				FinishedAt: time.Now(),
			}
			if err := cfg.Store.RecordFinish(ctx, cfg.RunID, rec); err != nil {
				log.Warn().Err(err).Msg("Failed to record finish")
			}
		}
	}

	if cfg.Store != nil {
		err := cfg.Store.RecordSummary(ctx, cfg.RunID, store.Summary{
			Vehicles:   len(vehicles),
			Threshold:  len(vehicles),
			Finished:   len(vehicles),
			TotalSteps: totalSteps,
			Elapsed:    time.Since(started),
		})
		if err != nil {
			return err
		}
	}

	log.Info().Dur("elapsed", time.Since(started)).Msg("Finished driving")
	return nil
}
