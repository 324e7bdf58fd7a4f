package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dshills/streetsim-go/streets"
	"github.com/dshills/streetsim-go/streets/comm"
)

// RunMPI executes this process's role in an MPI world: rank 0 runs the
// coordinator over the full graph, every other rank builds its
// partition and runs a leaf. The process must be launched under mpirun
// with a world size of at least 2.
func RunMPI(ctx context.Context, g *streets.OSMGraph, cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	world, stop := comm.StartMPI()
	defer stop()

	size := world.Size()
	rank := world.Rank()
	if size < 2 {
		return &streets.SimError{
			Code:    "WORLD_TOO_SMALL",
			Message: fmt.Sprintf("size of the MPI world must be at least 2, but is %d", size),
		}
	}

	log.Info().Msgf("[%d] Root size (%d,%d)", rank, g.NodeCount(), g.EdgeCount())
	started := time.Now()

	var err error
	if rank == RootRank {
		err = NewRoot(world, g, cfg).Run(ctx)
	} else {
		var part *streets.OSMGraph
		part, err = g.Partition(size-1, rank-1)
		if err != nil {
			return err
		}
		log.Info().Msgf("[%d] Rank %d -> size (%d,%d)", rank, rank, part.NodeCount(), part.EdgeCount())
		err = NewLeaf(world, part, cfg).Run(ctx)
	}

	log.Info().Msgf("[%d] Finished in %s", rank, time.Since(started))
	return err
}
