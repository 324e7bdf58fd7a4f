package sim

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/streetsim-go/streets"
	"github.com/dshills/streetsim-go/streets/comm"
)

// RunLocal executes the full distributed engine — root, leaves, wire
// protocol — inside one process over an in-memory mesh. One goroutine
// plays each rank. Useful for development without an MPI installation
// and as the harness the end-to-end tests run against.
func RunLocal(ctx context.Context, g *streets.OSMGraph, cfg Config, ranks int) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if ranks < 2 {
		return &streets.SimError{
			Code:    "WORLD_TOO_SMALL",
			Message: fmt.Sprintf("local world needs at least 2 ranks, got %d", ranks),
		}
	}

	mesh := comm.NewMesh(ranks)
	defer mesh.Close()

	partitions := ranks - 1
	eg, egCtx := errgroup.WithContext(ctx)

	for rank := 1; rank < ranks; rank++ {
		part, err := g.Partition(partitions, rank-1)
		if err != nil {
			return err
		}
		log.Info().Msgf("[%d] Leaf size (%d,%d)", rank, part.NodeCount(), part.EdgeCount())

		leaf := NewLeaf(mesh.Rank(rank), part, cfg)
		eg.Go(func() error {
			return leaf.Run(egCtx)
		})
	}

	root := NewRoot(mesh.Rank(RootRank), g, cfg)
	eg.Go(func() error {
		err := root.Run(egCtx)
		// The root is done — broadcast or failure. Closing the mesh
		// releases any leaf still blocked on a receive; queued
		// messages (the termination notifications included) are
		// still delivered first.
		mesh.Close()
		return err
	})

	return eg.Wait()
}
