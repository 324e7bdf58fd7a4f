// Command streetsim runs the partitioned street simulation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dshills/streetsim-go/streets"
	"github.com/dshills/streetsim-go/streets/emit"
	"github.com/dshills/streetsim-go/streets/sim"
	"github.com/dshills/streetsim-go/streets/store"
)

type runFlags struct {
	minSpeed      float64
	maxSpeed      float64
	parallelism   string
	numVehicles   int
	loggingLevel  string
	threadRuntime string
	mpi           bool
	errorRate     float64
	localRanks    int
	metricsListen string
	storeDSN      string
	seed          int64
	emitEvents    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Simulation failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "streetsim",
		Short:         "Distributed discrete-step traffic simulation over OSM road networks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <input_file>",
		Short: "Run the simulation with the partitioned graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().Float64Var(&flags.minSpeed, "min_speed", 8.5, "minimum vehicle speed in m/s")
	cmd.Flags().Float64Var(&flags.maxSpeed, "max_speed", 13.8, "maximum vehicle speed in m/s")
	cmd.Flags().StringVar(&flags.parallelism, "parallelism", string(sim.ParallelismSingleThreaded),
		"vehicle processing strategy: single-threaded or multi-threaded")
	cmd.Flags().IntVar(&flags.numVehicles, "num_vehicles", 1, "number of vehicles")
	cmd.Flags().StringVar(&flags.loggingLevel, "logging_level", "info",
		"logging level: debug, info, warn or error")
	cmd.Flags().StringVar(&flags.threadRuntime, "thread_runtime", string(sim.RuntimeOSThreads),
		"multi-threaded runtime: os-threads or cooperative-tasks")
	cmd.Flags().BoolVar(&flags.mpi, "mpi", false, "run distributed under MPI (requires mpirun)")
	cmd.Flags().Float64Var(&flags.errorRate, "error_rate", 0.0,
		"tolerated fraction of lost vehicles in [0,1]")
	cmd.Flags().IntVar(&flags.localRanks, "local_ranks", 0,
		"run the distributed engine in-process with this many ranks (0 = off)")
	cmd.Flags().StringVar(&flags.metricsListen, "metrics_listen", "",
		"expose Prometheus metrics on this address (empty = off)")
	cmd.Flags().StringVar(&flags.storeDSN, "store", "",
		"persist results: path.db for SQLite, mysql://dsn for MySQL (empty = off)")
	cmd.Flags().Int64Var(&flags.seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().BoolVar(&flags.emitEvents, "emit_events", false,
		"log wire and lifecycle events to stderr")

	return cmd
}

func runSimulation(ctx context.Context, inputFile string, flags *runFlags) error {
	if err := setupLogging(flags.loggingLevel); err != nil {
		return err
	}

	parallelism := sim.Parallelism(flags.parallelism)
	threadRuntime := sim.ThreadRuntime(flags.threadRuntime)
	if err := validateEnums(parallelism, threadRuntime); err != nil {
		return err
	}
	if flags.mpi && parallelism == sim.ParallelismSingleThreaded {
		return fmt.Errorf("--mpi requires --parallelism multi-threaded")
	}

	cfg := sim.Config{
		NumVehicles:   flags.numVehicles,
		ErrorRate:     flags.errorRate,
		MinSpeed:      flags.minSpeed,
		MaxSpeed:      flags.maxSpeed,
		Parallelism:   parallelism,
		ThreadRuntime: threadRuntime,
		Seed:          flags.seed,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if flags.metricsListen != "" {
		registry := prometheus.NewRegistry()
		cfg.Metrics = streets.NewMetrics(registry)
		go serveMetrics(flags.metricsListen, registry)
	}
	if flags.emitEvents {
		cfg.Emitter = emit.NewLogEmitter(os.Stderr, false)
	}
	if flags.storeDSN != "" {
		st, err := openStore(flags.storeDSN)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		cfg.Store = st
	}

	graph, err := streets.LoadGraph(inputFile)
	if err != nil {
		return err
	}
	log.Info().
		Int("nodes", graph.NodeCount()).
		Int("edges", graph.EdgeCount()).
		Msg("Loaded graph")

	switch {
	case flags.mpi:
		return sim.RunMPI(ctx, graph, cfg)
	case flags.localRanks > 0:
		return sim.RunLocal(ctx, graph, cfg, flags.localRanks)
	default:
		return sim.Drive(ctx, graph, cfg)
	}
}

func validateEnums(p sim.Parallelism, rt sim.ThreadRuntime) error {
	switch p {
	case sim.ParallelismSingleThreaded, sim.ParallelismMultiThreaded:
	default:
		return fmt.Errorf("unknown parallelism %q", p)
	}
	switch rt {
	case sim.RuntimeOSThreads, sim.RuntimeCooperativeTasks:
	default:
		return fmt.Errorf("unknown thread runtime %q", rt)
	}
	return nil
}

func setupLogging(level string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		return fmt.Errorf("unknown logging level %q", level)
	}
	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("Metrics listener failed")
	}
}

func openStore(dsn string) (store.Store, error) {
	const mysqlPrefix = "mysql://"
	if len(dsn) > len(mysqlPrefix) && dsn[:len(mysqlPrefix)] == mysqlPrefix {
		return store.NewMySQLStore(dsn[len(mysqlPrefix):])
	}
	return store.NewSQLiteStore(dsn)
}
