package streets

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus-compatible counters and gauges for a
// simulation run. All metrics are namespaced "streetsim".
//
// Metrics exposed:
//
//  1. vehicles_dispatched_total (counter): vehicles sent from the root
//     to a leaf, initial dispatch and re-dispatch alike.
//  2. vehicles_finished_total (counter): finish notifications received
//     by the root.
//  3. vehicles_rerouted_total (counter): cross-partition handoffs.
//  4. vehicles_dropped_total (counter): vehicles lost to missing rank
//     mappings or decode failures.
//  5. vehicle_steps_total (counter): accumulated step counters of
//     finished vehicles.
//  6. frontier_depth (gauge): queued vehicles on a leaf awaiting a
//     worker.
//  7. oracle_latency_seconds (histogram): edge-length round-trip time
//     observed by leaf workers.
//
// A nil *Metrics is valid and records nothing, so call sites never
// have to guard.
type Metrics struct {
	dispatched    prometheus.Counter
	finished      prometheus.Counter
	rerouted      prometheus.Counter
	dropped       prometheus.Counter
	steps         prometheus.Counter
	frontierDepth prometheus.Gauge
	oracleLatency prometheus.Histogram
}

// NewMetrics creates and registers the simulation metrics with the
// given registry. Pass prometheus.DefaultRegisterer for the global
// registry, or a private prometheus.NewRegistry() for isolation.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		dispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "streetsim",
			Name:      "vehicles_dispatched_total",
			Help:      "Vehicles sent from root to a leaf rank.",
		}),
		finished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "streetsim",
			Name:      "vehicles_finished_total",
			Help:      "Finish notifications received by root.",
		}),
		rerouted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "streetsim",
			Name:      "vehicles_rerouted_total",
			Help:      "Vehicles handed back to root after leaving a partition.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "streetsim",
			Name:      "vehicles_dropped_total",
			Help:      "Vehicles dropped on unroutable nodes or decode failures.",
		}),
		steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "streetsim",
			Name:      "vehicle_steps_total",
			Help:      "Accumulated step counters of finished vehicles.",
		}),
		frontierDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "streetsim",
			Name:      "frontier_depth",
			Help:      "Vehicles queued on a leaf awaiting a worker.",
		}),
		oracleLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "streetsim",
			Name:      "oracle_latency_seconds",
			Help:      "Edge-length request round-trip time.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 8),
		}),
	}
}

// VehicleDispatched records a root→leaf dispatch.
func (m *Metrics) VehicleDispatched() {
	if m != nil {
		m.dispatched.Inc()
	}
}

// VehicleFinished records a finish notification carrying steps steps.
func (m *Metrics) VehicleFinished(steps uint64) {
	if m != nil {
		m.finished.Inc()
		m.steps.Add(float64(steps))
	}
}

// VehicleRerouted records a cross-partition handoff.
func (m *Metrics) VehicleRerouted() {
	if m != nil {
		m.rerouted.Inc()
	}
}

// VehicleDropped records a dropped vehicle.
func (m *Metrics) VehicleDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

// SetFrontierDepth updates the queued-vehicle gauge.
func (m *Metrics) SetFrontierDepth(depth int) {
	if m != nil {
		m.frontierDepth.Set(float64(depth))
	}
}

// ObserveOracleLatency records one edge-length round-trip duration.
func (m *Metrics) ObserveOracleLatency(d time.Duration) {
	if m != nil {
		m.oracleLatency.Observe(d.Seconds())
	}
}
