package streets

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Run("records vehicle counters", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())

		m.VehicleDispatched()
		m.VehicleDispatched()
		m.VehicleFinished(12)
		m.VehicleRerouted()
		m.VehicleDropped()

		assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatched))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.finished))
		assert.Equal(t, 12.0, testutil.ToFloat64(m.steps))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.rerouted))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped))
	})

	t.Run("tracks frontier depth", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.SetFrontierDepth(5)
		assert.Equal(t, 5.0, testutil.ToFloat64(m.frontierDepth))
		m.SetFrontierDepth(0)
		assert.Equal(t, 0.0, testutil.ToFloat64(m.frontierDepth))
	})

	t.Run("nil metrics records nothing", func(t *testing.T) {
		var m *Metrics
		m.VehicleDispatched()
		m.VehicleFinished(3)
		m.VehicleRerouted()
		m.VehicleDropped()
		m.SetFrontierDepth(1)
		m.ObserveOracleLatency(time.Millisecond)
	})
}
