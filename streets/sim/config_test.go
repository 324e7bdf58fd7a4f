package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinishThreshold(t *testing.T) {
	cases := []struct {
		vehicles  int
		errorRate float64
		want      int
	}{
		{10, 0.0, 10},
		{10, 0.2, 8},
		{10, 0.25, 8}, // ceil(7.5)
		{1, 0.0, 1},
		{0, 0.0, 0},
		{3, 1.0, 0},
	}

	for _, tc := range cases {
		cfg := Config{NumVehicles: tc.vehicles, ErrorRate: tc.errorRate}
		assert.Equal(t, tc.want, cfg.FinishThreshold(),
			"vehicles=%d rate=%g", tc.vehicles, tc.errorRate)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("accepts defaults", func(t *testing.T) {
		cfg := Config{NumVehicles: 1}.withDefaults()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects negative vehicles", func(t *testing.T) {
		assert.Error(t, Config{NumVehicles: -1}.Validate())
	})

	t.Run("rejects overflowing vehicles", func(t *testing.T) {
		assert.Error(t, Config{NumVehicles: MaxNumVehicles}.Validate())
	})

	t.Run("rejects out of range error rate", func(t *testing.T) {
		assert.Error(t, Config{ErrorRate: -0.1}.Validate())
		assert.Error(t, Config{ErrorRate: 1.1}.Validate())
	})

	t.Run("rejects inverted speed range", func(t *testing.T) {
		assert.Error(t, Config{MinSpeed: 10, MaxSpeed: 5}.Validate())
	})
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, ParallelismSingleThreaded, cfg.Parallelism)
	assert.Equal(t, RuntimeOSThreads, cfg.ThreadRuntime)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 1024, cfg.QueueDepth)
	assert.Equal(t, 8.5, cfg.MinSpeed)
	assert.Equal(t, 13.8, cfg.MaxSpeed)
	assert.NotEmpty(t, cfg.RunID)
	assert.NotNil(t, cfg.Emitter)
}
