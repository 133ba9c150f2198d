package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name           string
		timeMs         float64
		numAgents      int
		wantLatency    float64
		wantThroughput float64
	}{
		{"hundred agents in one second", 1000, 100, 10.0, 100.0},
		{"one agent", 250, 1, 250, 4},
		{"zero time", 0, 10, 0, 0},
		{"no agents", 1000, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latency, throughput := Derive(tt.timeMs, tt.numAgents)
			assert.InDelta(t, tt.wantLatency, latency, 1e-9)
			assert.InDelta(t, tt.wantThroughput, throughput, 1e-9)
		})
	}
}

func TestAccumulatorDividesOnce(t *testing.T) {
	acc := NewAccumulator(100, 2)
	acc.AddSample(800*time.Millisecond, 300*time.Millisecond)
	acc.AddSample(1200*time.Millisecond, 500*time.Millisecond)
	require.Equal(t, 2, acc.Recorded())

	s := acc.Summary()
	assert.InDelta(t, 1000.0, s.GatewayTimeMs, 1e-9)
	assert.InDelta(t, 10.0, s.GatewayLatencyMs, 1e-9)
	assert.InDelta(t, 100.0, s.GatewayThroughput, 1e-9)
	assert.InDelta(t, 400.0, s.RequestTimeMs, 1e-9)
	assert.InDelta(t, 4.0, s.RequestLatencyMs, 1e-9)
	assert.InDelta(t, 250.0, s.RequestThroughput, 1e-9)

	// Summary is a read; calling it again must not divide a second time.
	assert.Equal(t, s, acc.Summary())
}

func TestAccumulatorAgentPercentiles(t *testing.T) {
	acc := NewAccumulator(4, 1)
	for _, ms := range []int{1, 2, 3, 40} {
		acc.RecordAgent(time.Duration(ms)*time.Millisecond, time.Duration(ms*10)*time.Millisecond)
	}

	s := acc.Summary()
	assert.InDelta(t, 2.0, s.GatewayP50Ms, 0.01)
	assert.InDelta(t, 40.0, s.GatewayP99Ms, 0.1)
	assert.InDelta(t, 400.0, s.RequestMaxMs, 1)
	assert.InDelta(t, 115.0, s.RequestMeanMs, 1)
	assert.Equal(t, int64(4), acc.RequestAgents.TotalCount())
}

func TestSafeHistogramClampsOutOfRange(t *testing.T) {
	h := NewSafeHistogram()
	require.NoError(t, h.RecordDuration(-time.Second))
	require.NoError(t, h.RecordDuration(time.Hour))
	assert.Equal(t, int64(2), h.TotalCount())
	assert.GreaterOrEqual(t, h.MaxMs(), float64((9 * time.Minute).Milliseconds()))
}
