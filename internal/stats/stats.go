package stats

import (
	"time"
)

// Summary is the averaged measurement of one concurrency level.
type Summary struct {
	NumAgents int `json:"num_agents"`
	Samples   int `json:"samples"`

	GatewayTimeMs     float64 `json:"gateway_time_ms"`
	GatewayLatencyMs  float64 `json:"gateway_latency_ms"`
	GatewayThroughput float64 `json:"gateway_throughput"`

	RequestTimeMs     float64 `json:"request_time_ms"`
	RequestLatencyMs  float64 `json:"request_latency_ms"`
	RequestThroughput float64 `json:"request_throughput"`

	// Per-agent phase latencies across all samples.
	GatewayP50Ms  float64 `json:"gateway_p50_ms"`
	GatewayP99Ms  float64 `json:"gateway_p99_ms"`
	RequestP50Ms  float64 `json:"request_p50_ms"`
	RequestP99Ms  float64 `json:"request_p99_ms"`
	RequestMeanMs float64 `json:"request_mean_ms"`
	RequestMaxMs  float64 `json:"request_max_ms"`
}

// Accumulator collects the samples of a single concurrency level.
// A new one is created for every level.
type Accumulator struct {
	NumAgents int
	Samples   int

	gateway  time.Duration
	request  time.Duration
	recorded int

	GatewayAgents *SafeHistogram
	RequestAgents *SafeHistogram
}

func NewAccumulator(numAgents, samples int) *Accumulator {
	return &Accumulator{
		NumAgents:     numAgents,
		Samples:       samples,
		GatewayAgents: NewSafeHistogram(),
		RequestAgents: NewSafeHistogram(),
	}
}

// AddSample adds the wall-clock duration of both phases of one sample.
func (a *Accumulator) AddSample(gateway, request time.Duration) {
	a.gateway += gateway
	a.request += request
	a.recorded++
}

// RecordAgent adds the phase durations observed by a single agent.
func (a *Accumulator) RecordAgent(gateway, request time.Duration) {
	a.GatewayAgents.RecordDuration(gateway)
	a.RequestAgents.RecordDuration(request)
}

func (a *Accumulator) Recorded() int { return a.recorded }

// Summary divides the accumulated times by the configured sample count.
func (a *Accumulator) Summary() Summary {
	s := Summary{NumAgents: a.NumAgents, Samples: a.Samples}
	if a.Samples > 0 {
		s.GatewayTimeMs = Millis(a.gateway) / float64(a.Samples)
		s.RequestTimeMs = Millis(a.request) / float64(a.Samples)
	}
	s.GatewayLatencyMs, s.GatewayThroughput = Derive(s.GatewayTimeMs, a.NumAgents)
	s.RequestLatencyMs, s.RequestThroughput = Derive(s.RequestTimeMs, a.NumAgents)

	if a.GatewayAgents.TotalCount() > 0 {
		s.GatewayP50Ms = a.GatewayAgents.QuantileMs(50)
		s.GatewayP99Ms = a.GatewayAgents.QuantileMs(99)
	}
	if a.RequestAgents.TotalCount() > 0 {
		s.RequestP50Ms = a.RequestAgents.QuantileMs(50)
		s.RequestP99Ms = a.RequestAgents.QuantileMs(99)
		s.RequestMeanMs = a.RequestAgents.MeanMs()
		s.RequestMaxMs = a.RequestAgents.MaxMs()
	}
	return s
}

// Derive returns per-agent latency (ms) and throughput (agents per second)
// for a phase that took timeMs for numAgents agents.
func Derive(timeMs float64, numAgents int) (latencyMs, throughput float64) {
	if numAgents <= 0 {
		return 0, 0
	}
	latencyMs = timeMs / float64(numAgents)
	if timeMs > 0 {
		throughput = float64(numAgents) / (timeMs / 1000.0)
	}
	return latencyMs, throughput
}

func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
