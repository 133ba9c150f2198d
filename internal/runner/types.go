package runner

import (
	"fmt"
	"time"

	"httpconnect/internal/agent"
	"httpconnect/internal/stats"
)

const (
	DefaultAgents        = 2000
	DefaultStep          = 25
	DefaultSamples       = 5
	DefaultServerSockets = 200
)

type Config struct {
	Host        string `json:"host"`
	GatewayPort int    `json:"gateway_port"`

	// Concurrency sweep: From, From+Step, ... up to and including To.
	From int `json:"from"`
	To   int `json:"to"`
	Step int `json:"step"`

	Samples int `json:"samples"`
	// ServerSockets is reported verbatim in every row.
	ServerSockets int `json:"server_sockets"`

	MaxAttempts    int           `json:"max_attempts"`
	Backoff        time.Duration `json:"backoff"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Host:          agent.DefaultHost,
		GatewayPort:   agent.DefaultGatewayPort,
		From:          DefaultAgents,
		To:            DefaultAgents,
		Step:          DefaultStep,
		Samples:       DefaultSamples,
		ServerSockets: DefaultServerSockets,
	}
}

func (c Config) Validate() error {
	switch {
	case c.GatewayPort <= 0 || c.GatewayPort > 65535:
		return fmt.Errorf("invalid gateway port %d", c.GatewayPort)
	case c.From < 1:
		return fmt.Errorf("agent count must be at least 1, got %d", c.From)
	case c.To < c.From:
		return fmt.Errorf("sweep end %d is below start %d", c.To, c.From)
	case c.To > c.From && c.Step < 1:
		return fmt.Errorf("sweep step must be positive, got %d", c.Step)
	case c.Samples < 1:
		return fmt.Errorf("samples must be at least 1, got %d", c.Samples)
	case c.MaxAttempts < 0:
		return fmt.Errorf("max attempts must not be negative, got %d", c.MaxAttempts)
	}
	return nil
}

// Levels lists the agent counts of the sweep in order.
func (c Config) Levels() []int {
	if c.Step < 1 || c.To <= c.From {
		return []int{c.From}
	}
	var levels []int
	for n := c.From; n <= c.To; n += c.Step {
		levels = append(levels, n)
	}
	return levels
}

// RetryPolicy maps the flat config onto the agent retry policy.
func (c Config) RetryPolicy() agent.RetryPolicy {
	p := agent.Unbounded()
	p.MaxAttempts = c.MaxAttempts
	if c.Backoff > 0 {
		p.Backoff = agent.ExponentialBackoff(c.Backoff, 64*c.Backoff)
	}
	return p
}

// LevelResult is one report row.
type LevelResult struct {
	Timestamp     time.Time `json:"timestamp"`
	ServerSockets int       `json:"num_server_sockets"`
	stats.Summary
}

// Stage is what the driver is currently doing.
type Stage int32

const (
	StageIdle Stage = iota
	StageGateway
	StageRequest
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageGateway:
		return "gateway"
	case StageRequest:
		return "request"
	case StageDone:
		return "done"
	default:
		return "idle"
	}
}

// Snapshot is sent over the update channel
type Snapshot struct {
	Stage      Stage
	NumAgents  int
	LevelIndex int
	Levels     int
	Sample     int
	Samples    int

	Constructed int64
	Started     int64
	Completed   int64
	Elapsed     time.Duration

	// Rows finished so far.
	Results []LevelResult
}

// Inflight is the number of started agents still waiting for their node.
func (s Snapshot) Inflight() int64 {
	return s.Started - s.Completed
}

// UpdateChan is the channel type
type UpdateChan chan Snapshot

// Progress estimates the completed fraction of the whole sweep in [0, 1].
// Each sample counts as half construction, half requests.
func (s Snapshot) Progress() float64 {
	if s.Stage == StageDone {
		return 1
	}
	if s.Levels == 0 || s.Samples == 0 || s.NumAgents == 0 {
		return 0
	}
	within := 0.0
	switch s.Stage {
	case StageGateway:
		within = 0.5 * float64(s.Constructed) / float64(s.NumAgents)
	case StageRequest:
		within = 0.5 + 0.5*float64(s.Completed)/float64(s.NumAgents)
	}
	done := float64(s.LevelIndex*s.Samples+s.Sample) + within
	pct := done / float64(s.Levels*s.Samples)
	if pct > 1 {
		pct = 1
	}
	return pct
}
