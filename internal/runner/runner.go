package runner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"httpconnect/internal/agent"
	"httpconnect/internal/stats"
)

// Sink receives every finished report row.
type Sink interface {
	WriteLevel(LevelResult) error
}

type Runner struct {
	Cfg    Config
	Client *http.Client
	Logger *slog.Logger
	Sink   Sink

	// Event Channel
	Updates UpdateChan

	mu      sync.Mutex
	results []LevelResult
	current []*agent.Agent

	start       time.Time
	stage       atomic.Int32
	numAgents   atomic.Int64
	levelIndex  atomic.Int64
	sample      atomic.Int64
	constructed atomic.Int64
	started     atomic.Int64
}

func NewRunner(cfg Config, updates UpdateChan) *Runner {
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(UpdateChan, 10)
	}

	return &Runner{
		Cfg:     cfg,
		Client:  agent.NewClient(cfg.RequestTimeout),
		Logger:  slog.Default(),
		Updates: updates,
	}
}

// StartTickLoop starts a goroutine that pushes progress snapshots
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

// Snapshot captures the current progress.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	completed := int64(0)
	for _, a := range r.current {
		select {
		case <-a.Done():
			completed++
		default:
		}
	}
	results := make([]LevelResult, len(r.results))
	copy(results, r.results)
	start := r.start
	r.mu.Unlock()

	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = time.Since(start)
	}

	return Snapshot{
		Stage:       Stage(r.stage.Load()),
		NumAgents:   int(r.numAgents.Load()),
		LevelIndex:  int(r.levelIndex.Load()),
		Levels:      len(r.Cfg.Levels()),
		Sample:      int(r.sample.Load()),
		Samples:     r.Cfg.Samples,
		Constructed: r.constructed.Load(),
		Started:     r.started.Load(),
		Completed:   completed,
		Elapsed:     elapsed,
		Results:     results,
	}
}

func (r *Runner) sendUpdate() {
	// Non-blocking send
	select {
	case r.Updates <- r.Snapshot():
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Results returns a copy of the rows finished so far.
func (r *Runner) Results() []LevelResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]LevelResult, len(r.results))
	copy(res, r.results)
	return res
}

// Run executes the whole sweep. It stops at the first fatal agent error and
// returns the rows completed before it.
func (r *Runner) Run(ctx context.Context) ([]LevelResult, error) {
	if err := r.Cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.start = time.Now()
	r.results = nil
	r.mu.Unlock()

	tickCtx, stopTicks := context.WithCancel(ctx)
	defer stopTicks()
	r.StartTickLoop(tickCtx, 200*time.Millisecond)

	for li, n := range r.Cfg.Levels() {
		r.levelIndex.Store(int64(li))
		r.numAgents.Store(int64(n))

		// Fresh accumulator per level.
		acc := stats.NewAccumulator(n, r.Cfg.Samples)
		for s := 0; s < r.Cfg.Samples; s++ {
			r.sample.Store(int64(s))
			r.Logger.Debug("starting sample", "num_agents", n, "sample_id", s)

			if err := r.runSample(ctx, n, acc); err != nil {
				r.setCurrent(nil)
				r.stage.Store(int32(StageDone))
				return r.Results(), fmt.Errorf("num_agents=%d sample=%d: %w", n, s, err)
			}
		}

		res := LevelResult{
			Timestamp:     time.Now(),
			ServerSockets: r.Cfg.ServerSockets,
			Summary:       acc.Summary(),
		}
		r.mu.Lock()
		r.results = append(r.results, res)
		r.mu.Unlock()

		r.Logger.Info("level complete",
			"num_agents", n,
			"gateway_time_ms", res.GatewayTimeMs,
			"request_time_ms", res.RequestTimeMs,
		)
		if r.Sink != nil {
			if err := r.Sink.WriteLevel(res); err != nil {
				return r.Results(), fmt.Errorf("writing report row: %w", err)
			}
		}
	}

	r.setCurrent(nil)
	r.stage.Store(int32(StageDone))
	r.sendUpdate()
	return r.Results(), nil
}

// runSample constructs n agents one after another, starts them all, then
// joins them in construction order.
func (r *Runner) runSample(ctx context.Context, n int, acc *stats.Accumulator) error {
	r.constructed.Store(0)
	r.started.Store(0)
	r.setCurrent(nil)
	r.stage.Store(int32(StageGateway))

	agents := make([]*agent.Agent, 0, n)
	cfg := agent.Config{
		Host:        r.Cfg.Host,
		GatewayPort: r.Cfg.GatewayPort,
		Client:      r.Client,
		Retry:       r.Cfg.RetryPolicy(),
		Logger:      r.Logger,
	}

	gatewayStart := time.Now()
	for i := 0; i < n; i++ {
		a, err := agent.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("constructing agent %d: %w", i, err)
		}
		agents = append(agents, a)
		r.constructed.Add(1)
	}
	gatewayElapsed := time.Since(gatewayStart)

	r.setCurrent(agents)
	r.stage.Store(int32(StageRequest))

	// The first failing agent cancels gctx, which abandons every request
	// still in flight regardless of join order.
	g, gctx := errgroup.WithContext(ctx)

	requestStart := time.Now()
	for i, a := range agents {
		a.Start(gctx)
		r.started.Add(1)
		g.Go(func() error {
			if err := a.Wait(); err != nil {
				return fmt.Errorf("agent %d: %w", i, err)
			}
			return nil
		})
	}

	for _, a := range agents {
		<-a.Done()
	}
	requestElapsed := time.Since(requestStart)

	if err := g.Wait(); err != nil {
		return err
	}

	acc.AddSample(gatewayElapsed, requestElapsed)
	for _, a := range agents {
		acc.RecordAgent(a.GatewayElapsed(), a.RequestElapsed())
	}
	return nil
}

func (r *Runner) setCurrent(agents []*agent.Agent) {
	r.mu.Lock()
	r.current = agents
	r.mu.Unlock()
}
