package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"httpconnect/internal/report"
	"httpconnect/internal/runner"
	"httpconnect/internal/storage"
)

type Options struct {
	// Stdout receives the report rows, Stderr everything else.
	Stdout io.Writer
	Stderr io.Writer

	// Progress enables the live progress line on Stderr.
	Progress  bool
	OutPrefix string
	Store     *storage.Store
	Logger    *slog.Logger
}

// Start runs the sweep headless and returns the first fatal error.
func Start(ctx context.Context, cfg runner.Config, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	printHeader(opts.Stderr, cfg)

	w := report.NewWriter(opts.Stdout)
	if err := w.WriteHeader(); err != nil {
		return err
	}

	updates := make(runner.UpdateChan, 100)
	r := runner.NewRunner(cfg, updates)
	r.Logger = opts.Logger
	r.Sink = w

	rec := storage.NewRecord(cfg)

	type outcome struct {
		results []runner.LevelResult
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := r.Run(ctx)
		done <- outcome{results, err}
	}()

	startTime := time.Now()
	var out outcome
loop:
	for {
		select {
		case snap := <-updates:
			if opts.Progress {
				printProgress(opts.Stderr, snap)
			}
		case out = <-done:
			break loop
		}
	}
	elapsed := time.Since(startTime)

	if opts.Progress {
		printProgress(opts.Stderr, r.Snapshot())
	}
	printSummary(opts.Stderr, out.results, out.err, elapsed)

	rec.Finish(out.results, out.err)
	Persist(opts, rec)

	return out.err
}

func printHeader(w io.Writer, cfg runner.Config) {
	levels := cfg.Levels()
	fmt.Fprintf(w, "\n🚀 STARTING HTTP-CONNECT BENCHMARK\n")
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Gateway    : http://%s:%d/api/1.0/\n", cfg.Host, cfg.GatewayPort)
	fmt.Fprintf(w, "Agents     : %d..%d step %d (%d levels)\n", cfg.From, cfg.To, cfg.Step, len(levels))
	fmt.Fprintf(w, "Samples    : %d per level\n", cfg.Samples)
	fmt.Fprintf(w, "Retry      : %s\n", describeRetry(cfg))
	fmt.Fprintf(w, "Timeout    : %s\n", describeTimeout(cfg.RequestTimeout))
	fmt.Fprintf(w, "======================================================================\n\n")
}

func describeRetry(cfg runner.Config) string {
	attempts := "unbounded"
	if cfg.MaxAttempts > 0 {
		attempts = fmt.Sprintf("%d attempts", cfg.MaxAttempts)
	}
	if cfg.Backoff > 0 {
		return fmt.Sprintf("%s, backoff from %s", attempts, cfg.Backoff)
	}
	return attempts + ", no backoff"
}

func describeTimeout(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}

func printProgress(w io.Writer, snap runner.Snapshot) {
	pct := snap.Progress()
	fmt.Fprintf(w, "\r%s %3.0f%% | Level %d/%d (%d agents) | Sample %d/%d | %-7s | Built: %d | Inf: %d | Done: %d   ",
		ProgressBar(pct, 20), pct*100,
		snap.LevelIndex+1, snap.Levels, snap.NumAgents,
		snap.Sample+1, snap.Samples,
		snap.Stage,
		snap.Constructed,
		snap.Inflight(),
		snap.Completed,
	)
}

func ProgressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(w io.Writer, results []runner.LevelResult, runErr error, total time.Duration) {
	fmt.Fprintf(w, "\n\n📊 BENCHMARK RESULTS\n")
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Total Duration : %s\n", total.Round(time.Millisecond))
	fmt.Fprintf(w, "Levels Done    : %d\n", len(results))

	for _, r := range results {
		fmt.Fprintf(w, "\n⏱️  %d AGENTS (%d samples)\n", r.NumAgents, r.Samples)
		fmt.Fprintf(w, "   Gateway : %9.2f ms | %7.3f ms/agent | %9.2f agents/s\n",
			r.GatewayTimeMs, r.GatewayLatencyMs, r.GatewayThroughput)
		fmt.Fprintf(w, "   Request : %9.2f ms | %7.3f ms/agent | %9.2f agents/s\n",
			r.RequestTimeMs, r.RequestLatencyMs, r.RequestThroughput)
		fmt.Fprintf(w, "   Per-agent POST Mean/P50/P99/Max : %.2f / %.2f / %.2f / %.2f ms\n",
			r.RequestMeanMs, r.RequestP50Ms, r.RequestP99Ms, r.RequestMaxMs)
	}

	if runErr != nil {
		fmt.Fprintf(w, "\n❌ ABORTED\n   %v\n", runErr)
	}
	fmt.Fprintf(w, "======================================================================\n")
}

// Persist stores the finished sweep and writes the --out exports.
func Persist(opts Options, rec storage.SweepRecord) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	saveHistory(opts, rec)
	handleAutoReport(opts, rec)
}

func saveHistory(opts Options, rec storage.SweepRecord) {
	if opts.Store == nil {
		return
	}
	if err := opts.Store.Save(rec); err != nil {
		opts.Logger.Warn("saving history failed", "error", err)
		return
	}
	opts.Logger.Debug("history saved", "id", rec.ID, "path", opts.Store.Path())
}

func handleAutoReport(opts Options, rec storage.SweepRecord) {
	if opts.OutPrefix == "" || len(rec.Results) == 0 {
		return
	}

	fmt.Fprintf(opts.Stderr, "\n💾 Generating reports with prefix: %s\n", opts.OutPrefix)
	if err := report.ExportCSV(rec.Results, opts.OutPrefix+".csv"); err != nil {
		opts.Logger.Warn("csv export failed", "error", err)
	}
	summary := report.Summary{
		ID:        rec.ID,
		StartedAt: rec.StartedAt,
		Config:    rec.Config,
		Error:     rec.Error,
		Results:   rec.Results,
	}
	if err := report.ExportJSON(summary, opts.OutPrefix+".json"); err != nil {
		opts.Logger.Warn("json export failed", "error", err)
	}
	fmt.Fprintf(opts.Stderr, "✅ Reports saved to %s.{csv,json}\n", opts.OutPrefix)
}
