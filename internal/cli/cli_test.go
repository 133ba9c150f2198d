package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"httpconnect/internal/agent"
	"httpconnect/internal/gateway"
	"httpconnect/internal/report"
	"httpconnect/internal/runner"
	"httpconnect/internal/storage"
)

func setup(t *testing.T, gcfg gateway.ServerConfig) (runner.Config, *storage.Store) {
	t.Helper()
	gcfg.Host = "127.0.0.1"
	gw, err := gateway.Start(gcfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })

	store, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := runner.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.GatewayPort = gw.Port()
	cfg.From, cfg.To, cfg.Step = 2, 3, 1
	cfg.Samples = 2
	return cfg, store
}

func TestStartWritesReport(t *testing.T) {
	cfg, store := setup(t, gateway.ServerConfig{Sockets: 2})
	prefix := filepath.Join(t.TempDir(), "sweep")

	var stdout, stderr bytes.Buffer
	err := Start(context.Background(), cfg, Options{
		Stdout:    &stdout,
		Stderr:    &stderr,
		Progress:  true,
		OutPrefix: prefix,
		Store:     store,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(report.Header, ";"), lines[0])
	assert.Equal(t, "200", strings.Split(lines[1], ";")[1])
	assert.Equal(t, "2", strings.Split(lines[1], ";")[2])
	assert.Equal(t, "3", strings.Split(lines[2], ";")[2])

	assert.Contains(t, stderr.String(), "BENCHMARK RESULTS")
	assert.Contains(t, stderr.String(), "Per-agent POST Mean/P50/P99/Max")
	assert.NotContains(t, stderr.String(), "ABORTED")

	recs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Completed())

	assert.FileExists(t, prefix+".csv")
	assert.FileExists(t, prefix+".json")
}

func TestStartReturnsFatalError(t *testing.T) {
	cfg, store := setup(t, gateway.ServerConfig{FailRate: 1})

	var stdout, stderr bytes.Buffer
	err := Start(context.Background(), cfg, Options{
		Stdout: &stdout,
		Stderr: &stderr,
		Store:  store,
	})
	require.ErrorIs(t, err, agent.ErrFatal)

	// Header only, no rows.
	assert.Equal(t, strings.Join(report.Header, ";")+"\n", stdout.String())
	assert.Contains(t, stderr.String(), "ABORTED")

	recs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Completed())
	assert.Contains(t, recs[0].Error, "fatal")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----]", ProgressBar(0, 4))
	assert.Equal(t, "[██--]", ProgressBar(0.5, 4))
	assert.Equal(t, "[████]", ProgressBar(2, 4))
	assert.Equal(t, "[----]", ProgressBar(-1, 4))
}
