package cmd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"httpconnect/internal/runner"
	"httpconnect/internal/storage"
)

func newTestViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addSweepFlags(c)
	require.NoError(t, c.ParseFlags(args))

	v := viper.New()
	configureEnv(v)
	require.NoError(t, v.BindPFlags(c.Flags()))
	return v
}

func TestConfigDefaults(t *testing.T) {
	cfg := configFromViper(newTestViper(t))
	assert.Equal(t, runner.DefaultConfig(), cfg)
	assert.Equal(t, []int{2000}, cfg.Levels())
}

func TestConfigFromFlags(t *testing.T) {
	v := newTestViper(t,
		"--host", "10.0.0.2",
		"-p", "40000",
		"--from", "100", "--to", "200", "--step", "50",
		"--samples", "3",
		"--max-attempts", "4",
		"--backoff", "10ms",
		"--request-timeout", "2s",
	)
	cfg := configFromViper(v)

	assert.Equal(t, "10.0.0.2", cfg.Host)
	assert.Equal(t, 40000, cfg.GatewayPort)
	assert.Equal(t, []int{100, 150, 200}, cfg.Levels())
	assert.Equal(t, 3, cfg.Samples)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Backoff)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("HTTPCONNECT_GATEWAY_PORT", "41000")
	t.Setenv("HTTPCONNECT_SAMPLES", "9")

	cfg := configFromViper(newTestViper(t, "--samples", "2"))
	assert.Equal(t, 41000, cfg.GatewayPort)
	// Flags win over the environment.
	assert.Equal(t, 2, cfg.Samples)
}

func TestPrintRecord(t *testing.T) {
	rec := storage.NewRecord(runner.DefaultConfig())
	res := runner.LevelResult{
		Timestamp:     time.UnixMilli(1700000000123),
		ServerSockets: 200,
	}
	res.NumAgents = 100
	rec.Finish([]runner.LevelResult{res}, errors.New("fatal: boom"))

	var buf bytes.Buffer
	require.NoError(t, printRecord(&buf, rec))

	out := buf.String()
	assert.Contains(t, out, "timestamp;num_server_sockets;num_agents")
	assert.Contains(t, out, "1700000000123;200;100;")
	assert.Contains(t, out, "# aborted: fatal: boom")
}

func TestPrintRecordsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printRecords(&buf, nil)
	assert.Equal(t, "No sweeps recorded.\n", buf.String())
}

func TestPrintRecords(t *testing.T) {
	rec := storage.NewRecord(runner.DefaultConfig())
	var buf bytes.Buffer
	printRecords(&buf, []storage.SweepRecord{rec})

	out := buf.String()
	assert.Contains(t, out, rec.ID)
	assert.Contains(t, out, "localhost:35497")
	assert.Contains(t, out, "partial")
}
