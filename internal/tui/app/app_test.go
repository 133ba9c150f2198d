package app

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"httpconnect/internal/runner"
	"httpconnect/internal/stats"
)

func newTestModel() Model {
	updates := make(runner.UpdateChan, 1)
	r := runner.NewRunner(runner.DefaultConfig(), updates)
	return NewModel(context.Background(), r, updates)
}

func TestDoneMsgShowsResults(t *testing.T) {
	m := newTestModel()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	m = next.(Model)

	results := []runner.LevelResult{{ServerSockets: 200, Summary: stats.Summary{NumAgents: 2000, GatewayTimeMs: 1500}}}
	next, _ = m.Update(DoneMsg{Results: results})
	m = next.(Model)

	assert.True(t, m.Done)
	require.Len(t, m.Results.Table.Rows(), 1)
	assert.Equal(t, "2000", m.Results.Table.Rows()[0][0])
	assert.Contains(t, m.View(), "Quit")
}

func TestDoneMsgWithError(t *testing.T) {
	m := newTestModel()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	m = next.(Model)

	next, _ = m.Update(DoneMsg{Err: errors.New("fatal: HTTP POST rejected: 500")})
	m = next.(Model)
	assert.Contains(t, m.View(), "rejected")
}

func TestSnapshotUpdatesLiveView(t *testing.T) {
	m := newTestModel()
	snap := runner.Snapshot{Stage: runner.StageRequest, NumAgents: 10, Levels: 1, Samples: 5, Started: 10, Completed: 4}
	next, cmd := m.Update(SnapshotMsg(snap))
	m = next.(Model)

	assert.NotNil(t, cmd)
	assert.Equal(t, int64(6), m.Live.Snap.Inflight())
	assert.Equal(t, uint64(6), m.Live.InflightLine.Last())
}

func TestQuitCancelsSweep(t *testing.T) {
	m := newTestModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Error(t, m.ctx.Err())
}
