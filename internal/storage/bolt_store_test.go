package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"httpconnect/internal/runner"
	"httpconnect/internal/stats"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := openStore(t)

	rec := NewRecord(runner.DefaultConfig())
	rec.Finish([]runner.LevelResult{{
		Timestamp:     time.Now().UTC(),
		ServerSockets: 200,
		Summary:       stats.Summary{NumAgents: 2000, Samples: 5, GatewayTimeMs: 1234.5},
	}}, nil)
	require.NoError(t, s.Save(rec))

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Config, got.Config)
	require.Len(t, got.Results, 1)
	assert.Equal(t, 2000, got.Results[0].NumAgents)
	assert.Equal(t, 1234.5, got.Results[0].GatewayTimeMs)
	assert.True(t, got.Completed())
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := NewRecord(runner.DefaultConfig())
		ids = append(ids, rec.ID)
		require.NoError(t, s.Save(rec))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

	limited, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFinishRecordsError(t *testing.T) {
	rec := NewRecord(runner.DefaultConfig())
	rec.Finish(nil, errors.New("fatal: HTTP POST rejected: 500"))
	assert.False(t, rec.Completed())
	assert.Equal(t, "fatal: HTTP POST rejected: 500", rec.Error)
	assert.False(t, rec.FinishedAt.IsZero())
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	rec := NewRecord(runner.DefaultConfig())
	require.NoError(t, s.Save(rec))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}
