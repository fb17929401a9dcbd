package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoburst/internal/runner"
	"echoburst/internal/stats"
)

func completedReport(t *testing.T, start time.Time, target runner.Target) *runner.Report {
	t.Helper()
	cfg := runner.DefaultConfig()
	cfg.Target = target
	s := stats.NewStats()
	r := runner.NewReport(cfg)
	require.NoError(t, r.Start(start, s))
	s.RecordFailure(stats.TransportFailure)
	require.NoError(t, r.Complete(start.Add(3*time.Second), s))
	return r
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveListGet(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := NewHistoryItem(completedReport(t, base, runner.TargetPgSql))
	newer := NewHistoryItem(completedReport(t, base.Add(time.Hour), runner.TargetRedis))
	require.NoError(t, s.Save(newer))
	require.NoError(t, s.Save(older))

	items, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].ID, "newest first")
	assert.Equal(t, runner.TargetRedis, items[0].Report.Target)
	assert.Equal(t, uint64(1), items[0].Report.Failed)
	assert.Equal(t, 3, items[0].Report.ElapsedSeconds())

	limited, err := s.List(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	got, err := s.Get(older.ID)
	require.NoError(t, err)
	assert.Equal(t, "PgSql Test", got.Report.TestName)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(NewHistoryItem(completedReport(t, time.Now(), runner.TargetInMemory))))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	items, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
