package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"echoburst/internal/runner"
	"echoburst/internal/stats"
	"echoburst/internal/storage"
)

func echoTarget(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rec runner.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"person": rec})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----]", progressBar(0, 4))
	assert.Equal(t, "[██--]", progressBar(0.5, 4))
	assert.Equal(t, "[████]", progressBar(1.7, 4))
	assert.Equal(t, "[----]", progressBar(-1, 4))
}

func TestProgressLine(t *testing.T) {
	line := progressLine(runner.StatsSnapshot{BatchesDone: 3, BatchesTotal: 6, Success: 290, Fail: 10})
	assert.Contains(t, line, " 50%")
	assert.Contains(t, line, "Batch 3/6")
	assert.Contains(t, line, "Failed: 10")
}

func TestFailureSignatures(t *testing.T) {
	boom := errors.New("connection refused")
	results := []runner.Result{
		{Outcome: stats.Success, Status: 200},
		{Outcome: stats.TransportFailure, Err: boom},
		{Outcome: stats.TransportFailure, Err: boom},
		{Outcome: stats.MismatchFailure, Status: 200, Err: errors.New("email mismatch")},
	}

	sigs := failureSignatures(results, 0)
	require.Len(t, sigs, 2)
	assert.Equal(t, 2, sigs[0].Count)
	assert.Equal(t, "transport connection refused", sigs[0].String())
	assert.Equal(t, "mismatch [200] email mismatch", sigs[1].String())

	assert.Len(t, failureSignatures(results, 1), 1)
}

func TestStart_RunsAndSummarizes(t *testing.T) {
	srv := echoTarget(t)
	cfg := runner.DefaultConfig()
	cfg.URL = srv.URL
	cfg.PoolSize = 20
	cfg.TotalRequests = 45
	cfg.BatchSize = 10
	cfg.BatchPause = 0

	updates := make(runner.StatsUpdateChan, 10)
	r := runner.NewRunner(cfg, updates, nil)

	var out bytes.Buffer
	report, err := Start(context.Background(), &out, r, updates)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Contains(t, out.String(), "Generating 20 test records")
	assert.Contains(t, out.String(), "Batch 5/5")

	out.Reset()
	PrintSummary(&out, report, r.ResultsCopy())
	assert.Contains(t, out.String(), "Test Name: In Memory Test")
	assert.Contains(t, out.String(), "URL: "+srv.URL)
	assert.Contains(t, out.String(), "Total Failed: 0")
	assert.Contains(t, out.String(), "Time taken: 0 seconds")
	assert.Contains(t, out.String(), "Error Rate     : 0.00%")
	assert.NotContains(t, out.String(), "FAILURE SUMMARY")
}

func TestStart_InvalidConfig(t *testing.T) {
	cfg := runner.DefaultConfig()
	cfg.BatchSize = 0
	r := runner.NewRunner(cfg, nil, nil)

	var out bytes.Buffer
	report, err := Start(context.Background(), &out, r, r.Updates)
	assert.ErrorIs(t, err, runner.ErrInvalidBatchSize)
	assert.Nil(t, report)
}

func TestFinalize_ExportsAndSavesHistory(t *testing.T) {
	dir := t.TempDir()
	hist, err := storage.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer hist.Close()

	cfg := runner.DefaultConfig()
	cfg.OutPrefix = filepath.Join(dir, "run")
	report := runner.NewReport(cfg)
	s := stats.NewStats()
	require.NoError(t, report.Start(time.Now(), s))
	s.Record(stats.Success, 64, 3*time.Millisecond)
	require.NoError(t, report.Complete(time.Now(), s))

	results := []runner.Result{{Seq: 0, TimeStamp: time.Now(), Status: 200, Outcome: stats.Success, Bytes: 64}}

	var out bytes.Buffer
	Finalize(&out, report, results, hist, zap.NewNop())

	assert.FileExists(t, cfg.OutPrefix+".csv")
	assert.FileExists(t, cfg.OutPrefix+"_summary.json")
	assert.Contains(t, out.String(), "Reports saved")

	items, err := hist.List(0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, report.ID, items[0].Report.ID)
}

func TestFinalize_NoPrefixNoHistory(t *testing.T) {
	dir := t.TempDir()
	report := runner.NewReport(runner.DefaultConfig())

	var out bytes.Buffer
	Finalize(&out, report, nil, nil, zap.NewNop())
	assert.Empty(t, out.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
