package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"echoburst/internal/export"
	"echoburst/internal/runner"
	"echoburst/internal/storage"
)

const rule = "======================================================================"

type runOutcome struct {
	report *runner.Report
	err    error
}

// Start runs r headless, redrawing a batch progress line from updates until
// the run returns.
func Start(ctx context.Context, w io.Writer, r *runner.Runner, updates runner.StatsUpdateChan) (*runner.Report, error) {
	printHeader(w, r.Cfg)

	if r.Pool() == nil {
		fmt.Fprintf(w, "Generating %d test records...\n", r.Cfg.PoolSize)
		start := time.Now()
		if err := r.Prepare(); err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "Test data ready in %s\n\n", time.Since(start).Round(time.Millisecond))
	}

	done := make(chan runOutcome, 1)
	go func() {
		report, err := r.Run(ctx)
		done <- runOutcome{report, err}
	}()

	for {
		select {
		case snap := <-updates:
			fmt.Fprint(w, progressLine(snap))
		case out := <-done:
			fmt.Fprint(w, progressLine(r.Snapshot()))
			fmt.Fprintln(w)
			return out.report, out.err
		}
	}
}

func printHeader(w io.Writer, cfg runner.Config) {
	fmt.Fprintf(w, "\n🚀 STARTING ECHOBURST LOAD TEST\n")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Test Name  : %s\n", cfg.Target.TestName())
	fmt.Fprintf(w, "URL        : %s\n", cfg.Endpoint())
	fmt.Fprintf(w, "Requests   : %d in batches of %d (%d batches)\n", cfg.TotalRequests, cfg.BatchSize, cfg.TotalBatches())
	fmt.Fprintf(w, "Pool Size  : %d\n", cfg.PoolSize)
	fmt.Fprintf(w, "Timeout    : %s\n", cfg.DispatchTimeout)
	fmt.Fprintf(w, "Verify     : %t\n", cfg.VerifyResponse)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

func progressLine(s runner.StatsSnapshot) string {
	pct := 1.0
	if s.BatchesTotal > 0 {
		pct = float64(s.BatchesDone) / float64(s.BatchesTotal)
	}
	return fmt.Sprintf("\r%s %3.0f%% | Batch %d/%d | Inf: %3d | OK: %d | Failed: %d",
		progressBar(pct, 20), pct*100,
		s.BatchesDone, s.BatchesTotal,
		s.Inflight,
		s.Success,
		s.Fail,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

// PrintSummary writes the final report block.
func PrintSummary(w io.Writer, report *runner.Report, results []runner.Result) {
	fmt.Fprintf(w, "\n📊 LOAD TEST RESULTS\n")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Test Name: %s\n", report.TestName)
	fmt.Fprintf(w, "URL: %s\n", report.URL)
	fmt.Fprintf(w, "Total Failed: %d\n", report.Failed)
	fmt.Fprintf(w, "Time taken: %d seconds\n", report.ElapsedSeconds())
	if report.Aborted {
		fmt.Fprintf(w, "Aborted after %d batches\n", report.Batches)
	}

	fmt.Fprintf(w, "\nRequests Sent  : %d\n", report.Requests)
	fmt.Fprintf(w, "Success        : %d\n", report.Success)
	fmt.Fprintf(w, "  transport    : %d\n", report.TransportFailures)
	fmt.Fprintf(w, "  parse        : %d\n", report.ParseFailures)
	fmt.Fprintf(w, "  mismatch     : %d\n", report.MismatchFailures)
	fmt.Fprintf(w, "Error Rate     : %.2f%%\n", report.ErrorRate)
	fmt.Fprintf(w, "Actual RPS     : %.2f\n", report.RPS())

	fmt.Fprintf(w, "\n⏱️  RESPONSE TIMES (ms)\n")
	fmt.Fprintf(w, "   P50 : %.2f\n", report.Latency.P50Ms)
	fmt.Fprintf(w, "   P90 : %.2f\n", report.Latency.P90Ms)
	fmt.Fprintf(w, "   P95 : %.2f\n", report.Latency.P95Ms)
	fmt.Fprintf(w, "   P99 : %.2f\n", report.Latency.P99Ms)
	fmt.Fprintf(w, "   Max : %.2f\n", report.Latency.MaxMs)

	if sigs := failureSignatures(results, 5); len(sigs) > 0 {
		fmt.Fprintf(w, "\n❌ FAILURE SUMMARY\n")
		for _, sig := range sigs {
			fmt.Fprintf(w, "   %d x %s\n", sig.Count, sig)
		}
	}
	fmt.Fprintln(w, rule)
}

// FailureSignature groups failed dispatches that failed the same way.
type FailureSignature struct {
	Outcome string
	Status  int
	Err     string
	Count   int
}

func (f FailureSignature) String() string {
	if f.Status > 0 {
		return fmt.Sprintf("%s [%d] %s", f.Outcome, f.Status, f.Err)
	}
	return fmt.Sprintf("%s %s", f.Outcome, f.Err)
}

// failureSignatures returns the limit most frequent signatures.
func failureSignatures(results []runner.Result, limit int) []FailureSignature {
	counts := make(map[FailureSignature]int)
	for _, r := range results {
		if !r.Outcome.Failed() {
			continue
		}
		key := FailureSignature{Outcome: r.Outcome.String(), Status: r.Status}
		if r.Err != nil {
			key.Err = r.Err.Error()
		}
		counts[key]++
	}

	sigs := make([]FailureSignature, 0, len(counts))
	for k, n := range counts {
		k.Count = n
		sigs = append(sigs, k)
	}
	sort.Slice(sigs, func(i, j int) bool {
		if sigs[i].Count != sigs[j].Count {
			return sigs[i].Count > sigs[j].Count
		}
		return sigs[i].String() < sigs[j].String()
	})
	if limit > 0 && len(sigs) > limit {
		sigs = sigs[:limit]
	}
	return sigs
}

// Finalize writes the optional export files and records the run in history.
// Neither step fails the run; problems are logged.
func Finalize(w io.Writer, report *runner.Report, results []runner.Result, hist *storage.Store, log *zap.Logger) {
	if prefix := report.Config.OutPrefix; prefix != "" && len(results) > 0 {
		fmt.Fprintf(w, "\n💾 Generating reports with prefix: %s\n", prefix)
		if err := export.ExportAll(report, results, prefix); err != nil {
			log.Error("export failed", zap.String("prefix", prefix), zap.Error(err))
		} else {
			fmt.Fprintf(w, "✅ Reports saved to %s.csv and %s_summary.json\n", prefix, prefix)
		}
	}

	if hist != nil {
		item := storage.NewHistoryItem(report)
		if err := hist.Save(item); err != nil {
			log.Error("failed to save run history", zap.String("id", item.ID), zap.Error(err))
			return
		}
		log.Debug("run saved to history", zap.String("id", item.ID))
	}
}
