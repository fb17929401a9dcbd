package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"echoburst/internal/runner"
)

// ExportCSV writes one row per dispatch in a JMeter-like layout.
func ExportCSV(results []runner.Result, url, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"timeStamp", "elapsed", "label", "responseCode", "responseMessage",
		"threadName", "success", "failureMessage", "bytes", "URL", "outcome", "email",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		errMsg := ""
		if res.Err != nil {
			errMsg = res.Err.Error()
		}

		record := []string{
			strconv.FormatInt(res.TimeStamp.UnixMilli(), 10),
			strconv.FormatInt(res.Latency.Milliseconds(), 10),
			"add-person",
			strconv.Itoa(res.Status),
			http.StatusText(res.Status),
			fmt.Sprintf("dispatch-%d", res.Seq),
			strconv.FormatBool(!res.Outcome.Failed()),
			errMsg,
			strconv.FormatInt(res.Bytes, 10),
			url,
			res.Outcome.String(),
			res.Email,
		}

		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ExportSummary writes the completed report as indented JSON.
func ExportSummary(report *runner.Report, filename string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ExportAll writes prefix.csv and prefix_summary.json.
func ExportAll(report *runner.Report, results []runner.Result, prefix string) error {
	if err := ExportCSV(results, report.URL, prefix+".csv"); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	if err := ExportSummary(report, prefix+"_summary.json"); err != nil {
		return fmt.Errorf("export summary: %w", err)
	}
	return nil
}
