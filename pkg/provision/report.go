package provision

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"
)

// WriteResults prints the results as a table under a RESULTS: heading
func WriteResults(out io.Writer, results []Result) error {
	if _, err := fmt.Fprintln(out, "RESULTS:"); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ROW\tUSERNAME\tSTATUS\tDETAIL")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Row, r.Username, r.Status, r.Detail)
	}
	return w.Flush()
}

// WriteCSVReport writes the run's results as CSV with a header row
func WriteCSVReport(out io.Writer, run *Run) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"run_id", "started_at", "row", "username", "status", "detail"}); err != nil {
		return err
	}

	started := run.StartedAt.UTC().Format(time.RFC3339)
	for _, r := range run.Results {
		record := []string{run.ID.String(), started, strconv.Itoa(r.Row), r.Username, string(r.Status), r.Detail}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteCSVReportFile writes the CSV report to path, replacing any existing file
func WriteCSVReportFile(path string, run *Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := WriteCSVReport(f, run); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
