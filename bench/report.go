package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/YuminosukeSato/scibench/datasets"
)

// Row is one line of the results table.
type Row struct {
	Name         string  `json:"classifier"`
	TrainSeconds float64 `json:"train_time_seconds"`
	TestSeconds  float64 `json:"test_time_seconds"`
	ErrorRate    float64 `json:"error_rate"`
}

// Report orders results by ascending error rate. Ties keep lexicographic
// name order.
func Report(results map[string]RunResult) []Row {
	rows := make([]Row, 0, len(results))
	for name, r := range results {
		rows = append(rows, Row{
			Name:         name,
			TrainSeconds: r.TrainTime.Seconds(),
			TestSeconds:  r.TestTime.Seconds(),
			ErrorRate:    r.ErrorRate,
		})
	}
	slices.SortFunc(rows, func(a, b Row) int { return strings.Compare(a.Name, b.Name) })
	slices.SortStableFunc(rows, func(a, b Row) int {
		switch {
		case a.ErrorRate < b.ErrorRate:
			return -1
		case a.ErrorRate > b.ErrorRate:
			return 1
		}
		return 0
	})
	return rows
}

// WriteTable writes the fixed-width results table.
func WriteTable(w io.Writer, rows []Row) error {
	if _, err := fmt.Fprintf(w, "%-24s %10s %11s %12s\n",
		"classifier  ", "train-time", "test-time", "error-rate"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 60)); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-23s %10.2fs %10.2fs %12.4f\n",
			r.Name, r.TrainSeconds, r.TestSeconds, r.ErrorRate); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes rows as indented JSON.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteDatasetStats writes the dataset summary printed before training.
func WriteDatasetStats(w io.Writer, s datasets.Stats) error {
	lines := []string{
		fmt.Sprintf("%-25s %d", "number of features:", s.Features),
		fmt.Sprintf("%-25s %d", "number of classes:", s.Classes),
		fmt.Sprintf("%-25s %s", "data type:", s.DType),
		fmt.Sprintf("%-25s %d (size=%dMB)", "number of train samples:", s.NTrain, int(float64(s.TrainBytes)/1e6)),
		fmt.Sprintf("%-25s %d (size=%dMB)", "number of test samples:", s.NTest, int(float64(s.TestBytes)/1e6)),
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
