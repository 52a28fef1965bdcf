package suite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Report is the JSON document written by WriteReport.
type Report struct {
	RunName     string       `json:"run_name"`
	Storage     string       `json:"storage"`
	Catalog     string       `json:"catalog,omitempty"`
	QueryEngine string       `json:"query_engine"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
	Duration    string       `json:"duration"`
	Success     bool         `json:"success"`
	Passed      int          `json:"passed"`
	Failed      int          `json:"failed"`
	Steps       []StepResult `json:"steps"`
}

// NewReport summarises a suite run.
func NewReport(runName, storage, catalog, queryEngine string, start, end time.Time, success bool, steps []StepResult) Report {
	passed := Passed(steps)
	return Report{
		RunName:     runName,
		Storage:     storage,
		Catalog:     catalog,
		QueryEngine: queryEngine,
		StartTime:   start,
		EndTime:     end,
		Duration:    end.Sub(start).Round(time.Millisecond).String(),
		Success:     success,
		Passed:      passed,
		Failed:      len(steps) - passed,
		Steps:       steps,
	}
}

// WriteReport saves report as JSON in dir and returns the file path.
func WriteReport(dir string, report Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := report.StartTime.Format("20060102-150405")
	filename := fmt.Sprintf("icebergtest-report-%s-%s.json", timestamp, report.RunName)
	fullPath := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if err := os.WriteFile(fullPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return fullPath, nil
}
