package suite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport(t *testing.T) {
	start := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)
	steps := []StepResult{
		{Test: "test_create_catalog_table", Status: StatusSuccess, Duration: time.Second},
		{Test: "test_verify_data", Status: StatusFailed, Error: "unexpected rows"},
	}
	report := NewReport("feedface", "minio", "nessie", "trino", start, start.Add(1500*time.Millisecond), false, steps)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "1.5s", report.Duration)

	dir := filepath.Join(t.TempDir(), "reports")
	path, err := WriteReport(dir, report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "icebergtest-report-20240305-143000-feedface.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "nessie", decoded["catalog"])
	assert.Equal(t, false, decoded["success"])
	stepsJSON := decoded["steps"].([]any)
	require.Len(t, stepsJSON, 2)
	assert.Equal(t, "unexpected rows", stepsJSON[1].(map[string]any)["error"])
	assert.NotContains(t, stepsJSON[0].(map[string]any), "error")
}

func TestNewReport_CatalogFreeOmitsCatalog(t *testing.T) {
	now := time.Now()
	data, err := json.Marshal(NewReport("r", "minio", "", "trino", now, now, true, nil))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"catalog"`)
}
