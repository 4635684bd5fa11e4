package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/pipeline"
)

func writeSnapshot(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	files := map[string]string{
		"revenue.csv":      "period,value\n2024-01,100\n2024-02,100\n2024-03,100\n2024-04,100\n2024-05,100\n2024-06,100\n2024-07,100\n2024-08,100\n2024-09,100\n2024-10,100\n2024-11,1000\n",
		"customers.csv":    "id,recency,frequency,monetary\nc1,5,12,4000\nc2,200,1,50\n",
		"interactions.csv": "entity_id,item_id,quantity\nc1,sku-1,3\nc1,sku-2,1\nc2,sku-1,2\nc2,sku-3,4\n",
		"inventory.csv":    "id,quantity_on_hand,min_quantity,average_daily_sales,lead_time_days,value\nsku-1,40,50,5,7,500\nsku-2,0,0,1,3,300\nsku-3,500,0,2,5,200\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	out := filepath.Join(t.TempDir(), "out.json")
	argv := append([]string{"insights", "--log-level", "error", "--out", out}, args...)
	err := newApp().Run(argv)
	data, _ := os.ReadFile(out)
	return string(data), err
}

func TestForecastCommand(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)

	out, err := run(t, "forecast", "--dir", dir, "--horizon", "2")
	require.NoError(t, err)

	var report domain.ForecastReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Points, 2)
}

func TestAnomaliesCommand(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)

	out, err := run(t, "anomalies", "--dir", dir)
	require.NoError(t, err)

	var anomalies []domain.Anomaly
	require.NoError(t, json.Unmarshal([]byte(out), &anomalies))
	require.Len(t, anomalies, 1)
	assert.Equal(t, domain.KindSpike, anomalies[0].Kind)
}

func TestRecommendCommand(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)

	out, err := run(t, "recommend", "--dir", dir, "--entity", "c1")
	require.NoError(t, err)

	var recs map[string][]domain.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs["c1"], 1)
	assert.Equal(t, "sku-3", recs["c1"][0].ItemID)

	out, err = run(t, "recommend", "--dir", dir)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	assert.Len(t, recs, 2)
}

func TestReplenishAndABCCommands(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)

	out, err := run(t, "replenish", "--dir", dir, "--urgency", "critical")
	require.NoError(t, err)
	var suggestions []domain.ReorderSuggestion
	require.NoError(t, json.Unmarshal([]byte(out), &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, "sku-2", suggestions[0].ItemID)

	out, err = run(t, "abc", "--dir", dir, "--class", "b")
	require.NoError(t, err)
	var entries []domain.ABCEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "sku-2", entries[0].ItemID)
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)

	out, err := run(t, "report", "--dir", dir, "--k", "2")
	require.NoError(t, err)

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Empty(t, report.Skipped)
	require.NotNil(t, report.Segments)
	assert.Len(t, report.Segments.Clusters, 2)
}

func TestBatchCommand(t *testing.T) {
	root := t.TempDir()
	writeSnapshot(t, filepath.Join(root, "2024-10"))
	writeSnapshot(t, filepath.Join(root, "2024-11"))
	reports := t.TempDir()

	out, err := run(t, "batch", "--root-dir", root, "--output-dir", reports, "--workers", "2")
	require.NoError(t, err)

	var summary pipeline.Run
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, pipeline.StatusCompleted, summary.Status)
	assert.Equal(t, 2, summary.Completed)
	assert.FileExists(t, filepath.Join(reports, "2024-10.json"))
	assert.FileExists(t, filepath.Join(reports, "2024-11.json"))
}

func TestSourceSelection(t *testing.T) {
	_, err := run(t, "forecast")
	assert.ErrorContains(t, err, "one of --dir")

	_, err = run(t, "forecast", "--dir", "a", "--drive-folder", "b")
	assert.ErrorContains(t, err, "only one snapshot source")

	_, err = run(t, "forecast", "--dir", t.TempDir(), "--granularity", "fortnight")
	assert.ErrorContains(t, err, "unknown granularity")
}

func TestInvalidOptionsSurface(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)

	_, err := run(t, "forecast", "--dir", dir, "--alpha", "0")
	assert.True(t, domain.IsInvalidInput(err))
}

func TestPeriodsCommand(t *testing.T) {
	db, mock, err := sqlmock.NewWithDSN("insights-periods")
	require.NoError(t, err)
	defer db.Close()

	prev := dbDriver
	dbDriver = "sqlmock"
	t.Cleanup(func() { dbDriver = prev })

	mock.ExpectQuery("SELECT DISTINCT date_trunc").
		WithArgs("week", 2).
		WillReturnRows(sqlmock.NewRows([]string{"period"}).
			AddRow(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)).
			AddRow(time.Date(2024, time.June, 24, 0, 0, 0, 0, time.UTC)))

	out, err := run(t, "periods", "--db-url", "insights-periods", "--granularity", "weekly", "--limit", "2")
	require.NoError(t, err)

	var periods []string
	require.NoError(t, json.Unmarshal([]byte(out), &periods))
	assert.Equal(t, []string{"2024-07-01", "2024-06-24"}, periods)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodsCommandValidation(t *testing.T) {
	_, err := run(t, "periods")
	assert.ErrorContains(t, err, "--db-url is required")

	_, err = run(t, "periods", "--db-url", "x", "--granularity", "fortnight")
	assert.ErrorContains(t, err, "unknown granularity")
}
