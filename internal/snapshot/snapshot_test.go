package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDirCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2024-06")
	require.NoError(t, os.Mkdir(dir, 0o755))

	writeFile(t, dir, "revenue.csv", "Period,Value\n2024-02,1200\n2024-01,1000\n\n2024-03,\"1,100\"\n")
	writeFile(t, dir, "customers.csv", "id,name,recency,frequency,monetary\nc1,Ann,5,12,4000\nc2,Bob,200,1,50\n")
	writeFile(t, dir, "interactions.csv", "entity_id,item_id,quantity\nc1,sku-1,2\nc1,sku-1,3\nc2,sku-2,1\n")
	writeFile(t, dir, "inventory.csv", "ID,Name,Quantity On Hand,Min Quantity,Average Daily Sales,Lead Time Days,Value\nsku-1,Soap,40,50,5,7,500\n")

	snap, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "2024-06", snap.Label)
	assert.False(t, snap.TakenAt.IsZero())

	require.Len(t, snap.Revenue, 3)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), snap.Revenue[0].Period)
	assert.Equal(t, []float64{1000, 1200, 1100}, []float64{snap.Revenue[0].Value, snap.Revenue[1].Value, snap.Revenue[2].Value})

	require.Len(t, snap.Customers, 2)
	assert.Equal(t, domain.EntityFeatureVector{ID: "c1", Features: []float64{5, 12, 4000}}, snap.Customers[0])

	assert.Equal(t, domain.RatingMatrix{
		"c1": {"sku-1": 5},
		"c2": {"sku-2": 1},
	}, snap.Interactions)

	require.Len(t, snap.Inventory, 1)
	assert.Equal(t, domain.InventoryItem{
		ID: "sku-1", Name: "Soap", QuantityOnHand: 40, MinQuantity: 50,
		AverageDailySales: 5, LeadTimeDays: 7, Value: 500,
	}, snap.Inventory[0])
}

func TestLoadDirPartial(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inventory.csv", "id,quantity_on_hand,average_daily_sales,lead_time_days\nsku-1,0,1,2\n")

	snap, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, snap.Revenue)
	assert.Empty(t, snap.Customers)
	assert.Empty(t, snap.Interactions)
	assert.Len(t, snap.Inventory, 1)
}

func TestLoadDirXLSX(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"period", "value"},
		{"2024-01-01", 10},
		{"2024-02-01", 20},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "revenue.xlsx")))
	require.NoError(t, f.Close())

	snap, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, snap.Revenue, 2)
	assert.Equal(t, 20.0, snap.Revenue[1].Value)
}

func TestLoadDirJSONDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "snapshot.json", `{
		"revenue": [
			{"period": "2024-02-01T00:00:00Z", "value": 2},
			{"period": "2024-01-01T00:00:00Z", "value": 1}
		],
		"interactions": {"c1": {"sku-1": 1}}
	}`)
	// ignored when the document exists
	writeFile(t, dir, "revenue.csv", "period,value\nnot-a-date,1\n")

	snap, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), snap.Label)
	require.Len(t, snap.Revenue, 2)
	assert.Equal(t, 1.0, snap.Revenue[0].Value)
	assert.Equal(t, 1.0, snap.Interactions["c1"]["sku-1"])
}

func TestLoadDirErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{name: "missing column", file: "revenue.csv", content: "period\n2024-01\n", want: "missing required column: value"},
		{name: "bad number", file: "revenue.csv", content: "period,value\n2024-01,abc\n", want: "revenue.csv:2"},
		{name: "bad period", file: "revenue.csv", content: "period,value\nlast month,1\n", want: "unrecognised period"},
		{name: "duplicate period", file: "revenue.csv", content: "period,value\n2024-01,1\n2024-01-01,2\n", want: "duplicate period"},
		{name: "customer without id", file: "customers.csv", content: "id,recency\n,3\n", want: "missing id"},
		{name: "bad inventory", file: "inventory.csv", content: "id,quantity_on_hand,average_daily_sales,lead_time_days\nsku,x,1,1\n", want: "quantity_on_hand"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)
			_, err := LoadDir(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDirEmpty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.ErrorContains(t, err, "no snapshot tables")

	_, err = LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

type bucket struct {
	objects map[string]string
}

func (b *bucket) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k})
		}
	}
	return out, nil
}

func (b *bucket) DownloadObject(ctx context.Context, key, destPath string) error {
	return os.WriteFile(destPath, []byte(b.objects[key]), 0o644)
}

func (b *bucket) UploadObject(ctx context.Context, key string, data []byte) error {
	b.objects[key] = string(data)
	return nil
}

func TestBucketSource(t *testing.T) {
	store := &bucket{objects: map[string]string{
		"snapshots/2024-06/revenue.csv": "period,value\n2024-01,5\n",
	}}
	src := BucketSource{Store: store, Prefix: "snapshots/2024-06/", WorkDir: t.TempDir()}

	snap, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-06", snap.Label)
	assert.Len(t, snap.Revenue, 1)
	assert.Equal(t, "bucket:snapshots/2024-06/", src.Name())
}

func TestBucketSourceReloadsFreshContents(t *testing.T) {
	store := &bucket{objects: map[string]string{
		"snapshots/latest/snapshot.json": `{"revenue":[{"period":"2024-01-01T00:00:00Z","value":5}]}`,
	}}
	workDir := t.TempDir()
	src := BucketSource{Store: store, Prefix: "snapshots/latest", WorkDir: workDir}

	snap, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Revenue, 1)

	store.objects = map[string]string{
		"snapshots/latest/revenue.csv": "period,value\n2024-01,5\n2024-02,6\n2024-03,7\n",
	}
	snap, err = src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Revenue, 3)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBucketSourceRootPrefixLabel(t *testing.T) {
	store := &bucket{objects: map[string]string{
		"revenue.csv": "period,value\n2024-01,5\n",
	}}

	snap, err := BucketSource{Store: store, WorkDir: t.TempDir()}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "root", snap.Label)
}

func TestTempDir(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "work")

	a, cleanA, err := TempDir(workDir, "snap")
	require.NoError(t, err)
	b, cleanB, err := TempDir(workDir, "snap")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.DirExists(t, a)

	cleanA()
	cleanB()
	assert.NoDirExists(t, a)
	assert.NoDirExists(t, b)
}

func TestDirSourceHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := DirSource{Dir: t.TempDir()}.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
