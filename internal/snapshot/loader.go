// Package snapshot loads a read-only business snapshot from a directory of
// CSV/XLSX tables or a single JSON document.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/recommend"
)

// Table base names inside a snapshot directory.
const (
	RevenueTable      = "revenue"
	CustomersTable    = "customers"
	InteractionsTable = "interactions"
	InventoryTable    = "inventory"
	DocumentFile      = "snapshot.json"
)

var tableExts = []string{".csv", ".xlsx"}

// periodLayouts are tried in order when parsing revenue periods.
var periodLayouts = []string{
	"2006-01-02",
	"2006-01",
	time.RFC3339,
	"2006/01/02",
	"2006/01",
}

// nonFeatureColumns are customer columns that never become features.
var nonFeatureColumns = map[string]bool{
	"id":    true,
	"name":  true,
	"label": true,
}

// LoadDir reads a snapshot directory. snapshot.json wins when present;
// otherwise each table is optional and a missing one leaves its section
// empty.
func LoadDir(dir string) (*domain.Snapshot, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot dir %s is not a directory", dir)
	}

	if doc := filepath.Join(dir, DocumentFile); fileExists(doc) {
		f, err := os.Open(doc)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		snap, err := DecodeJSON(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc, err)
		}
		if snap.Label == "" {
			snap.Label = filepath.Base(dir)
		}
		return snap, nil
	}

	snap := &domain.Snapshot{Label: filepath.Base(filepath.Clean(dir))}
	var newest time.Time
	found := false

	load := func(name string, fn func(*table) error) error {
		path, ok := findTable(dir, name)
		if !ok {
			return nil
		}
		found = true
		if st, err := os.Stat(path); err == nil && st.ModTime().After(newest) {
			newest = st.ModTime()
		}

		read := readCSV
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			read = readXLSX
		}
		t, err := read(path)
		if err != nil {
			return err
		}
		return fn(t)
	}

	steps := []struct {
		name string
		fn   func(*table) error
	}{
		{RevenueTable, func(t *table) (err error) {
			snap.Revenue, err = parseRevenue(t)
			return err
		}},
		{CustomersTable, func(t *table) (err error) {
			snap.Customers, err = parseCustomers(t)
			return err
		}},
		{InteractionsTable, func(t *table) error {
			lines, err := parseInteractions(t)
			if err != nil {
				return err
			}
			snap.Interactions = recommend.BuildMatrix(lines)
			return nil
		}},
		{InventoryTable, func(t *table) (err error) {
			snap.Inventory, err = parseInventory(t)
			return err
		}},
	}
	for _, step := range steps {
		if err := load(step.name, step.fn); err != nil {
			return nil, err
		}
	}

	if !found {
		return nil, fmt.Errorf("snapshot dir %s contains no snapshot tables", dir)
	}
	snap.TakenAt = newest.UTC()
	return snap, nil
}

// DecodeJSON reads a snapshot document and sorts its revenue series.
func DecodeJSON(r io.Reader) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := sortSeries(snap.Revenue); err != nil {
		return nil, err
	}
	return &snap, nil
}

func findTable(dir, name string) (string, bool) {
	for _, ext := range tableExts {
		path := filepath.Join(dir, name+ext)
		if fileExists(path) {
			return path, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func parseRevenue(t *table) ([]domain.PeriodPoint, error) {
	if err := t.require("period", "value"); err != nil {
		return nil, err
	}

	series := make([]domain.PeriodPoint, 0, len(t.rows))
	for i, row := range t.rows {
		period, err := parsePeriod(t.value(row, "period"))
		if err != nil {
			return nil, t.errorf(i, "%v", err)
		}
		value, err := t.float(i, "value")
		if err != nil {
			return nil, err
		}
		series = append(series, domain.PeriodPoint{Period: period, Value: value})
	}

	if err := sortSeries(series); err != nil {
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}
	return series, nil
}

func parsePeriod(raw string) (time.Time, error) {
	for _, layout := range periodLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised period %q", raw)
}

// sortSeries orders points chronologically and rejects duplicate periods.
func sortSeries(series []domain.PeriodPoint) error {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Period.Before(series[j].Period)
	})
	for i := 1; i < len(series); i++ {
		if series[i].Period.Equal(series[i-1].Period) {
			return fmt.Errorf("duplicate period %s", series[i].Period.Format("2006-01-02"))
		}
	}
	return nil
}

// parseCustomers turns every column except id/name/label into a feature, in
// header order. RFM tables are expected as id,recency,frequency,monetary.
func parseCustomers(t *table) ([]domain.EntityFeatureVector, error) {
	if err := t.require("id"); err != nil {
		return nil, err
	}

	var features []string
	for _, col := range t.header {
		if !nonFeatureColumns[col] && col != "" {
			features = append(features, col)
		}
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%s: no feature columns", t.name)
	}

	out := make([]domain.EntityFeatureVector, 0, len(t.rows))
	for i, row := range t.rows {
		id := t.value(row, "id")
		if id == "" {
			return nil, t.errorf(i, "missing id")
		}
		vec := make([]float64, len(features))
		for j, col := range features {
			v, err := t.float(i, col)
			if err != nil {
				return nil, err
			}
			vec[j] = v
		}
		out = append(out, domain.EntityFeatureVector{ID: id, Features: vec})
	}
	return out, nil
}

func parseInteractions(t *table) ([]domain.Interaction, error) {
	if err := t.require("entity_id", "item_id"); err != nil {
		return nil, err
	}
	hasQty := t.has("quantity")

	out := make([]domain.Interaction, 0, len(t.rows))
	for i, row := range t.rows {
		qty := 1.0
		if hasQty {
			v, err := t.float(i, "quantity")
			if err != nil {
				return nil, err
			}
			qty = v
		}
		out = append(out, domain.Interaction{
			EntityID: t.value(row, "entity_id"),
			ItemID:   t.value(row, "item_id"),
			Quantity: qty,
		})
	}
	return out, nil
}

func parseInventory(t *table) ([]domain.InventoryItem, error) {
	if err := t.require("id", "quantity_on_hand", "average_daily_sales", "lead_time_days"); err != nil {
		return nil, err
	}

	out := make([]domain.InventoryItem, 0, len(t.rows))
	for i, row := range t.rows {
		item := domain.InventoryItem{
			ID:   t.value(row, "id"),
			Name: t.value(row, "name"),
		}
		if item.ID == "" {
			return nil, t.errorf(i, "missing id")
		}

		fields := []struct {
			col string
			dst *float64
		}{
			{"quantity_on_hand", &item.QuantityOnHand},
			{"min_quantity", &item.MinQuantity},
			{"average_daily_sales", &item.AverageDailySales},
			{"lead_time_days", &item.LeadTimeDays},
			{"value", &item.Value},
		}
		for _, f := range fields {
			v, err := t.float(i, f.col)
			if err != nil {
				return nil, err
			}
			*f.dst = v
		}
		out = append(out, item)
	}
	return out, nil
}
