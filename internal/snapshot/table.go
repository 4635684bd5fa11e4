package snapshot

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// table is a header-indexed set of string records read from CSV or XLSX.
type table struct {
	name   string
	header []string
	cols   map[string]int
	rows   [][]string
	// lines holds the 1-based source line of each row, header included.
	lines []int
}

func newTable(name string, records [][]string) (*table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header row", name)
	}
	t := &table{
		name:   name,
		header: make([]string, len(records[0])),
		cols:   make(map[string]int, len(records[0])),
	}
	for i, col := range records[0] {
		key := normalizeColumn(col)
		t.header[i] = key
		t.cols[key] = i
	}
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		t.rows = append(t.rows, rec)
		t.lines = append(t.lines, i+2)
	}
	return t, nil
}

// normalizeColumn maps "Average Daily Sales" and "average_daily_sales" to the
// same key.
func normalizeColumn(col string) string {
	col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
	col = strings.ToLower(col)
	return strings.NewReplacer(" ", "_", "-", "_").Replace(col)
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (t *table) require(cols ...string) error {
	for _, c := range cols {
		if _, ok := t.cols[c]; !ok {
			return fmt.Errorf("%s: missing required column: %s", t.name, c)
		}
	}
	return nil
}

func (t *table) has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

func (t *table) value(row []string, col string) string {
	if idx, ok := t.cols[col]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// float parses a numeric cell of row i; empty cells read as 0.
func (t *table) float(i int, col string) (float64, error) {
	raw := t.value(t.rows[i], col)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, t.errorf(i, "column %s: %q is not a number", col, raw)
	}
	return f, nil
}

func (t *table) errorf(i int, format string, args ...interface{}) error {
	return fmt.Errorf("%s:%d: %s", t.name, t.lines[i], fmt.Sprintf(format, args...))
}

func readCSV(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseCSV(filepath.Base(path), f)
}

func parseCSV(name string, r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return newTable(name, records)
}

// readXLSX reads the first sheet of an XLSX workbook.
func readXLSX(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	return newTable(filepath.Base(path), records)
}
