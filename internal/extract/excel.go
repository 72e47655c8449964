package extract

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

// keyColumnRatio is the share of distinct values above which a column may be a key
const keyColumnRatio = 0.8

// ExcelBundle holds every sheet of a workbook, first row taken as the header
type ExcelBundle struct {
	Name   string
	Sheets []Sheet
}

// Sheet is one worksheet with its analysis
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]any // cell values: float64 for numbers, string otherwise
}

// FileName implements Bundle
func (b *ExcelBundle) FileName() string { return b.Name }

// DocumentType implements Bundle
func (b *ExcelBundle) DocumentType() string { return SourceExcel }

// FinancialInfo implements Bundle. Spreadsheets carry no stated totals.
func (b *ExcelBundle) FinancialInfo() *types.FinancialInfo { return nil }

// ToMap implements Bundle
func (b *ExcelBundle) ToMap() map[string]any {
	out := baseMap(b)
	sheets := make(map[string]any, len(b.Sheets))
	names := make([]string, 0, len(b.Sheets))
	for _, s := range b.Sheets {
		sheets[s.Name] = s.toMap()
		names = append(names, s.Name)
	}
	out["total_sheets"] = len(b.Sheets)
	out["sheet_names"] = names
	out["sheets"] = sheets
	return out
}

func (s Sheet) toMap() map[string]any {
	records := s.records(0, len(s.Rows))
	first := s.records(0, min(3, len(s.Rows)))
	last := []map[string]any{}
	if len(s.Rows) > 3 {
		last = s.records(len(s.Rows)-3, len(s.Rows))
	}

	return map[string]any{
		"sheet_name":    s.Name,
		"total_rows":    len(s.Rows),
		"total_columns": len(s.Columns),
		"columns": map[string]any{
			"names":      s.Columns,
			"data_types": s.dataTypes(),
		},
		"all_data": records,
		"sample_preview": map[string]any{
			"first_3_rows": first,
			"last_3_rows":  last,
		},
		"summary_statistics":    s.statistics(),
		"potential_key_columns": s.keyColumns(),
		"empty_cells_count":     s.emptyCounts(),
	}
}

func (s Sheet) records(from, to int) []map[string]any {
	out := make([]map[string]any, 0, to-from)
	for _, row := range s.Rows[from:to] {
		rec := make(map[string]any, len(s.Columns))
		for i, col := range s.Columns {
			rec[col] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

// dataTypes labels a column "number" when every non-empty cell is numeric
func (s Sheet) dataTypes() map[string]string {
	out := make(map[string]string, len(s.Columns))
	for i, col := range s.Columns {
		if _, ok := s.numbers(i); ok {
			out[col] = "number"
		} else {
			out[col] = "text"
		}
	}
	return out
}

func (s Sheet) numbers(col int) ([]float64, bool) {
	var nums []float64
	for _, row := range s.Rows {
		switch v := row[col].(type) {
		case float64:
			nums = append(nums, v)
		case string:
			if v != "" {
				return nil, false
			}
		}
	}
	return nums, len(nums) > 0
}

func (s Sheet) statistics() map[string]any {
	out := map[string]any{}
	for i, col := range s.Columns {
		nums, ok := s.numbers(i)
		if !ok {
			continue
		}
		sum, lo, hi := 0.0, math.Inf(1), math.Inf(-1)
		for _, n := range nums {
			sum += n
			lo = math.Min(lo, n)
			hi = math.Max(hi, n)
		}
		out[col] = map[string]any{
			"count": len(nums),
			"mean":  sum / float64(len(nums)),
			"min":   lo,
			"max":   hi,
		}
	}
	return out
}

func (s Sheet) keyColumns() []map[string]any {
	out := []map[string]any{}
	if len(s.Rows) == 0 {
		return out
	}
	for i, col := range s.Columns {
		distinct := map[string]struct{}{}
		for _, row := range s.Rows {
			if v := fmt.Sprint(row[i]); v != "" {
				distinct[v] = struct{}{}
			}
		}
		ratio := float64(len(distinct)) / float64(len(s.Rows))
		if ratio > keyColumnRatio {
			out = append(out, map[string]any{
				"column":        col,
				"unique_ratio":  math.Round(ratio*100) / 100,
				"unique_values": min(10, len(distinct)),
			})
		}
	}
	return out
}

func (s Sheet) emptyCounts() map[string]int {
	out := make(map[string]int, len(s.Columns))
	for i, col := range s.Columns {
		n := 0
		for _, row := range s.Rows {
			if row[i] == "" {
				n++
			}
		}
		out[col] = n
	}
	return out
}

func parseExcel(name string, data []byte) (*ExcelBundle, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	bundle := &ExcelBundle{Name: name}
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
		}
		bundle.Sheets = append(bundle.Sheets, buildSheet(sheetName, rows))
	}
	return bundle, nil
}

// buildSheet takes the first non-empty row as the header and pads data rows to its width
func buildSheet(name string, rows [][]string) Sheet {
	sheet := Sheet{Name: name, Columns: []string{}, Rows: [][]any{}}

	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return sheet
	}

	width := 0
	for _, row := range rows[start:] {
		width = max(width, len(row))
	}
	sheet.Columns = headerNames(rows[start], width)

	for _, row := range rows[start+1:] {
		if blank(row) {
			continue
		}
		values := make([]any, width)
		for i := range values {
			values[i] = ""
			if i < len(row) {
				values[i] = cellValue(row[i])
			}
		}
		sheet.Rows = append(sheet.Rows, values)
	}
	return sheet
}

// headerNames names blank or repeated headers "Unnamed: i" and "name.n"
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	seen := map[string]int{}
	for i := range names {
		h := ""
		if i < len(header) {
			h = strings.TrimSpace(header[i])
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n := seen[h]; n > 0 {
			seen[h]++
			h = fmt.Sprintf("%s.%d", h, n)
		} else {
			seen[h] = 1
		}
		names[i] = h
	}
	return names
}

func cellValue(raw string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return v
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
