package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

// HTMLBundle holds the tables and visible text of an HTML export
type HTMLBundle struct {
	Name   string
	Title  string
	Tables []WordTable
	Lines  []string
}

// FileName implements Bundle
func (b *HTMLBundle) FileName() string { return b.Name }

// DocumentType implements Bundle
func (b *HTMLBundle) DocumentType() string { return SourceHTML }

// FinancialInfo implements Bundle
func (b *HTMLBundle) FinancialInfo() *types.FinancialInfo {
	lines := append([]string{}, b.Lines...)
	for _, t := range b.Tables {
		for _, row := range t.Rows {
			lines = append(lines, strings.Join(row, " "))
		}
	}
	return ScanFinancialInfo(strings.Join(lines, "\n"))
}

// ToMap implements Bundle
func (b *HTMLBundle) ToMap() map[string]any {
	tables := make([]map[string]any, 0, len(b.Tables))
	for _, t := range b.Tables {
		tables = append(tables, map[string]any{
			"table_number": t.Number,
			"headers":      t.Headers,
			"data":         t.Rows,
			"total_rows":   len(t.Rows),
		})
	}

	pairs := []map[string]any{}
	for _, line := range b.Lines {
		if k, v, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			pairs = append(pairs, map[string]any{"key": strings.TrimSpace(k), "value": strings.TrimSpace(v)})
		}
	}

	out := baseMap(b)
	out["title"] = b.Title
	out["content"] = map[string]any{
		"tables":          tables,
		"text":            b.Lines,
		"key_value_pairs": pairs,
	}
	if fin := b.FinancialInfo(); !fin.IsEmpty() {
		out["financial_info"] = fin.ToMap()
	}
	return out
}

func parseHTML(name string, data []byte) (*HTMLBundle, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	bundle := &HTMLBundle{Name: name, Title: normalizeSpaces(doc.Find("title").First().Text())}

	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		t := WordTable{Number: i + 1, Headers: []string{}, Rows: [][]string{}}
		table.Find("tr").Each(func(j int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}
			if j == 0 {
				t.Headers = cells
			} else {
				t.Rows = append(t.Rows, cells)
			}
		})
		bundle.Tables = append(bundle.Tables, t)
	})

	// Text outside tables, one line per block element
	doc.Find("script,style,table").Remove()
	doc.Find("body").Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		if s.Find(blockElements).Length() > 0 {
			return
		}
		if text := normalizeSpaces(s.Text()); text != "" {
			bundle.Lines = appendUnique(bundle.Lines, text)
		}
	})

	if len(bundle.Tables) == 0 && len(bundle.Lines) == 0 {
		return nil, fmt.Errorf("no tables or text found in HTML")
	}
	return bundle, nil
}

const blockElements = "p,div,li,h1,h2,h3,h4,h5,h6,dt,dd"

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func appendUnique(lines []string, line string) []string {
	if len(lines) > 0 && lines[len(lines)-1] == line {
		return lines
	}
	return append(lines, line)
}
