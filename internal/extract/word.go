package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

const maxTableRows = 10

// Keywords that mark business content in Word paragraphs and table headers
var (
	invoiceKeywords  = []string{"invoice", "bill", "payment", "amount", "total", "due", "order"}
	customerKeywords = []string{"customer", "client", "vendor", "supplier", "company"}
	productKeywords  = []string{"product", "item", "description", "quantity", "price"}
)

// WordBundle holds the paragraphs and tables of a .docx body
type WordBundle struct {
	Name       string
	Paragraphs []WordParagraph
	Tables     []WordTable
	// total body paragraphs including empty ones
	paragraphCount int
}

// WordParagraph is a non-empty body paragraph
type WordParagraph struct {
	Number int
	Text   string
	Style  string
}

// IsHeading reports whether the paragraph uses a heading or title style
func (p WordParagraph) IsHeading() bool {
	return strings.HasPrefix(p.Style, "Heading") || p.Style == "Title"
}

// WordTable is a body table; the first row is taken as the header
type WordTable struct {
	Number  int
	Headers []string
	Rows    [][]string
}

// FileName implements Bundle
func (b *WordBundle) FileName() string { return b.Name }

// DocumentType implements Bundle
func (b *WordBundle) DocumentType() string { return SourceWord }

// FinancialInfo implements Bundle, scanning paragraph text for labelled totals
func (b *WordBundle) FinancialInfo() *types.FinancialInfo {
	lines := make([]string, 0, len(b.Paragraphs))
	for _, p := range b.Paragraphs {
		lines = append(lines, p.Text)
	}
	for _, t := range b.Tables {
		for _, row := range t.Rows {
			lines = append(lines, strings.Join(row, " "))
		}
	}
	return ScanFinancialInfo(strings.Join(lines, "\n"))
}

// ToMap implements Bundle
func (b *WordBundle) ToMap() map[string]any {
	paragraphs := make([]map[string]any, 0, len(b.Paragraphs))
	headings := []map[string]any{}
	for _, p := range b.Paragraphs {
		paragraphs = append(paragraphs, map[string]any{
			"paragraph_number": p.Number,
			"text":             p.Text,
			"style":            p.Style,
			"is_heading":       p.IsHeading(),
		})
		if p.IsHeading() {
			headings = append(headings, map[string]any{
				"level":            p.Style,
				"text":             p.Text,
				"paragraph_number": p.Number,
			})
		}
	}

	tables := make([]map[string]any, 0, len(b.Tables))
	for _, t := range b.Tables {
		shown := t.Rows
		if len(shown) > maxTableRows {
			shown = shown[:maxTableRows]
		}
		tables = append(tables, map[string]any{
			"table_number": t.Number,
			"headers":      t.Headers,
			"rows":         len(t.Rows),
			"columns":      len(t.Headers),
			"data":         shown,
			"total_rows":   len(t.Rows),
		})
	}

	out := baseMap(b)
	out["total_paragraphs"] = b.paragraphCount
	out["total_tables"] = len(b.Tables)
	out["content"] = map[string]any{
		"paragraphs":      paragraphs,
		"tables":          tables,
		"headings":        headings,
		"structured_data": b.patterns(),
	}
	out["metadata"] = map[string]any{
		"has_tables":      len(b.Tables) > 0,
		"has_images":      false,
		"estimated_pages": max(1, b.paragraphCount/20),
	}
	if fin := b.FinancialInfo(); !fin.IsEmpty() {
		out["financial_info"] = fin.ToMap()
	}
	return out
}

// patterns flags paragraphs and tables that look like invoice, party or product data
func (b *WordBundle) patterns() []map[string]any {
	out := []map[string]any{}
	for _, p := range b.Paragraphs {
		lower := strings.ToLower(p.Text)
		location := fmt.Sprintf("paragraph_%d", p.Number)
		if containsAny(lower, invoiceKeywords) {
			out = append(out, map[string]any{
				"pattern_type": "invoice_related",
				"confidence":   "medium",
				"location":     location,
				"text_snippet": snippet(p.Text, 100),
			})
		}
		if containsAny(lower, customerKeywords) {
			out = append(out, map[string]any{
				"pattern_type": "entity_information",
				"confidence":   "medium",
				"location":     location,
				"text_snippet": snippet(p.Text, 100),
			})
		}
	}

	for _, t := range b.Tables {
		if len(t.Headers) == 0 {
			continue
		}
		header := strings.ToLower(strings.Join(t.Headers, " "))
		patternType := ""
		switch {
		case containsAny(header, invoiceKeywords):
			patternType = "invoice_table"
		case containsAny(header, productKeywords):
			patternType = "product_catalog"
		default:
			continue
		}
		out = append(out, map[string]any{
			"pattern_type": patternType,
			"confidence":   "high",
			"location":     fmt.Sprintf("table_%d", t.Number),
			"headers":      t.Headers,
		})
	}
	return out
}

// docx XML. Tags carry no namespace so they match the w: elements.
type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Style docxStyle `xml:"pPr>pStyle"`
	Runs  []docxRun `xml:"r"`
}

type docxStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

func (p docxParagraph) text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		for _, t := range r.Text {
			b.WriteString(t)
		}
	}
	return strings.TrimSpace(b.String())
}

func (c docxCell) text() string {
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		if t := p.text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func parseWord(name string, data []byte) (*WordBundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX as ZIP: %w", err)
	}

	var documentFile *zip.File
	for _, file := range zr.File {
		if file.Name == "word/document.xml" {
			documentFile = file
			break
		}
	}
	if documentFile == nil {
		return nil, fmt.Errorf("document.xml not found in DOCX")
	}

	rc, err := documentFile.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read document.xml: %w", err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document.xml: %w", err)
	}

	bundle := &WordBundle{Name: name, paragraphCount: len(doc.Body.Paragraphs)}
	for i, p := range doc.Body.Paragraphs {
		text := p.text()
		if text == "" {
			continue
		}
		style := p.Style.Val
		if style == "" {
			style = "Normal"
		}
		bundle.Paragraphs = append(bundle.Paragraphs, WordParagraph{Number: i + 1, Text: text, Style: style})
	}

	for i, t := range doc.Body.Tables {
		table := WordTable{Number: i + 1, Headers: []string{}, Rows: [][]string{}}
		for j, row := range t.Rows {
			cells := make([]string, len(row.Cells))
			for k, c := range row.Cells {
				cells[k] = c.text()
			}
			if j == 0 {
				table.Headers = cells
			} else {
				table.Rows = append(table.Rows, cells)
			}
		}
		bundle.Tables = append(bundle.Tables, table)
	}

	return bundle, nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
