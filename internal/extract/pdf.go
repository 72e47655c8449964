package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

// PDFBundle holds the plain text of each page of a PDF
type PDFBundle struct {
	Name  string
	Pages []string
}

// FileName implements Bundle
func (b *PDFBundle) FileName() string { return b.Name }

// DocumentType implements Bundle
func (b *PDFBundle) DocumentType() string { return SourcePDF }

// FinancialInfo implements Bundle, scanning the page text for labelled totals
func (b *PDFBundle) FinancialInfo() *types.FinancialInfo {
	return ScanFinancialInfo(b.rawText())
}

// ToMap implements Bundle
func (b *PDFBundle) ToMap() map[string]any {
	pages := make([]map[string]any, 0, len(b.Pages))
	for i, text := range b.Pages {
		lines := []map[string]any{}
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, map[string]any{"content": line})
			}
		}
		pages = append(pages, map[string]any{
			"page_number": i + 1,
			"lines":       lines,
		})
	}

	out := baseMap(b)
	out["extraction_method"] = "text layer"
	out["pages"] = len(b.Pages)
	out["content"] = map[string]any{
		"pages":    pages,
		"raw_text": b.rawText(),
	}
	if fin := b.FinancialInfo(); !fin.IsEmpty() {
		out["financial_info"] = fin.ToMap()
	}
	return out
}

func (b *PDFBundle) rawText() string {
	return strings.Join(b.Pages, "\n")
}

func parsePDF(name string, data []byte) (*PDFBundle, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	bundle := &PDFBundle{Name: name}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		bundle.Pages = append(bundle.Pages, text)
	}

	if strings.TrimSpace(bundle.rawText()) == "" {
		return nil, fmt.Errorf("no text layer found; scanned PDFs are not supported")
	}
	return bundle, nil
}
