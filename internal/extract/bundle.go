// Package extract turns uploaded files into extraction bundles: format-specific maps
// of the raw content that are embedded verbatim in the normalization prompt.
package extract

import (
	"github.com/jonathan/invoice-reconciler/internal/types"
)

// Source labels reported as a bundle's document_type
const (
	SourceExcel = "Excel"
	SourceWord  = "Word"
	SourcePDF   = "PDF"
	SourceHTML  = "HTML"
	SourceJSON  = "JSON"
)

// Bundle is the raw content of one file, ready to be embedded in a prompt
type Bundle interface {
	// ToMap renders the bundle; it always carries file_name and document_type
	ToMap() map[string]any
	// FileName is the base name of the source file
	FileName() string
	// DocumentType is the source format label
	DocumentType() string
	// FinancialInfo returns the totals stated on the document, or nil
	FinancialInfo() *types.FinancialInfo
}

// IsErrorMap reports whether a rendered bundle is an extraction failure.
// Any map lacking error: true is a valid bundle.
func IsErrorMap(m map[string]any) bool {
	v, ok := m["error"].(bool)
	return ok && v
}

func baseMap(b Bundle) map[string]any {
	return map[string]any{
		"file_name":     b.FileName(),
		"document_type": b.DocumentType(),
	}
}
