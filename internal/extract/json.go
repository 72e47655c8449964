package extract

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

// JSONBundle is a pre-extracted bundle, such as document-intelligence output saved to
// disk. Its content is passed through as-is.
type JSONBundle struct {
	Name    string
	Content map[string]any
}

// FileName implements Bundle
func (b *JSONBundle) FileName() string { return b.Name }

// DocumentType implements Bundle, preferring the label stored in the file
func (b *JSONBundle) DocumentType() string {
	if s, ok := b.Content["document_type"].(string); ok && s != "" {
		return s
	}
	return SourceJSON
}

// FinancialInfo reads invoice_data[0].financial_info, falling back to a top-level
// financial_info.
func (b *JSONBundle) FinancialInfo() *types.FinancialInfo {
	if docs, ok := b.Content["invoice_data"].([]any); ok && len(docs) > 0 {
		if first, ok := docs[0].(map[string]any); ok {
			if m, ok := first["financial_info"].(map[string]any); ok {
				if fin := financialFromMap(m); fin != nil {
					return fin
				}
			}
		}
	}
	m, _ := b.Content["financial_info"].(map[string]any)
	return financialFromMap(m)
}

// ToMap implements Bundle
func (b *JSONBundle) ToMap() map[string]any {
	out := make(map[string]any, len(b.Content)+2)
	for k, v := range b.Content {
		out[k] = v
	}
	if _, ok := out["file_name"]; !ok {
		out["file_name"] = b.Name
	}
	out["document_type"] = b.DocumentType()
	return out
}

func parseJSON(name string, data []byte) (*JSONBundle, error) {
	var content map[string]any
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("failed to parse JSON bundle: %w", err)
	}
	if content == nil {
		return nil, fmt.Errorf("JSON bundle must be an object")
	}
	if IsErrorMap(content) {
		msg, _ := content["message"].(string)
		return nil, fmt.Errorf("bundle records an earlier extraction failure: %s", msg)
	}
	return &JSONBundle{Name: name, Content: content}, nil
}
