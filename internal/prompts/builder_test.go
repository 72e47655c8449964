package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

func TestBuildNormalizationPrompt(t *testing.T) {
	bundle := map[string]any{
		"file_name":     "po.xlsx",
		"document_type": "purchase_order",
		"sheets": map[string]any{
			"Sheet1": map[string]any{"total_rows": 2},
		},
	}

	prompt, err := BuildNormalizationPrompt(bundle, types.DocumentTypePurchaseOrder, DefaultBuildOptions())
	require.NoError(t, err)

	assert.Contains(t, prompt, "purchase order document")
	assert.Contains(t, prompt, `"file_name": "po.xlsx"`)
	assert.Contains(t, prompt, `"total_rows": 2`)
	assert.Contains(t, prompt, "return null but still include the key")
	assert.Contains(t, prompt, `single code "INR"`)
	assert.NotContains(t, prompt, "{{.")

	for _, f := range append(append([]SchemaField{}, DocumentFields...), LineItemFields...) {
		assert.Contains(t, prompt, "- "+f.Name+" (", "missing key %s", f.Name)
	}
}

func TestBuildNormalizationPrompt_CurrencyOption(t *testing.T) {
	prompt, err := BuildNormalizationPrompt(map[string]any{}, "invoice", BuildOptions{Currency: "USD"})
	require.NoError(t, err)
	assert.Contains(t, prompt, `single code "USD"`)
	assert.Contains(t, prompt, `"currency": "USD"`)
}

func TestBuildNormalizationPrompt_RawDataNotExpanded(t *testing.T) {
	bundle := map[string]any{"note": "{{.Currency}}"}
	prompt, err := BuildNormalizationPrompt(bundle, "invoice", DefaultBuildOptions())
	require.NoError(t, err)
	assert.Contains(t, prompt, `"note": "{{.Currency}}"`)
}

func TestBuildNormalizationPrompt_Unserializable(t *testing.T) {
	_, err := BuildNormalizationPrompt(map[string]any{"bad": make(chan int)}, "invoice", DefaultBuildOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to serialize extraction bundle")
}

func TestBuildComparisonPrompt(t *testing.T) {
	po := &types.NormalizationPayload{
		DocumentType: types.DocumentTypePurchaseOrder,
		Documents: []types.NormalizedDocument{{
			PurchaseOrderID: types.String("PO-7"),
			LineItems: []types.LineItem{{
				ProductNumber: types.String("VI-3423"),
				Units:         types.Float(30),
			}},
		}},
	}
	invoice := &types.NormalizationPayload{
		DocumentType: types.DocumentTypeInvoice,
		Documents: []types.NormalizedDocument{{
			InvoiceID: types.String("INV-9"),
		}},
	}

	prompt, err := BuildComparisonPrompt(invoice, po, DefaultBuildOptions())
	require.NoError(t, err)

	assert.Contains(t, prompt, `"purchase_order_id": "PO-7"`)
	assert.Contains(t, prompt, `"invoice_id": "INV-9"`)
	assert.Contains(t, prompt, `"product_number": "VI-3423"`)
	assert.Contains(t, prompt, "numeric-only substring")
	assert.Contains(t, prompt, "HSN")
	assert.Contains(t, prompt, "no more than 0.01")
	assert.Contains(t, prompt, "all amounts are in INR")
	assert.Contains(t, prompt, "return null but still include the key")
	assert.Contains(t, prompt, `"comparison_results"`)
	assert.Contains(t, prompt, `"invoice_only_items": number`)
	assert.NotContains(t, prompt, "{{.")

	// The purchase order is embedded before the invoice
	assert.Less(t, strings.Index(prompt, "PO-7"), strings.Index(prompt, "INV-9"))
}

func TestBuildComparisonPrompt_NilPayloads(t *testing.T) {
	prompt, err := BuildComparisonPrompt(nil, nil, BuildOptions{Tolerance: 0.5})
	require.NoError(t, err)
	assert.Contains(t, prompt, `"documents": []`)
	assert.Contains(t, prompt, "no more than 0.5")
}
