package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/invoice-reconciler/internal/schemas"
	rootschemas "github.com/jonathan/invoice-reconciler/schemas"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, name := range rootschemas.Names() {
		t.Run(name, func(t *testing.T) {
			data, err := rootschemas.Load(name)
			require.NoError(t, err)

			var schemaObj map[string]any
			require.NoError(t, json.Unmarshal(data, &schemaObj), "schema file should be valid JSON")

			_, hasType := schemaObj["type"]
			_, hasSchema := schemaObj["$schema"]
			assert.True(t, hasType && hasSchema, "schema should declare $schema and type")
		})
	}
}

func TestLoad_Unknown(t *testing.T) {
	_, err := rootschemas.Load("missing.schema.json")
	assert.Error(t, err)
}

func TestNormalizedSchema_AcceptsNullKeys(t *testing.T) {
	data, err := rootschemas.Load(rootschemas.NormalizedDocument)
	require.NoError(t, err)

	doc := `{
		"document_type": "invoice",
		"documents": [{
			"purchase_order_id": null, "invoice_id": "INV-1", "vendor_name": null, "vendor_id": null,
			"customer_name": null, "customer_id": null, "issue_date": "2024-03-01", "due_date": null,
			"payment_terms": null, "document_totals": null,
			"line_items": [{
				"product_number": "3423", "product_name": null, "units": 30, "unit_price": 3389,
				"tax_rate": 0.18, "tax_amount": 18300.6, "total_value": 119970.6, "currency": "INR"
			}]
		}]
	}`
	assert.NoError(t, schemas.ValidateJSONString(string(data), doc))
}

func TestNormalizedSchema_RejectsMissingKey(t *testing.T) {
	data, err := rootschemas.Load(rootschemas.NormalizedDocument)
	require.NoError(t, err)

	doc := `{"document_type": "receipt", "documents": [{"invoice_id": "INV-1"}]}`
	err = schemas.ValidateJSONString(string(data), doc)
	require.Error(t, err)

	var ve *schemas.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Errors)
}

func TestComparisonSchema_RejectsBadStatus(t *testing.T) {
	data, err := rootschemas.Load(rootschemas.ComparisonReport)
	require.NoError(t, err)

	doc := `{
		"comparison_results": [{"product_number": "1", "status": "Partial", "discrepancy_details": ""}],
		"summary": {"total_items": 1, "matched_items": 0, "mismatched_items": 0, "po_only_items": 0, "invoice_only_items": 0}
	}`
	err = schemas.ValidateJSONString(string(data), doc)
	var ve *schemas.ValidationError
	require.ErrorAs(t, err, &ve)
}
