package prompts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

// BuildOptions controls the values rendered into prompts
type BuildOptions struct {
	Currency  string
	Tolerance float64
}

// DefaultBuildOptions returns INR with a 0.01 numeric tolerance
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{Currency: types.DefaultCurrency, Tolerance: 0.01}
}

// SchemaField is one canonical output key the model may produce
type SchemaField struct {
	Name        string
	Type        string
	Description string
}

// DocumentFields are the document-level canonical keys
var DocumentFields = []SchemaField{
	{Name: "purchase_order_id", Type: "string", Description: "purchase order number"},
	{Name: "invoice_id", Type: "string", Description: "invoice number"},
	{Name: "vendor_name", Type: "string", Description: "supplier or seller name"},
	{Name: "vendor_id", Type: "string", Description: "supplier code, GSTIN or tax ID"},
	{Name: "customer_name", Type: "string", Description: "buyer or bill-to name"},
	{Name: "customer_id", Type: "string", Description: "buyer code, GSTIN or tax ID"},
	{Name: "line_items", Type: "array", Description: "product rows, see line item keys"},
	{Name: "issue_date", Type: "string", Description: "document date, YYYY-MM-DD"},
	{Name: "due_date", Type: "string", Description: "payment due date, YYYY-MM-DD"},
	{Name: "payment_terms", Type: "string", Description: "payment terms as written"},
}

// LineItemFields are the keys of each entry in line_items
var LineItemFields = []SchemaField{
	{Name: "product_number", Type: "string", Description: "item code, SKU or part number"},
	{Name: "product_name", Type: "string", Description: "item description"},
	{Name: "units", Type: "number", Description: "quantity"},
	{Name: "unit_price", Type: "number", Description: "base price per unit before tax"},
	{Name: "tax_rate", Type: "number", Description: "tax rate as stated, e.g. 18 for 18%"},
	{Name: "tax_amount", Type: "number", Description: "tax for the line"},
	{Name: "total_value", Type: "number", Description: "line total including tax"},
	{Name: "currency", Type: "string", Description: "currency code"},
}

// ComparedFields are the line item fields diffed between PO and invoice
var ComparedFields = []string{"units", "unit_price", "tax_rate", "tax_amount", "total_value", "currency"}

// BuildNormalizationPrompt renders the prompt asking the model to map a raw extraction
// bundle onto the canonical keys.
func BuildNormalizationPrompt(bundle map[string]any, documentType string, opts BuildOptions) (string, error) {
	opts = withDefaults(opts)
	if documentType == "" {
		documentType = "business"
	}

	raw, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize extraction bundle: %w", err)
	}

	tmpl, err := Get(NormalizationFile, NormalizeKey)
	if err != nil {
		return "", err
	}

	return Format(tmpl, map[string]string{
		"DocumentType": strings.ReplaceAll(documentType, "_", " "),
		"RawData":      string(raw),
		"StandardKeys": renderKeys(),
		"Currency":     opts.Currency,
		"OutputFormat": normalizationOutput(opts.Currency),
	}), nil
}

// BuildComparisonPrompt renders the prompt asking the model to diff an invoice against
// its purchase order.
func BuildComparisonPrompt(invoice, po *types.NormalizationPayload, opts BuildOptions) (string, error) {
	opts = withDefaults(opts)

	poJSON, err := json.MarshalIndent(emptyIfNil(po), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize purchase order: %w", err)
	}
	invJSON, err := json.MarshalIndent(emptyIfNil(invoice), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize invoice: %w", err)
	}

	tmpl, err := Get(ComparisonFile, CompareKey)
	if err != nil {
		return "", err
	}

	fields := make([]string, len(ComparedFields))
	for i, f := range ComparedFields {
		fields[i] = "   - " + f
	}

	return Format(tmpl, map[string]string{
		"POData":         string(poJSON),
		"InvoiceData":    string(invJSON),
		"ComparedFields": strings.Join(fields, "\n"),
		"Tolerance":      strconv.FormatFloat(opts.Tolerance, 'f', -1, 64),
		"Currency":       opts.Currency,
		"OutputFormat":   comparisonOutput(opts.Currency),
	}), nil
}

func withDefaults(opts BuildOptions) BuildOptions {
	def := DefaultBuildOptions()
	if opts.Currency == "" {
		opts.Currency = def.Currency
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	return opts
}

func emptyIfNil(p *types.NormalizationPayload) *types.NormalizationPayload {
	if p == nil {
		return &types.NormalizationPayload{Documents: []types.NormalizedDocument{}}
	}
	return p
}

func renderKeys() string {
	var b strings.Builder
	b.WriteString("   Document keys:\n")
	for _, f := range DocumentFields {
		fmt.Fprintf(&b, "   - %s (%s): %s\n", f.Name, f.Type, f.Description)
	}
	b.WriteString("   Line item keys:\n")
	for i, f := range LineItemFields {
		fmt.Fprintf(&b, "   - %s (%s): %s", f.Name, f.Type, f.Description)
		if i < len(LineItemFields)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func normalizationOutput(currency string) string {
	item := make([]string, 0, len(LineItemFields))
	for _, f := range LineItemFields {
		item = append(item, fmt.Sprintf("          %q: %s", f.Name, placeholder(f, currency)))
	}

	doc := make([]string, 0, len(DocumentFields))
	for _, f := range DocumentFields {
		if f.Name == "line_items" {
			doc = append(doc, "      \"line_items\": [\n        {\n"+strings.Join(item, ",\n")+"\n        }\n      ]")
			continue
		}
		doc = append(doc, fmt.Sprintf("      %q: %s", f.Name, placeholder(f, currency)))
	}

	return "{\n  \"document_type\": \"purchase_order\" | \"invoice\" | \"mixed\",\n  \"documents\": [\n    {\n" +
		strings.Join(doc, ",\n") + "\n    }\n  ]\n}"
}

func comparisonOutput(currency string) string {
	row := []string{`"product_number": "numeric key"`, `"product_name": "string or null"`}
	for _, f := range ComparedFields {
		ph := "number or null"
		if f == "currency" {
			ph = fmt.Sprintf(`%q or null`, currency)
		}
		row = append(row,
			fmt.Sprintf(`"po_%s": %s`, f, ph),
			fmt.Sprintf(`"invoice_%s": %s`, f, ph))
	}
	row = append(row, `"status": "Match" | "Mismatch"`, `"discrepancy_details": "string"`)

	for i := range row {
		row[i] = "      " + row[i]
	}
	return "{\n  \"comparison_results\": [\n    {\n" + strings.Join(row, ",\n") + "\n    }\n  ],\n" +
		"  \"summary\": {\n" +
		"    \"total_items\": number,\n" +
		"    \"matched_items\": number,\n" +
		"    \"mismatched_items\": number,\n" +
		"    \"po_only_items\": number,\n" +
		"    \"invoice_only_items\": number\n" +
		"  }\n}"
}

func placeholder(f SchemaField, currency string) string {
	switch {
	case f.Name == "currency":
		return fmt.Sprintf("%q", currency)
	case f.Type == "number":
		return "number or null"
	default:
		return "\"string or null\""
	}
}
