// Package types provides type definitions for the normalized documents and comparison reports
// that flow through the invoice reconciler.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Document type labels returned by the model for a normalization payload
const (
	DocumentTypePurchaseOrder = "purchase_order"
	DocumentTypeInvoice       = "invoice"
	DocumentTypeMixed         = "mixed"
)

// DefaultCurrency is the currency code used when a line item carries none
const DefaultCurrency = "INR"

// NormalizationPayload is the canonical model output for one uploaded file.
// A single file may contain several purchase orders or invoices.
type NormalizationPayload struct {
	DocumentType string               `json:"document_type"`
	Documents    []NormalizedDocument `json:"documents"`
}

// NormalizedDocument is one purchase order or invoice mapped onto the canonical keys.
// Every key is always serialized; absent values are encoded as null.
type NormalizedDocument struct {
	PurchaseOrderID *string         `json:"purchase_order_id"`
	InvoiceID       *string         `json:"invoice_id"`
	VendorName      *string         `json:"vendor_name"`
	VendorID        *string         `json:"vendor_id"`
	CustomerName    *string         `json:"customer_name"`
	CustomerID      *string         `json:"customer_id"`
	LineItems       []LineItem      `json:"line_items"`
	IssueDate       *string         `json:"issue_date"`
	DueDate         *string         `json:"due_date"`
	PaymentTerms    *string         `json:"payment_terms"`
	DocumentTotals  *DocumentTotals `json:"document_totals"`
}

// LineItem is a single product row of a normalized document
type LineItem struct {
	ProductNumber *string  `json:"product_number"`
	ProductName   *string  `json:"product_name"`
	Units         *float64 `json:"units"`
	UnitPrice     *float64 `json:"unit_price"`
	TaxRate       *float64 `json:"tax_rate"` // fraction in [0,1] after reconciliation
	TaxAmount     *float64 `json:"tax_amount"`
	TotalValue    *float64 `json:"total_value"`
	Currency      *string  `json:"currency"`
}

// DocumentTotals holds the aggregate figures recorded by the reconciler.
// OriginalDataUsed is set when the extractor's stated total replaced the line-item sum.
type DocumentTotals struct {
	Subtotal         float64 `json:"subtotal"`
	TaxTotal         float64 `json:"tax_total"`
	Total            float64 `json:"total"`
	OriginalDataUsed bool    `json:"original_data_used"`
}

// LineItems flattens the line items of every document in the payload, preserving order.
func (p *NormalizationPayload) LineItems() []LineItem {
	if p == nil {
		return nil
	}
	var items []LineItem
	for _, doc := range p.Documents {
		items = append(items, doc.LineItems...)
	}
	return items
}

// Clone returns a deep copy of the payload so callers can derive a new value
// without touching the original.
func (p *NormalizationPayload) Clone() *NormalizationPayload {
	if p == nil {
		return nil
	}
	out := &NormalizationPayload{
		DocumentType: p.DocumentType,
		Documents:    make([]NormalizedDocument, len(p.Documents)),
	}
	for i, doc := range p.Documents {
		out.Documents[i] = doc.clone()
	}
	return out
}

func (d NormalizedDocument) clone() NormalizedDocument {
	out := NormalizedDocument{
		PurchaseOrderID: cloneString(d.PurchaseOrderID),
		InvoiceID:       cloneString(d.InvoiceID),
		VendorName:      cloneString(d.VendorName),
		VendorID:        cloneString(d.VendorID),
		CustomerName:    cloneString(d.CustomerName),
		CustomerID:      cloneString(d.CustomerID),
		IssueDate:       cloneString(d.IssueDate),
		DueDate:         cloneString(d.DueDate),
		PaymentTerms:    cloneString(d.PaymentTerms),
	}
	if d.LineItems != nil {
		out.LineItems = make([]LineItem, len(d.LineItems))
		for i, item := range d.LineItems {
			out.LineItems[i] = item.Clone()
		}
	}
	if d.DocumentTotals != nil {
		totals := *d.DocumentTotals
		out.DocumentTotals = &totals
	}
	return out
}

// Clone returns a deep copy of the line item
func (li LineItem) Clone() LineItem {
	return LineItem{
		ProductNumber: cloneString(li.ProductNumber),
		ProductName:   cloneString(li.ProductName),
		Units:         cloneFloat(li.Units),
		UnitPrice:     cloneFloat(li.UnitPrice),
		TaxRate:       cloneFloat(li.TaxRate),
		TaxAmount:     cloneFloat(li.TaxAmount),
		TotalValue:    cloneFloat(li.TotalValue),
		Currency:      cloneString(li.Currency),
	}
}

// String returns a pointer to s
func String(s string) *string { return &s }

// Float returns a pointer to f
func Float(f float64) *float64 { return &f }

// Deref returns the pointed-to string or "" for nil
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
