package types

// Row status values
const (
	StatusMatch    = "Match"
	StatusMismatch = "Mismatch"
)

// Match methods describe how a comparison row was paired
const (
	MatchMethodKey       = "key"
	MatchMethodFuzzy     = "fuzzy"
	MatchMethodUnmatched = "unmatched"
)

// ComparisonReport is the line-item diff between a purchase order and an invoice
type ComparisonReport struct {
	ComparisonResults []ComparisonRow   `json:"comparison_results"`
	Summary           ComparisonSummary `json:"summary"`
}

// ComparisonRow pairs one purchase order item with one invoice item.
// For unmatched items the counterpart fields are null.
type ComparisonRow struct {
	ProductNumber      string   `json:"product_number"`
	ProductName        *string  `json:"product_name"`
	POUnits            *float64 `json:"po_units"`
	InvoiceUnits       *float64 `json:"invoice_units"`
	POUnitPrice        *float64 `json:"po_unit_price"`
	InvoiceUnitPrice   *float64 `json:"invoice_unit_price"`
	POTaxRate          *float64 `json:"po_tax_rate"`
	InvoiceTaxRate     *float64 `json:"invoice_tax_rate"`
	POTaxAmount        *float64 `json:"po_tax_amount"`
	InvoiceTaxAmount   *float64 `json:"invoice_tax_amount"`
	POTotalValue       *float64 `json:"po_total_value"`
	InvoiceTotalValue  *float64 `json:"invoice_total_value"`
	POCurrency         *string  `json:"po_currency"`
	InvoiceCurrency    *string  `json:"invoice_currency"`
	Status             string   `json:"status"`
	DiscrepancyDetails string   `json:"discrepancy_details"`
	MatchMethod        string   `json:"match_method"`

	poPresent      bool
	invoicePresent bool
}

// ComparisonSummary counts rows by outcome.
// TotalItems counts paired rows only; unmatched rows are tallied separately.
type ComparisonSummary struct {
	TotalItems       int `json:"total_items"`
	MatchedItems     int `json:"matched_items"`
	MismatchedItems  int `json:"mismatched_items"`
	POOnlyItems      int `json:"po_only_items"`
	InvoiceOnlyItems int `json:"invoice_only_items"`
}

// SetPO copies the purchase order side of a row from item
func (r *ComparisonRow) SetPO(item LineItem) {
	r.poPresent = true
	r.POUnits = cloneFloat(item.Units)
	r.POUnitPrice = cloneFloat(item.UnitPrice)
	r.POTaxRate = cloneFloat(item.TaxRate)
	r.POTaxAmount = cloneFloat(item.TaxAmount)
	r.POTotalValue = cloneFloat(item.TotalValue)
	r.POCurrency = cloneString(item.Currency)
}

// SetInvoice copies the invoice side of a row from item
func (r *ComparisonRow) SetInvoice(item LineItem) {
	r.invoicePresent = true
	r.InvoiceUnits = cloneFloat(item.Units)
	r.InvoiceUnitPrice = cloneFloat(item.UnitPrice)
	r.InvoiceTaxRate = cloneFloat(item.TaxRate)
	r.InvoiceTaxAmount = cloneFloat(item.TaxAmount)
	r.InvoiceTotalValue = cloneFloat(item.TotalValue)
	r.InvoiceCurrency = cloneString(item.Currency)
}

// HasPO reports whether the row carries a purchase order item.
// Rows decoded from JSON fall back to checking the field values.
func (r ComparisonRow) HasPO() bool {
	if r.poPresent {
		return true
	}
	return r.POUnits != nil || r.POUnitPrice != nil || r.POTaxRate != nil ||
		r.POTaxAmount != nil || r.POTotalValue != nil || r.POCurrency != nil
}

// HasInvoice reports whether the row carries an invoice item
func (r ComparisonRow) HasInvoice() bool {
	if r.invoicePresent {
		return true
	}
	return r.InvoiceUnits != nil || r.InvoiceUnitPrice != nil || r.InvoiceTaxRate != nil ||
		r.InvoiceTaxAmount != nil || r.InvoiceTotalValue != nil || r.InvoiceCurrency != nil
}

// IsPaired reports whether both sides of the row are present
func (r ComparisonRow) IsPaired() bool {
	return r.HasPO() && r.HasInvoice()
}
