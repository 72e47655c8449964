package types

// FinancialInfo holds document-level totals stated by an extractor.
// These figures are authoritative for reconciliation when present.
type FinancialInfo struct {
	Total     *MoneyField `json:"total,omitempty"`
	Subtotal  *MoneyField `json:"subtotal,omitempty"`
	TotalTax  *MoneyField `json:"total_tax,omitempty"`
	AmountDue *MoneyField `json:"amount_due,omitempty"`
}

// MoneyField is an amount with its currency and the extractor's confidence
type MoneyField struct {
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// HasTotal reports whether an authoritative total is available
func (f *FinancialInfo) HasTotal() bool {
	return f != nil && f.Total != nil
}

// IsEmpty reports whether no figure was extracted
func (f *FinancialInfo) IsEmpty() bool {
	return f == nil || (f.Total == nil && f.Subtotal == nil && f.TotalTax == nil && f.AmountDue == nil)
}

// ToMap renders the financial info in the bundle wire shape
func (f *FinancialInfo) ToMap() map[string]any {
	out := map[string]any{}
	if f == nil {
		return out
	}
	add := func(key string, m *MoneyField) {
		if m == nil {
			return
		}
		out[key] = map[string]any{
			"amount":     m.Amount,
			"currency":   m.Currency,
			"confidence": m.Confidence,
		}
	}
	add("total", f.Total)
	add("subtotal", f.Subtotal)
	add("total_tax", f.TotalTax)
	add("amount_due", f.AmountDue)
	return out
}
