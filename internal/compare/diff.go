package compare

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

// Details used for rows that exist on one side only
const (
	DetailMissingFromInvoice = "missing from invoice"
	DetailMissingFromPO      = "missing from purchase order"
)

// fieldDiff describes one compared field of a paired row
type fieldDiff struct {
	name    string
	po      string
	invoice string
	equal   bool
}

// diffItems compares the fields of a paired PO and invoice item in a fixed order
func diffItems(po, inv types.LineItem, tolerance decimal.Decimal) []fieldDiff {
	return []fieldDiff{
		numberDiff("units", po.Units, inv.Units, tolerance),
		numberDiff("unit_price", po.UnitPrice, inv.UnitPrice, tolerance),
		numberDiff("tax_rate", po.TaxRate, inv.TaxRate, tolerance),
		numberDiff("tax_amount", po.TaxAmount, inv.TaxAmount, tolerance),
		numberDiff("total_value", po.TotalValue, inv.TotalValue, tolerance),
		currencyDiff(po.Currency, inv.Currency),
	}
}

// NumbersEqual reports whether a and b are both null or differ by at most tolerance
func NumbersEqual(a, b *float64, tolerance decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	delta := decimal.NewFromFloat(*a).Sub(decimal.NewFromFloat(*b)).Abs()
	return delta.LessThanOrEqual(tolerance)
}

// CurrenciesEqual compares currency codes ignoring case and surrounding space
func CurrenciesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.EqualFold(strings.TrimSpace(*a), strings.TrimSpace(*b))
}

func numberDiff(name string, po, inv *float64, tolerance decimal.Decimal) fieldDiff {
	return fieldDiff{
		name:    name,
		po:      formatNumber(po),
		invoice: formatNumber(inv),
		equal:   NumbersEqual(po, inv, tolerance),
	}
}

func currencyDiff(po, inv *string) fieldDiff {
	return fieldDiff{
		name:    "currency",
		po:      formatString(po),
		invoice: formatString(inv),
		equal:   CurrenciesEqual(po, inv),
	}
}

// details joins the differing fields as "field: PO=x, Invoice=y" separated by "; "
func details(diffs []fieldDiff) string {
	parts := make([]string, 0, len(diffs))
	for _, d := range diffs {
		if !d.equal {
			parts = append(parts, fmt.Sprintf("%s: PO=%s, Invoice=%s", d.name, d.po, d.invoice))
		}
	}
	return strings.Join(parts, "; ")
}

func formatNumber(f *float64) string {
	if f == nil {
		return "null"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatString(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
