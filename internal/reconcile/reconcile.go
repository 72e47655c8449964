// Package reconcile recomputes line-item taxes and totals of a normalized payload and
// records document totals, preferring the extractor's stated total when the two disagree.
package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jonathan/invoice-reconciler/internal/logger"
	"github.com/jonathan/invoice-reconciler/internal/types"
)

// AuthoritativeThreshold is how far the stated total may drift from the recomputed one
// before the stated figures are used instead.
var AuthoritativeThreshold = decimal.NewFromInt(1)

var hundred = decimal.NewFromInt(100)

// Options configures reconciliation
type Options struct {
	// Currency fills line items that carry none. Defaults to INR.
	Currency string
}

// Reconcile returns a corrected copy of payload. The input is never modified.
//
// For every line item with positive units and unit_price, tax_amount and total_value
// are recomputed from units, unit_price and tax_rate; a tax_rate above 1 is read as a
// percentage. Items without a positive quantity or price get a zero tax_amount and keep
// their total_value. fin, when non-nil, holds the totals stated on the source file and
// applies to the first document.
func Reconcile(payload *types.NormalizationPayload, fin *types.FinancialInfo, opts Options) *types.NormalizationPayload {
	if payload == nil {
		return nil
	}
	currency := strings.TrimSpace(opts.Currency)
	if currency == "" {
		currency = types.DefaultCurrency
	}
	log := logger.WithComponent("reconcile")

	out := payload.Clone()
	for i := range out.Documents {
		doc := &out.Documents[i]
		subtotal, taxTotal := reconcileItems(doc.LineItems, currency)
		total := subtotal.Add(taxTotal)

		totals := &types.DocumentTotals{
			Subtotal: subtotal.InexactFloat64(),
			TaxTotal: taxTotal.InexactFloat64(),
			Total:    total.InexactFloat64(),
		}

		if i == 0 && fin.HasTotal() {
			stated := round(decimal.NewFromFloat(fin.Total.Amount))
			if stated.Sub(total).Abs().GreaterThan(AuthoritativeThreshold) {
				totals.Total = stated.InexactFloat64()
				if fin.Subtotal != nil {
					totals.Subtotal = round(decimal.NewFromFloat(fin.Subtotal.Amount)).InexactFloat64()
				}
				if fin.TotalTax != nil {
					totals.TaxTotal = round(decimal.NewFromFloat(fin.TotalTax.Amount)).InexactFloat64()
				}
				totals.OriginalDataUsed = true

				log.Warn().
					Int("document", i).
					Str("stated_total", stated.StringFixed(2)).
					Str("calculated_total", total.StringFixed(2)).
					Msg("calculated total disagrees with stated total, using stated figures")
			}
		}

		doc.DocumentTotals = totals
	}

	log.Debug().
		Int("documents", len(out.Documents)).
		Int("line_items", len(out.LineItems())).
		Msg("payload reconciled")
	return out
}

// reconcileItems fixes each item in place and returns the document subtotal and tax total
func reconcileItems(items []types.LineItem, currency string) (decimal.Decimal, decimal.Decimal) {
	subtotal, taxTotal := decimal.Zero, decimal.Zero

	for j := range items {
		item := &items[j]

		if item.Currency == nil || strings.TrimSpace(*item.Currency) == "" {
			item.Currency = types.String(currency)
		}

		rate := decimal.Zero
		if item.TaxRate != nil {
			rate = NormalizeTaxRate(decimal.NewFromFloat(*item.TaxRate))
			item.TaxRate = types.Float(rate.InexactFloat64())
		}

		if !positive(item.Units) || !positive(item.UnitPrice) {
			item.TaxAmount = types.Float(0)
			continue
		}

		line := decimal.NewFromFloat(*item.Units).Mul(decimal.NewFromFloat(*item.UnitPrice))
		tax := round(line.Mul(rate))
		item.TaxAmount = types.Float(tax.InexactFloat64())
		item.TotalValue = types.Float(round(line.Add(tax)).InexactFloat64())

		subtotal = subtotal.Add(line)
		taxTotal = taxTotal.Add(tax)
	}

	return round(subtotal), round(taxTotal)
}

// NormalizeTaxRate converts a percentage (18) to a fraction (0.18); fractions pass through
func NormalizeTaxRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.Div(hundred)
	}
	return rate
}

// round rounds half away from zero to two places
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func positive(f *float64) bool {
	return f != nil && *f > 0
}
