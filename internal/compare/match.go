// Package compare pairs purchase order line items with invoice line items and reports
// field-level discrepancies.
//
// Pairing runs in two passes. Items whose normalized product numbers agree are paired
// in encounter order; the leftovers are paired by description similarity. Items that
// find no partner get a row of their own.
package compare

import (
	"github.com/shopspring/decimal"

	"github.com/jonathan/invoice-reconciler/internal/logger"
	"github.com/jonathan/invoice-reconciler/internal/types"
)

// Defaults for Options
const (
	DefaultTolerance = 0.01
	DefaultThreshold = 0.6
)

// Options configures a Matcher
type Options struct {
	// Tolerance is the largest absolute difference at which two numbers are equal
	Tolerance float64
	// Threshold is the minimum similarity for a description-based pair
	Threshold float64
	// Similarity scores descriptions; DefaultSimilarity when nil
	Similarity Similarity
}

// Matcher compares a purchase order against an invoice
type Matcher struct {
	tolerance  decimal.Decimal
	threshold  float64
	similarity Similarity
}

// NewMatcher builds a Matcher, filling unset options with defaults
func NewMatcher(opts Options) *Matcher {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Similarity == nil {
		opts.Similarity = DefaultSimilarity()
	}
	return &Matcher{
		tolerance:  decimal.NewFromFloat(opts.Tolerance),
		threshold:  opts.Threshold,
		similarity: opts.Similarity,
	}
}

// Compare pairs the line items of po and invoice and diffs each pair.
// Rows are ordered: paired rows in PO order, then PO-only rows, then invoice-only rows.
func (m *Matcher) Compare(po, invoice *types.NormalizationPayload) *types.ComparisonReport {
	poItems := po.LineItems()
	invItems := invoice.LineItems()

	// partner[i] is the invoice index paired with PO item i, or -1
	partner := make([]int, len(poItems))
	method := make([]string, len(poItems))
	taken := make([]bool, len(invItems))
	for i := range partner {
		partner[i] = -1
	}

	keyed := m.pairByKey(poItems, invItems, partner, method, taken)
	fuzzy := m.pairBySimilarity(poItems, invItems, partner, method, taken)

	rows := make([]types.ComparisonRow, 0, len(poItems)+len(invItems))
	for i, j := range partner {
		if j >= 0 {
			rows = append(rows, m.pairedRow(poItems[i], invItems[j], method[i]))
		}
	}
	for i, j := range partner {
		if j < 0 {
			rows = append(rows, poOnlyRow(poItems[i]))
		}
	}
	for j, ok := range taken {
		if !ok {
			rows = append(rows, invoiceOnlyRow(invItems[j]))
		}
	}

	report := &types.ComparisonReport{
		ComparisonResults: rows,
		Summary:           Summarize(rows),
	}

	log := logger.WithComponent("compare")
	log.Info().
		Int("po_items", len(poItems)).
		Int("invoice_items", len(invItems)).
		Int("key_pairs", keyed).
		Int("fuzzy_pairs", fuzzy).
		Int("mismatched", report.Summary.MismatchedItems).
		Msg("comparison complete")

	return report
}

// pairByKey pairs items sharing a normalized key, the n-th PO occurrence with the n-th
// invoice occurrence.
func (m *Matcher) pairByKey(poItems, invItems []types.LineItem, partner []int, method []string, taken []bool) int {
	queues := make(map[string][]int)
	for j, item := range invItems {
		if k := keyOf(item.ProductNumber); k != "" {
			queues[k] = append(queues[k], j)
		}
	}

	paired := 0
	for i, item := range poItems {
		k := keyOf(item.ProductNumber)
		if k == "" || len(queues[k]) == 0 {
			continue
		}
		j := queues[k][0]
		queues[k] = queues[k][1:]
		partner[i], method[i], taken[j] = j, types.MatchMethodKey, true
		paired++
	}
	return paired
}

// pairBySimilarity lets each unpaired PO item, in order, claim the best-scoring free
// invoice item at or above the threshold. Ties go to the earlier invoice item.
// Only items whose key is empty or absent from the other side take part; surplus
// duplicates of a shared key stay unmatched.
func (m *Matcher) pairBySimilarity(poItems, invItems []types.LineItem, partner []int, method []string, taken []bool) int {
	poKeys, invKeys := keySet(poItems), keySet(invItems)

	paired := 0
	for i, item := range poItems {
		if partner[i] >= 0 || item.ProductName == nil || invKeys[keyOf(item.ProductNumber)] {
			continue
		}

		best, bestScore := -1, 0.0
		for j, cand := range invItems {
			if taken[j] || cand.ProductName == nil || poKeys[keyOf(cand.ProductNumber)] {
				continue
			}
			score := m.similarity.Score(*item.ProductName, *cand.ProductName)
			if score >= m.threshold && score > bestScore {
				best, bestScore = j, score
			}
		}
		if best >= 0 {
			partner[i], method[i], taken[best] = best, types.MatchMethodFuzzy, true
			paired++
		}
	}
	return paired
}

func (m *Matcher) pairedRow(po, inv types.LineItem, matchMethod string) types.ComparisonRow {
	key := keyOf(po.ProductNumber)
	if key == "" {
		key = keyOf(inv.ProductNumber)
	}

	row := types.ComparisonRow{
		ProductNumber: key,
		ProductName:   firstName(po.ProductName, inv.ProductName),
		MatchMethod:   matchMethod,
	}
	row.SetPO(po)
	row.SetInvoice(inv)

	row.DiscrepancyDetails = details(diffItems(po, inv, m.tolerance))
	if row.DiscrepancyDetails == "" {
		row.Status = types.StatusMatch
	} else {
		row.Status = types.StatusMismatch
	}
	return row
}

// keySet returns the non-empty normalized keys of items
func keySet(items []types.LineItem) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		if k := keyOf(item.ProductNumber); k != "" {
			set[k] = true
		}
	}
	return set
}

func poOnlyRow(po types.LineItem) types.ComparisonRow {
	row := types.ComparisonRow{
		ProductNumber:      keyOf(po.ProductNumber),
		ProductName:        firstName(po.ProductName, nil),
		Status:             types.StatusMismatch,
		DiscrepancyDetails: DetailMissingFromInvoice,
		MatchMethod:        types.MatchMethodUnmatched,
	}
	row.SetPO(po)
	return row
}

func invoiceOnlyRow(inv types.LineItem) types.ComparisonRow {
	row := types.ComparisonRow{
		ProductNumber:      keyOf(inv.ProductNumber),
		ProductName:        firstName(nil, inv.ProductName),
		Status:             types.StatusMismatch,
		DiscrepancyDetails: DetailMissingFromPO,
		MatchMethod:        types.MatchMethodUnmatched,
	}
	row.SetInvoice(inv)
	return row
}

func firstName(names ...*string) *string {
	for _, n := range names {
		if n != nil && *n != "" {
			v := *n
			return &v
		}
	}
	return nil
}
