package compare

import "github.com/jonathan/invoice-reconciler/internal/types"

// Summarize tallies comparison rows. Paired rows count toward total, matched and
// mismatched items; rows with one side missing count as PO-only or invoice-only.
func Summarize(rows []types.ComparisonRow) types.ComparisonSummary {
	var s types.ComparisonSummary
	for _, row := range rows {
		switch {
		case row.IsPaired():
			s.TotalItems++
			if row.Status == types.StatusMatch {
				s.MatchedItems++
			} else {
				s.MismatchedItems++
			}
		case row.HasPO():
			s.POOnlyItems++
		case row.HasInvoice():
			s.InvoiceOnlyItems++
		case row.DiscrepancyDetails == DetailMissingFromPO:
			s.InvoiceOnlyItems++
		default:
			// a row with both sides null can only be a PO item with no values
			s.POOnlyItems++
		}
	}
	return s
}
