// Package report renders normalization and comparison results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of line items listed per document
	maxItemsToShow = 5
	// maxNameWidth truncates product names in the comparison table
	maxNameWidth = 28
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintComparison outputs the banner, the line-item table and the issues list
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintComparison(report *types.ComparisonReport) {
	if report == nil {
		return
	}

	p.printBox("COMPARISON", Banner(report.Summary))
	if len(report.ComparisonResults) == 0 {
		return
	}

	table := tablewriter.NewWriter(p.out)
	table.SetHeader([]string{"Product", "Name", "PO Units", "Inv Units", "PO Price", "Inv Price", "PO Total", "Inv Total", "Status"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	for _, row := range report.ComparisonResults {
		table.Append([]string{
			orDash(row.ProductNumber),
			truncate(orDash(deref(row.ProductName)), maxNameWidth),
			Amount(row.POUnits),
			Amount(row.InvoiceUnits),
			Amount(row.POUnitPrice),
			Amount(row.InvoiceUnitPrice),
			Amount(row.POTotalValue),
			Amount(row.InvoiceTotalValue),
			statusLabel(row.Status),
		})
	}
	table.Render()

	issues := Issues(report)
	if len(issues) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Issues requiring attention:")
	for _, issue := range issues {
		fmt.Fprintf(p.out, "  ⚠ %s\n", issue)
	}
}

// PrintNormalized outputs a summary of each normalized document
func (p *Printer) PrintNormalized(payload *types.NormalizationPayload) {
	if payload == nil {
		return
	}

	for i, doc := range payload.Documents {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Type:      %s\n", payload.DocumentType))
		sb.WriteString(fmt.Sprintf("PO:        %s\n", orDash(deref(doc.PurchaseOrderID))))
		sb.WriteString(fmt.Sprintf("Invoice:   %s\n", orDash(deref(doc.InvoiceID))))
		sb.WriteString(fmt.Sprintf("Vendor:    %s\n", orDash(deref(doc.VendorName))))
		sb.WriteString(fmt.Sprintf("Customer:  %s\n", orDash(deref(doc.CustomerName))))
		sb.WriteString(fmt.Sprintf("Issued:    %s\n", orDash(deref(doc.IssueDate))))
		sb.WriteString("\n")

		sb.WriteString(fmt.Sprintf("Line items: %d\n", len(doc.LineItems)))
		count := min(len(doc.LineItems), maxItemsToShow)
		for j := 0; j < count; j++ {
			item := doc.LineItems[j]
			sb.WriteString(fmt.Sprintf("  • %s  %s × %s = %s\n",
				orDash(deref(item.ProductNumber)),
				Amount(item.Units),
				Amount(item.UnitPrice),
				Amount(item.TotalValue)))
		}
		if len(doc.LineItems) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.LineItems)-maxItemsToShow))
		}

		if totals := doc.DocumentTotals; totals != nil {
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf("Subtotal:  %s\n", money(totals.Subtotal)))
			sb.WriteString(fmt.Sprintf("Tax:       %s\n", money(totals.TaxTotal)))
			sb.WriteString(fmt.Sprintf("Total:     %s", money(totals.Total)))
			if totals.OriginalDataUsed {
				sb.WriteString(" (stated on document)")
			}
			sb.WriteString("\n")
		}

		p.printBox(fmt.Sprintf("NORMALIZED DOCUMENT %d/%d", i+1, len(payload.Documents)), strings.TrimSuffix(sb.String(), "\n"))
	}
}

// PrintEnvelope prints the envelope data, or the error and raw excerpt when the
// response could not be structured. Warnings follow either way.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintEnvelope(env *types.Envelope) {
	if env == nil {
		return
	}

	switch {
	case env.Format == types.FormatRawText:
		p.printBox("UNSTRUCTURED MODEL RESPONSE", env.Error)
		if env.RawResponse != "" {
			fmt.Fprintf(p.out, "%s\n", env.RawResponse)
		}
	case env.Report() != nil:
		p.PrintComparison(env.Report())
	case env.Normalized() != nil:
		p.PrintNormalized(env.Normalized())
	}

	for _, w := range env.Warnings {
		fmt.Fprintf(p.out, "Warning: %s\n", w)
	}
}

// Banner returns the headline for a comparison summary
func Banner(s types.ComparisonSummary) string {
	issues := s.MismatchedItems + s.POOnlyItems + s.InvoiceOnlyItems
	if issues == 0 {
		return fmt.Sprintf("ALL GOOD: %d of %d items match", s.MatchedItems, s.TotalItems)
	}
	return fmt.Sprintf("ISSUES FOUND: %d mismatches out of %d items", issues, s.TotalItems+s.POOnlyItems+s.InvoiceOnlyItems)
}

// Issues lists one line per row that is not a match
func Issues(report *types.ComparisonReport) []string {
	var out []string
	for _, row := range report.ComparisonResults {
		if row.Status == types.StatusMatch {
			continue
		}
		label := orDash(row.ProductNumber)
		if name := deref(row.ProductName); name != "" {
			label += " (" + name + ")"
		}
		out = append(out, fmt.Sprintf("%s: %s", label, row.DiscrepancyDetails))
	}
	return out
}

// Amount formats an optional number with thousands separators and at most two decimals
func Amount(f *float64) string {
	if f == nil {
		return "-"
	}
	return money(*f)
}

func money(f float64) string {
	return humanize.Commaf(decimal.NewFromFloat(f).Round(2).InexactFloat64())
}

func statusLabel(status string) string {
	if status == types.StatusMatch {
		return "✓ " + status
	}
	return "✗ " + status
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
