package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

type labelRule struct {
	field      string
	pattern    *regexp.Regexp
	confidence float64
}

// Rules are tried in order and the first match classifies a line, so the more
// specific labels come before the bare "total". A rule with no field marks a line
// that must not be read as money, such as "Total Qty: 30".
var labelRules = []labelRule{
	{"amount_due", regexp.MustCompile(`(?i)\b(amount|balance)\s+due\b`), 0.9},
	{"total_tax", regexp.MustCompile(`(?i)\b(total\s+tax|tax\s+amount|total\s+gst)\b`), 0.9},
	{"subtotal", regexp.MustCompile(`(?i)\b(sub[\s-]?total|taxable\s+(value|amount))\b`), 0.9},
	{"total", regexp.MustCompile(`(?i)\b(grand\s+total|invoice\s+total|total\s+amount|net\s+payable)\b`), 0.9},
	{"", regexp.MustCompile(`(?i)\b(total\s*(no\.?\s*of\s*)?(qty|quantity|items?|units?|pcs|pieces|nos|weight|pages?|boxes|cartons)|(qty|quantity|items?|units?|pcs)\s+total)\b`), 0},
	{"total", regexp.MustCompile(`(?i)\btotal\b`), 0.6},
}

var (
	reAmount   = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)
	reCurrency = regexp.MustCompile(`(?i)(₹|\$|€|£|\brs\.?|\binr\b|\busd\b|\beur\b|\bgbp\b)`)
)

// ScanFinancialInfo looks for labelled totals ("Sub Total: 1,000.00", "Grand Total ₹1,180")
// in free text. The last number after the label is taken as the amount.
// It returns nil when nothing is found.
func ScanFinancialInfo(text string) *types.FinancialInfo {
	found := map[string]*types.MoneyField{}

	for _, line := range strings.Split(text, "\n") {
		for _, rule := range labelRules {
			loc := rule.pattern.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if rule.field == "" {
				break
			}
			rest := line[loc[1]:]
			amount, ok := lastAmount(rest)
			if ok {
				if prev := found[rule.field]; prev == nil || rule.confidence > prev.Confidence {
					found[rule.field] = &types.MoneyField{
						Amount:     amount,
						Currency:   currencyCode(line),
						Confidence: rule.confidence,
					}
				}
			}
			break
		}
	}

	if len(found) == 0 {
		return nil
	}
	return &types.FinancialInfo{
		Total:     found["total"],
		Subtotal:  found["subtotal"],
		TotalTax:  found["total_tax"],
		AmountDue: found["amount_due"],
	}
}

func lastAmount(s string) (float64, bool) {
	matches := reAmount.FindAllString(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(matches[len(matches)-1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func currencyCode(line string) string {
	m := reCurrency.FindString(line)
	switch strings.ToLower(strings.TrimSuffix(m, ".")) {
	case "₹", "rs", "inr":
		return "INR"
	case "$", "usd":
		return "USD"
	case "€", "eur":
		return "EUR"
	case "£", "gbp":
		return "GBP"
	default:
		return ""
	}
}

// financialFromMap reads a {total, subtotal, total_tax, amount_due} map in bundle shape
func financialFromMap(m map[string]any) *types.FinancialInfo {
	if m == nil {
		return nil
	}
	fin := &types.FinancialInfo{
		Total:     moneyFromAny(m["total"]),
		Subtotal:  moneyFromAny(m["subtotal"]),
		TotalTax:  moneyFromAny(m["total_tax"]),
		AmountDue: moneyFromAny(m["amount_due"]),
	}
	if fin.IsEmpty() {
		return nil
	}
	return fin
}

func moneyFromAny(v any) *types.MoneyField {
	switch x := v.(type) {
	case float64:
		return &types.MoneyField{Amount: x}
	case map[string]any:
		amount, ok := x["amount"].(float64)
		if !ok {
			return nil
		}
		out := &types.MoneyField{Amount: amount}
		out.Currency, _ = x["currency"].(string)
		out.Confidence, _ = x["confidence"].(float64)
		return out
	default:
		return nil
	}
}
