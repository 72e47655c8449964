package types

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// looseAmount matches an amount written as text, with an optional currency marker
// before it and an optional currency code or percent sign after it:
// "3,389.00", "₹ 1,19,970.60", "Rs. 500", "18%", "1180 INR".
var looseAmount = regexp.MustCompile(`^(?i:rs\.?|inr|usd|eur|gbp|\p{Sc})?\s*(-?(?:[0-9][0-9,]*(?:\.[0-9]+)?|\.[0-9]+))\s*(?i:inr|usd|eur|gbp|%)?$`)

// UnmarshalJSON reads a line item the way models actually write one. Amounts may be
// numbers or numeric strings; text fields may be strings or bare numbers. An amount
// that cannot be read is left null instead of failing the whole document.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductNumber json.RawMessage `json:"product_number"`
		ProductName   json.RawMessage `json:"product_name"`
		Units         json.RawMessage `json:"units"`
		UnitPrice     json.RawMessage `json:"unit_price"`
		TaxRate       json.RawMessage `json:"tax_rate"`
		TaxAmount     json.RawMessage `json:"tax_amount"`
		TotalValue    json.RawMessage `json:"total_value"`
		Currency      json.RawMessage `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*li = LineItem{
		ProductNumber: looseString(raw.ProductNumber),
		ProductName:   looseString(raw.ProductName),
		Units:         looseNumber(raw.Units),
		UnitPrice:     looseNumber(raw.UnitPrice),
		TaxRate:       looseNumber(raw.TaxRate),
		TaxAmount:     looseNumber(raw.TaxAmount),
		TotalValue:    looseNumber(raw.TotalValue),
		Currency:      looseString(raw.Currency),
	}
	return nil
}

func decodeLoose(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func looseString(raw json.RawMessage) *string {
	switch v := decodeLoose(raw).(type) {
	case string:
		return &v
	case json.Number:
		s := v.String()
		return &s
	default:
		return nil
	}
}

func looseNumber(raw json.RawMessage) *float64 {
	switch v := decodeLoose(raw).(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil
		}
		return Float(d.InexactFloat64())
	case string:
		return ParseAmount(v)
	default:
		return nil
	}
}

// ParseAmount reads a numeric string such as "3,389.00" or "₹ 1,180", ignoring
// thousands separators and currency markers. It returns nil for anything else.
func ParseAmount(s string) *float64 {
	m := looseAmount.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return Float(d.InexactFloat64())
}
