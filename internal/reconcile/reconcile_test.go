package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

func payload(items ...types.LineItem) *types.NormalizationPayload {
	return &types.NormalizationPayload{
		DocumentType: types.DocumentTypeInvoice,
		Documents: []types.NormalizedDocument{{
			InvoiceID: types.String("INV-1"),
			LineItems: items,
		}},
	}
}

func TestReconcile_RecomputesLineItem(t *testing.T) {
	in := payload(types.LineItem{
		ProductNumber: types.String("VI-3423"),
		Units:         types.Float(30),
		UnitPrice:     types.Float(3389),
		TaxRate:       types.Float(18),
		TotalValue:    types.Float(101670), // model forgot tax
	})

	out := Reconcile(in, nil, Options{})
	require.NotNil(t, out)

	item := out.Documents[0].LineItems[0]
	assert.Equal(t, 0.18, *item.TaxRate)
	assert.Equal(t, 18300.60, *item.TaxAmount)
	assert.Equal(t, 119970.60, *item.TotalValue)
	assert.Equal(t, "INR", *item.Currency)

	totals := out.Documents[0].DocumentTotals
	require.NotNil(t, totals)
	assert.Equal(t, 101670.0, totals.Subtotal)
	assert.Equal(t, 18300.60, totals.TaxTotal)
	assert.Equal(t, 119970.60, totals.Total)
	assert.False(t, totals.OriginalDataUsed)
}

func TestReconcile_FractionalRateUnchanged(t *testing.T) {
	out := Reconcile(payload(types.LineItem{
		Units:     types.Float(2),
		UnitPrice: types.Float(10.005),
		TaxRate:   types.Float(0.05),
	}), nil, Options{})

	item := out.Documents[0].LineItems[0]
	assert.Equal(t, 0.05, *item.TaxRate)
	assert.Equal(t, 1.0, *item.TaxAmount)   // 20.01 * 0.05 = 1.0005
	assert.Equal(t, 21.01, *item.TotalValue) // 20.01 + 1.00
}

func TestReconcile_ZeroGuard(t *testing.T) {
	tests := []struct {
		name string
		item types.LineItem
	}{
		{"zero units", types.LineItem{Units: types.Float(0), UnitPrice: types.Float(50), TaxRate: types.Float(18), TaxAmount: types.Float(9), TotalValue: types.Float(59)}},
		{"negative price", types.LineItem{Units: types.Float(3), UnitPrice: types.Float(-1), TaxAmount: types.Float(4), TotalValue: types.Float(59)}},
		{"missing units", types.LineItem{UnitPrice: types.Float(50), TaxAmount: types.Float(9), TotalValue: types.Float(59)}},
		{"missing price", types.LineItem{Units: types.Float(2), TotalValue: types.Float(59)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Reconcile(payload(tt.item), nil, Options{})
			item := out.Documents[0].LineItems[0]
			require.NotNil(t, item.TaxAmount)
			assert.Equal(t, 0.0, *item.TaxAmount)
			assert.Equal(t, 59.0, *item.TotalValue)
			assert.Equal(t, 0.0, out.Documents[0].DocumentTotals.Total)
		})
	}
}

func TestReconcile_StatedTotalWins(t *testing.T) {
	in := payload(types.LineItem{
		Units:     types.Float(10),
		UnitPrice: types.Float(100),
		TaxRate:   types.Float(18),
	})
	fin := &types.FinancialInfo{
		Total:    &types.MoneyField{Amount: 1250, Currency: "INR", Confidence: 0.9},
		Subtotal: &types.MoneyField{Amount: 1060},
	}

	out := Reconcile(in, fin, Options{})
	totals := out.Documents[0].DocumentTotals
	assert.True(t, totals.OriginalDataUsed)
	assert.Equal(t, 1250.0, totals.Total)
	assert.Equal(t, 1060.0, totals.Subtotal)
	assert.Equal(t, 180.0, totals.TaxTotal) // no stated tax, calculated kept

	// Line items are still recomputed
	assert.Equal(t, 1180.0, *out.Documents[0].LineItems[0].TotalValue)
}

func TestReconcile_StatedTotalWithinThreshold(t *testing.T) {
	in := payload(types.LineItem{Units: types.Float(10), UnitPrice: types.Float(100), TaxRate: types.Float(18)})

	tests := []struct {
		name   string
		stated float64
		want   bool
	}{
		{"equal", 1180, false},
		{"off by exactly one", 1181, false},
		{"off by more than one", 1181.01, true},
		{"lower by more than one", 1170, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fin := &types.FinancialInfo{Total: &types.MoneyField{Amount: tt.stated}}
			out := Reconcile(in, fin, Options{})
			assert.Equal(t, tt.want, out.Documents[0].DocumentTotals.OriginalDataUsed)
		})
	}
}

func TestReconcile_StatedTotalAppliesToFirstDocument(t *testing.T) {
	in := &types.NormalizationPayload{
		DocumentType: types.DocumentTypeMixed,
		Documents: []types.NormalizedDocument{
			{LineItems: []types.LineItem{{Units: types.Float(1), UnitPrice: types.Float(100)}}},
			{LineItems: []types.LineItem{{Units: types.Float(1), UnitPrice: types.Float(200)}}},
		},
	}
	fin := &types.FinancialInfo{Total: &types.MoneyField{Amount: 500}}

	out := Reconcile(in, fin, Options{})
	assert.True(t, out.Documents[0].DocumentTotals.OriginalDataUsed)
	assert.Equal(t, 500.0, out.Documents[0].DocumentTotals.Total)
	assert.False(t, out.Documents[1].DocumentTotals.OriginalDataUsed)
	assert.Equal(t, 200.0, out.Documents[1].DocumentTotals.Total)
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	in := payload(types.LineItem{
		Units:      types.Float(30),
		UnitPrice:  types.Float(3389),
		TaxRate:    types.Float(18),
		TotalValue: types.Float(1),
	})

	out := Reconcile(in, nil, Options{})
	require.NotSame(t, in, out)

	item := in.Documents[0].LineItems[0]
	assert.Equal(t, 18.0, *item.TaxRate)
	assert.Nil(t, item.TaxAmount)
	assert.Equal(t, 1.0, *item.TotalValue)
	assert.Nil(t, item.Currency)
	assert.Nil(t, in.Documents[0].DocumentTotals)
}

func TestReconcile_Currency(t *testing.T) {
	in := payload(
		types.LineItem{Units: types.Float(1), UnitPrice: types.Float(1)},
		types.LineItem{Units: types.Float(1), UnitPrice: types.Float(1), Currency: types.String("  ")},
		types.LineItem{Units: types.Float(1), UnitPrice: types.Float(1), Currency: types.String("USD")},
	)

	out := Reconcile(in, nil, Options{Currency: "EUR"})
	items := out.Documents[0].LineItems
	assert.Equal(t, "EUR", *items[0].Currency)
	assert.Equal(t, "EUR", *items[1].Currency)
	assert.Equal(t, "USD", *items[2].Currency)
}

func TestReconcile_NilAndEmpty(t *testing.T) {
	assert.Nil(t, Reconcile(nil, nil, Options{}))

	out := Reconcile(&types.NormalizationPayload{DocumentType: types.DocumentTypeInvoice}, &types.FinancialInfo{}, Options{})
	require.NotNil(t, out)
	assert.Empty(t, out.Documents)

	out = Reconcile(payload(), nil, Options{})
	assert.Equal(t, &types.DocumentTotals{}, out.Documents[0].DocumentTotals)
}

func TestNormalizeTaxRate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"18", "0.18"},
		{"0.18", "0.18"},
		{"1", "1"},
		{"0", "0"},
		{"12.5", "0.125"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeTaxRate(decimal.RequireFromString(tt.in))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "0.13", round(decimal.RequireFromString("0.125")).StringFixed(2))
	assert.Equal(t, "-0.13", round(decimal.RequireFromString("-0.125")).StringFixed(2))
	assert.Equal(t, "2.67", round(decimal.RequireFromString("2.665")).StringFixed(2))
}
