package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeProfitability_Segments(t *testing.T) {
	catalog := []Product{
		{Name: "Gold", CostPrice: dec(75)},
		{Name: "Silver", CostPrice: dec(95)},
		{Name: "Lead", CostPrice: dec(12)},
		{Name: "Gem", CostPrice: dec(6)},
		{Name: "Plain", CostPrice: dec(8)},
	}
	d := day(t, "2024-01-01")
	txns := []Transaction{
		sale(1, "big", d, line("Gold", 100, 100)),
		sale(2, "thin", d, line("Silver", 100, 100)),
		sale(3, "loss", d, line("Lead", 1, 10)),
		sale(4, "gem", d, line("Gem", 1, 10)),
		sale(5, "plain", d, line("Plain", 1, 10)),
	}

	rows := ComputeProfitability(txns, catalog, DefaultConfig().Profitability)

	require.Len(t, rows, 5)
	want := []struct {
		key     string
		margin  float64
		segment ProfitSegment
	}{
		{"big", 25, ProfitSegmentHighValue},
		{"thin", 5, ProfitSegmentLowMargin},
		{"loss", -20, ProfitSegmentUnprofitable},
		{"gem", 40, ProfitSegmentGem},
		{"plain", 20, ProfitSegmentOther},
	}
	for i, w := range want {
		assert.Equal(t, w.key, rows[i].CustomerKey)
		assert.Truef(t, rows[i].ProfitMargin.Equal(dec(w.margin)), "%s margin %s", w.key, rows[i].ProfitMargin)
		assert.Equal(t, w.segment, rows[i].Segment, w.key)
	}
	assert.Equal(t, "7500", rows[0].TotalCost.String())
	assert.Equal(t, "2500", rows[0].TotalProfit.String())
}

func TestComputeProfitability_ZeroRevenueHasZeroMargin(t *testing.T) {
	txns := []Transaction{sale(1, "free", day(t, "2024-01-01"), line("Sample", 1, 0))}
	catalog := []Product{{Name: "Sample", CostPrice: dec(3)}}

	rows := ComputeProfitability(txns, catalog, DefaultConfig().Profitability)

	require.Len(t, rows, 1)
	assert.True(t, rows[0].TotalRevenue.IsZero())
	assert.True(t, rows[0].ProfitMargin.IsZero())
	assert.Equal(t, ProfitSegmentUnprofitable, rows[0].Segment)
}

func TestComputeProfitability_CreditsCountBillsButNoCost(t *testing.T) {
	catalog := []Product{{Name: "Tea", CostPrice: dec(2)}, {Name: "Cash payment", CostPrice: dec(1000)}}
	d := day(t, "2024-01-01")
	txns := []Transaction{
		sale(1, "A", d, line("Tea", 5, 4), line("Unknown", 1, 10)),
		payment(2, "A", d.AddDate(0, 0, 1), 30, "Cash payment"),
	}

	rows := ComputeProfitability(txns, catalog, DefaultConfig().Profitability)

	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].NumBills)
	assert.Equal(t, "60", rows[0].TotalRevenue.String())
	assert.Equal(t, "10", rows[0].TotalCost.String())
	assert.Equal(t, "50", rows[0].TotalProfit.String())
}

func TestComputeProfitability_EmptyInput(t *testing.T) {
	rows := ComputeProfitability(nil, nil, DefaultConfig().Profitability)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRevenueAndCost(t *testing.T) {
	catalog := []Product{{Name: "Tea", CostPrice: dec(2)}}
	d := day(t, "2024-01-01")
	txns := []Transaction{
		sale(1, "A", d, line("Tea", 5, 4)),
		payment(2, "A", d, 20, "Payment"),
	}

	summary := RevenueAndCost(txns, catalog)

	assert.Equal(t, "20", summary.TotalRevenue.String())
	assert.Equal(t, "10", summary.TotalCost.String())
	assert.Equal(t, "10", summary.GrossProfit.String())
	assert.True(t, summary.ProfitMargin.Equal(decimal.NewFromInt(50)))
}
