package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchasePatterns(t *testing.T) {
	txns := []Transaction{
		sale(1, "A", day(t, "2024-01-01"), line("Tea", 1, 1), line("Cake", 1, 1)),
		sale(2, "A", day(t, "2024-01-11"), line("Cake", 1, 1), line("Jam", 1, 1)),
		sale(3, "A", day(t, "2024-01-21"), line("Cake", 1, 1), line("Tea", 1, 1), line("Bun", 1, 1)),
		sale(4, "B", day(t, "2024-01-05"), line("Tea", 1, 1)),
	}

	patterns := PurchasePatterns(txns)

	require.Len(t, patterns, 2)
	require.NotNil(t, patterns[0].AvgDaysBetween)
	assert.InDelta(t, 10, *patterns[0].AvgDaysBetween, 1e-9)
	assert.Equal(t, []string{"Cake", "Tea", "Jam"}, patterns[0].MostCommonProducts)
	assert.Nil(t, patterns[1].AvgDaysBetween)
	assert.Equal(t, []string{"Tea"}, patterns[1].MostCommonProducts)
}

func TestBestWorstSellersAndTopRevenue(t *testing.T) {
	rollup := []ProductStats{
		{ProductName: "Tea", TotalQuantity: dec(10), TotalRevenue: dec(20)},
		{ProductName: "Cake", TotalQuantity: dec(2), TotalRevenue: dec(50)},
		{ProductName: "Jam", TotalQuantity: dec(5), TotalRevenue: dec(5)},
	}

	best, worst := BestWorstSellers(rollup, 2)

	assert.Equal(t, "Tea", best[0].ProductName)
	assert.Equal(t, "Jam", best[1].ProductName)
	assert.Equal(t, "Cake", worst[0].ProductName)
	assert.Len(t, worst, 2)

	top := TopProductsByRevenue(rollup, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "Cake", top[0].ProductName)
	assert.Equal(t, "Tea", rollup[0].ProductName)
}

func TestSalesVelocity(t *testing.T) {
	txns := []Transaction{
		sale(1, "A", day(t, "2024-01-01"), line("Tea", 4, 1)),
		sale(2, "A", day(t, "2024-01-03"), line("Tea", 2, 1), line("Cake", 9, 1)),
		sale(3, "A", day(t, "2024-01-10"), line("Tea", 2, 1)),
	}

	velocity := SalesVelocity(txns)

	require.Len(t, velocity, 2)
	assert.Equal(t, "Cake", velocity[0].ProductName)
	assert.Equal(t, "9", velocity[0].UnitsPerWeek.String())
	assert.Equal(t, "Tea", velocity[1].ProductName)
	assert.Equal(t, "4", velocity[1].UnitsPerWeek.String())
}

func TestInventoryStatus(t *testing.T) {
	products := []Product{
		{Name: "Tea", CostPrice: dec(2), StockQuantity: 50, ReorderThreshold: 10},
		{Name: "Cake", CostPrice: dec(5), StockQuantity: 3, ReorderThreshold: 5},
		{Name: "Jam", CostPrice: dec(4), StockQuantity: 0, ReorderThreshold: 5},
	}

	report := InventoryStatus(products)

	require.Len(t, report.Items, 3)
	assert.Equal(t, StockStatusHealthy, report.Items[0].Status)
	assert.Equal(t, StockStatusLow, report.Items[1].Status)
	assert.Equal(t, StockStatusOutOfStock, report.Items[2].Status)
	assert.Equal(t, "115", report.TotalValue.String())
	assert.Equal(t, 1, report.LowStockCount)
	assert.Equal(t, 1, report.OutOfStockCount)
}
