package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type PurchasePattern struct {
	CustomerKey        string   `json:"customer_key"`
	AvgDaysBetween     *float64 `json:"avg_days_between"`
	MostCommonProducts []string `json:"most_common_products"`
}

const mostCommonProductsLimit = 3

// PurchasePatterns describes each customer's purchase cadence and favourite
// products, sorted by customer key. AvgDaysBetween is nil for customers with
// a single purchase.
func PurchasePatterns(txns []Transaction) []PurchasePattern {
	byCustomer := map[string][]Transaction{}
	keys := []string{}
	for _, t := range txns {
		if !t.IsSale() {
			continue
		}
		if _, ok := byCustomer[t.CustomerKey]; !ok {
			keys = append(keys, t.CustomerKey)
		}
		byCustomer[t.CustomerKey] = append(byCustomer[t.CustomerKey], t)
	}
	sort.Strings(keys)

	out := make([]PurchasePattern, 0, len(keys))
	for _, key := range keys {
		bills := byCustomer[key]
		pattern := PurchasePattern{CustomerKey: key, MostCommonProducts: []string{}}
		if len(bills) > 1 {
			first, last := DateOf(bills[0].Date), DateOf(bills[0].Date)
			for _, b := range bills[1:] {
				day := DateOf(b.Date)
				if day.Before(first) {
					first = day
				}
				if day.After(last) {
					last = day
				}
			}
			avg := float64(DaysBetween(first, last)) / float64(len(bills)-1)
			pattern.AvgDaysBetween = &avg
		}
		for _, p := range popularity(bills) {
			pattern.MostCommonProducts = append(pattern.MostCommonProducts, p.name)
			if len(pattern.MostCommonProducts) == mostCommonProductsLimit {
				break
			}
		}
		out = append(out, pattern)
	}
	return out
}

// BestWorstSellers ranks a product rollup by total quantity sold.
func BestWorstSellers(rollup []ProductStats, topN int) (best, worst []ProductStats) {
	best = rankProducts(rollup, topN, func(a, b ProductStats) bool {
		return a.TotalQuantity.GreaterThan(b.TotalQuantity)
	})
	worst = rankProducts(rollup, topN, func(a, b ProductStats) bool {
		return a.TotalQuantity.LessThan(b.TotalQuantity)
	})
	return best, worst
}

// TopProductsByRevenue returns the topN products of a rollup by revenue.
func TopProductsByRevenue(rollup []ProductStats, topN int) []ProductStats {
	return rankProducts(rollup, topN, func(a, b ProductStats) bool {
		return a.TotalRevenue.GreaterThan(b.TotalRevenue)
	})
}

func rankProducts(rollup []ProductStats, topN int, less func(a, b ProductStats) bool) []ProductStats {
	ranked := make([]ProductStats, len(rollup))
	copy(ranked, rollup)
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	if topN >= 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

type ProductVelocity struct {
	ProductName  string          `json:"product_name"`
	UnitsPerWeek decimal.Decimal `json:"units_per_week"`
}

// SalesVelocity is the mean weekly quantity sold per product over the weeks
// in which it sold, fastest first.
func SalesVelocity(txns []Transaction) []ProductVelocity {
	type weekly struct {
		weeks map[time.Time]bool
		units decimal.Decimal
	}
	index := map[string]int{}
	names := []string{}
	stats := []*weekly{}
	for _, t := range txns {
		if !t.IsSale() {
			continue
		}
		week := weekStart(t.Date)
		for _, item := range t.Items {
			if item.Name == "" {
				continue
			}
			i, ok := index[item.Name]
			if !ok {
				i = len(stats)
				index[item.Name] = i
				names = append(names, item.Name)
				stats = append(stats, &weekly{weeks: map[time.Time]bool{}, units: decimal.Zero})
			}
			stats[i].weeks[week] = true
			stats[i].units = stats[i].units.Add(item.Quantity)
		}
	}
	out := make([]ProductVelocity, len(stats))
	for i, s := range stats {
		out[i] = ProductVelocity{
			ProductName:  names[i],
			UnitsPerWeek: s.units.Div(decimal.NewFromInt(int64(len(s.weeks)))),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UnitsPerWeek.GreaterThan(out[j].UnitsPerWeek)
	})
	return out
}

type StockStatus string

const (
	StockStatusOutOfStock StockStatus = "Out of Stock"
	StockStatusLow        StockStatus = "Low Stock"
	StockStatusHealthy    StockStatus = "Healthy"
)

type InventoryItem struct {
	Product Product         `json:"product"`
	Status  StockStatus     `json:"status"`
	Value   decimal.Decimal `json:"value"`
}

type InventoryReport struct {
	Items           []InventoryItem `json:"items"`
	TotalValue      decimal.Decimal `json:"total_value"`
	LowStockCount   int             `json:"low_stock_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`
}

// InventoryStatus classifies each product's stock level against its reorder
// threshold and values the stock on hand at cost.
func InventoryStatus(products []Product) InventoryReport {
	report := InventoryReport{Items: make([]InventoryItem, 0, len(products)), TotalValue: decimal.Zero}
	for _, p := range products {
		value := p.CostPrice.Mul(decimal.NewFromInt(int64(p.StockQuantity)))
		status := StockStatusHealthy
		switch {
		case p.StockQuantity <= 0:
			status = StockStatusOutOfStock
			report.OutOfStockCount++
		case p.StockQuantity <= p.ReorderThreshold:
			status = StockStatusLow
			report.LowStockCount++
		}
		report.TotalValue = report.TotalValue.Add(value)
		report.Items = append(report.Items, InventoryItem{Product: p, Status: status, Value: value})
	}
	return report
}
