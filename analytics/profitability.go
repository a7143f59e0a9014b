package analytics

import "github.com/shopspring/decimal"

type ProfitSegment string

const (
	ProfitSegmentHighValue    ProfitSegment = "High Value"
	ProfitSegmentLowMargin    ProfitSegment = "Low Margin"
	ProfitSegmentUnprofitable ProfitSegment = "Unprofitable"
	ProfitSegmentGem          ProfitSegment = "Gem"
	ProfitSegmentOther        ProfitSegment = "Other"
)

var hundred = decimal.NewFromInt(100)

type CustomerProfitability struct {
	CustomerKey  string          `json:"customer_key"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	NumBills     int             `json:"num_bills"`
	Segment      ProfitSegment   `json:"segment"`
}

// ComputeProfitability joins per-customer revenue against catalog cost prices.
// Every transaction counts toward revenue and the bill count; only sale lines
// carry cost. Customers are returned in first-seen order.
func ComputeProfitability(txns []Transaction, catalog []Product, cfg ProfitabilityConfig) []CustomerProfitability {
	costs := newCostLookup(catalog)
	index := map[string]int{}
	out := []CustomerProfitability{}
	for _, t := range txns {
		i, ok := index[t.CustomerKey]
		if !ok {
			i = len(out)
			index[t.CustomerKey] = i
			out = append(out, CustomerProfitability{
				CustomerKey:  t.CustomerKey,
				TotalRevenue: decimal.Zero,
				TotalCost:    decimal.Zero,
			})
		}
		row := &out[i]
		row.TotalRevenue = row.TotalRevenue.Add(t.TotalAmount)
		row.NumBills++
		if !t.IsSale() {
			continue
		}
		row.TotalCost = row.TotalCost.Add(transactionCost(t, costs))
	}
	for i := range out {
		row := &out[i]
		row.TotalProfit = row.TotalRevenue.Sub(row.TotalCost)
		row.ProfitMargin = margin(row.TotalProfit, row.TotalRevenue)
		row.Segment = classifyProfit(*row, cfg)
	}
	return out
}

func transactionCost(t Transaction, costs costLookup) decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		total = total.Add(item.Quantity.Mul(costs.cost(item.Name)))
	}
	return total
}

// margin is profit as a percentage of revenue, zero when there is no revenue.
func margin(profit, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return profit.Mul(hundred).Div(revenue)
}

func classifyProfit(p CustomerProfitability, cfg ProfitabilityConfig) ProfitSegment {
	highRevenue := p.TotalRevenue.GreaterThanOrEqual(cfg.HighRevenue)
	switch {
	case highRevenue && p.ProfitMargin.GreaterThanOrEqual(cfg.HighValueMargin):
		return ProfitSegmentHighValue
	case highRevenue && p.ProfitMargin.LessThan(cfg.LowMargin):
		return ProfitSegmentLowMargin
	case p.TotalProfit.IsNegative():
		return ProfitSegmentUnprofitable
	case p.ProfitMargin.GreaterThanOrEqual(cfg.GemMargin):
		return ProfitSegmentGem
	default:
		return ProfitSegmentOther
	}
}

type RevenueSummary struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// RevenueAndCost totals revenue and catalog cost across the whole window.
func RevenueAndCost(txns []Transaction, catalog []Product) RevenueSummary {
	costs := newCostLookup(catalog)
	summary := RevenueSummary{TotalRevenue: decimal.Zero, TotalCost: decimal.Zero}
	for _, t := range txns {
		if !t.IsSale() {
			continue
		}
		summary.TotalRevenue = summary.TotalRevenue.Add(t.TotalAmount)
		summary.TotalCost = summary.TotalCost.Add(transactionCost(t, costs))
	}
	summary.GrossProfit = summary.TotalRevenue.Sub(summary.TotalCost)
	summary.ProfitMargin = margin(summary.GrossProfit, summary.TotalRevenue)
	return summary
}
