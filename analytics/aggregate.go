package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Dimension selects the grouping key used by Aggregate. Each dimension is
// derived directly from the transaction date; no dimension is computed from
// another one.
type Dimension string

const (
	DimensionDay     Dimension = "day"
	DimensionISOWeek Dimension = "week"
	DimensionMonth   Dimension = "month"
	DimensionWeekday Dimension = "weekday"
	DimensionHour    Dimension = "hour"
)

func (d Dimension) IsValid() bool {
	switch d {
	case DimensionDay, DimensionISOWeek, DimensionMonth, DimensionWeekday, DimensionHour:
		return true
	}
	return false
}

type Bucket struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
	order  int
}

// bucketKey returns the display key of t under d and a sort rank used where
// lexical order of the key is not the natural one.
func bucketKey(t time.Time, d Dimension) (string, int) {
	switch d {
	case DimensionISOWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w), 0
	case DimensionMonth:
		return t.Format("2006-01"), 0
	case DimensionWeekday:
		return t.Weekday().String(), weekdayRank(t.Weekday())
	case DimensionHour:
		return fmt.Sprintf("%02d", t.Hour()), t.Hour()
	default:
		return t.Format("2006-01-02"), 0
	}
}

// weekdayRank orders Monday first.
func weekdayRank(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// Aggregate sums sales revenue of txns grouped by d. An empty input yields an
// empty rollup.
func Aggregate(txns []Transaction, d Dimension) []Bucket {
	index := map[string]int{}
	buckets := []Bucket{}
	for _, t := range txns {
		if !t.IsSale() {
			continue
		}
		key, order := bucketKey(t.Date, d)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Key: key, Amount: decimal.Zero, order: order})
		}
		buckets[i].Amount = buckets[i].Amount.Add(t.TotalAmount)
		buckets[i].Count++
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].order != buckets[j].order {
			return buckets[i].order < buckets[j].order
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

// DailyRevenue sums the total amount of sales per calendar date.
func DailyRevenue(txns []Transaction) []DailyAmount {
	byDate := map[time.Time]decimal.Decimal{}
	for _, t := range txns {
		if !t.IsSale() {
			continue
		}
		day := DateOf(t.Date)
		byDate[day] = byDate[day].Add(t.TotalAmount)
	}
	return sortedDaily(byDate)
}

// DailyExpenses sums expense amounts per calendar date.
func DailyExpenses(expenses []Expense) []DailyAmount {
	byDate := map[time.Time]decimal.Decimal{}
	for _, e := range expenses {
		day := DateOf(e.Date)
		byDate[day] = byDate[day].Add(e.Amount)
	}
	return sortedDaily(byDate)
}

func sortedDaily(byDate map[time.Time]decimal.Decimal) []DailyAmount {
	rows := make([]DailyAmount, 0, len(byDate))
	for day, amount := range byDate {
		rows = append(rows, DailyAmount{Date: day, Amount: amount})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

// SumDaily returns the total of a daily rollup.
func SumDaily(rows []DailyAmount) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

type HeatmapCell struct {
	Weekday string          `json:"weekday"`
	Hour    int             `json:"hour"`
	Amount  decimal.Decimal `json:"amount"`
}

// SalesHeatmap sums sales revenue by weekday and hour of day. Only cells with
// at least one sale are returned, Monday first, then by hour.
func SalesHeatmap(txns []Transaction) []HeatmapCell {
	type cellKey struct {
		weekday time.Weekday
		hour    int
	}
	cells := map[cellKey]decimal.Decimal{}
	for _, t := range txns {
		if !t.IsSale() {
			continue
		}
		k := cellKey{weekday: t.Date.Weekday(), hour: t.Date.Hour()}
		cells[k] = cells[k].Add(t.TotalAmount)
	}
	keys := make([]cellKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := weekdayRank(keys[i].weekday), weekdayRank(keys[j].weekday)
		if ri != rj {
			return ri < rj
		}
		return keys[i].hour < keys[j].hour
	})
	out := make([]HeatmapCell, 0, len(keys))
	for _, k := range keys {
		out = append(out, HeatmapCell{Weekday: k.weekday.String(), Hour: k.hour, Amount: cells[k]})
	}
	return out
}

type ProductStats struct {
	ProductName   string          `json:"product_name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
}

// ProductRollup accumulates quantity, revenue and cost per product name from
// sale item lines, in first-seen order. Lines without a name are skipped.
func ProductRollup(txns []Transaction, catalog []Product) []ProductStats {
	costs := newCostLookup(catalog)
	index := map[string]int{}
	stats := []ProductStats{}
	for _, t := range txns {
		if !t.IsSale() {
			continue
		}
		for _, item := range t.Items {
			if item.Name == "" {
				continue
			}
			i, ok := index[item.Name]
			if !ok {
				i = len(stats)
				index[item.Name] = i
				stats = append(stats, ProductStats{
					ProductName:   item.Name,
					TotalQuantity: decimal.Zero,
					TotalRevenue:  decimal.Zero,
					TotalCost:     decimal.Zero,
				})
			}
			s := &stats[i]
			s.TotalQuantity = s.TotalQuantity.Add(item.Quantity)
			s.TotalRevenue = s.TotalRevenue.Add(item.Total)
			s.TotalCost = s.TotalCost.Add(costs.cost(item.Name).Mul(item.Quantity))
		}
	}
	for i := range stats {
		stats[i].TotalProfit = stats[i].TotalRevenue.Sub(stats[i].TotalCost)
	}
	return stats
}

type CustomerStats struct {
	CustomerKey   string          `json:"customer_key"`
	FirstPurchase time.Time       `json:"first_purchase"`
	LastPurchase  time.Time       `json:"last_purchase"`
	Recency       int             `json:"recency"`
	Frequency     int             `json:"frequency"`
	Monetary      decimal.Decimal `json:"monetary"`
}

// CustomerRollup computes per-customer recency, frequency and monetary value,
// sorted by customer key. Recency is measured from the latest transaction
// date in txns.
func CustomerRollup(txns []Transaction) []CustomerStats {
	index := map[string]int{}
	stats := []CustomerStats{}
	var maxDate time.Time
	for _, t := range txns {
		day := DateOf(t.Date)
		if day.After(maxDate) {
			maxDate = day
		}
		i, ok := index[t.CustomerKey]
		if !ok {
			i = len(stats)
			index[t.CustomerKey] = i
			stats = append(stats, CustomerStats{
				CustomerKey:   t.CustomerKey,
				FirstPurchase: day,
				LastPurchase:  day,
				Monetary:      decimal.Zero,
			})
		}
		s := &stats[i]
		if day.Before(s.FirstPurchase) {
			s.FirstPurchase = day
		}
		if day.After(s.LastPurchase) {
			s.LastPurchase = day
		}
		s.Frequency++
		s.Monetary = s.Monetary.Add(t.TotalAmount)
	}
	for i := range stats {
		stats[i].Recency = DaysBetween(stats[i].LastPurchase, maxDate)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].CustomerKey < stats[j].CustomerKey
	})
	return stats
}

type ExpenseSummary struct {
	TotalExpenses decimal.Decimal   `json:"total_expenses"`
	ByCategory    []CategoryExpense `json:"by_category"`
}

type CategoryExpense struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// SummarizeExpenses totals expenses overall and per category, categories in
// first-seen order.
func SummarizeExpenses(expenses []Expense) ExpenseSummary {
	summary := ExpenseSummary{TotalExpenses: decimal.Zero, ByCategory: []CategoryExpense{}}
	index := map[string]int{}
	for _, e := range expenses {
		category := e.Category
		if category == "" {
			category = DefaultExpenseCategory
		}
		i, ok := index[category]
		if !ok {
			i = len(summary.ByCategory)
			index[category] = i
			summary.ByCategory = append(summary.ByCategory, CategoryExpense{Category: category, Amount: decimal.Zero})
		}
		summary.ByCategory[i].Amount = summary.ByCategory[i].Amount.Add(e.Amount)
		summary.TotalExpenses = summary.TotalExpenses.Add(e.Amount)
	}
	return summary
}
