package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "Debit"
	TransactionTypeCredit TransactionType = "Credit"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeDebit || t == TransactionTypeCredit
}

// Item is one line of a bill. For Credit entries the storage layer emits a
// single pseudo-item named after the remarks with zero quantity and price.
type Item struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

type Transaction struct {
	BillNumber      int             `json:"bill_number"`
	CustomerKey     string          `json:"customer_key"`
	Date            time.Time       `json:"date"`
	Items           []Item          `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TransactionType TransactionType `json:"transaction_type"`
	Remarks         string          `json:"remarks"`
}

func (t Transaction) IsSale() bool {
	return t.TransactionType == TransactionTypeDebit
}

type Expense struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

type Product struct {
	Name             string          `json:"name"`
	CostPrice        decimal.Decimal `json:"cost_price"`
	StockQuantity    int             `json:"stock_quantity"`
	ReorderThreshold int             `json:"reorder_threshold"`
	SupplierLeadTime int             `json:"supplier_lead_time"`
	Category         string          `json:"category"`
}

const DefaultExpenseCategory = "Uncategorized"

// DailyAmount is one row of a day-keyed rollup.
type DailyAmount struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// DateOf truncates t to its calendar date, expressed at UTC midnight so that
// dates from different locations compare and key consistently.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// costLookup indexes a product catalog by exact item name.
type costLookup map[string]decimal.Decimal

func newCostLookup(catalog []Product) costLookup {
	costs := make(costLookup, len(catalog))
	for _, p := range catalog {
		costs[p.Name] = p.CostPrice
	}
	return costs
}

// cost returns the catalog cost price of name, or zero when it is unknown.
func (c costLookup) cost(name string) decimal.Decimal {
	if v, ok := c[name]; ok {
		return v
	}
	return decimal.Zero
}
