package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func line(name string, qty, price float64) Item {
	return Item{Name: name, Quantity: dec(qty), Price: dec(price), Total: dec(qty * price)}
}

func sale(bill int, customer string, date time.Time, items ...Item) Transaction {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}
	return Transaction{
		BillNumber:      bill,
		CustomerKey:     customer,
		Date:            date,
		Items:           items,
		TotalAmount:     total,
		TransactionType: TransactionTypeDebit,
	}
}

func payment(bill int, customer string, date time.Time, amount float64, remarks string) Transaction {
	return Transaction{
		BillNumber:      bill,
		CustomerKey:     customer,
		Date:            date,
		Items:           []Item{{Name: remarks, Quantity: decimal.Zero, Price: decimal.Zero, Total: dec(amount)}},
		TotalAmount:     dec(amount),
		TransactionType: TransactionTypeCredit,
		Remarks:         remarks,
	}
}

func flatSale(bill int, customer string, date time.Time, amount float64) Transaction {
	return sale(bill, customer, date, line("Widget", 1, amount))
}
