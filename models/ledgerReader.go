package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const ledgerModule = "LedgerReader"

// LedgerReader is the storage boundary of the analytics engine. Every read is
// scoped to the business id carried by the context and returns explicit
// analytics records; rows that fail validation are logged and skipped.
type LedgerReader struct {
	db *gorm.DB
}

func NewLedgerReader(db *gorm.DB) *LedgerReader {
	return &LedgerReader{db: db}
}

const billsSqlT = `
SELECT
    id,
    business_id,
    bill_number,
    customer_key,
    bill_date,
    total_amount,
    transaction_type,
    remarks
FROM
    bills
WHERE
    business_id = @businessId
        AND bill_date >= @fromDate
        AND bill_date < @toDate
        {{- if .customerKey }} AND customer_key = @customerKey {{- end }}
ORDER BY bill_date, bill_number
`

const expensesSqlT = `
SELECT
    id,
    business_id,
    expense_date,
    amount,
    category,
    description
FROM
    expenses
WHERE
    business_id = @businessId
        AND expense_date >= @fromDate
        AND expense_date < @toDate
        {{- if .category }} AND category = @category {{- end }}
ORDER BY expense_date, id
`

func businessIdFrom(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || strings.TrimSpace(businessId) == "" {
		return "", ErrBusinessRequired
	}
	return businessId, nil
}

// windowBounds turns an inclusive [from, to] calendar range into a half-open
// [from, to+1day) timestamp range so that time-of-day on the last day is kept.
func windowBounds(from, to time.Time) (time.Time, time.Time, error) {
	start := analytics.DateOf(from)
	end := analytics.DateOf(to)
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return start, end.AddDate(0, 0, 1), nil
}

// ReadTransactions returns the bills dated within [from, to], optionally for a
// single customer, with their line items in entry order.
func (r *LedgerReader) ReadTransactions(ctx context.Context, from, to time.Time, customerKey *string) ([]analytics.Transaction, error) {
	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	fromDate, toDate, err := windowBounds(from, to)
	if err != nil {
		return nil, err
	}

	sql, err := utils.ExecTemplate(billsSqlT, map[string]interface{}{
		"customerKey": utils.DereferencePtr(customerKey),
	})
	if err != nil {
		return nil, err
	}

	var bills []Bill
	if err := r.db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"businessId":  businessId,
		"fromDate":    fromDate,
		"toDate":      toDate,
		"customerKey": utils.DereferencePtr(customerKey),
	}).Scan(&bills).Error; err != nil {
		config.LogError(config.GetLogger(), ledgerModule, "ReadTransactions", "reading bills", map[string]any{"business_id": businessId}, err)
		return nil, fmt.Errorf("read bills: %w", err)
	}
	if len(bills) == 0 {
		return []analytics.Transaction{}, nil
	}

	if err := r.attachDetails(ctx, bills); err != nil {
		config.LogError(config.GetLogger(), ledgerModule, "ReadTransactions", "reading bill details", map[string]any{"business_id": businessId}, err)
		return nil, fmt.Errorf("read bill details: %w", err)
	}

	transactions := make([]analytics.Transaction, 0, len(bills))
	for _, bill := range bills {
		txn, err := bill.ToTransaction()
		if err != nil {
			config.LogSkippedRecord(config.GetLogger(), ledgerModule, "bill_number", bill.BillNumber, err.Error())
			continue
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

func (r *LedgerReader) attachDetails(ctx context.Context, bills []Bill) error {
	ids := make([]int, len(bills))
	for i, b := range bills {
		ids[i] = b.ID
	}

	var details []BillDetail
	if err := r.db.WithContext(ctx).
		Where("bill_id IN ?", ids).
		Order("bill_id, seq_no").
		Find(&details).Error; err != nil {
		return err
	}

	byBill := make(map[int][]BillDetail, len(bills))
	for _, d := range details {
		byBill[d.BillId] = append(byBill[d.BillId], d)
	}
	for i := range bills {
		bills[i].Details = byBill[bills[i].ID]
	}
	return nil
}

// ReadExpenses returns the expenses dated within [from, to], optionally for a
// single category.
func (r *LedgerReader) ReadExpenses(ctx context.Context, from, to time.Time, category *string) ([]analytics.Expense, error) {
	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}
	fromDate, toDate, err := windowBounds(from, to)
	if err != nil {
		return nil, err
	}

	sql, err := utils.ExecTemplate(expensesSqlT, map[string]interface{}{
		"category": utils.DereferencePtr(category),
	})
	if err != nil {
		return nil, err
	}

	var rows []Expense
	if err := r.db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"businessId": businessId,
		"fromDate":   fromDate,
		"toDate":     toDate,
		"category":   utils.DereferencePtr(category),
	}).Scan(&rows).Error; err != nil {
		config.LogError(config.GetLogger(), ledgerModule, "ReadExpenses", "reading expenses", map[string]any{"business_id": businessId}, err)
		return nil, fmt.Errorf("read expenses: %w", err)
	}

	expenses := make([]analytics.Expense, 0, len(rows))
	for _, row := range rows {
		expense, err := row.ToExpense()
		if err != nil {
			config.LogSkippedRecord(config.GetLogger(), ledgerModule, "expense_id", row.ID, err.Error())
			continue
		}
		expenses = append(expenses, expense)
	}
	return expenses, nil
}

// ReadProducts returns the product catalog of the business ordered by name.
func (r *LedgerReader) ReadProducts(ctx context.Context) ([]analytics.Product, error) {
	businessId, err := businessIdFrom(ctx)
	if err != nil {
		return nil, err
	}

	var rows []Product
	if err := r.db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("name").
		Find(&rows).Error; err != nil {
		config.LogError(config.GetLogger(), ledgerModule, "ReadProducts", "reading products", map[string]any{"business_id": businessId}, err)
		return nil, fmt.Errorf("read products: %w", err)
	}

	products := make([]analytics.Product, 0, len(rows))
	for _, row := range rows {
		product, err := row.ToProduct()
		if err != nil {
			config.LogSkippedRecord(config.GetLogger(), ledgerModule, "product_id", row.ID, err.Error())
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

// ToTransaction validates the bill and converts it to an engine record.
// Malformed lines are logged and dropped one by one; the bill itself is kept
// so its total still counts. A Credit bill without lines gets one
// pseudo-item named after its remarks.
func (b Bill) ToTransaction() (analytics.Transaction, error) {
	if err := utils.ValidateStruct(b); err != nil {
		return analytics.Transaction{}, err
	}

	items := make([]analytics.Item, 0, len(b.Details))
	for _, d := range b.Details {
		if err := d.validate(); err != nil {
			config.LogSkippedRecord(config.GetLogger(), ledgerModule, "bill_detail_id", d.ID, err.Error())
			continue
		}
		total := d.Total
		if total.IsZero() && !d.Quantity.IsZero() {
			total = d.Quantity.Mul(d.Price)
		}
		items = append(items, analytics.Item{
			Name:     strings.TrimSpace(d.Name),
			Quantity: d.Quantity,
			Price:    d.Price,
			Total:    total,
		})
	}
	if b.TransactionType == TransactionTypeCredit && len(items) == 0 {
		items = append(items, analytics.Item{
			Name:     b.Remarks,
			Quantity: decimal.Zero,
			Price:    decimal.Zero,
			Total:    decimal.Zero,
		})
	}

	return analytics.Transaction{
		BillNumber:      b.BillNumber,
		CustomerKey:     strings.TrimSpace(b.CustomerKey),
		Date:            b.BillDate,
		Items:           items,
		TotalAmount:     b.TotalAmount,
		TransactionType: analytics.TransactionType(b.TransactionType),
		Remarks:         b.Remarks,
	}, nil
}

func (d BillDetail) validate() error {
	d.Name = strings.TrimSpace(d.Name)
	return utils.ValidateStruct(d)
}

// ToExpense converts the row, filing blank categories under
// analytics.DefaultExpenseCategory.
func (e Expense) ToExpense() (analytics.Expense, error) {
	if err := utils.ValidateStruct(e); err != nil {
		return analytics.Expense{}, err
	}
	if !e.Amount.IsPositive() {
		return analytics.Expense{}, ErrNonPositiveExpense
	}
	category := strings.TrimSpace(e.Category)
	if category == "" {
		category = analytics.DefaultExpenseCategory
	}
	return analytics.Expense{
		Date:        e.ExpenseDate,
		Amount:      e.Amount,
		Category:    category,
		Description: e.Description,
	}, nil
}

func (p Product) ToProduct() (analytics.Product, error) {
	if err := utils.ValidateStruct(p); err != nil {
		return analytics.Product{}, err
	}
	if p.CostPrice.IsNegative() {
		return analytics.Product{}, ErrNegativeCostPrice
	}
	return analytics.Product{
		Name:             strings.TrimSpace(p.Name),
		CostPrice:        p.CostPrice,
		StockQuantity:    p.StockQuantity,
		ReorderThreshold: p.ReorderThreshold,
		SupplierLeadTime: p.SupplierLeadTime,
		Category:         p.Category,
	}, nil
}

// ListBusinessIds returns every business that has recorded at least one bill.
func ListBusinessIds(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string
	if err := db.WithContext(ctx).Model(&Bill{}).Distinct("business_id").Order("business_id").Pluck("business_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
