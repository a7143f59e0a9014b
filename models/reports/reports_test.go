package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	txns     []analytics.Transaction
	expenses []analytics.Expense
	products []analytics.Product
	err      error
}

func inWindow(d, from, to time.Time) bool {
	day := analytics.DateOf(d)
	return !day.Before(analytics.DateOf(from)) && !day.After(analytics.DateOf(to))
}

func (f *fakeLedger) ReadTransactions(_ context.Context, from, to time.Time, customerKey *string) ([]analytics.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []analytics.Transaction{}
	for _, t := range f.txns {
		if !inWindow(t.Date, from, to) {
			continue
		}
		if customerKey != nil && t.CustomerKey != *customerKey {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeLedger) ReadExpenses(_ context.Context, from, to time.Time, category *string) ([]analytics.Expense, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []analytics.Expense{}
	for _, e := range f.expenses {
		if !inWindow(e.Date, from, to) {
			continue
		}
		if category != nil && e.Category != *category {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeLedger) ReadProducts(context.Context) ([]analytics.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 10, 0, 0, 0, time.UTC)
}

func item(name string, qty int64) analytics.Item {
	return analytics.Item{
		Name:     name,
		Quantity: decimal.NewFromInt(qty),
		Price:    decimal.NewFromInt(10),
		Total:    decimal.NewFromInt(qty * 10),
	}
}

func bill(number int, customer string, date time.Time, items ...analytics.Item) analytics.Transaction {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}
	return analytics.Transaction{
		BillNumber:      number,
		CustomerKey:     customer,
		Date:            date,
		Items:           items,
		TotalAmount:     total,
		TransactionType: analytics.TransactionTypeDebit,
	}
}

// daily sales 100, 100, 100, 100, 1000 across three customers
func testLedger() *fakeLedger {
	return &fakeLedger{
		txns: []analytics.Transaction{
			bill(1, "A", jan(1), item("Tea", 10)),
			bill(2, "B", jan(2), item("Tea", 5), item("Bread", 5)),
			bill(3, "C", jan(3), item("Bread", 5), item("Jam", 5)),
			bill(4, "A", jan(4), item("Cake", 10)),
			bill(5, "B", jan(5), item("Tea", 100)),
		},
		expenses: []analytics.Expense{
			{Date: jan(1), Amount: decimal.NewFromInt(500), Category: "Rent"},
			{Date: jan(2), Amount: decimal.NewFromInt(50)},
			{Date: jan(3), Amount: decimal.NewFromInt(70), Category: "Supplies"},
		},
		products: []analytics.Product{
			{Name: "Tea", CostPrice: decimal.NewFromInt(6), StockQuantity: 40, ReorderThreshold: 10},
			{Name: "Bread", CostPrice: decimal.NewFromInt(4), StockQuantity: 5, ReorderThreshold: 10},
			{Name: "Jam", CostPrice: decimal.NewFromInt(5), StockQuantity: 0, ReorderThreshold: 2},
			{Name: "Cake", CostPrice: decimal.NewFromInt(7), StockQuantity: 12, ReorderThreshold: 3},
		},
	}
}

func testWindow() ReportWindow {
	return ReportWindow{From: jan(1), To: jan(5)}
}

func businessCtx() context.Context {
	ctx := utils.SetBusinessIdInContext(context.Background(), "biz-1")
	return utils.SetCorrelationIdInContext(ctx, "cid-1")
}

func TestReportsRequireBusiness(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	_, err := r.CustomerSegments(context.Background(), testWindow())
	assert.ErrorIs(t, err, utils.ErrorBusinessRequired)
	_, err = r.InventoryStatus(context.Background())
	assert.ErrorIs(t, err, utils.ErrorBusinessRequired)
}

func TestReportsRejectInvertedWindow(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	_, err := r.Profitability(businessCtx(), ReportWindow{From: jan(5), To: jan(1)})
	assert.ErrorIs(t, err, utils.ErrorInvalidDateRange)
}

func TestReportsPropagateLedgerErrors(t *testing.T) {
	boom := errors.New("db down")
	r := NewReporter(&fakeLedger{err: boom}, analytics.DefaultConfig())

	_, err := r.SalesAnomalies(businessCtx(), testWindow())
	assert.ErrorIs(t, err, boom)
}

func TestCustomerSegmentsAndChurn(t *testing.T) {
	cfg := analytics.DefaultConfig()
	cfg.Churn.ThresholdDays = 1
	r := NewReporter(testLedger(), cfg)

	segments, err := r.CustomerSegments(businessCtx(), testWindow())
	require.NoError(t, err)
	require.Len(t, segments, 3)

	byKey := map[string]analytics.CustomerSegment{}
	for _, s := range segments {
		byKey[s.CustomerKey] = s
	}
	assert.Equal(t, analytics.SegmentNew, byKey["C"].Segment)
	assert.Equal(t, 2, byKey["C"].Recency)
	assert.Equal(t, 0, byKey["B"].Recency)

	churned, err := r.ChurnRisk(businessCtx(), testWindow())
	require.NoError(t, err)
	require.Len(t, churned, 1)
	assert.Equal(t, "C", churned[0].CustomerKey)
}

func TestCustomerFilterKeepsWindowWideReference(t *testing.T) {
	cfg := analytics.DefaultConfig()
	cfg.Churn.ThresholdDays = 1
	r := NewReporter(testLedger(), cfg)

	onlyC := "C"
	w := ReportWindow{From: jan(1), To: jan(5), CustomerKey: &onlyC}

	segments, err := r.CustomerSegments(businessCtx(), w)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "C", segments[0].CustomerKey)
	assert.Equal(t, 2, segments[0].Recency, "recency counts back from the latest purchase of any customer")
	assert.Equal(t, analytics.SegmentNew, segments[0].Segment)

	churned, err := r.ChurnRisk(businessCtx(), w)
	require.NoError(t, err)
	require.Len(t, churned, 1)
	assert.Equal(t, "C", churned[0].CustomerKey)

	onlyA := "A"
	churned, err = r.ChurnRisk(businessCtx(), ReportWindow{From: jan(1), To: jan(5), CustomerKey: &onlyA})
	require.NoError(t, err)
	assert.Empty(t, churned)
}

func TestSalesOverviewForOneCustomer(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	onlyC := "C"
	resp, err := r.SalesOverview(businessCtx(), ReportWindow{From: jan(1), To: jan(5), CustomerKey: &onlyC}, analytics.DimensionMonth)
	require.NoError(t, err)
	require.Len(t, resp.Buckets, 1)
	assert.True(t, resp.Buckets[0].Amount.Equal(decimal.NewFromInt(100)))
	require.Len(t, resp.BySegment, 1)
	assert.Equal(t, analytics.SegmentNew, resp.BySegment[0].Segment)
	assert.True(t, resp.BySegment[0].Revenue.Equal(decimal.NewFromInt(100)))
}

func TestProfitabilityJoinsCatalogCost(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	rows, err := r.Profitability(businessCtx(), testWindow())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "A", rows[0].CustomerKey)
	assert.True(t, rows[0].TotalRevenue.Equal(decimal.NewFromInt(200)))
	assert.True(t, rows[0].TotalCost.Equal(decimal.NewFromInt(130)))
	assert.Equal(t, 2, rows[0].NumBills)
}

func TestSalesAnomaliesFlagSpike(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	resp, err := r.SalesAnomalies(businessCtx(), testWindow())
	require.NoError(t, err)
	assert.Equal(t, AnomalySeriesSales, resp.Series)
	assert.Len(t, resp.Daily, 5)
	require.Len(t, resp.Anomalies, 1)
	assert.Equal(t, analytics.DateOf(jan(5)), resp.Anomalies[0].Date)

	expenses, err := r.ExpenseAnomalies(businessCtx(), testWindow())
	require.NoError(t, err)
	assert.Empty(t, expenses.Anomalies)
}

func TestPublishAnomalyAlerts(t *testing.T) {
	var published []config.AnomalyAlertMessage
	var gotTopic string
	r := NewReporter(testLedger(), analytics.DefaultConfig(), WithAlertPublisher(
		func(_ context.Context, topic string, msgs []config.AnomalyAlertMessage) error {
			gotTopic = topic
			published = append(published, msgs...)
			return nil
		}))

	n, err := r.PublishAnomalyAlerts(businessCtx(), testWindow(), "anomaly-alerts")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "anomaly-alerts", gotTopic)
	require.Len(t, published, 1)
	assert.Equal(t, "biz-1", published[0].BusinessId)
	assert.Equal(t, "cid-1", published[0].CorrelationId)
	assert.Equal(t, AnomalySeriesSales, published[0].Series)
	assert.Equal(t, "1000", published[0].Amount)

	_, err = r.PublishAnomalyAlerts(businessCtx(), testWindow(), "")
	assert.Error(t, err)
}

func TestPublishAnomalyAlertsSurfacesPublishFailure(t *testing.T) {
	boom := errors.New("pubsub unavailable")
	r := NewReporter(testLedger(), analytics.DefaultConfig(), WithAlertPublisher(
		func(context.Context, string, []config.AnomalyAlertMessage) error { return boom }))

	_, err := r.PublishAnomalyAlerts(businessCtx(), testWindow(), "anomaly-alerts")
	assert.ErrorIs(t, err, boom)
}

func TestSalesForecast(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	result, err := r.SalesForecast(businessCtx(), testWindow(), 3)
	require.NoError(t, err)
	assert.Equal(t, analytics.StrategyMovingAverage, result.Strategy)
	assert.Len(t, result.Points, 8)

	_, err = r.SalesForecast(businessCtx(), ReportWindow{From: jan(1), To: jan(1)}, 3)
	assert.ErrorIs(t, err, ErrNotEnoughHistory)
}

func TestProductDemandForecastRequiresProduct(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	_, err := r.ProductDemandForecast(businessCtx(), testWindow(), " ", 2)
	assert.Error(t, err)
}

func TestRecommendationsUseWholeWindow(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())
	a := "A"
	w := testWindow()
	w.CustomerKey = &a

	resp, err := r.Recommendations(businessCtx(), w, "A", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bread", "Jam"}, resp.Products)
}

func TestSalesOverview(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	resp, err := r.SalesOverview(businessCtx(), testWindow(), analytics.DimensionMonth)
	require.NoError(t, err)
	require.Len(t, resp.Buckets, 1)
	assert.Equal(t, "2024-01", resp.Buckets[0].Key)
	assert.True(t, resp.Buckets[0].Amount.Equal(decimal.NewFromInt(1400)))
	assert.True(t, resp.Summary.TotalRevenue.Equal(decimal.NewFromInt(1400)))

	_, err = r.SalesOverview(businessCtx(), testWindow(), analytics.Dimension("quarter"))
	assert.Error(t, err)
}

func TestInventoryAndExpenseSummary(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	inv, err := r.InventoryStatus(businessCtx())
	require.NoError(t, err)
	assert.Equal(t, 1, inv.OutOfStockCount)
	assert.Equal(t, 1, inv.LowStockCount)

	summary, err := r.ExpenseSummary(businessCtx(), testWindow(), nil)
	require.NoError(t, err)
	assert.True(t, summary.TotalExpenses.Equal(decimal.NewFromInt(620)))
	require.Len(t, summary.ByCategory, 3)
	assert.Equal(t, analytics.DefaultExpenseCategory, summary.ByCategory[1].Category)
}

func TestBuildWorkbook(t *testing.T) {
	r := NewReporter(testLedger(), analytics.DefaultConfig())

	f, err := r.BuildWorkbook(businessCtx(), testWindow())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		SheetSegments, SheetProfitability, SheetSalesAnomalies, SheetExpenseAnomalies,
		SheetSalesForecast, SheetProductSales, SheetExpenseCategories,
	}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSegments, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Customer", v)

	v, err = f.GetCellValue(SheetSalesAnomalies, "A2")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", v)

	v, err = f.GetCellValue(SheetExpenseCategories, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Total", v)
	v, err = f.GetCellValue(SheetExpenseCategories, "B5")
	require.NoError(t, err)
	assert.Equal(t, "620", v)
}

func TestReportCacheKey(t *testing.T) {
	key := reportCacheKey("SalesOverview", "biz-1", testWindow().keyParts()...)
	assert.Equal(t, "Report:SalesOverview:biz-1:2024-01-01:2024-01-05:", key)
}

func TestReportLogFieldsCarryRequestIdentity(t *testing.T) {
	ctx := utils.SetUserNameInContext(businessCtx(), "cashier-1")

	fields := reportLogFields(ctx, "CustomerSegments")
	assert.Equal(t, "CustomerSegments", fields["report"])
	assert.Equal(t, "biz-1", fields["business_id"])
	assert.Equal(t, "cid-1", fields["correlation_id"])
	assert.Equal(t, "cashier-1", fields["user_name"])

	assert.Equal(t, "", reportLogFields(businessCtx(), "x")["user_name"])
}
