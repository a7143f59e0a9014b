package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/middlewares"
	"bitbucket.org/mmdatafocus/ledger_analytics/models/reports"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLedger struct {
	txns     []analytics.Transaction
	expenses []analytics.Expense
	products []analytics.Product
	err      error
}

func (s *stubLedger) ReadTransactions(_ context.Context, from, to time.Time, customerKey *string) ([]analytics.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := []analytics.Transaction{}
	for _, t := range s.txns {
		d := analytics.DateOf(t.Date)
		if d.Before(analytics.DateOf(from)) || d.After(analytics.DateOf(to)) {
			continue
		}
		if customerKey != nil && *customerKey != t.CustomerKey {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *stubLedger) ReadExpenses(context.Context, time.Time, time.Time, *string) ([]analytics.Expense, error) {
	return s.expenses, s.err
}

func (s *stubLedger) ReadProducts(context.Context) ([]analytics.Product, error) {
	return s.products, s.err
}

func saleOn(number int, customer string, day int, product string, amount int64) analytics.Transaction {
	return analytics.Transaction{
		BillNumber:  number,
		CustomerKey: customer,
		Date:        time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC),
		Items: []analytics.Item{{
			Name:     product,
			Quantity: decimal.NewFromInt(1),
			Price:    decimal.NewFromInt(amount),
			Total:    decimal.NewFromInt(amount),
		}},
		TotalAmount:     decimal.NewFromInt(amount),
		TransactionType: analytics.TransactionTypeDebit,
	}
}

func testStubLedger() *stubLedger {
	return &stubLedger{
		txns: []analytics.Transaction{
			saleOn(1, "A", 1, "Tea", 100),
			saleOn(2, "B", 2, "Tea", 100),
			saleOn(3, "C", 3, "Bread", 100),
			saleOn(4, "A", 4, "Cake", 100),
			saleOn(5, "B", 5, "Bread", 1000),
		},
		products: []analytics.Product{{Name: "Tea", CostPrice: decimal.NewFromInt(40), StockQuantity: 3, ReorderThreshold: 5}},
	}
}

func testRouter(t *testing.T, ledger reports.Ledger, ready bool, topic string) *gin.Engine {
	t.Helper()
	return newRouter(routerDeps{
		reporter:   reports.NewReporter(ledger, analytics.DefaultConfig()),
		metrics:    middlewares.NewMetrics("test"),
		ready:      func() bool { return ready },
		alertTopic: topic,
	})
}

func get(t *testing.T, r http.Handler, method, path string, business string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if business != "" {
		req.Header.Set(middlewares.BusinessIdHeader, business)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const jan = "from=2024-01-01&to=2024-01-05"

func TestHealthAndReadiness(t *testing.T) {
	r := testRouter(t, testStubLedger(), false, "")

	assert.Equal(t, http.StatusNoContent, get(t, r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, get(t, r, http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, http.MethodGet, "/api/analytics/segments?"+jan, "biz-1").Code)
}

func TestRequestValidation(t *testing.T) {
	r := testRouter(t, testStubLedger(), true, "")

	assert.Equal(t, http.StatusBadRequest, get(t, r, http.MethodGet, "/api/analytics/segments?"+jan, "").Code)

	w := get(t, r, http.MethodGet, "/api/analytics/segments?to=2024-01-05", "biz-1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "required", body.Errors["From"])

	assert.Equal(t, http.StatusBadRequest, get(t, r, http.MethodGet, "/api/analytics/segments?from=2024-01-05&to=2024-01-01", "biz-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, http.MethodGet, "/api/analytics/sales/overview?"+jan+"&dimension=quarter", "biz-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, http.MethodGet, "/api/analytics/recommendations?"+jan, "biz-1").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, http.MethodGet, "/nope", "").Code)
}

func TestSegmentsEndpoint(t *testing.T) {
	r := testRouter(t, testStubLedger(), true, "")

	w := get(t, r, http.MethodGet, "/api/analytics/segments?"+jan, "biz-1")
	require.Equal(t, http.StatusOK, w.Code)
	var segments []analytics.CustomerSegment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &segments))
	assert.Len(t, segments, 3)
}

func TestSalesAnomaliesEndpoint(t *testing.T) {
	r := testRouter(t, testStubLedger(), true, "")

	w := get(t, r, http.MethodGet, "/api/analytics/anomalies/sales?"+jan, "biz-1")
	require.Equal(t, http.StatusOK, w.Code)
	var resp reports.AnomalyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Anomalies, 1)
	assert.True(t, resp.Anomalies[0].Amount.Equal(decimal.NewFromInt(1000)))
}

func TestForecastNeedsHistory(t *testing.T) {
	r := testRouter(t, testStubLedger(), true, "")

	w := get(t, r, http.MethodGet, "/api/analytics/forecast/sales?from=2024-01-01&to=2024-01-01", "biz-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = get(t, r, http.MethodGet, "/api/analytics/forecast/sales?"+jan+"&horizon=2", "biz-1")
	require.Equal(t, http.StatusOK, w.Code)
	var result analytics.ForecastResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.Points, 7)
}

func TestRecommendationsEndpoint(t *testing.T) {
	r := testRouter(t, testStubLedger(), true, "")

	w := get(t, r, http.MethodGet, "/api/analytics/recommendations?"+jan+"&customer_key=A", "biz-1")
	require.Equal(t, http.StatusOK, w.Code)
	var resp reports.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Bread"}, resp.Products)
}

func TestAlertsNeedTopic(t *testing.T) {
	r := testRouter(t, testStubLedger(), true, "")
	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, http.MethodPost, "/api/analytics/anomalies/alerts?"+jan, "biz-1").Code)
}

func TestLedgerFailureIsInternalError(t *testing.T) {
	r := testRouter(t, &stubLedger{err: errors.New("db down")}, true, "")

	w := get(t, r, http.MethodGet, "/api/analytics/profitability?"+jan, "biz-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestInventoryEndpoint(t *testing.T) {
	r := testRouter(t, testStubLedger(), true, "")

	w := get(t, r, http.MethodGet, "/api/analytics/inventory", "biz-1")
	require.Equal(t, http.StatusOK, w.Code)
	var report analytics.InventoryReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.LowStockCount)
}

func TestExportEndpoint(t *testing.T) {
	r := testRouter(t, testStubLedger(), true, "")

	w := get(t, r, http.MethodGet, "/api/analytics/export?"+jan, "biz-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "analytics_biz-1_2024-01-01_2024-01-05_")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), reports.SheetSalesForecast)
}
