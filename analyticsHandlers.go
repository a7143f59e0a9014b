package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/middlewares"
	"bitbucket.org/mmdatafocus/ledger_analytics/models/reports"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type analyticsHandlers struct {
	reporter   *reports.Reporter
	metrics    *middlewares.Metrics
	alertTopic string
}

type windowQuery struct {
	From        string `form:"from" binding:"required"`
	To          string `form:"to" binding:"required"`
	CustomerKey string `form:"customer_key"`
}

type forecastQuery struct {
	windowQuery
	Horizon int `form:"horizon" binding:"gte=0,lte=365"`
}

type productForecastQuery struct {
	windowQuery
	Product string `form:"product" binding:"required"`
	Weeks   int    `form:"weeks" binding:"gte=0,lte=52"`
}

type recommendationQuery struct {
	windowQuery
	TopN int `form:"top_n" binding:"gte=0,lte=100"`
}

type overviewQuery struct {
	windowQuery
	Dimension string `form:"dimension" binding:"omitempty,oneof=day week month weekday hour"`
}

type productSalesQuery struct {
	windowQuery
	TopN int `form:"top_n" binding:"gte=0,lte=100"`
}

type expenseQuery struct {
	windowQuery
	Category string `form:"category"`
}

func (h *analyticsHandlers) register(g *gin.RouterGroup) {
	g.GET("/segments", h.segments)
	g.GET("/churn", h.churn)
	g.GET("/profitability", h.profitability)
	g.GET("/anomalies/sales", h.salesAnomalies)
	g.GET("/anomalies/expenses", h.expenseAnomalies)
	g.POST("/anomalies/alerts", h.publishAlerts)
	g.GET("/forecast/sales", h.salesForecast)
	g.GET("/forecast/product", h.productForecast)
	g.GET("/recommendations", h.recommendations)
	g.GET("/sales/overview", h.salesOverview)
	g.GET("/sales/products", h.productSales)
	g.GET("/patterns", h.purchasePatterns)
	g.GET("/inventory", h.inventory)
	g.GET("/expenses/summary", h.expenseSummary)
	g.GET("/export", h.export)
	g.DELETE("/cache", h.invalidateCache)
}

func (q windowQuery) window() (reports.ReportWindow, error) {
	from, to, err := utils.ParseDateRange(q.From, q.To)
	if err != nil {
		return reports.ReportWindow{}, err
	}
	w := reports.ReportWindow{From: from, To: to}
	if key := strings.TrimSpace(q.CustomerKey); key != "" {
		w.CustomerKey = &key
	}
	return w, nil
}

type windowBinder interface {
	window() (reports.ReportWindow, error)
}

// bindWindow binds query parameters into q and parses its window, writing a
// 400 response on failure.
func bindWindow(c *gin.Context, q windowBinder) (reports.ReportWindow, bool) {
	if err := c.ShouldBindQuery(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return reports.ReportWindow{}, false
	}
	w, err := q.window()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return reports.ReportWindow{}, false
	}
	return w, true
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, utils.ErrorInvalidDateRange), errors.Is(err, utils.ErrorBusinessRequired):
		return http.StatusBadRequest
	case errors.Is(err, reports.ErrNotEnoughHistory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *analyticsHandlers) respond(c *gin.Context, report string, result any, err error) {
	h.metrics.RecordReport(report, err == nil)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			config.LogError(config.GetLogger(), "analyticsHandlers", report, c.Request.URL.RawQuery, nil, err)
			_ = c.Error(err)
			c.JSON(status, gin.H{"error": "failed to build report"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *analyticsHandlers) segments(c *gin.Context) {
	w, ok := bindWindow(c, &windowQuery{})
	if !ok {
		return
	}
	result, err := h.reporter.CustomerSegments(c.Request.Context(), w)
	h.respond(c, "CustomerSegments", result, err)
}

func (h *analyticsHandlers) churn(c *gin.Context) {
	w, ok := bindWindow(c, &windowQuery{})
	if !ok {
		return
	}
	result, err := h.reporter.ChurnRisk(c.Request.Context(), w)
	h.respond(c, "ChurnRisk", result, err)
}

func (h *analyticsHandlers) profitability(c *gin.Context) {
	w, ok := bindWindow(c, &windowQuery{})
	if !ok {
		return
	}
	result, err := h.reporter.Profitability(c.Request.Context(), w)
	h.respond(c, "Profitability", result, err)
}

func (h *analyticsHandlers) salesAnomalies(c *gin.Context) {
	w, ok := bindWindow(c, &windowQuery{})
	if !ok {
		return
	}
	result, err := h.reporter.SalesAnomalies(c.Request.Context(), w)
	if err == nil {
		h.metrics.RecordAnomalies(result.Series, len(result.Anomalies))
	}
	h.respond(c, "SalesAnomalies", result, err)
}

func (h *analyticsHandlers) expenseAnomalies(c *gin.Context) {
	w, ok := bindWindow(c, &windowQuery{})
	if !ok {
		return
	}
	result, err := h.reporter.ExpenseAnomalies(c.Request.Context(), w)
	if err == nil {
		h.metrics.RecordAnomalies(result.Series, len(result.Anomalies))
	}
	h.respond(c, "ExpenseAnomalies", result, err)
}

func (h *analyticsHandlers) publishAlerts(c *gin.Context) {
	w, ok := bindWindow(c, &windowQuery{})
	if !ok {
		return
	}
	if h.alertTopic == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "anomaly alert topic is not configured"})
		return
	}
	published, err := h.reporter.PublishAnomalyAlerts(c.Request.Context(), w, h.alertTopic)
	if err == nil {
		h.metrics.RecordAlertsPublished(published)
	}
	h.respond(c, "PublishAnomalyAlerts", gin.H{"published": published}, err)
}

func (h *analyticsHandlers) salesForecast(c *gin.Context) {
	q := &forecastQuery{}
	w, ok := bindWindow(c, q)
	if !ok {
		return
	}
	result, err := h.reporter.SalesForecast(c.Request.Context(), w, q.Horizon)
	h.respond(c, "SalesForecast", result, err)
}

func (h *analyticsHandlers) productForecast(c *gin.Context) {
	q := &productForecastQuery{}
	w, ok := bindWindow(c, q)
	if !ok {
		return
	}
	result, err := h.reporter.ProductDemandForecast(c.Request.Context(), w, q.Product, q.Weeks)
	h.respond(c, "ProductDemandForecast", result, err)
}

func (h *analyticsHandlers) recommendations(c *gin.Context) {
	q := &recommendationQuery{}
	w, ok := bindWindow(c, q)
	if !ok {
		return
	}
	if w.CustomerKey == nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": map[string]string{"CustomerKey": "required"}})
		return
	}
	result, err := h.reporter.Recommendations(c.Request.Context(), w, *w.CustomerKey, q.TopN)
	h.respond(c, "Recommendations", result, err)
}

func (h *analyticsHandlers) salesOverview(c *gin.Context) {
	q := &overviewQuery{}
	w, ok := bindWindow(c, q)
	if !ok {
		return
	}
	result, err := h.reporter.SalesOverview(c.Request.Context(), w, analytics.Dimension(q.Dimension))
	h.respond(c, "SalesOverview", result, err)
}

func (h *analyticsHandlers) productSales(c *gin.Context) {
	q := &productSalesQuery{}
	w, ok := bindWindow(c, q)
	if !ok {
		return
	}
	result, err := h.reporter.ProductSales(c.Request.Context(), w, q.TopN)
	h.respond(c, "ProductSales", result, err)
}

func (h *analyticsHandlers) purchasePatterns(c *gin.Context) {
	w, ok := bindWindow(c, &windowQuery{})
	if !ok {
		return
	}
	result, err := h.reporter.PurchasePatterns(c.Request.Context(), w)
	h.respond(c, "PurchasePatterns", result, err)
}

func (h *analyticsHandlers) inventory(c *gin.Context) {
	result, err := h.reporter.InventoryStatus(c.Request.Context())
	h.respond(c, "InventoryStatus", result, err)
}

func (h *analyticsHandlers) expenseSummary(c *gin.Context) {
	q := &expenseQuery{}
	w, ok := bindWindow(c, q)
	if !ok {
		return
	}
	result, err := h.reporter.ExpenseSummary(c.Request.Context(), w, utils.NilIfEmpty(strings.TrimSpace(q.Category)))
	h.respond(c, "ExpenseSummary", result, err)
}

func (h *analyticsHandlers) export(c *gin.Context) {
	w, ok := bindWindow(c, &windowQuery{})
	if !ok {
		return
	}
	ctx := c.Request.Context()
	f, err := h.reporter.BuildWorkbook(ctx, w)
	if err != nil {
		h.respond(c, "BuildWorkbook", nil, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		h.respond(c, "BuildWorkbook", nil, err)
		return
	}
	h.metrics.RecordReport("BuildWorkbook", true)
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reports.WorkbookName(businessId, w)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *analyticsHandlers) invalidateCache(c *gin.Context) {
	if err := reports.InvalidateReportCache(c.Request.Context()); err != nil {
		h.respond(c, "InvalidateReportCache", nil, err)
		return
	}
	c.Status(http.StatusNoContent)
}
