package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
)

type SalesOverviewResponse struct {
	Dimension analytics.Dimension        `json:"dimension"`
	Buckets   []analytics.Bucket         `json:"buckets"`
	Daily     []analytics.DailyAmount    `json:"daily"`
	Heatmap   []analytics.HeatmapCell    `json:"heatmap"`
	Summary   analytics.RevenueSummary   `json:"summary"`
	BySegment []analytics.SegmentRevenue `json:"by_segment"`
}

// SalesOverview rolls window revenue up by dimension and adds the dashboard
// companions: daily series, weekday/hour heatmap, revenue vs cost and
// revenue by customer segment.
func (r *Reporter) SalesOverview(ctx context.Context, w ReportWindow, dim analytics.Dimension) (*SalesOverviewResponse, error) {
	ctx, span := startReportSpan(ctx, "SalesOverview", w)
	defer span.End()

	if dim == "" {
		dim = analytics.DimensionDay
	}
	if !dim.IsValid() {
		return nil, fmt.Errorf("invalid dimension %q", dim)
	}
	parts := append(w.keyParts(), string(dim))
	return cachedReport(ctx, "SalesOverview", parts, func(ctx context.Context) (*SalesOverviewResponse, error) {
		all, err := r.readWindow(ctx, ReportWindow{From: w.From, To: w.To})
		if err != nil {
			return nil, err
		}
		catalog, err := r.ledger.ReadProducts(ctx)
		if err != nil {
			return nil, err
		}
		segments := analytics.SegmentCustomers(analytics.CustomerRollup(all), time.Time{}, r.cfg.Segmentation)
		txns := filterTransactions(all, w.CustomerKey)
		return &SalesOverviewResponse{
			Dimension: dim,
			Buckets:   analytics.Aggregate(txns, dim),
			Daily:     analytics.DailyRevenue(txns),
			Heatmap:   analytics.SalesHeatmap(txns),
			Summary:   analytics.RevenueAndCost(txns, catalog),
			BySegment: analytics.RevenueBySegment(txns, segments),
		}, nil
	})
}

type ProductSalesResponse struct {
	Products     []analytics.ProductStats    `json:"products"`
	BestSellers  []analytics.ProductStats    `json:"best_sellers"`
	WorstSellers []analytics.ProductStats    `json:"worst_sellers"`
	TopByRevenue []analytics.ProductStats    `json:"top_by_revenue"`
	Velocity     []analytics.ProductVelocity `json:"velocity"`
}

func (r *Reporter) ProductSales(ctx context.Context, w ReportWindow, topN int) (*ProductSalesResponse, error) {
	ctx, span := startReportSpan(ctx, "ProductSales", w)
	defer span.End()

	if topN <= 0 {
		topN = r.cfg.Recommendation.TopN
	}
	parts := append(w.keyParts(), fmt.Sprint(topN))
	return cachedReport(ctx, "ProductSales", parts, func(ctx context.Context) (*ProductSalesResponse, error) {
		txns, err := r.readWindow(ctx, w)
		if err != nil {
			return nil, err
		}
		catalog, err := r.ledger.ReadProducts(ctx)
		if err != nil {
			return nil, err
		}
		rollup := analytics.ProductRollup(txns, catalog)
		best, worst := analytics.BestWorstSellers(rollup, topN)
		return &ProductSalesResponse{
			Products:     rollup,
			BestSellers:  best,
			WorstSellers: worst,
			TopByRevenue: analytics.TopProductsByRevenue(rollup, topN),
			Velocity:     analytics.SalesVelocity(txns),
		}, nil
	})
}

func (r *Reporter) PurchasePatterns(ctx context.Context, w ReportWindow) ([]analytics.PurchasePattern, error) {
	ctx, span := startReportSpan(ctx, "PurchasePatterns", w)
	defer span.End()

	return cachedReport(ctx, "PurchasePatterns", w.keyParts(), func(ctx context.Context) ([]analytics.PurchasePattern, error) {
		txns, err := r.readWindow(ctx, w)
		if err != nil {
			return nil, err
		}
		return analytics.PurchasePatterns(txns), nil
	})
}

// InventoryStatus reports current stock levels; it is not windowed.
func (r *Reporter) InventoryStatus(ctx context.Context) (*analytics.InventoryReport, error) {
	ctx, span := tracer.Start(ctx, "reports.InventoryStatus")
	defer span.End()

	if _, ok := utils.GetBusinessIdFromContext(ctx); !ok {
		return nil, utils.ErrorBusinessRequired
	}
	products, err := r.ledger.ReadProducts(ctx)
	if err != nil {
		return nil, err
	}
	report := analytics.InventoryStatus(products)
	return &report, nil
}

type ExpenseSummaryResponse struct {
	analytics.ExpenseSummary
	Daily []analytics.DailyAmount `json:"daily"`
}

func (r *Reporter) ExpenseSummary(ctx context.Context, w ReportWindow, category *string) (*ExpenseSummaryResponse, error) {
	ctx, span := startReportSpan(ctx, "ExpenseSummary", w)
	defer span.End()

	parts := append(w.keyParts(), utils.DereferencePtr(category))
	return cachedReport(ctx, "ExpenseSummary", parts, func(ctx context.Context) (*ExpenseSummaryResponse, error) {
		if err := w.Validate(); err != nil {
			return nil, err
		}
		expenses, err := r.ledger.ReadExpenses(ctx, w.From, w.To, category)
		if err != nil {
			return nil, err
		}
		return &ExpenseSummaryResponse{
			ExpenseSummary: analytics.SummarizeExpenses(expenses),
			Daily:          analytics.DailyExpenses(expenses),
		}, nil
	})
}
