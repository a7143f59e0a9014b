package reports

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
)

var ErrNotEnoughHistory = errors.New("not enough history to forecast")

// SalesForecast projects daily revenue horizonDays past the end of the
// window. horizonDays <= 0 uses the configured horizon.
func (r *Reporter) SalesForecast(ctx context.Context, w ReportWindow, horizonDays int) (*analytics.ForecastResult, error) {
	ctx, span := startReportSpan(ctx, "SalesForecast", w)
	defer span.End()

	if horizonDays <= 0 {
		horizonDays = r.cfg.Forecast.HorizonDays
	}
	parts := append(w.keyParts(), strconv.Itoa(horizonDays))
	return cachedReport(ctx, "SalesForecast", parts, func(ctx context.Context) (*analytics.ForecastResult, error) {
		txns, err := r.readWindow(ctx, w)
		if err != nil {
			return nil, err
		}
		result, ok := analytics.Forecast(analytics.DailyRevenue(txns), horizonDays, r.cfg.Forecast)
		if !ok {
			return nil, ErrNotEnoughHistory
		}
		return &result, nil
	})
}

// ProductDemandForecast projects weekly unit demand of one product.
func (r *Reporter) ProductDemandForecast(ctx context.Context, w ReportWindow, product string, horizonWeeks int) (*analytics.ForecastResult, error) {
	ctx, span := startReportSpan(ctx, "ProductDemandForecast", w)
	defer span.End()

	product = strings.TrimSpace(product)
	if product == "" {
		return nil, errors.New("product is required")
	}
	if horizonWeeks <= 0 {
		horizonWeeks = 4
	}
	parts := append(w.keyParts(), product, strconv.Itoa(horizonWeeks))
	return cachedReport(ctx, "ProductDemandForecast", parts, func(ctx context.Context) (*analytics.ForecastResult, error) {
		txns, err := r.readWindow(ctx, w)
		if err != nil {
			return nil, err
		}
		result, ok := analytics.ForecastProductDemand(txns, product, horizonWeeks, r.cfg.Forecast)
		if !ok {
			return nil, ErrNotEnoughHistory
		}
		return &result, nil
	})
}
