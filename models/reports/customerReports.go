package reports

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
)

// CustomerSegments classifies every customer active in the window by RFM,
// with recency counted back from the latest purchase in the window. A
// customer filter narrows the output only; the reference date and the
// high-value cut are always taken over all customers.
func (r *Reporter) CustomerSegments(ctx context.Context, w ReportWindow) ([]analytics.CustomerSegment, error) {
	ctx, span := startReportSpan(ctx, "CustomerSegments", w)
	defer span.End()

	return cachedReport(ctx, "CustomerSegments", w.keyParts(), func(ctx context.Context) ([]analytics.CustomerSegment, error) {
		txns, err := r.readWindow(ctx, ReportWindow{From: w.From, To: w.To})
		if err != nil {
			return nil, err
		}
		segments := analytics.SegmentCustomers(analytics.CustomerRollup(txns), time.Time{}, r.cfg.Segmentation)
		return filterSegments(segments, w.CustomerKey), nil
	})
}

func customerFilter(customerKey *string) (string, bool) {
	if customerKey == nil {
		return "", false
	}
	key := strings.TrimSpace(*customerKey)
	return key, key != ""
}

func filterSegments(segments []analytics.CustomerSegment, customerKey *string) []analytics.CustomerSegment {
	key, ok := customerFilter(customerKey)
	if !ok {
		return segments
	}
	filtered := []analytics.CustomerSegment{}
	for _, s := range segments {
		if s.CustomerKey == key {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func filterTransactions(txns []analytics.Transaction, customerKey *string) []analytics.Transaction {
	key, ok := customerFilter(customerKey)
	if !ok {
		return txns
	}
	filtered := []analytics.Transaction{}
	for _, t := range txns {
		if t.CustomerKey == key {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// ChurnRisk lists the customers of the window who have not purchased for
// longer than the churn threshold.
func (r *Reporter) ChurnRisk(ctx context.Context, w ReportWindow) ([]analytics.CustomerSegment, error) {
	segments, err := r.CustomerSegments(ctx, w)
	if err != nil {
		return nil, err
	}
	return analytics.PredictChurn(segments, r.cfg.Churn), nil
}

func (r *Reporter) Profitability(ctx context.Context, w ReportWindow) ([]analytics.CustomerProfitability, error) {
	ctx, span := startReportSpan(ctx, "Profitability", w)
	defer span.End()

	return cachedReport(ctx, "Profitability", w.keyParts(), func(ctx context.Context) ([]analytics.CustomerProfitability, error) {
		txns, err := r.readWindow(ctx, w)
		if err != nil {
			return nil, err
		}
		catalog, err := r.ledger.ReadProducts(ctx)
		if err != nil {
			return nil, err
		}
		return analytics.ComputeProfitability(txns, catalog, r.cfg.Profitability), nil
	})
}

type RecommendationResponse struct {
	CustomerKey string   `json:"customer_key"`
	Products    []string `json:"products"`
}

// Recommendations suggests the most popular products of the window the
// customer has not bought yet. topN <= 0 uses the configured default.
func (r *Reporter) Recommendations(ctx context.Context, w ReportWindow, customerKey string, topN int) (*RecommendationResponse, error) {
	ctx, span := startReportSpan(ctx, "Recommendations", w)
	defer span.End()

	customerKey = strings.TrimSpace(customerKey)
	if topN <= 0 {
		topN = r.cfg.Recommendation.TopN
	}
	// popularity is computed over every customer, so the window is read unfiltered
	all := ReportWindow{From: w.From, To: w.To}
	txns, err := r.readWindow(ctx, all)
	if err != nil {
		return nil, err
	}
	return &RecommendationResponse{
		CustomerKey: customerKey,
		Products:    analytics.Recommend(txns, customerKey, topN),
	}, nil
}
