package reports

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
)

const (
	AnomalySeriesSales    = "sales"
	AnomalySeriesExpenses = "expenses"
)

type AnomalyResponse struct {
	Series    string                  `json:"series"`
	Daily     []analytics.DailyAmount `json:"daily"`
	Anomalies []analytics.DailyAmount `json:"anomalies"`
}

// SalesAnomalies flags days whose sales revenue is unusually far from the
// window mean.
func (r *Reporter) SalesAnomalies(ctx context.Context, w ReportWindow) (*AnomalyResponse, error) {
	ctx, span := startReportSpan(ctx, "SalesAnomalies", w)
	defer span.End()

	return cachedReport(ctx, "SalesAnomalies", w.keyParts(), func(ctx context.Context) (*AnomalyResponse, error) {
		txns, err := r.readWindow(ctx, w)
		if err != nil {
			return nil, err
		}
		daily := analytics.DailyRevenue(txns)
		return &AnomalyResponse{
			Series:    AnomalySeriesSales,
			Daily:     daily,
			Anomalies: analytics.DetectAnomalies(daily, r.cfg.Anomaly),
		}, nil
	})
}

// ExpenseAnomalies runs the same detector over daily expense totals.
func (r *Reporter) ExpenseAnomalies(ctx context.Context, w ReportWindow) (*AnomalyResponse, error) {
	ctx, span := startReportSpan(ctx, "ExpenseAnomalies", w)
	defer span.End()

	return cachedReport(ctx, "ExpenseAnomalies", w.keyParts(), func(ctx context.Context) (*AnomalyResponse, error) {
		if err := w.Validate(); err != nil {
			return nil, err
		}
		expenses, err := r.ledger.ReadExpenses(ctx, w.From, w.To, nil)
		if err != nil {
			return nil, err
		}
		daily := analytics.DailyExpenses(expenses)
		return &AnomalyResponse{
			Series:    AnomalySeriesExpenses,
			Daily:     daily,
			Anomalies: analytics.DetectAnomalies(daily, r.cfg.Anomaly),
		}, nil
	})
}

// AlertMessages turns flagged days into publishable alert payloads.
func AlertMessages(ctx context.Context, w ReportWindow, resp *AnomalyResponse) []config.AnomalyAlertMessage {
	if resp == nil {
		return nil
	}
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	msgs := make([]config.AnomalyAlertMessage, 0, len(resp.Anomalies))
	for _, a := range resp.Anomalies {
		msgs = append(msgs, config.AnomalyAlertMessage{
			BusinessId:    businessId,
			Series:        resp.Series,
			Date:          a.Date,
			Amount:        a.Amount.String(),
			WindowFrom:    analytics.DateOf(w.From),
			WindowTo:      analytics.DateOf(w.To),
			CorrelationId: correlationId,
		})
	}
	return msgs
}

// PublishAnomalyAlerts detects sales and expense anomalies for the window and
// publishes one alert per flagged day to topic. It returns the number of
// alerts published.
func (r *Reporter) PublishAnomalyAlerts(ctx context.Context, w ReportWindow, topic string) (int, error) {
	ctx, span := startReportSpan(ctx, "PublishAnomalyAlerts", w)
	defer span.End()

	if topic == "" {
		return 0, errors.New("anomaly alert topic is not configured")
	}
	sales, err := r.SalesAnomalies(ctx, w)
	if err != nil {
		return 0, err
	}
	expenses, err := r.ExpenseAnomalies(ctx, w)
	if err != nil {
		return 0, err
	}

	msgs := append(AlertMessages(ctx, w, sales), AlertMessages(ctx, w, expenses)...)
	if len(msgs) == 0 {
		return 0, nil
	}
	if err := r.publish(ctx, topic, msgs); err != nil {
		config.LogError(config.GetLogger(), "reports", "PublishAnomalyAlerts", "publish", map[string]any{"topic": topic, "count": len(msgs)}, err)
		return 0, err
	}
	return len(msgs), nil
}
