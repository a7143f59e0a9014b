package reports

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("ledger-analytics/reports")

// Ledger is the read side of the storage layer. models.LedgerReader is the
// production implementation.
type Ledger interface {
	ReadTransactions(ctx context.Context, from, to time.Time, customerKey *string) ([]analytics.Transaction, error)
	ReadExpenses(ctx context.Context, from, to time.Time, category *string) ([]analytics.Expense, error)
	ReadProducts(ctx context.Context) ([]analytics.Product, error)
}

// ReportWindow is the inclusive date range every report is computed over.
type ReportWindow struct {
	From        time.Time
	To          time.Time
	CustomerKey *string
}

func (w ReportWindow) Validate() error {
	if w.From.IsZero() || w.To.IsZero() {
		return utils.ErrorInvalidDateRange
	}
	if analytics.DateOf(w.To).Before(analytics.DateOf(w.From)) {
		return utils.ErrorInvalidDateRange
	}
	return nil
}

func (w ReportWindow) keyParts() []string {
	return []string{
		w.From.Format(utils.DateLayout),
		w.To.Format(utils.DateLayout),
		utils.DereferencePtr(w.CustomerKey),
	}
}

// AlertPublisher delivers anomaly alerts to a topic.
type AlertPublisher func(ctx context.Context, topic string, msgs []config.AnomalyAlertMessage) error

// Reporter builds analytics reports for the business carried by the request
// context. Every report recomputes from the ledger unless a cached copy for
// the same window exists.
type Reporter struct {
	ledger  Ledger
	cfg     analytics.Config
	publish AlertPublisher
}

type ReporterOption func(*Reporter)

func WithAlertPublisher(p AlertPublisher) ReporterOption {
	return func(r *Reporter) {
		r.publish = p
	}
}

func NewReporter(ledger Ledger, cfg analytics.Config, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		ledger:  ledger,
		cfg:     cfg,
		publish: config.PublishAnomalyAlerts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) Config() analytics.Config {
	return r.cfg
}

func startReportSpan(ctx context.Context, name string, w ReportWindow) (context.Context, trace.Span) {
	biz, _ := utils.GetBusinessIdFromContext(ctx)
	return tracer.Start(ctx, "reports."+name, trace.WithAttributes(
		attribute.String("business_id", biz),
		attribute.String("from", w.From.Format(utils.DateLayout)),
		attribute.String("to", w.To.Format(utils.DateLayout)),
	))
}

// readWindow loads the transactions of w, rejecting malformed windows.
func (r *Reporter) readWindow(ctx context.Context, w ReportWindow) ([]analytics.Transaction, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return r.ledger.ReadTransactions(ctx, w.From, w.To, w.CustomerKey)
}
