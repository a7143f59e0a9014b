package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/models"
	"bitbucket.org/mmdatafocus/ledger_analytics/models/reports"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
	"github.com/google/uuid"
)

func main() {
	businessID := flag.String("business-id", "", "Optional: scan only one business. If empty, scans every business with bills.")
	from := flag.String("from", "", "Optional: start date (YYYY-MM-DD). Defaults to 30 days before -to.")
	to := flag.String("to", "", "Optional: end date (YYYY-MM-DD). Defaults to yesterday (UTC).")
	topic := flag.String("topic", config.AnomalyAlertTopic(), "Pub/Sub topic to publish to (default ANOMALY_ALERT_TOPIC)")
	dryRun := flag.Bool("dry-run", false, "Print flagged days without publishing")
	flag.Parse()

	end := analytics.DateOf(time.Now().UTC()).AddDate(0, 0, -1)
	if strings.TrimSpace(*to) != "" {
		d, err := utils.ParseDate(*to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -to: %v\n", err)
			os.Exit(2)
		}
		end = d
	}
	start := end.AddDate(0, 0, -30)
	if strings.TrimSpace(*from) != "" {
		d, err := utils.ParseDate(*from)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -from: %v\n", err)
			os.Exit(2)
		}
		start = d
	}
	window := reports.ReportWindow{From: start, To: end}
	if err := window.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid window: %v\n", err)
		os.Exit(2)
	}
	if !*dryRun && strings.TrimSpace(*topic) == "" {
		fmt.Fprintln(os.Stderr, "-topic or ANOMALY_ALERT_TOPIC is required unless -dry-run is set")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	businessIds := []string{strings.TrimSpace(*businessID)}
	if businessIds[0] == "" {
		ids, err := models.ListBusinessIds(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list businesses: %v\n", err)
			os.Exit(1)
		}
		businessIds = ids
	}
	if len(businessIds) == 0 {
		fmt.Fprintln(os.Stderr, "no businesses found to scan")
		return
	}

	reporter := reports.NewReporter(models.NewLedgerReader(db), config.LoadAnalyticsConfig())
	runId := uuid.NewString()
	failed := 0
	for _, bid := range businessIds {
		bctx := utils.SetBusinessIdInContext(ctx, bid)
		bctx = utils.SetUserNameInContext(bctx, "AnomalyAlerts")
		bctx = utils.SetCorrelationIdInContext(bctx, runId)

		if *dryRun {
			for _, build := range []func(context.Context, reports.ReportWindow) (*reports.AnomalyResponse, error){
				reporter.SalesAnomalies, reporter.ExpenseAnomalies,
			} {
				resp, err := build(bctx, window)
				if err != nil {
					fmt.Fprintf(os.Stderr, "business %s: %v\n", bid, err)
					failed++
					break
				}
				for _, a := range resp.Anomalies {
					fmt.Printf("business=%s series=%s date=%s amount=%s\n", bid, resp.Series, a.Date.Format(utils.DateLayout), a.Amount.String())
				}
			}
			continue
		}

		n, err := reporter.PublishAnomalyAlerts(bctx, window, *topic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "business %s: failed to publish alerts: %v\n", bid, err)
			failed++
			continue
		}
		fmt.Printf("business=%s published=%d window=%s..%s\n", bid, n, start.Format(utils.DateLayout), end.Format(utils.DateLayout))
	}
	if failed > 0 {
		os.Exit(1)
	}
}
