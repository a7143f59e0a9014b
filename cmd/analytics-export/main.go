package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/models"
	"bitbucket.org/mmdatafocus/ledger_analytics/models/reports"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func main() {
	businessID := flag.String("business-id", "", "Business to export (required)")
	from := flag.String("from", "", "Start date (YYYY-MM-DD, required)")
	to := flag.String("to", "", "End date (YYYY-MM-DD, required)")
	outDir := flag.String("out", ".", "Directory to write the workbook to")
	toGCS := flag.Bool("gcs", false, "Upload the workbook to GCS_BUCKET instead of writing it locally")
	signFor := flag.Duration("sign", 0, "With -gcs: also print a signed download URL valid for this long (e.g. 24h)")
	flag.Parse()

	bid := strings.TrimSpace(*businessID)
	if bid == "" {
		fmt.Fprintln(os.Stderr, "-business-id is required")
		os.Exit(2)
	}
	start, end, err := utils.ParseDateRange(*from, *to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid window: %v\n", err)
		os.Exit(2)
	}
	window := reports.ReportWindow{From: start, To: end}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx := utils.SetBusinessIdInContext(context.Background(), bid)
	ctx = utils.SetUserNameInContext(ctx, "AnalyticsExport")

	reporter := reports.NewReporter(models.NewLedgerReader(db), config.LoadAnalyticsConfig())
	f, err := reporter.BuildWorkbook(ctx, window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build workbook: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	name := reports.WorkbookName(bid, window)
	if *toGCS {
		buf, err := f.WriteToBuffer()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render workbook: %v\n", err)
			os.Exit(1)
		}
		objectName := "analytics/" + bid + "/" + name
		uri, err := utils.UploadFileToGCS(ctx, objectName, xlsxContentType, buf.Bytes())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to upload workbook: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(uri)
		if *signFor > 0 {
			url, err := utils.SignDownloadURL(ctx, objectName, *signFor)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to sign download url: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(url)
		}
		return
	}

	path := filepath.Join(*outDir, name)
	if err := f.SaveAs(path); err != nil {
		fmt.Fprintf(os.Stderr, "failed to save workbook: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(path)
}
