package reports

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSegments          = "Segments"
	SheetProfitability     = "Profitability"
	SheetSalesAnomalies    = "Sales Anomalies"
	SheetExpenseAnomalies  = "Expense Anomalies"
	SheetSalesForecast     = "Sales Forecast"
	SheetProductSales      = "Product Sales"
	SheetExpenseCategories = "Expenses"
)

func writeSheet(f *excelize.File, sheet string, headers []interface{}, rows [][]interface{}) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func dailyRows(rows []analytics.DailyAmount) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, d := range rows {
		out = append(out, []interface{}{d.Date.Format(utils.DateLayout), d.Amount.InexactFloat64()})
	}
	return out
}

// BuildWorkbook renders the main analytics reports of the window into one
// workbook, one sheet per report. The sales forecast sheet carries a single
// note row when the window is too short to forecast.
func (r *Reporter) BuildWorkbook(ctx context.Context, w ReportWindow) (*excelize.File, error) {
	ctx, span := startReportSpan(ctx, "BuildWorkbook", w)
	defer span.End()

	segments, err := r.CustomerSegments(ctx, w)
	if err != nil {
		return nil, err
	}
	profitability, err := r.Profitability(ctx, w)
	if err != nil {
		return nil, err
	}
	salesAnomalies, err := r.SalesAnomalies(ctx, w)
	if err != nil {
		return nil, err
	}
	expenseAnomalies, err := r.ExpenseAnomalies(ctx, w)
	if err != nil {
		return nil, err
	}
	forecast, err := r.SalesForecast(ctx, w, 0)
	if err != nil && !errors.Is(err, ErrNotEnoughHistory) {
		return nil, err
	}
	products, err := r.ProductSales(ctx, w, 0)
	if err != nil {
		return nil, err
	}
	expenses, err := r.ExpenseSummary(ctx, w, nil)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSegments); err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(segments))
	for _, s := range segments {
		rows = append(rows, []interface{}{s.CustomerKey, s.Recency, s.Frequency, s.Monetary.InexactFloat64(), string(s.Segment)})
	}
	if err := writeSheet(f, SheetSegments, []interface{}{"Customer", "Recency (days)", "Frequency", "Monetary", "Segment"}, rows); err != nil {
		return nil, err
	}

	rows = make([][]interface{}, 0, len(profitability))
	for _, p := range profitability {
		rows = append(rows, []interface{}{
			p.CustomerKey, p.TotalRevenue.InexactFloat64(), p.TotalCost.InexactFloat64(),
			p.TotalProfit.InexactFloat64(), p.ProfitMargin.InexactFloat64(), p.NumBills, string(p.Segment),
		})
	}
	if err := writeSheet(f, SheetProfitability, []interface{}{"Customer", "Revenue", "Cost", "Profit", "Margin %", "Bills", "Segment"}, rows); err != nil {
		return nil, err
	}

	if err := writeSheet(f, SheetSalesAnomalies, []interface{}{"Date", "Revenue"}, dailyRows(salesAnomalies.Anomalies)); err != nil {
		return nil, err
	}
	if err := writeSheet(f, SheetExpenseAnomalies, []interface{}{"Date", "Expenses"}, dailyRows(expenseAnomalies.Anomalies)); err != nil {
		return nil, err
	}

	if forecast == nil {
		rows = [][]interface{}{{ErrNotEnoughHistory.Error()}}
		if err := writeSheet(f, SheetSalesForecast, []interface{}{"Note"}, rows); err != nil {
			return nil, err
		}
	} else {
		rows = make([][]interface{}, 0, len(forecast.Points))
		for _, p := range forecast.Points {
			var actual interface{}
			if p.Actual != nil {
				actual = *p.Actual
			}
			rows = append(rows, []interface{}{p.Date.Format(utils.DateLayout), actual, p.Predicted, p.LowerBound, p.UpperBound})
		}
		if err := writeSheet(f, SheetSalesForecast, []interface{}{"Date", "Actual", "Predicted (" + forecast.Label + ")", "Lower", "Upper"}, rows); err != nil {
			return nil, err
		}
	}

	rows = make([][]interface{}, 0, len(products.Products))
	for _, p := range products.Products {
		rows = append(rows, []interface{}{
			p.ProductName, p.TotalQuantity.InexactFloat64(), p.TotalRevenue.InexactFloat64(),
			p.TotalCost.InexactFloat64(), p.TotalProfit.InexactFloat64(),
		})
	}
	if err := writeSheet(f, SheetProductSales, []interface{}{"Product", "Quantity", "Revenue", "Cost", "Profit"}, rows); err != nil {
		return nil, err
	}

	rows = make([][]interface{}, 0, len(expenses.ByCategory)+1)
	for _, c := range expenses.ByCategory {
		rows = append(rows, []interface{}{c.Category, c.Amount.InexactFloat64()})
	}
	rows = append(rows, []interface{}{"Total", expenses.TotalExpenses.InexactFloat64()})
	if err := writeSheet(f, SheetExpenseCategories, []interface{}{"Category", "Amount"}, rows); err != nil {
		return nil, err
	}

	return f, nil
}

// WorkbookName is the object/file name used for an exported workbook.
func WorkbookName(businessId string, w ReportWindow) string {
	return fmt.Sprintf("analytics_%s_%s_%s_%s.xlsx", businessId,
		w.From.Format(utils.DateLayout), w.To.Format(utils.DateLayout), utils.GenerateUniqueFilename())
}
