package analytics

import "sort"

// DetectAnomalies flags the days of a daily rollup whose amount lies at least
// cfg.ZScore population standard deviations away from the window mean. The
// same detector serves revenue and expense series. Windows with fewer than
// two days, or with no variance, have no meaningful outliers and yield an
// empty result.
func DetectAnomalies(series []DailyAmount, cfg AnomalyConfig) []DailyAmount {
	anomalies := []DailyAmount{}
	if len(series) < 2 {
		return anomalies
	}
	amounts := make([]float64, len(series))
	for i, d := range series {
		amounts[i] = d.Amount.InexactFloat64()
	}
	mu, sigma := populationMeanStdDev(amounts)
	if sigma == 0 {
		return anomalies
	}
	upper := mu + cfg.ZScore*sigma
	lower := mu - cfg.ZScore*sigma
	for i, d := range series {
		if amounts[i] >= upper || amounts[i] <= lower {
			anomalies = append(anomalies, d)
		}
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Date.Before(anomalies[j].Date)
	})
	return anomalies
}
