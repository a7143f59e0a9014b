package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailySeries(t *testing.T, start string, amounts ...float64) []DailyAmount {
	t.Helper()
	first := day(t, start)
	rows := make([]DailyAmount, len(amounts))
	for i, a := range amounts {
		rows[i] = DailyAmount{Date: first.AddDate(0, 0, i), Amount: dec(a)}
	}
	return rows
}

func TestDetectAnomalies_FlagsSpike(t *testing.T) {
	series := dailySeries(t, "2024-01-01", 100, 100, 100, 100, 1000)

	anomalies := DetectAnomalies(series, DefaultConfig().Anomaly)

	require.Len(t, anomalies, 1)
	assert.Equal(t, day(t, "2024-01-05"), anomalies[0].Date)
	assert.Equal(t, "1000", anomalies[0].Amount.String())
}

func TestDetectAnomalies_FlagsDipBelowBand(t *testing.T) {
	series := dailySeries(t, "2024-01-01", 500, 500, 500, 500, 500, 500, 500, 500, 500, 10)

	anomalies := DetectAnomalies(series, DefaultConfig().Anomaly)

	require.Len(t, anomalies, 1)
	assert.Equal(t, "10", anomalies[0].Amount.String())
}

func TestDetectAnomalies_DegenerateWindows(t *testing.T) {
	cfg := DefaultConfig().Anomaly
	assert.Empty(t, DetectAnomalies(dailySeries(t, "2024-01-01", 50, 50, 50), cfg))
	assert.Empty(t, DetectAnomalies(dailySeries(t, "2024-01-01", 900), cfg))
	assert.Empty(t, DetectAnomalies(nil, cfg))
}

func TestDetectAnomalies_ExpenseSeries(t *testing.T) {
	expenses := []Expense{}
	for i := 0; i < 9; i++ {
		expenses = append(expenses, Expense{Date: day(t, "2024-03-01").AddDate(0, 0, i), Amount: dec(20), Category: "Supplies"})
	}
	expenses = append(expenses, Expense{Date: day(t, "2024-03-10"), Amount: dec(400), Category: "Repairs"})

	anomalies := DetectAnomalies(DailyExpenses(expenses), DefaultConfig().Anomaly)

	require.Len(t, anomalies, 1)
	assert.Equal(t, day(t, "2024-03-10"), anomalies[0].Date)
}

func TestDetectAnomalies_ZScoreIsConfigurable(t *testing.T) {
	series := dailySeries(t, "2024-01-01", 10, 12, 11, 30)

	assert.Empty(t, DetectAnomalies(series, AnomalyConfig{ZScore: 3}))
	assert.Len(t, DetectAnomalies(series, AnomalyConfig{ZScore: 1}), 1)
}
