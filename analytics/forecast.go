package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type ForecastStrategy string

const (
	StrategyTrendSeasonal ForecastStrategy = "trend_seasonal"
	StrategyTrend         ForecastStrategy = "trend"
	StrategyMovingAverage ForecastStrategy = "moving_average"
)

// ForecastPoint is one row of a forecast series. Historical rows carry the
// observed value in Actual; projected rows leave it nil.
type ForecastPoint struct {
	Date       time.Time `json:"date"`
	Actual     *float64  `json:"actual"`
	Predicted  float64   `json:"predicted"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

type ForecastResult struct {
	Strategy ForecastStrategy `json:"strategy"`
	Label    string           `json:"label"`
	Points   []ForecastPoint  `json:"points"`
}

// HasEnoughPoints reports whether a series of n observations supports the
// trend decomposition rather than the moving-average fallback.
func HasEnoughPoints(n int, cfg ForecastConfig) bool {
	return n >= cfg.MinDecompositionPoints
}

type observation struct {
	date time.Time
	y    float64
}

// Forecast extends a daily revenue series horizonDays past its last date.
// It reports false when the series has fewer than two distinct dates.
func Forecast(series []DailyAmount, horizonDays int, cfg ForecastConfig) (ForecastResult, bool) {
	byDate := map[time.Time]decimal.Decimal{}
	for _, d := range series {
		day := DateOf(d.Date)
		byDate[day] = byDate[day].Add(d.Amount)
	}
	daily := sortedDaily(byDate)
	obs := make([]observation, len(daily))
	for i, d := range daily {
		obs[i] = observation{date: d.Date, y: d.Amount.InexactFloat64()}
	}
	return forecastObservations(obs, horizonDays, 1, true, cfg)
}

// ForecastProductDemand projects weekly sold quantities of one product
// horizonWeeks ahead. Weeks start on Monday and weeks without sales count as
// zero. Weekly data carries no weekday seasonality, so the primary strategy
// is trend only.
func ForecastProductDemand(txns []Transaction, product string, horizonWeeks int, cfg ForecastConfig) (ForecastResult, bool) {
	weekly := map[time.Time]decimal.Decimal{}
	for _, t := range txns {
		if !t.IsSale() {
			continue
		}
		for _, item := range t.Items {
			if item.Name != product {
				continue
			}
			week := weekStart(t.Date)
			weekly[week] = weekly[week].Add(item.Quantity)
		}
	}
	if len(weekly) == 0 {
		return ForecastResult{}, false
	}
	rows := sortedDaily(weekly)
	obs := []observation{}
	last := rows[len(rows)-1].Date
	for w := rows[0].Date; !w.After(last); w = w.AddDate(0, 0, 7) {
		obs = append(obs, observation{date: w, y: weekly[w].InexactFloat64()})
	}
	return forecastObservations(obs, horizonWeeks, 7, false, cfg)
}

func weekStart(t time.Time) time.Time {
	day := DateOf(t)
	return day.AddDate(0, 0, -weekdayRank(day.Weekday()))
}

// forecastObservations selects the strategy purely on data sufficiency.
// obs must be sorted by date with distinct dates spaced in whole days.
func forecastObservations(obs []observation, horizon, stepDays int, seasonal bool, cfg ForecastConfig) (ForecastResult, bool) {
	if len(obs) < 2 {
		return ForecastResult{}, false
	}
	if horizon < 0 {
		horizon = 0
	}
	if HasEnoughPoints(len(obs), cfg) {
		return decompositionForecast(obs, horizon, stepDays, seasonal, cfg), true
	}
	return movingAverageForecast(obs, horizon, stepDays, cfg), true
}

func decompositionForecast(obs []observation, horizon, stepDays int, seasonal bool, cfg ForecastConfig) ForecastResult {
	origin := obs[0].date
	n := len(obs)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, o := range obs {
		xs[i] = float64(DaysBetween(origin, o.date))
		ys[i] = o.y
	}
	trend := fitLine(xs, ys)

	season := map[time.Weekday]float64{}
	params := 2
	if seasonal {
		sums := map[time.Weekday]float64{}
		counts := map[time.Weekday]int{}
		for i, o := range obs {
			wd := o.date.Weekday()
			sums[wd] += ys[i] - trend.at(xs[i])
			counts[wd]++
		}
		for wd, sum := range sums {
			season[wd] = sum / float64(counts[wd])
		}
		params += len(season) - 1
	}

	var sse float64
	for i, o := range obs {
		r := ys[i] - trend.at(xs[i]) - season[o.date.Weekday()]
		sse += r * r
	}
	df := n - params
	if df < 1 {
		df = 1
	}
	residualStd := math.Sqrt(sse / float64(df))
	if math.IsNaN(residualStd) || math.IsInf(residualStd, 0) {
		residualStd = 0
	}

	halfWidth := func(x float64) float64 {
		spread := 1 + 1/float64(n)
		if trend.sxx > 0 {
			spread += (x - trend.meanX) * (x - trend.meanX) / trend.sxx
		}
		return cfg.IntervalZ * residualStd * math.Sqrt(spread)
	}

	points := make([]ForecastPoint, 0, n+horizon)
	for i, o := range obs {
		actual := ys[i]
		predicted := trend.at(xs[i]) + season[o.date.Weekday()]
		hw := halfWidth(xs[i])
		points = append(points, ForecastPoint{
			Date:       o.date,
			Actual:     &actual,
			Predicted:  predicted,
			LowerBound: predicted - hw,
			UpperBound: predicted + hw,
		})
	}
	last := obs[n-1].date
	for h := 1; h <= horizon; h++ {
		date := last.AddDate(0, 0, h*stepDays)
		x := float64(DaysBetween(origin, date))
		predicted := trend.at(x) + season[date.Weekday()]
		hw := halfWidth(x)
		points = append(points, ForecastPoint{
			Date:       date,
			Predicted:  predicted,
			LowerBound: predicted - hw,
			UpperBound: predicted + hw,
		})
	}

	result := ForecastResult{Strategy: StrategyTrend, Label: "Trend Forecast", Points: points}
	if seasonal {
		result.Strategy = StrategyTrendSeasonal
		result.Label = "Trend + Weekly Seasonality Forecast"
	}
	return result
}

// movingAverageForecast smooths the history with a trailing mean and projects
// the last mean flat. It carries no uncertainty band.
func movingAverageForecast(obs []observation, horizon, stepDays int, cfg ForecastConfig) ForecastResult {
	window := cfg.MovingAverageWindow
	if window < 1 {
		window = 1
	}
	points := make([]ForecastPoint, 0, len(obs)+horizon)
	for i, o := range obs {
		start := i + 1 - window
		if start < 0 {
			start = 0
		}
		var sum float64
		for _, w := range obs[start : i+1] {
			sum += w.y
		}
		avg := sum / float64(i+1-start)
		actual := o.y
		points = append(points, ForecastPoint{
			Date:       o.date,
			Actual:     &actual,
			Predicted:  avg,
			LowerBound: avg,
			UpperBound: avg,
		})
	}
	lastAvg := points[len(points)-1].Predicted
	last := obs[len(obs)-1].date
	for h := 1; h <= horizon; h++ {
		points = append(points, ForecastPoint{
			Date:       last.AddDate(0, 0, h*stepDays),
			Predicted:  lastAvg,
			LowerBound: lastAvg,
			UpperBound: lastAvg,
		})
	}
	return ForecastResult{
		Strategy: StrategyMovingAverage,
		Label:    fmt.Sprintf("%d-Period Moving Average", window),
		Points:   points,
	}
}
