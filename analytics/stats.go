package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// populationMeanStdDev returns the mean and the standard deviation dividing
// by n. Empty input yields zeros.
func populationMeanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(values, nil)
}

// percentile returns the p-th quantile (0 <= p <= 1) of values using linear
// interpolation between the closest order statistics, x[lo] + frac*(x[hi]-x[lo])
// at position p*(n-1). stat.Quantile's LinInterp places the cut at p*n and
// gives a different P75 for small samples.
func percentile(values []decimal.Decimal, p float64) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := decimal.NewFromFloat(pos - float64(lo))
	return sorted[lo].Add(sorted[hi].Sub(sorted[lo]).Mul(frac))
}

// linearFit is an ordinary least squares line y = intercept + slope*x.
type linearFit struct {
	slope     float64
	intercept float64
	meanX     float64
	sxx       float64
}

func (f linearFit) at(x float64) float64 {
	return f.intercept + f.slope*x
}

func fitLine(xs, ys []float64) linearFit {
	if len(xs) == 0 {
		return linearFit{}
	}
	mx, vx := stat.PopMeanVariance(xs, nil)
	sxx := vx * float64(len(xs))
	if sxx == 0 {
		return linearFit{intercept: stat.Mean(ys, nil), meanX: mx}
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return linearFit{
		slope:     slope,
		intercept: intercept,
		meanX:     mx,
		sxx:       sxx,
	}
}
