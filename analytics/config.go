package analytics

import "github.com/shopspring/decimal"

// Config carries every tunable threshold used by the engine. The defaults
// reproduce the hand-tuned literals the ledger has always used; they are not
// derived from any business analysis.
type Config struct {
	Segmentation   SegmentationConfig   `json:"segmentation"`
	Churn          ChurnConfig          `json:"churn"`
	Anomaly        AnomalyConfig        `json:"anomaly"`
	Profitability  ProfitabilityConfig  `json:"profitability"`
	Forecast       ForecastConfig       `json:"forecast"`
	Recommendation RecommendationConfig `json:"recommendation"`
}

type SegmentationConfig struct {
	LoyalMinFrequency   int     `json:"loyal_min_frequency"`
	HighValuePercentile float64 `json:"high_value_percentile"`
	AtRiskRecencyDays   int     `json:"at_risk_recency_days"`
	NewFrequency        int     `json:"new_frequency"`
}

type ChurnConfig struct {
	ThresholdDays int `json:"threshold_days"`
}

type AnomalyConfig struct {
	// ZScore is the number of standard deviations from the mean at which a
	// day is flagged.
	ZScore float64 `json:"z_score"`
}

type ProfitabilityConfig struct {
	HighRevenue     decimal.Decimal `json:"high_revenue"`
	HighValueMargin decimal.Decimal `json:"high_value_margin"`
	LowMargin       decimal.Decimal `json:"low_margin"`
	GemMargin       decimal.Decimal `json:"gem_margin"`
}

type ForecastConfig struct {
	MinDecompositionPoints int     `json:"min_decomposition_points"`
	MovingAverageWindow    int     `json:"moving_average_window"`
	HorizonDays            int     `json:"horizon_days"`
	IntervalZ              float64 `json:"interval_z"`
}

type RecommendationConfig struct {
	TopN int `json:"top_n"`
}

func DefaultConfig() Config {
	return Config{
		Segmentation: SegmentationConfig{
			LoyalMinFrequency:   5,
			HighValuePercentile: 0.75,
			AtRiskRecencyDays:   30,
			NewFrequency:        1,
		},
		Churn: ChurnConfig{
			ThresholdDays: 60,
		},
		Anomaly: AnomalyConfig{
			ZScore: 2,
		},
		Profitability: ProfitabilityConfig{
			HighRevenue:     decimal.NewFromInt(10000),
			HighValueMargin: decimal.NewFromInt(20),
			LowMargin:       decimal.NewFromInt(10),
			GemMargin:       decimal.NewFromInt(30),
		},
		Forecast: ForecastConfig{
			MinDecompositionPoints: 15,
			MovingAverageWindow:    4,
			HorizonDays:            30,
			// two-sided 80% normal interval
			IntervalZ: 1.2816,
		},
		Recommendation: RecommendationConfig{
			TopN: 5,
		},
	}
}
