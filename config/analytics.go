package config

import (
	"os"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"github.com/shopspring/decimal"
)

// LoadAnalyticsConfig returns the engine defaults overridden by any
// ANALYTICS_* environment variables that parse.
func LoadAnalyticsConfig() analytics.Config {
	cfg := analytics.DefaultConfig()

	cfg.Segmentation.LoyalMinFrequency = intFromEnv("ANALYTICS_LOYAL_MIN_FREQUENCY", cfg.Segmentation.LoyalMinFrequency)
	cfg.Segmentation.HighValuePercentile = floatFromEnv("ANALYTICS_HIGH_VALUE_PERCENTILE", cfg.Segmentation.HighValuePercentile)
	cfg.Segmentation.AtRiskRecencyDays = intFromEnv("ANALYTICS_AT_RISK_RECENCY_DAYS", cfg.Segmentation.AtRiskRecencyDays)
	cfg.Churn.ThresholdDays = intFromEnv("ANALYTICS_CHURN_THRESHOLD_DAYS", cfg.Churn.ThresholdDays)
	cfg.Anomaly.ZScore = floatFromEnv("ANALYTICS_ANOMALY_Z", cfg.Anomaly.ZScore)

	cfg.Profitability.HighRevenue = decimalFromEnv("ANALYTICS_PROFIT_HIGH_REVENUE", cfg.Profitability.HighRevenue)
	cfg.Profitability.HighValueMargin = decimalFromEnv("ANALYTICS_PROFIT_HIGH_VALUE_MARGIN", cfg.Profitability.HighValueMargin)
	cfg.Profitability.LowMargin = decimalFromEnv("ANALYTICS_PROFIT_LOW_MARGIN", cfg.Profitability.LowMargin)
	cfg.Profitability.GemMargin = decimalFromEnv("ANALYTICS_PROFIT_GEM_MARGIN", cfg.Profitability.GemMargin)

	cfg.Forecast.MinDecompositionPoints = intFromEnv("ANALYTICS_FORECAST_MIN_POINTS", cfg.Forecast.MinDecompositionPoints)
	cfg.Forecast.MovingAverageWindow = intFromEnv("ANALYTICS_FORECAST_MA_WINDOW", cfg.Forecast.MovingAverageWindow)
	cfg.Forecast.HorizonDays = intFromEnv("ANALYTICS_FORECAST_HORIZON_DAYS", cfg.Forecast.HorizonDays)

	cfg.Recommendation.TopN = intFromEnv("ANALYTICS_RECOMMEND_TOP_N", cfg.Recommendation.TopN)
	return cfg
}

func floatFromEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func decimalFromEnv(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}
