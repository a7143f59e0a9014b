package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

type Segment string

const (
	SegmentHighValue Segment = "High-Value"
	SegmentLoyal     Segment = "Loyal"
	SegmentAtRisk    Segment = "At-Risk"
	SegmentNew       Segment = "New"
	SegmentOther     Segment = "Other"
)

type CustomerSegment struct {
	CustomerKey string          `json:"customer_key"`
	Recency     int             `json:"recency"`
	Frequency   int             `json:"frequency"`
	Monetary    decimal.Decimal `json:"monetary"`
	Segment     Segment         `json:"segment"`
}

// SegmentCustomers assigns an RFM segment to every customer of the rollup.
// Recency is counted in days back from referenceDate; a zero referenceDate
// means the latest purchase date present in the rollup.
func SegmentCustomers(rollup []CustomerStats, referenceDate time.Time, cfg SegmentationConfig) []CustomerSegment {
	if len(rollup) == 0 {
		return []CustomerSegment{}
	}
	if referenceDate.IsZero() {
		for _, c := range rollup {
			if c.LastPurchase.After(referenceDate) {
				referenceDate = c.LastPurchase
			}
		}
	}

	monetary := make([]decimal.Decimal, len(rollup))
	for i, c := range rollup {
		monetary[i] = c.Monetary
	}
	highValueCut := percentile(monetary, cfg.HighValuePercentile)

	out := make([]CustomerSegment, 0, len(rollup))
	for _, c := range rollup {
		row := CustomerSegment{
			CustomerKey: c.CustomerKey,
			Recency:     DaysBetween(c.LastPurchase, referenceDate),
			Frequency:   c.Frequency,
			Monetary:    c.Monetary,
		}
		row.Segment = classifyRFM(row, highValueCut, cfg)
		out = append(out, row)
	}
	return out
}

// classifyRFM applies the segment rules in priority order; the first match wins.
func classifyRFM(c CustomerSegment, highValueCut decimal.Decimal, cfg SegmentationConfig) Segment {
	switch {
	case c.Frequency >= cfg.LoyalMinFrequency && c.Monetary.GreaterThanOrEqual(highValueCut):
		return SegmentHighValue
	case c.Frequency >= cfg.LoyalMinFrequency:
		return SegmentLoyal
	case c.Recency > cfg.AtRiskRecencyDays:
		return SegmentAtRisk
	case c.Frequency == cfg.NewFrequency:
		return SegmentNew
	default:
		return SegmentOther
	}
}

// PredictChurn returns the customers whose recency exceeds the churn threshold.
func PredictChurn(segments []CustomerSegment, cfg ChurnConfig) []CustomerSegment {
	churned := []CustomerSegment{}
	for _, s := range segments {
		if s.Recency > cfg.ThresholdDays {
			churned = append(churned, s)
		}
	}
	return churned
}

type SegmentRevenue struct {
	Segment Segment         `json:"segment"`
	Revenue decimal.Decimal `json:"revenue"`
}

// RevenueBySegment sums transaction totals by the segment of their customer.
// Customers missing from segments count as Other.
func RevenueBySegment(txns []Transaction, segments []CustomerSegment) []SegmentRevenue {
	byCustomer := make(map[string]Segment, len(segments))
	for _, s := range segments {
		byCustomer[s.CustomerKey] = s.Segment
	}
	index := map[Segment]int{}
	out := []SegmentRevenue{}
	for _, t := range txns {
		seg, ok := byCustomer[t.CustomerKey]
		if !ok {
			seg = SegmentOther
		}
		i, ok := index[seg]
		if !ok {
			i = len(out)
			index[seg] = i
			out = append(out, SegmentRevenue{Segment: seg, Revenue: decimal.Zero})
		}
		out[i].Revenue = out[i].Revenue.Add(t.TotalAmount)
	}
	return out
}
