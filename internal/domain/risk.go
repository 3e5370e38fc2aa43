package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// InsufficientData is the rendered value of a metric that could not be computed
const InsufficientData = "insufficient data"

// Metric represents one risk figure. Valid is false when the underlying data
// could not support the computation; such metrics render as "insufficient data"
// rather than a number.
type Metric struct {
	Value float64
	Valid bool
}

// ValidMetric wraps a computed value
func ValidMetric(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{Value: v, Valid: true}
}

// String renders the metric for human output
func (m Metric) String() string {
	if !m.Valid {
		return InsufficientData
	}
	return fmt.Sprintf("%.4f", m.Value)
}

// MarshalJSON renders a number or the insufficient-data marker
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return json.Marshal(InsufficientData)
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts a number or the insufficient-data marker
func (m *Metric) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*m = ValidMetric(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("metric must be a number or %q", InsufficientData)
	}
	if s != InsufficientData {
		return fmt.Errorf("unexpected metric value %q", s)
	}
	*m = Metric{}
	return nil
}

// RiskLevel represents the bucketed volatility classification
type RiskLevel string

const (
	RiskLevelLow     RiskLevel = "low"
	RiskLevelMedium  RiskLevel = "medium"
	RiskLevelHigh    RiskLevel = "high"
	RiskLevelUnknown RiskLevel = "unknown"
)

// RiskProfile represents the quantitative risk metrics of one symbol over a
// trailing window
type RiskProfile struct {
	Symbol       string
	WindowDays   int
	WindowStart  time.Time
	WindowEnd    time.Time
	Observations int
	Volatility   Metric
	VaR95        Metric
	Sharpe       Metric
	MaxDrawdown  Metric
	Beta         Metric
	Level        RiskLevel
}

// TrendSummary represents directional statistics over one trailing period
type TrendSummary struct {
	PeriodDays int
	Return     Metric
	Volatility Metric
	Direction  string
	Strength   string
	SMASignal  string
}

// Trend directions and strengths
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"

	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
	StrengthWeak     = "weak"

	SMABullish = "bullish"
	SMABearish = "bearish"
	SMANeutral = "neutral"
)
