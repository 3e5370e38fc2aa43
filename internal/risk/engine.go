package risk

import (
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// Config controls metric computation and risk bucketing.
type Config struct {
	// RiskFreeRate is the annual risk-free rate used for Sharpe when a query
	// does not override it.
	RiskFreeRate float64
	// LowVolatility and HighVolatility bucket annualized volatility into
	// low / medium / high risk levels.
	LowVolatility  float64
	HighVolatility float64
}

// DefaultConfig returns the standard bucketing: annualized volatility below
// 0.15 is low risk, above 0.35 high.
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:   0.0,
		LowVolatility:  0.15,
		HighVolatility: 0.35,
	}
}

// Engine computes risk profiles from daily price history. It is stateless and
// safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine, falling back to DefaultConfig thresholds when
// the given ones are unset.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.LowVolatility <= 0 {
		cfg.LowVolatility = def.LowVolatility
	}
	if cfg.HighVolatility <= cfg.LowVolatility {
		cfg.HighVolatility = def.HighVolatility
	}
	return &Engine{cfg: cfg}
}

// ComputeInput describes one risk computation.
type ComputeInput struct {
	Series *domain.PriceSeries
	// Benchmark is the market proxy for beta. Beta is reported as
	// insufficient data when nil or not overlapping the window.
	Benchmark *domain.PriceSeries
	// WindowDays restricts the computation to the trailing calendar window
	// ending at the last observation. 0 uses the full history.
	WindowDays int
	// RiskFreeRate overrides the configured annual rate when non-nil.
	RiskFreeRate *float64
}

// Compute derives the risk profile of a series over its trailing window.
// Metrics that the data cannot support are marked invalid rather than failing
// the whole profile; an empty series yields a profile of invalid metrics with
// an unknown risk level.
func (e *Engine) Compute(in ComputeInput) domain.RiskProfile {
	profile := domain.RiskProfile{
		WindowDays: in.WindowDays,
		Level:      domain.RiskLevelUnknown,
	}
	if in.Series != nil {
		profile.Symbol = in.Series.Symbol
	}
	if in.Series == nil || in.Series.Len() == 0 {
		return profile
	}

	window := in.Series
	if in.WindowDays > 0 {
		from := in.Series.End().AddDate(0, 0, -(in.WindowDays - 1))
		window = in.Series.Window(from, in.Series.End())
	}

	profile.WindowStart = window.Start()
	profile.WindowEnd = window.End()
	profile.Observations = window.Len()
	if window.Len() < 2 {
		return profile
	}

	returns := window.Returns()
	logReturns := window.LogReturns()

	dailyStd := StdDev(logReturns)
	profile.Volatility = domain.ValidMetric(Annualize(dailyStd))
	profile.VaR95 = domain.ValidMetric(Percentile(returns, 5))
	profile.MaxDrawdown = domain.ValidMetric(maxDrawdown(window.Closes()))
	profile.Sharpe = e.sharpe(returns, in.RiskFreeRate)
	profile.Beta = beta(window, in.Benchmark)
	profile.Level = e.level(profile.Volatility)

	return profile
}

// sharpe computes the annualized Sharpe ratio from simple daily returns.
// Invalid when the return spread is zero.
func (e *Engine) sharpe(returns []float64, override *float64) domain.Metric {
	std := StdDev(returns)
	if len(returns) < 2 || std == 0 {
		return domain.Metric{}
	}
	annualRate := e.cfg.RiskFreeRate
	if override != nil {
		annualRate = *override
	}
	dailyRate := annualRate / TradingDaysPerYear
	return domain.ValidMetric(Annualize((Mean(returns) - dailyRate) / std))
}

// maxDrawdown returns the most negative peak-to-trough decline, 0 for a
// series that never falls below a prior peak.
func maxDrawdown(closes []float64) float64 {
	peak := closes[0]
	worst := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		dd := (c - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// beta computes cov(symbol, benchmark)/var(benchmark) over date-paired daily
// returns. Invalid without at least two paired observations or with a flat
// benchmark.
func beta(window, benchmark *domain.PriceSeries) domain.Metric {
	if benchmark == nil || benchmark.Len() < 2 {
		return domain.Metric{}
	}

	bench := benchmark.Window(window.Start(), window.End())
	benchRets := returnsByDay(bench)

	// Pair in series order so the computation stays deterministic.
	var xs, ys []float64
	for i := 1; i < len(window.Points); i++ {
		br, ok := benchRets[window.Points[i].Day]
		if !ok {
			continue
		}
		prev := window.Points[i-1].Close
		xs = append(xs, (window.Points[i].Close-prev)/prev)
		ys = append(ys, br)
	}
	if len(xs) < 2 {
		return domain.Metric{}
	}

	benchVar := Variance(ys)
	if benchVar == 0 {
		return domain.Metric{}
	}
	return domain.ValidMetric(Covariance(xs, ys) / benchVar)
}

// returnsByDay indexes each daily return by the date it realized on.
func returnsByDay(s *domain.PriceSeries) map[time.Time]float64 {
	out := make(map[time.Time]float64, s.Len())
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Close
		out[s.Points[i].Day] = (s.Points[i].Close - prev) / prev
	}
	return out
}

func (e *Engine) level(vol domain.Metric) domain.RiskLevel {
	if !vol.Valid {
		return domain.RiskLevelUnknown
	}
	switch {
	case vol.Value < e.cfg.LowVolatility:
		return domain.RiskLevelLow
	case vol.Value <= e.cfg.HighVolatility:
		return domain.RiskLevelMedium
	default:
		return domain.RiskLevelHigh
	}
}
