package risk

import "github.com/cloo-solutions/finsight/internal/domain"

// DefaultTrendPeriods are the trailing windows trends are reported over.
var DefaultTrendPeriods = []int{7, 30, 90}

const (
	strongTrendRatio   = 0.5
	moderateTrendRatio = 0.2
)

// Trends computes directional statistics over trailing calendar periods.
// Periods without at least two observations are omitted.
func (e *Engine) Trends(series *domain.PriceSeries, periods []int) []domain.TrendSummary {
	if series == nil || series.Len() == 0 {
		return nil
	}
	if len(periods) == 0 {
		periods = DefaultTrendPeriods
	}

	end := series.End()
	out := make([]domain.TrendSummary, 0, len(periods))
	for _, days := range periods {
		if days <= 0 {
			continue
		}
		w := series.Window(end.AddDate(0, 0, -(days-1)), end)
		if w.Len() < 2 {
			continue
		}
		out = append(out, trendSummary(w, days))
	}
	return out
}

func trendSummary(w *domain.PriceSeries, days int) domain.TrendSummary {
	start := w.Points[0].Close
	ret := (w.Points[len(w.Points)-1].Close - start) / start
	vol := Annualize(StdDev(w.Returns()))

	return domain.TrendSummary{
		PeriodDays: days,
		Return:     domain.ValidMetric(ret),
		Volatility: domain.ValidMetric(vol),
		Direction:  direction(ret),
		Strength:   strength(ret, vol),
		SMASignal:  smaSignal(w.Closes(), days),
	}
}

func direction(ret float64) string {
	switch {
	case ret > 0:
		return domain.TrendUp
	case ret < 0:
		return domain.TrendDown
	default:
		return domain.TrendFlat
	}
}

// strength relates the period return to its volatility. A large move in a
// calm market is a stronger trend than the same move in a volatile one.
func strength(ret, vol float64) string {
	if vol == 0 {
		return domain.StrengthWeak
	}
	ratio := Clamp(abs(ret)/vol, 0, 10)
	switch {
	case ratio >= strongTrendRatio:
		return domain.StrengthStrong
	case ratio >= moderateTrendRatio:
		return domain.StrengthModerate
	default:
		return domain.StrengthWeak
	}
}

// smaSignal compares a short against a long moving average, both scaled down
// for short periods.
func smaSignal(closes []float64, days int) string {
	shortWin := min(5, days/4)
	longWin := min(20, days/2)
	if shortWin < 1 || longWin <= shortWin {
		return domain.SMANeutral
	}

	short, okShort := SMA(closes, shortWin)
	long, okLong := SMA(closes, longWin)
	if !okShort || !okLong {
		return domain.SMANeutral
	}
	switch {
	case short > long:
		return domain.SMABullish
	case short < long:
		return domain.SMABearish
	default:
		return domain.SMANeutral
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
