package service

import (
	"fmt"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/risk"
)

// materialDrawdown is the drawdown below which the decline is called out as a
// risk factor.
const materialDrawdown = -0.10

// synthesize turns the computed metrics and retrieved evidence into a
// recommendation. The action score blends trend direction, Sharpe and mean
// chunk sentiment under the configured weights; confidence grades how well
// the quantitative and qualitative signals agree.
func (s *InsightService) synthesize(profile domain.RiskProfile, trends []domain.TrendSummary, supporting []domain.SupportingChunk) domain.Recommendation {
	cfg := s.synthesis

	trendSign := recentTrendSign(trends)
	sharpeTerm := 0.0
	if profile.Sharpe.Valid {
		sharpeTerm = risk.Clamp(profile.Sharpe.Value/2, -1, 1)
	}
	sentimentMean := meanSentiment(supporting)

	quant := cfg.Weights.Trend*trendSign + cfg.Weights.Sharpe*sharpeTerm
	score := quant + cfg.Weights.Sentiment*sentimentMean

	action := domain.ActionHold
	switch {
	case score >= cfg.BuyThreshold:
		action = domain.ActionBuy
	case score <= cfg.SellThreshold:
		action = domain.ActionSell
	}

	confidence := confidenceFor(quant, sentimentMean, len(supporting), cfg.MinChunksHighConfidence)
	rationale, riskFactors := s.explain(profile, trends, supporting, sentimentMean, score, action)

	return domain.Recommendation{
		Action:      action,
		Confidence:  confidence,
		Rationale:   rationale,
		RiskFactors: riskFactors,
	}
}

// recentTrendSign reads the direction of the shortest trend period: +1 up,
// -1 down, 0 flat or unavailable.
func recentTrendSign(trends []domain.TrendSummary) float64 {
	recent, ok := recentTrend(trends)
	if !ok || !recent.Return.Valid {
		return 0
	}
	switch {
	case recent.Return.Value > 0:
		return 1
	case recent.Return.Value < 0:
		return -1
	}
	return 0
}

// recentTrend picks the shortest-period trend summary.
func recentTrend(trends []domain.TrendSummary) (domain.TrendSummary, bool) {
	if len(trends) == 0 {
		return domain.TrendSummary{}, false
	}
	recent := trends[0]
	for _, t := range trends[1:] {
		if t.PeriodDays < recent.PeriodDays {
			recent = t
		}
	}
	return recent, true
}

func meanSentiment(chunks []domain.SupportingChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Sentiment
	}
	return sum / float64(len(chunks))
}

// confidenceFor grades the recommendation. High needs the quantitative and
// sentiment signals pointing the same way with enough supporting evidence;
// disagreement or thin evidence is low; anything else is medium.
func confidenceFor(quant, sentiment float64, chunks, minChunks int) domain.Confidence {
	disagree := (quant > 0 && sentiment < 0) || (quant < 0 && sentiment > 0)
	agree := (quant > 0 && sentiment > 0) || (quant < 0 && sentiment < 0)

	switch {
	case chunks < minChunks:
		return domain.ConfidenceLow
	case disagree:
		return domain.ConfidenceLow
	case agree:
		return domain.ConfidenceHigh
	default:
		return domain.ConfidenceMedium
	}
}

// explain assembles the rationale and risk-factor strings from the rules that
// fired, in a fixed order so output stays deterministic.
func (s *InsightService) explain(profile domain.RiskProfile, trends []domain.TrendSummary, supporting []domain.SupportingChunk, sentimentMean, score float64, action domain.Action) (rationale, riskFactors []string) {
	rationale = append(rationale, fmt.Sprintf("composite action score %+.2f yields %s", score, action))

	if recent, ok := recentTrend(trends); ok && recent.Return.Valid {
		rationale = append(rationale, fmt.Sprintf("%d-day return %+.1f%% with a %s %s trend",
			recent.PeriodDays, recent.Return.Value*100, recent.Strength, recent.Direction))
	}

	if len(supporting) > 0 {
		rationale = append(rationale, fmt.Sprintf("supporting coverage leans %s (mean sentiment %+.2f across %d chunks)",
			sentimentLean(sentimentMean), sentimentMean, len(supporting)))
	}

	if profile.Volatility.Valid {
		rationale = append(rationale, fmt.Sprintf("annualized volatility %.2f puts risk at %s",
			profile.Volatility.Value, profile.Level))
		if profile.Level == domain.RiskLevelHigh {
			riskFactors = append(riskFactors, fmt.Sprintf("volatility %.2f sits in the high-risk band",
				profile.Volatility.Value))
		}
	} else {
		riskFactors = append(riskFactors, fmt.Sprintf("risk metrics unavailable with %d observations in the window",
			profile.Observations))
	}

	if profile.MaxDrawdown.Valid && profile.MaxDrawdown.Value <= materialDrawdown {
		riskFactors = append(riskFactors, fmt.Sprintf("max drawdown %.1f%% over the trailing window",
			profile.MaxDrawdown.Value*100))
	}

	if len(supporting) < s.synthesis.MinChunksHighConfidence {
		riskFactors = append(riskFactors, fmt.Sprintf("thin evidence: %d supporting chunks retrieved",
			len(supporting)))
	}

	return rationale, riskFactors
}

func sentimentLean(mean float64) string {
	switch {
	case mean > 0:
		return "positive"
	case mean < 0:
		return "negative"
	default:
		return "neutral"
	}
}
