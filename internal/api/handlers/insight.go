package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/finsight/internal/api"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
)

type InsightService interface {
	Answer(ctx context.Context, input service.AnswerInput) (*domain.Insight, error)
}

type InsightHandler struct {
	svc InsightService
}

func NewInsightHandler(svc InsightService) *InsightHandler {
	return &InsightHandler{svc: svc}
}

type InsightOptionsRequest struct {
	K              int      `json:"k"`
	RiskWindowDays int      `json:"risk_window_days"`
	RiskFreeRate   *float64 `json:"risk_free_rate"`
	SourceTypes    []string `json:"source_types"`
}

type InsightRequest struct {
	Symbol  string                `json:"symbol"`
	Query   string                `json:"query"`
	Options InsightOptionsRequest `json:"options"`
}

type RiskProfileResponse struct {
	Symbol       string        `json:"symbol"`
	WindowDays   int           `json:"window_days"`
	WindowStart  string        `json:"window_start,omitempty"`
	WindowEnd    string        `json:"window_end,omitempty"`
	Observations int           `json:"observations"`
	Volatility   domain.Metric `json:"volatility"`
	VaR95        domain.Metric `json:"var_95"`
	Sharpe       domain.Metric `json:"sharpe"`
	MaxDrawdown  domain.Metric `json:"max_drawdown"`
	Beta         domain.Metric `json:"beta"`
	Level        string        `json:"level"`
}

type TrendResponse struct {
	PeriodDays int           `json:"period_days"`
	Return     domain.Metric `json:"return"`
	Volatility domain.Metric `json:"volatility"`
	Direction  string        `json:"direction"`
	Strength   string        `json:"strength"`
	SMASignal  string        `json:"sma_signal"`
}

type SupportingChunkResponse struct {
	ChunkID   string  `json:"chunk_id"`
	Source    string  `json:"source"`
	Score     float64 `json:"score"`
	Sentiment float64 `json:"sentiment"`
	WindowEnd string  `json:"window_end"`
	Excerpt   string  `json:"excerpt"`
}

type RecommendationResponse struct {
	Action      string   `json:"action"`
	Confidence  string   `json:"confidence"`
	Rationale   []string `json:"rationale"`
	RiskFactors []string `json:"risk_factors"`
}

type InsightResponse struct {
	Symbol         string                    `json:"symbol"`
	Query          string                    `json:"query"`
	GeneratedAt    string                    `json:"generated_at"`
	Risk           RiskProfileResponse       `json:"risk"`
	Trends         []TrendResponse           `json:"trends"`
	Supporting     []SupportingChunkResponse `json:"supporting"`
	Recommendation RecommendationResponse    `json:"recommendation"`
}

const timestampFormat = "2006-01-02T15:04:05Z"

func riskToResponse(p domain.RiskProfile) RiskProfileResponse {
	resp := RiskProfileResponse{
		Symbol:       p.Symbol,
		WindowDays:   p.WindowDays,
		Observations: p.Observations,
		Volatility:   p.Volatility,
		VaR95:        p.VaR95,
		Sharpe:       p.Sharpe,
		MaxDrawdown:  p.MaxDrawdown,
		Beta:         p.Beta,
		Level:        string(p.Level),
	}
	if !p.WindowStart.IsZero() {
		resp.WindowStart = p.WindowStart.Format(dayFormat)
	}
	if !p.WindowEnd.IsZero() {
		resp.WindowEnd = p.WindowEnd.Format(dayFormat)
	}
	return resp
}

func trendsToResponse(trends []domain.TrendSummary) []TrendResponse {
	out := make([]TrendResponse, len(trends))
	for i, t := range trends {
		out[i] = TrendResponse{
			PeriodDays: t.PeriodDays,
			Return:     t.Return,
			Volatility: t.Volatility,
			Direction:  t.Direction,
			Strength:   t.Strength,
			SMASignal:  t.SMASignal,
		}
	}
	return out
}

func insightToResponse(in *domain.Insight) *InsightResponse {
	supporting := make([]SupportingChunkResponse, len(in.Supporting))
	for i, s := range in.Supporting {
		supporting[i] = SupportingChunkResponse{
			ChunkID:   s.ChunkID,
			Source:    string(s.Source),
			Score:     s.Score,
			Sentiment: s.Sentiment,
			WindowEnd: s.WindowEnd.Format(timestampFormat),
			Excerpt:   s.Excerpt,
		}
	}

	return &InsightResponse{
		Symbol:      in.Symbol,
		Query:       in.Query,
		GeneratedAt: in.GeneratedAt.Format(timestampFormat),
		Risk:        riskToResponse(in.Risk),
		Trends:      trendsToResponse(in.Trends),
		Supporting:  supporting,
		Recommendation: RecommendationResponse{
			Action:      string(in.Recommendation.Action),
			Confidence:  string(in.Recommendation.Confidence),
			Rationale:   in.Recommendation.Rationale,
			RiskFactors: in.Recommendation.RiskFactors,
		},
	}
}

func (h *InsightHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req InsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.Symbol == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "symbol is required")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "query is required")
		return
	}

	sourceTypes := make([]domain.SourceType, 0, len(req.Options.SourceTypes))
	for _, raw := range req.Options.SourceTypes {
		st, err := domain.ParseSourceType(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, err.Error())
			return
		}
		sourceTypes = append(sourceTypes, st)
	}

	insight, err := h.svc.Answer(r.Context(), service.AnswerInput{
		Symbol: req.Symbol,
		Query:  req.Query,
		Options: domain.QueryOptions{
			K:              req.Options.K,
			RiskWindowDays: req.Options.RiskWindowDays,
			RiskFreeRate:   req.Options.RiskFreeRate,
			SourceTypes:    sourceTypes,
		},
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, insightToResponse(insight))
}
