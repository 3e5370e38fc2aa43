package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/finsight/internal/api"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/go-chi/chi/v5"
)

type SymbolService interface {
	List(ctx context.Context, input service.ListSymbolsInput) (*service.ListSymbolsOutput, error)
	Risk(ctx context.Context, input service.RiskInput) (*service.RiskOutput, error)
	Series(ctx context.Context, input service.SeriesInput) (*domain.PriceSeries, error)
}

type RefreshService interface {
	Refresh(ctx context.Context, symbol string, since time.Time) (*service.RefreshResult, error)
}

type SymbolHandler struct {
	svc     SymbolService
	refresh RefreshService
}

func NewSymbolHandler(svc SymbolService, refresh RefreshService) *SymbolHandler {
	return &SymbolHandler{svc: svc, refresh: refresh}
}

type SymbolInfoResponse struct {
	Symbol   string `json:"symbol"`
	Bars     int    `json:"bars"`
	FirstDay string `json:"first_day"`
	LastDay  string `json:"last_day"`
}

type SymbolListResponse struct {
	Items   []SymbolInfoResponse `json:"items"`
	Cursor  string               `json:"cursor,omitempty"`
	HasMore bool                 `json:"has_more"`
}

func (h *SymbolHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "limit must be an integer")
			return
		}
		limit = parsed
	}

	output, err := h.svc.List(r.Context(), service.ListSymbolsInput{
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]SymbolInfoResponse, len(output.Items))
	for i, info := range output.Items {
		items[i] = SymbolInfoResponse{
			Symbol:   info.Symbol,
			Bars:     info.Bars,
			FirstDay: info.FirstDay.Format(dayFormat),
			LastDay:  info.LastDay.Format(dayFormat),
		}
	}

	api.Success(w, http.StatusOK, SymbolListResponse{
		Items:   items,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

type RiskResponse struct {
	Profile RiskProfileResponse `json:"profile"`
	Trends  []TrendResponse     `json:"trends"`
}

func (h *SymbolHandler) Risk(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "symbol is required")
		return
	}

	input := service.RiskInput{Symbol: symbol}
	if windowStr := r.URL.Query().Get("window_days"); windowStr != "" {
		parsed, err := strconv.Atoi(windowStr)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "window_days must be a non-negative integer")
			return
		}
		input.WindowDays = parsed
	}
	if rateStr := r.URL.Query().Get("risk_free_rate"); rateStr != "" {
		parsed, err := strconv.ParseFloat(rateStr, 64)
		if err != nil {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "risk_free_rate must be a number")
			return
		}
		input.RiskFreeRate = &parsed
	}

	output, err := h.svc.Risk(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RiskResponse{
		Profile: riskToResponse(output.Profile),
		Trends:  trendsToResponse(output.Trends),
	})
}

type PricePointResponse struct {
	Day    string  `json:"day"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type SeriesResponse struct {
	Symbol string               `json:"symbol"`
	Points []PricePointResponse `json:"points"`
}

func (h *SymbolHandler) Series(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "symbol is required")
		return
	}

	var from, to time.Time
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		parsed, err := time.Parse(dayFormat, fromStr)
		if err != nil {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "from must be formatted as YYYY-MM-DD")
			return
		}
		from = parsed.UTC()
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		parsed, err := time.Parse(dayFormat, toStr)
		if err != nil {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "to must be formatted as YYYY-MM-DD")
			return
		}
		to = parsed.UTC()
	}

	series, err := h.svc.Series(r.Context(), service.SeriesInput{
		Symbol: symbol,
		From:   from,
		To:     to,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	points := make([]PricePointResponse, len(series.Points))
	for i, p := range series.Points {
		points[i] = PricePointResponse{
			Day:    p.Day.Format(dayFormat),
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Close:  p.Close,
			Volume: p.Volume,
		}
	}

	api.Success(w, http.StatusOK, SeriesResponse{
		Symbol: series.Symbol,
		Points: points,
	})
}

type RefreshRequest struct {
	Since string `json:"since"`
}

type RefreshResponse struct {
	Symbol      string   `json:"symbol"`
	Since       string   `json:"since"`
	PricePoints int      `json:"price_points"`
	Documents   int      `json:"documents"`
	Chunks      int      `json:"chunks"`
	FeedErrors  []string `json:"feed_errors,omitempty"`
}

func (h *SymbolHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "symbol is required")
		return
	}
	if h.refresh == nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeInvalidOperation, "refresh is not configured")
		return
	}

	var since time.Time
	body, err := io.ReadAll(r.Body)
	if err == nil && len(body) > 0 {
		var req RefreshRequest
		if err := json.Unmarshal(body, &req); err != nil {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
			return
		}
		if req.Since != "" {
			parsed, err := time.Parse(dayFormat, req.Since)
			if err != nil {
				api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "since must be formatted as YYYY-MM-DD")
				return
			}
			since = parsed.UTC()
		}
	}

	result, err := h.refresh.Refresh(r.Context(), symbol, since)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RefreshResponse{
		Symbol:      result.Symbol,
		Since:       result.Since.Format(dayFormat),
		PricePoints: result.PricePoints,
		Documents:   result.Documents,
		Chunks:      result.Chunks,
		FeedErrors:  result.FeedErrors,
	})
}
