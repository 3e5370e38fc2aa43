package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/logger"
	"github.com/cloo-solutions/finsight/internal/pagination"
	"github.com/cloo-solutions/finsight/internal/risk"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

const (
	defaultSymbolPageSize = 50
	maxSymbolPageSize     = 200
)

// SymbolService serves the symbol catalog and the per-symbol risk and price
// history views backed by the series store.
type SymbolService struct {
	series     SeriesStore
	risk       *risk.Engine
	windowDays int
	benchmark  string
	log        *zap.SugaredLogger
}

// NewSymbolService creates a new SymbolService instance
func NewSymbolService(series SeriesStore, engine *risk.Engine, windowDays int, benchmark string) *SymbolService {
	if windowDays <= 0 {
		windowDays = DefaultInsightConfig().RiskWindowDays
	}
	return &SymbolService{
		series:     series,
		risk:       engine,
		windowDays: windowDays,
		benchmark:  domain.NormalizeSymbol(benchmark),
		log:        logger.Named("symbols"),
	}
}

// ListSymbolsInput represents the input for listing known symbols
type ListSymbolsInput struct {
	Cursor string
	Limit  int
}

// ListSymbolsOutput represents one page of known symbols
type ListSymbolsOutput struct {
	Items   []domain.SymbolInfo
	Cursor  string
	HasMore bool
}

// List returns one cursor page of symbols the series store knows about.
func (s *SymbolService) List(ctx context.Context, input ListSymbolsInput) (*ListSymbolsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SymbolService.List", telemetry.SpanAttributes{
		Operation: "list_symbols",
	})
	defer span.End()

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSymbolPageSize
	}
	if limit > maxSymbolPageSize {
		limit = maxSymbolPageSize
	}

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		decoded, err := pagination.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
		cursor = decoded
	}

	page, err := s.series.ListSymbols(ctx, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	return &ListSymbolsOutput{
		Items:   page.Items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	}, nil
}

// RiskInput represents the input for a standalone risk profile
type RiskInput struct {
	Symbol       string
	WindowDays   int
	RiskFreeRate *float64
}

// RiskOutput bundles the computed profile with its trend summaries
type RiskOutput struct {
	Profile domain.RiskProfile
	Trends  []domain.TrendSummary
}

// Risk computes the risk profile of a known symbol over the trailing window.
// Thin history yields invalid metrics inside the profile, not an error.
func (s *SymbolService) Risk(ctx context.Context, input RiskInput) (*RiskOutput, error) {
	symbol := domain.NormalizeSymbol(input.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol", domain.ErrMissingRequiredField)
	}

	ctx, span := telemetry.StartSpan(ctx, "SymbolService.Risk", telemetry.SpanAttributes{
		Symbol:    symbol,
		Operation: "risk",
	})
	defer span.End()

	series, err := s.knownSeries(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	windowDays := input.WindowDays
	if windowDays <= 0 {
		windowDays = s.windowDays
	}
	benchmark := loadBenchmark(ctx, s.series, series, s.benchmark, s.log)

	profile := s.risk.Compute(risk.ComputeInput{
		Series:       series,
		Benchmark:    benchmark,
		WindowDays:   windowDays,
		RiskFreeRate: input.RiskFreeRate,
	})
	return &RiskOutput{
		Profile: profile,
		Trends:  s.risk.Trends(series, nil),
	}, nil
}

// SeriesInput represents the input for reading stored price history
type SeriesInput struct {
	Symbol string
	From   time.Time
	To     time.Time
}

// Series returns the stored price history of a known symbol, optionally
// restricted to [From, To].
func (s *SymbolService) Series(ctx context.Context, input SeriesInput) (*domain.PriceSeries, error) {
	symbol := domain.NormalizeSymbol(input.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol", domain.ErrMissingRequiredField)
	}

	ctx, span := telemetry.StartSpan(ctx, "SymbolService.Series", telemetry.SpanAttributes{
		Symbol:    symbol,
		Operation: "series",
	})
	defer span.End()

	return s.knownSeries(ctx, symbol, input.From, input.To)
}

// knownSeries loads a series after checking the symbol exists at all, so an
// unknown symbol is distinguishable from an empty window.
func (s *SymbolService) knownSeries(ctx context.Context, symbol string, from, to time.Time) (*domain.PriceSeries, error) {
	known, err := s.series.HasSymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve symbol: %w", err)
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}

	series, err := s.series.GetSeries(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	return series, nil
}
