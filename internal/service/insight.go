package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/index"
	"github.com/cloo-solutions/finsight/internal/logger"
	"github.com/cloo-solutions/finsight/internal/risk"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// InsightConfig tunes the answer pipeline.
type InsightConfig struct {
	// DefaultK is the number of chunks retrieved when a query does not set k.
	DefaultK int
	// RiskWindowDays is the default trailing risk window.
	RiskWindowDays int
	// BenchmarkSymbol is the market proxy used for beta. Empty disables beta.
	BenchmarkSymbol string
	// EmbedTimeout and SearchTimeout cap the embedding and index calls.
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
}

// DefaultInsightConfig provides sane pipeline defaults.
func DefaultInsightConfig() InsightConfig {
	return InsightConfig{
		DefaultK:        10,
		RiskWindowDays:  365,
		BenchmarkSymbol: "SPY",
		EmbedTimeout:    30 * time.Second,
		SearchTimeout:   10 * time.Second,
	}
}

// InsightService answers symbol questions by retrieving indexed evidence and
// fusing it with risk metrics computed from stored price history.
type InsightService struct {
	embedder  EmbeddingClient
	index     VectorIndex
	series    SeriesStore
	risk      *risk.Engine
	synthesis *config.SynthesisConfig
	cfg       InsightConfig
	uuidGen   UUIDGenerator
	now       func() time.Time
	log       *zap.SugaredLogger
}

// NewInsightService creates a new InsightService instance
func NewInsightService(
	embedder EmbeddingClient,
	idx VectorIndex,
	series SeriesStore,
	engine *risk.Engine,
	synthesis *config.SynthesisConfig,
	cfg InsightConfig,
) *InsightService {
	if synthesis == nil {
		synthesis = config.DefaultSynthesisConfig()
	}
	def := DefaultInsightConfig()
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = def.DefaultK
	}
	if cfg.RiskWindowDays <= 0 {
		cfg.RiskWindowDays = def.RiskWindowDays
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = def.EmbedTimeout
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = def.SearchTimeout
	}
	return &InsightService{
		embedder:  embedder,
		index:     idx,
		series:    series,
		risk:      engine,
		synthesis: synthesis,
		cfg:       cfg,
		uuidGen:   &DefaultUUIDGenerator{},
		now:       time.Now,
		log:       logger.Named("insight"),
	}
}

// NewInsightServiceWithUUIDGen creates a new InsightService with custom UUID
// generator (for testing)
func NewInsightServiceWithUUIDGen(
	embedder EmbeddingClient,
	idx VectorIndex,
	series SeriesStore,
	engine *risk.Engine,
	synthesis *config.SynthesisConfig,
	cfg InsightConfig,
	uuidGen UUIDGenerator,
) *InsightService {
	s := NewInsightService(embedder, idx, series, engine, synthesis, cfg)
	s.uuidGen = uuidGen
	return s
}

// AnswerInput represents one insight query
type AnswerInput struct {
	Symbol  string
	Query   string
	Options domain.QueryOptions
}

// Answer runs the retrieval-synthesis pipeline for one query. An insight is
// complete or absent: a failure in any stage aborts the query, and the log
// line carries the stage it failed in. Panics anywhere in the pipeline are
// recovered and surfaced as a synthesis error.
func (s *InsightService) Answer(ctx context.Context, input AnswerInput) (insight *domain.Insight, err error) {
	symbol := domain.NormalizeSymbol(input.Symbol)
	queryID := s.uuidGen.NewString()

	ctx, span := telemetry.StartSpan(ctx, "InsightService.Answer", telemetry.SpanAttributes{
		Symbol:    symbol,
		QueryID:   queryID,
		Operation: "answer",
	})
	defer span.End()

	state := domain.StateReceived
	defer func() {
		if r := recover(); r != nil {
			telemetry.CaptureError(ctx, fmt.Errorf("answer panic in state %s: %v", state, r))
			insight = nil
			err = fmt.Errorf("%w: recovered panic in state %s", domain.ErrSynthesis, state)
		}
		if err != nil {
			span.SetError(err)
			s.log.Errorw("answer failed",
				"query_id", queryID, "symbol", symbol, "state", state, "error", err)
		}
	}()

	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol", domain.ErrMissingRequiredField)
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if verr := domain.ValidateQueryOptions(input.Options); verr != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid query options", verr)
	}

	known, err := s.series.HasSymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve symbol: %w", err)
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}

	vector, err := s.embedQuery(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	state = domain.StateEmbedded

	hits, err := s.search(ctx, vector, symbol, input.Options)
	if err != nil {
		return nil, err
	}
	state = domain.StateRetrieved

	now := s.now().UTC()
	supporting := s.rerank(hits, now)

	profile, trends, err := s.assessRisk(ctx, symbol, input.Options)
	if err != nil {
		return nil, err
	}
	state = domain.StateRiskComputed

	recommendation := s.synthesize(profile, trends, supporting)
	state = domain.StateSynthesized

	insight = &domain.Insight{
		Symbol:         symbol,
		Query:          input.Query,
		GeneratedAt:    now,
		Risk:           profile,
		Trends:         trends,
		Supporting:     supporting,
		Recommendation: recommendation,
	}
	state = domain.StateDone

	s.log.Infow("insight generated",
		"query_id", queryID,
		"symbol", symbol,
		"chunks", len(supporting),
		"action", recommendation.Action,
		"confidence", recommendation.Confidence)
	return insight, nil
}

// embedQuery embeds the query text under the configured deadline.
func (s *InsightService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
	defer cancel()

	vectors, err := s.embedder.Embed(embedCtx, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: query embedding exceeded %s", domain.ErrTimeout, s.cfg.EmbedTimeout)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one query",
			domain.ErrEmbedding, len(vectors))
	}
	return vectors[0], nil
}

// search retrieves the top k chunks for the query vector, restricted to the
// symbol and any requested source types. An empty result is not an error.
func (s *InsightService) search(ctx context.Context, vector []float32, symbol string, opts domain.QueryOptions) ([]index.Hit, error) {
	k := opts.K
	if k <= 0 {
		k = s.cfg.DefaultK
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
	defer cancel()

	hits, err := s.index.Search(searchCtx, vector, k, index.Filter{
		Symbol:  symbol,
		Sources: opts.SourceTypes,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: index search exceeded %s", domain.ErrTimeout, s.cfg.SearchTimeout)
		}
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	return hits, nil
}

// rerank orders hits by similarity plus a recency boost that decays linearly
// to zero over the configured window. The sort is stable; remaining ties
// break toward the more recent window end.
func (s *InsightService) rerank(hits []index.Hit, now time.Time) []domain.SupportingChunk {
	boostWindow := time.Duration(s.synthesis.RecencyBoostDays) * 24 * time.Hour

	out := make([]domain.SupportingChunk, len(hits))
	for i, h := range hits {
		out[i] = domain.SupportingChunk{
			ChunkID:   h.Entry.ChunkID,
			Source:    h.Entry.Source,
			Score:     h.Score + recencyBoost(now.Sub(h.Entry.WindowEnd), boostWindow, s.synthesis.RecencyBoostMax),
			Sentiment: h.Entry.Sentiment,
			WindowEnd: h.Entry.WindowEnd,
			Excerpt:   excerpt(h.Entry.Text),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].WindowEnd.After(out[j].WindowEnd)
	})
	return out
}

// recencyBoost is the additive score boost for an entry of the given age.
// Future-dated entries get the full boost.
func recencyBoost(age, window time.Duration, max float64) float64 {
	if window <= 0 || max <= 0 {
		return 0
	}
	if age <= 0 {
		return max
	}
	if age >= window {
		return 0
	}
	return max * (1 - float64(age)/float64(window))
}

const excerptRunes = 240

// excerpt clips chunk text for citation in the insight payload.
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return text
	}
	return string(runes[:excerptRunes]) + "..."
}

// assessRisk computes the risk profile and trend summaries over stored
// history. Thin history yields invalid metrics, not an error.
func (s *InsightService) assessRisk(ctx context.Context, symbol string, opts domain.QueryOptions) (domain.RiskProfile, []domain.TrendSummary, error) {
	series, err := s.series.GetSeries(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return domain.RiskProfile{}, nil, fmt.Errorf("failed to load price history: %w", err)
	}

	windowDays := opts.RiskWindowDays
	if windowDays <= 0 {
		windowDays = s.cfg.RiskWindowDays
	}
	benchmark := loadBenchmark(ctx, s.series, series, s.cfg.BenchmarkSymbol, s.log)

	profile := s.risk.Compute(risk.ComputeInput{
		Series:       series,
		Benchmark:    benchmark,
		WindowDays:   windowDays,
		RiskFreeRate: opts.RiskFreeRate,
	})
	trends := s.risk.Trends(series, nil)
	return profile, trends, nil
}

// loadBenchmark pulls the benchmark series for beta. A missing or failing
// benchmark degrades beta to insufficient data rather than failing the query.
func loadBenchmark(ctx context.Context, store SeriesStore, series *domain.PriceSeries, benchmark string, log *zap.SugaredLogger) *domain.PriceSeries {
	bench := domain.NormalizeSymbol(benchmark)
	if bench == "" {
		return nil
	}
	if series != nil && series.Symbol == bench {
		return series
	}

	loaded, err := store.GetSeries(ctx, bench, time.Time{}, time.Time{})
	if err != nil {
		log.Warnw("failed to load benchmark series", "benchmark", bench, "error", err)
		return nil
	}
	return loaded
}
