package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/logger"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// PriceSource defines the interface for pulling daily price history
type PriceSource interface {
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) (*domain.PriceSeries, error)
}

// DocumentSource defines the interface for pulling news documents from a feed
type DocumentSource interface {
	Fetch(ctx context.Context, symbol, feedURL string) ([]domain.Document, error)
}

// Ingestor is the slice of the ingest service that refresh funnels pulled
// data through
type Ingestor interface {
	Ingest(ctx context.Context, doc *domain.Document) (*IngestResult, error)
}

// RefreshConfig tunes symbol refresh.
type RefreshConfig struct {
	// LookbackDays bounds the history pulled when since is unset.
	LookbackDays int
	// Feeds maps a symbol to the news feeds polled on refresh.
	Feeds map[string][]string
}

// DefaultRefreshConfig provides sane refresh defaults.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{LookbackDays: 365}
}

// RefreshService pulls fresh market data for a symbol and funnels it through
// ingestion. Refresh runs on demand; there is no internal scheduling.
type RefreshService struct {
	prices   PriceSource
	docs     DocumentSource
	ingestor Ingestor
	cfg      RefreshConfig
	now      func() time.Time
	log      *zap.SugaredLogger
}

// NewRefreshService creates a new RefreshService instance
func NewRefreshService(prices PriceSource, docs DocumentSource, ingestor Ingestor, cfg RefreshConfig) *RefreshService {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultRefreshConfig().LookbackDays
	}
	return &RefreshService{
		prices:   prices,
		docs:     docs,
		ingestor: ingestor,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.Named("refresh"),
	}
}

// RefreshResult reports what one refresh pulled in.
type RefreshResult struct {
	Symbol      string
	Since       time.Time
	PricePoints int
	Documents   int
	Chunks      int
	// FeedErrors lists feeds or documents that failed without aborting the
	// refresh.
	FeedErrors []string
}

// Refresh pulls price history and feed documents for one symbol since the
// given time (defaulting to the configured lookback) and ingests them. A
// failing price source aborts the refresh; a failing feed is recorded and
// skipped.
func (s *RefreshService) Refresh(ctx context.Context, symbol string, since time.Time) (*RefreshResult, error) {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, fmt.Errorf("%w: symbol", domain.ErrMissingRequiredField)
	}

	ctx, span := telemetry.StartSpan(ctx, "RefreshService.Refresh", telemetry.SpanAttributes{
		Symbol:    sym,
		Operation: "refresh",
	})
	defer span.End()

	now := s.now().UTC()
	if since.IsZero() {
		since = now.AddDate(0, 0, -s.cfg.LookbackDays)
	}
	result := &RefreshResult{Symbol: sym, Since: since}

	series, err := s.prices.FetchDaily(ctx, sym, since, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price history: %w", err)
	}
	if series != nil && series.Len() > 0 {
		doc := &domain.Document{
			ID:          fmt.Sprintf("prices-%s-%s", sym, series.End().Format("2006-01-02")),
			Symbol:      sym,
			Source:      domain.SourceTypePriceSeries,
			Title:       fmt.Sprintf("%s daily prices through %s", sym, series.End().Format("2006-01-02")),
			Points:      series.Points,
			PublishedAt: now,
		}
		ingested, err := s.ingestor.Ingest(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("failed to ingest price history: %w", err)
		}
		result.PricePoints = series.Len()
		result.Documents++
		result.Chunks += len(ingested.ChunkIDs)
	}

	if s.docs != nil {
		s.refreshFeeds(ctx, sym, since, result)
	}

	s.log.Infow("symbol refreshed",
		"symbol", sym,
		"since", since,
		"price_points", result.PricePoints,
		"documents", result.Documents,
		"chunks", result.Chunks,
		"feed_errors", len(result.FeedErrors))
	return result, nil
}

// refreshFeeds pulls and ingests the configured feeds for the symbol,
// skipping documents published before since.
func (s *RefreshService) refreshFeeds(ctx context.Context, symbol string, since time.Time, result *RefreshResult) {
	for _, feedURL := range s.cfg.Feeds[symbol] {
		fetched, err := s.docs.Fetch(ctx, symbol, feedURL)
		if err != nil {
			s.log.Warnw("feed fetch failed", "symbol", symbol, "feed", feedURL, "error", err)
			result.FeedErrors = append(result.FeedErrors, fmt.Sprintf("%s: %v", feedURL, err))
			continue
		}

		for i := range fetched {
			doc := fetched[i]
			if doc.PublishedAt.Before(since) {
				continue
			}
			ingested, err := s.ingestor.Ingest(ctx, &doc)
			if err != nil {
				s.log.Warnw("feed document ingest failed",
					"symbol", symbol, "document_id", doc.ID, "error", err)
				result.FeedErrors = append(result.FeedErrors, fmt.Sprintf("%s: %v", doc.ID, err))
				continue
			}
			result.Documents++
			result.Chunks += len(ingested.ChunkIDs)
		}
	}
}
