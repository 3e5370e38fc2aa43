package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/index"
	"github.com/cloo-solutions/finsight/internal/logger"
	"github.com/cloo-solutions/finsight/internal/pagination"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// DocumentChunker defines the interface for splitting documents into chunks
type DocumentChunker interface {
	Chunk(doc *domain.Document) ([]domain.Chunk, error)
}

// SentimentAnnotator defines the interface for scoring chunk sentiment
type SentimentAnnotator interface {
	Annotate(ctx context.Context, texts []string) ([]float64, error)
}

// EmbeddingClient defines the interface for turning text into vectors
type EmbeddingClient interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

// VectorIndex defines the index interface shared by the memory and Postgres
// backends
type VectorIndex interface {
	Upsert(ctx context.Context, entries []index.Entry) error
	Search(ctx context.Context, vector []float32, k int, f index.Filter) ([]index.Hit, error)
	Stats(ctx context.Context) (index.Stats, error)
}

// SeriesStore defines the interface for daily price history persistence
type SeriesStore interface {
	UpsertPoints(ctx context.Context, symbol string, points []domain.PricePoint) (int, error)
	GetSeries(ctx context.Context, symbol string, from, to time.Time) (*domain.PriceSeries, error)
	HasSymbol(ctx context.Context, symbol string) (bool, error)
	ListSymbols(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[domain.SymbolInfo], error)
}

// DocumentArchiver defines the interface for cold storage of raw documents
type DocumentArchiver interface {
	ArchiveDocument(ctx context.Context, doc *domain.Document) (string, error)
}

// IngestConfig tunes the ingestion fan-out.
type IngestConfig struct {
	// EmbedWorkers bounds the number of concurrent embedding calls.
	EmbedWorkers int
	// EmbedTimeout caps each embedding call.
	EmbedTimeout time.Duration
	// EmbedBatchSize is the number of chunk texts sent per embedding call.
	EmbedBatchSize int
}

// DefaultIngestConfig provides sane ingestion defaults.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		EmbedWorkers:   4,
		EmbedTimeout:   30 * time.Second,
		EmbedBatchSize: 16,
	}
}

// IngestService turns documents into embedded, searchable index entries.
// Price documents additionally land in the series store so risk windows
// see them.
type IngestService struct {
	chunker   DocumentChunker
	annotator SentimentAnnotator
	embedder  EmbeddingClient
	index     VectorIndex
	series    SeriesStore
	archive   DocumentArchiver
	cfg       IngestConfig
	log       *zap.SugaredLogger
}

// NewIngestService creates a new IngestService instance
func NewIngestService(
	chunker DocumentChunker,
	annotator SentimentAnnotator,
	embedder EmbeddingClient,
	idx VectorIndex,
	series SeriesStore,
	cfg IngestConfig,
) *IngestService {
	def := DefaultIngestConfig()
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = def.EmbedWorkers
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = def.EmbedTimeout
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = def.EmbedBatchSize
	}
	return &IngestService{
		chunker:   chunker,
		annotator: annotator,
		embedder:  embedder,
		index:     idx,
		series:    series,
		cfg:       cfg,
		log:       logger.Named("ingest"),
	}
}

// NewIngestServiceWithArchive creates an IngestService that also writes raw
// documents to cold storage
func NewIngestServiceWithArchive(
	chunker DocumentChunker,
	annotator SentimentAnnotator,
	embedder EmbeddingClient,
	idx VectorIndex,
	series SeriesStore,
	archive DocumentArchiver,
	cfg IngestConfig,
) *IngestService {
	s := NewIngestService(chunker, annotator, embedder, idx, series, cfg)
	s.archive = archive
	return s
}

// IngestResult reports what one document ingestion produced.
type IngestResult struct {
	DocumentID  string
	Symbol      string
	ChunkIDs    []string
	PricePoints int
	ArchiveKey  string
}

// Ingest validates, chunks, annotates, embeds and indexes one document.
// Chunk IDs are deterministic, so ingesting the same document again
// supersedes its previous entries instead of duplicating them.
func (s *IngestService) Ingest(ctx context.Context, doc *domain.Document) (*IngestResult, error) {
	if doc == nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document cannot be nil")
	}

	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		Symbol:     domain.NormalizeSymbol(doc.Symbol),
		DocumentID: doc.ID,
		Operation:  "ingest",
	})
	defer span.End()

	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		return nil, err
	}

	if err := s.annotate(ctx, doc, chunks); err != nil {
		return nil, err
	}
	if err := s.embed(ctx, chunks); err != nil {
		return nil, err
	}

	result := &IngestResult{
		DocumentID: doc.ID,
		Symbol:     domain.NormalizeSymbol(doc.Symbol),
	}

	if len(chunks) > 0 {
		entries := make([]index.Entry, len(chunks))
		ids := make([]string, len(chunks))
		for i, c := range chunks {
			entries[i] = index.EntryFromChunk(c)
			ids[i] = c.ID
		}
		if err := s.index.Upsert(ctx, entries); err != nil {
			return nil, fmt.Errorf("failed to index chunks: %w", err)
		}
		result.ChunkIDs = ids
	}

	if doc.Source == domain.SourceTypePriceSeries && len(doc.Points) > 0 {
		written, err := s.series.UpsertPoints(ctx, doc.Symbol, doc.Points)
		if err != nil {
			return nil, fmt.Errorf("failed to store price history: %w", err)
		}
		result.PricePoints = written
	}

	if s.archive != nil {
		key, err := s.archive.ArchiveDocument(ctx, doc)
		if err != nil {
			// Archival is best effort: the searchable state is already written.
			s.log.Warnw("failed to archive document",
				"document_id", doc.ID, "symbol", result.Symbol, "error", err)
			telemetry.CaptureError(ctx, err)
		} else {
			result.ArchiveKey = key
		}
	}

	s.log.Infow("document ingested",
		"document_id", doc.ID,
		"symbol", result.Symbol,
		"source", doc.Source,
		"chunks", len(result.ChunkIDs),
		"price_points", result.PricePoints)
	return result, nil
}

// IngestBatch ingests documents in order, stopping at the first failure.
// Results for documents ingested before the failure are returned alongside
// the error; resubmitting the whole batch is safe.
func (s *IngestService) IngestBatch(ctx context.Context, docs []*domain.Document) ([]*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestBatch", telemetry.SpanAttributes{
		Operation: "ingest_batch",
	})
	defer span.End()

	results := make([]*IngestResult, 0, len(docs))
	for i, doc := range docs {
		result, err := s.Ingest(ctx, doc)
		if err != nil {
			return results, fmt.Errorf("document %d: %w", i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// IndexStats reports the current contents of the vector index.
func (s *IngestService) IndexStats(ctx context.Context) (index.Stats, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IndexStats", telemetry.SpanAttributes{
		Operation: "index_stats",
	})
	defer span.End()

	stats, err := s.index.Stats(ctx)
	if err != nil {
		return index.Stats{}, fmt.Errorf("failed to read index stats: %w", err)
	}
	return stats, nil
}

// annotate scores sentiment for textual chunks. Price summaries keep a
// neutral sentiment; their signal lives in the numbers.
func (s *IngestService) annotate(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if !doc.Source.IsTextual() || len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	scores, err := s.annotator.Annotate(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to annotate sentiment: %w", err)
	}
	if len(scores) != len(chunks) {
		return fmt.Errorf("annotator returned %d scores for %d chunks", len(scores), len(chunks))
	}
	for i := range chunks {
		chunks[i].Sentiment = scores[i]
	}
	return nil
}

// embed fills in chunk embeddings, fanning batches out across a bounded pool
// of workers. Chunk order is preserved.
func (s *IngestService) embed(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return err
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

type embedJob struct {
	start int
	texts []string
}

func (s *IngestService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	jobs := make(chan embedJob)
	vectors := make([][]float32, len(texts))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := 0; i < s.cfg.EmbedWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				vecs, err := s.embedBatch(ctx, job.texts)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				for j, v := range vecs {
					vectors[job.start+j] = v
				}
			}
		}()
	}

	for start := 0; start < len(texts); start += s.cfg.EmbedBatchSize {
		end := min(start+s.cfg.EmbedBatchSize, len(texts))
		jobs <- embedJob{start: start, texts: texts[start:end]}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

func (s *IngestService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
	defer cancel()

	vecs, err := s.embedder.Embed(embedCtx, texts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: embedding call exceeded %s", domain.ErrTimeout, s.cfg.EmbedTimeout)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts",
			domain.ErrEmbedding, len(vecs), len(texts))
	}
	return vecs, nil
}
