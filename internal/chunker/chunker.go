package chunker

import (
	"go.uber.org/zap"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/logger"
)

// Config controls document chunking.
type Config struct {
	// WindowDays are the trailing calendar windows price documents are
	// summarized over.
	WindowDays []int
	// MaxChars, MinChars and Overlap drive the textual splitter.
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultConfig provides sane defaults for chunking.
func DefaultConfig() Config {
	return Config{
		WindowDays: []int{7, 30, 90, 365},
		MaxChars:   1200,
		MinChars:   400,
		Overlap:    200,
		MaxChunks:  40,
	}
}

// Chunker turns documents into retrievable chunks. Price documents become
// deterministic trailing-window summaries, textual documents paragraph
// chunks. Chunking is pure: the same document always yields the same chunks
// with the same IDs.
type Chunker struct {
	cfg Config
	log *zap.SugaredLogger
}

// New creates a Chunker, falling back to DefaultConfig when cfg is unset.
func New(cfg Config) *Chunker {
	if cfg.MaxChars <= 0 {
		def := DefaultConfig()
		def.WindowDays = cfg.WindowDays
		cfg = def
	}
	if len(cfg.WindowDays) == 0 {
		cfg.WindowDays = DefaultConfig().WindowDays
	}
	return &Chunker{cfg: cfg, log: logger.Named("chunker")}
}

// Chunk splits one document. A document with nothing to chunk (empty body,
// no price points) yields zero chunks and a log line, not an error.
func (c *Chunker) Chunk(doc *domain.Document) ([]domain.Chunk, error) {
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	var (
		chunks []domain.Chunk
		err    error
	)
	if doc.Source == domain.SourceTypePriceSeries {
		chunks, err = c.chunkPrices(doc)
	} else {
		chunks = c.chunkBody(doc)
	}
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		c.log.Debugw("document produced no chunks",
			"document_id", doc.ID, "symbol", doc.Symbol, "source", doc.Source)
	}
	return chunks, nil
}
