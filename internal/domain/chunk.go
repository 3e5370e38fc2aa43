package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// chunkNamespace seeds deterministic chunk IDs so that re-ingesting the same
// document produces the same IDs and supersedes prior index entries.
var chunkNamespace = uuid.MustParse("b6a9454f-3f7c-4f5e-9d1b-6f2a5d8c0e41")

// Chunk represents a retrievable unit derived from one document
type Chunk struct {
	ID          string
	DocumentID  string
	Symbol      string
	Source      SourceType
	Ordinal     int
	WindowStart time.Time
	WindowEnd   time.Time
	Text        string
	Sentiment   float64
	Embedding   []float32
	CreatedAt   time.Time
}

// NewChunkID derives the deterministic ID of the ordinal-th chunk of a document
func NewChunkID(documentID string, ordinal int) string {
	return uuid.NewSHA1(chunkNamespace, fmt.Appendf(nil, "%s:%d", documentID, ordinal)).String()
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if NormalizeSymbol(c.Symbol) == "" {
		return fmt.Errorf("chunk Symbol is required")
	}

	if !isValidSourceType(c.Source) {
		return fmt.Errorf("chunk Source is invalid: %s", c.Source)
	}

	if c.Ordinal < 0 {
		return fmt.Errorf("chunk Ordinal cannot be negative")
	}

	if c.Text == "" {
		return fmt.Errorf("chunk Text is required")
	}

	if c.WindowEnd.Before(c.WindowStart) {
		return fmt.Errorf("chunk window end precedes its start")
	}

	if c.Sentiment < -1 || c.Sentiment > 1 {
		return fmt.Errorf("chunk Sentiment is outside [-1, 1]")
	}

	return nil
}
