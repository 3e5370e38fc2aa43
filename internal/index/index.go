// Package index defines the vector index model shared by the in-memory and
// Postgres implementations: entries keyed by chunk ID, cosine-ranked search
// hits and metadata filters.
package index

import (
	"fmt"
	"math"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// Entry is one indexed chunk with its embedding vector.
type Entry struct {
	ChunkID     string
	DocumentID  string
	Symbol      string
	Source      domain.SourceType
	Ordinal     int
	WindowStart time.Time
	WindowEnd   time.Time
	Text        string
	Sentiment   float64
	Vector      []float32
}

// EntryFromChunk builds an index entry from an embedded chunk.
func EntryFromChunk(c domain.Chunk) Entry {
	return Entry{
		ChunkID:     c.ID,
		DocumentID:  c.DocumentID,
		Symbol:      c.Symbol,
		Source:      c.Source,
		Ordinal:     c.Ordinal,
		WindowStart: c.WindowStart,
		WindowEnd:   c.WindowEnd,
		Text:        c.Text,
		Sentiment:   c.Sentiment,
		Vector:      c.Embedding,
	}
}

// ValidateEntry checks an entry before it is admitted to an index.
func ValidateEntry(e *Entry) error {
	if e.ChunkID == "" {
		return fmt.Errorf("entry chunk ID is required")
	}
	if e.Symbol == "" {
		return fmt.Errorf("entry symbol is required")
	}
	if len(e.Vector) == 0 {
		return fmt.Errorf("entry vector is required")
	}
	if e.WindowEnd.Before(e.WindowStart) {
		return fmt.Errorf("entry window end precedes window start")
	}
	return nil
}

// Filter restricts a search to matching entries. Zero values leave the
// corresponding dimension unrestricted; From/To bound the entry window by
// overlap, inclusive.
type Filter struct {
	Symbol  string
	Sources []domain.SourceType
	From    time.Time
	To      time.Time
}

// Matches reports whether the entry passes the filter.
func (f Filter) Matches(e *Entry) bool {
	if f.Symbol != "" && e.Symbol != domain.NormalizeSymbol(f.Symbol) {
		return false
	}
	if len(f.Sources) > 0 {
		ok := false
		for _, s := range f.Sources {
			if e.Source == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.From.IsZero() && e.WindowEnd.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.WindowStart.After(f.To) {
		return false
	}
	return true
}

// Hit is one search result with its cosine similarity score.
type Hit struct {
	Entry Entry
	Score float64
}

// Stats describes the current index contents.
type Stats struct {
	Entries   int `json:"entries"`
	Symbols   int `json:"symbols"`
	Dimension int `json:"dimension"`
}

// Cosine computes the cosine similarity of two vectors, accumulating in
// float64. Mismatched lengths compare over the shorter prefix; a zero-norm
// vector scores 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
