package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is a brute-force in-memory vector index. Entries are keyed by chunk
// ID, so re-upserting a chunk replaces its previous entry. Safe for
// concurrent use.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	dimension int
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// Upsert inserts or replaces entries by chunk ID. The first admitted entry
// pins the index dimension; later entries must match it. Vectors are copied,
// callers may reuse their slices.
func (m *Memory) Upsert(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range entries {
		if err := ValidateEntry(&entries[i]); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if m.dimension == 0 {
			m.dimension = len(e.Vector)
		} else if len(e.Vector) != m.dimension {
			return fmt.Errorf("entry %s: vector dimension %d does not match index dimension %d",
				e.ChunkID, len(e.Vector), m.dimension)
		}
		e.Vector = append([]float32(nil), e.Vector...)
		m.entries[e.ChunkID] = e
	}
	return nil
}

// Search returns up to k entries matching the filter, ranked by cosine
// similarity to the query vector. Equal scores rank newer windows first;
// remaining ties break on chunk ID so results are stable. An empty result is
// not an error.
func (m *Memory) Search(ctx context.Context, vector []float32, k int, f Filter) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}

	m.mu.RLock()
	hits := make([]Hit, 0, len(m.entries))
	for _, e := range m.entries {
		if !f.Matches(&e) {
			continue
		}
		hits = append(hits, Hit{Entry: e, Score: Cosine(vector, e.Vector)})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].Entry.WindowEnd.Equal(hits[j].Entry.WindowEnd) {
			return hits[i].Entry.WindowEnd.After(hits[j].Entry.WindowEnd)
		}
		return hits[i].Entry.ChunkID < hits[j].Entry.ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Get returns the entry for a chunk ID, if present.
func (m *Memory) Get(ctx context.Context, chunkID string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[chunkID]
	return e, ok, nil
}

// DeleteDocument removes every entry belonging to a document and returns the
// number removed.
func (m *Memory) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if e.DocumentID == documentID {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

// DeleteBefore removes entries whose window end falls before the cutoff and
// returns the number removed.
func (m *Memory) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if e.WindowEnd.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Stats reports entry and distinct-symbol counts plus the pinned dimension.
func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	symbols := make(map[string]struct{})
	for _, e := range m.entries {
		symbols[e.Symbol] = struct{}{}
	}
	return Stats{Entries: len(m.entries), Symbols: len(symbols), Dimension: m.dimension}, nil
}
