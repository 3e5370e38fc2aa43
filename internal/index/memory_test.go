package index

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var indexEpoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func entry(id, symbol string, source domain.SourceType, endOffsetDays int, vec []float32) Entry {
	end := indexEpoch.AddDate(0, 0, endOffsetDays)
	return Entry{
		ChunkID:     id,
		DocumentID:  "doc-" + id,
		Symbol:      symbol,
		Source:      source,
		WindowStart: end.AddDate(0, 0, -1),
		WindowEnd:   end,
		Text:        "text " + id,
		Vector:      vec,
	}
}

func TestMemoryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	entries := []Entry{
		entry("c1", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0}),
		entry("c2", "AAPL", domain.SourceTypeNews, 1, []float32{0, 1}),
	}
	require.NoError(t, m.Upsert(ctx, entries))
	require.NoError(t, m.Upsert(ctx, entries))

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)

	hits, err := m.Search(ctx, []float32{1, 1}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.NotEqual(t, hits[0].Entry.ChunkID, hits[1].Entry.ChunkID)
}

func TestMemoryUpsertReplacesByChunkID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	e := entry("c1", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0})
	require.NoError(t, m.Upsert(ctx, []Entry{e}))

	e.Text = "revised"
	e.Vector = []float32{0, 1}
	require.NoError(t, m.Upsert(ctx, []Entry{e}))

	got, ok, err := m.Get(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "revised", got.Text)
	assert.Equal(t, []float32{0, 1}, got.Vector)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestMemoryUpsertCopiesVectors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	vec := []float32{1, 0}
	require.NoError(t, m.Upsert(ctx, []Entry{entry("c1", "AAPL", domain.SourceTypeNews, 0, vec)}))
	vec[0] = -1

	got, ok, err := m.Get(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float32(1), got.Vector[0])
}

func TestMemoryUpsertRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Upsert(ctx, []Entry{entry("c1", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0})}))
	err := m.Upsert(ctx, []Entry{entry("c2", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0, 0})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestMemoryUpsertValidatesEntries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	missing := entry("", "AAPL", domain.SourceTypeNews, 0, []float32{1})
	assert.Error(t, m.Upsert(ctx, []Entry{missing}))

	noVec := entry("c1", "AAPL", domain.SourceTypeNews, 0, nil)
	assert.Error(t, m.Upsert(ctx, []Entry{noVec}))
}

func TestMemorySearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("far", "AAPL", domain.SourceTypeNews, 0, []float32{0, 1}),
		entry("near", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0.1}),
		entry("exact", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0}),
	}))

	hits, err := m.Search(ctx, []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "exact", hits[0].Entry.ChunkID)
	assert.Equal(t, "near", hits[1].Entry.ChunkID)
	assert.Equal(t, "far", hits[2].Entry.ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Greater(t, hits[1].Score, hits[2].Score)
}

func TestMemorySearchBreaksTiesByRecency(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// Identical vectors score identically; the newer window must surface first.
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("old", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0}),
		entry("new", "AAPL", domain.SourceTypeNews, 30, []float32{1, 0}),
		entry("mid", "AAPL", domain.SourceTypeNews, 15, []float32{1, 0}),
	}))

	hits, err := m.Search(ctx, []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "new", hits[0].Entry.ChunkID)
	assert.Equal(t, "mid", hits[1].Entry.ChunkID)
	assert.Equal(t, "old", hits[2].Entry.ChunkID)
}

func TestMemorySearchCapsAtK(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < 20; i++ {
		e := entry(fmt.Sprintf("c%02d", i), "AAPL", domain.SourceTypeNews, i, []float32{1, 0})
		require.NoError(t, m.Upsert(ctx, []Entry{e}))
	}

	hits, err := m.Search(ctx, []float32{1, 0}, 5, Filter{})
	require.NoError(t, err)
	assert.Len(t, hits, 5)
}

func TestMemorySearchEmptyResultIsNotAnError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	hits, err := m.Search(ctx, []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, m.Upsert(ctx, []Entry{entry("c1", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0})}))
	hits, err = m.Search(ctx, []float32{1, 0}, 10, Filter{Symbol: "MSFT"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemorySearchRejectsBadArguments(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Search(ctx, []float32{1}, 0, Filter{})
	assert.Error(t, err)
	_, err = m.Search(ctx, nil, 5, Filter{})
	assert.Error(t, err)
}

func TestMemorySearchFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("aapl-news", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0}),
		entry("aapl-price", "AAPL", domain.SourceTypePriceSeries, 5, []float32{1, 0}),
		entry("msft-news", "MSFT", domain.SourceTypeNews, 10, []float32{1, 0}),
	}))

	t.Run("by symbol", func(t *testing.T) {
		hits, err := m.Search(ctx, []float32{1, 0}, 10, Filter{Symbol: "aapl"})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		for _, h := range hits {
			assert.Equal(t, "AAPL", h.Entry.Symbol)
		}
	})

	t.Run("by source type", func(t *testing.T) {
		hits, err := m.Search(ctx, []float32{1, 0}, 10, Filter{Sources: []domain.SourceType{domain.SourceTypePriceSeries}})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "aapl-price", hits[0].Entry.ChunkID)
	})

	t.Run("by window overlap", func(t *testing.T) {
		hits, err := m.Search(ctx, []float32{1, 0}, 10, Filter{
			From: indexEpoch.AddDate(0, 0, 4),
			To:   indexEpoch.AddDate(0, 0, 6),
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "aapl-price", hits[0].Entry.ChunkID)
	})

	t.Run("combined", func(t *testing.T) {
		hits, err := m.Search(ctx, []float32{1, 0}, 10, Filter{
			Symbol:  "AAPL",
			Sources: []domain.SourceType{domain.SourceTypeNews, domain.SourceTypeFiling},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "aapl-news", hits[0].Entry.ChunkID)
	})
}

func TestMemoryDeleteBefore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("stale", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0}),
		entry("fresh", "AAPL", domain.SourceTypeNews, 40, []float32{1, 0}),
	}))

	removed, err := m.DeleteBefore(ctx, indexEpoch.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := m.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = m.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryDeleteDocument(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a := entry("a1", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0})
	b := entry("a2", "AAPL", domain.SourceTypeNews, 1, []float32{0, 1})
	b.DocumentID = a.DocumentID
	c := entry("b1", "AAPL", domain.SourceTypeNews, 2, []float32{1, 1})
	require.NoError(t, m.Upsert(ctx, []Entry{a, b, c}))

	removed, err := m.DeleteDocument(ctx, a.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("c1", "AAPL", domain.SourceTypeNews, 0, []float32{1, 0, 0}),
		entry("c2", "MSFT", domain.SourceTypeNews, 0, []float32{0, 1, 0}),
		entry("c3", "MSFT", domain.SourceTypeFiling, 0, []float32{0, 0, 1}),
	}))

	stats, err = m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Entries: 3, Symbols: 2, Dimension: 3}, stats)
}

func TestMemoryHonorsContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Upsert(ctx, nil), context.Canceled)
	_, err := m.Search(ctx, []float32{1}, 5, Filter{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = m.DeleteBefore(ctx, indexEpoch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, Cosine(nil, []float32{1}))
}
