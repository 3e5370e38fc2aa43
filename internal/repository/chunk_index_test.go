//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/index"
	"github.com/cloo-solutions/finsight/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkEntry(id, documentID, symbol string, source domain.SourceType, end time.Time, vec []float32) index.Entry {
	return index.Entry{
		ChunkID:     id,
		DocumentID:  documentID,
		Symbol:      symbol,
		Source:      source,
		Ordinal:     0,
		WindowStart: end.Add(-24 * time.Hour),
		WindowEnd:   end,
		Text:        "chunk " + id,
		Vector:      vec,
	}
}

func TestChunkIndexRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkIndexRepository(pool)

	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	e := chunkEntry("chunk-1", "doc-1", "AAPL", domain.SourceTypeNews, end, []float32{1, 0, 0})
	e.Sentiment = 0.5

	require.NoError(t, repo.Upsert(ctx, []index.Entry{e}))

	got, ok, err := repo.Get(ctx, "chunk-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e.ChunkID, got.ChunkID)
	assert.Equal(t, e.DocumentID, got.DocumentID)
	assert.Equal(t, e.Symbol, got.Symbol)
	assert.Equal(t, e.Source, got.Source)
	assert.True(t, got.WindowEnd.Equal(end))
	assert.Equal(t, e.Text, got.Text)
	assert.InDelta(t, 0.5, got.Sentiment, 1e-9)
	assert.Equal(t, []float32{1, 0, 0}, got.Vector)

	_, ok, err = repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChunkIndexRepository_UpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkIndexRepository(pool)

	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	e := chunkEntry("chunk-1", "doc-1", "AAPL", domain.SourceTypeNews, end, []float32{1, 0, 0})

	require.NoError(t, repo.Upsert(ctx, []index.Entry{e}))

	// Second upsert replaces the row instead of duplicating it
	e.Text = "updated text"
	require.NoError(t, repo.Upsert(ctx, []index.Entry{e}))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)

	got, ok, err := repo.Get(ctx, "chunk-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "updated text", got.Text)
}

func TestChunkIndexRepository_UpsertDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkIndexRepository(pool)

	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, []index.Entry{
		chunkEntry("chunk-1", "doc-1", "AAPL", domain.SourceTypeNews, end, []float32{1, 0, 0}),
	}))

	err := repo.Upsert(ctx, []index.Entry{
		chunkEntry("chunk-2", "doc-1", "AAPL", domain.SourceTypeNews, end, []float32{1, 0}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestChunkIndexRepository_SearchRankingAndFilters(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkIndexRepository(pool)

	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, []index.Entry{
		chunkEntry("aapl-exact", "doc-1", "AAPL", domain.SourceTypeNews, end, []float32{1, 0, 0}),
		chunkEntry("aapl-near", "doc-1", "AAPL", domain.SourceTypeNews, end, []float32{0.9, 0.1, 0}),
		chunkEntry("aapl-far", "doc-2", "AAPL", domain.SourceTypeFiling, end, []float32{0, 0, 1}),
		chunkEntry("msft-exact", "doc-3", "MSFT", domain.SourceTypeNews, end, []float32{1, 0, 0}),
	}))

	query := []float32{1, 0, 0}

	hits, err := repo.Search(ctx, query, 10, index.Filter{Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "aapl-exact", hits[0].Entry.ChunkID)
	assert.Equal(t, "aapl-near", hits[1].Entry.ChunkID)
	assert.Equal(t, "aapl-far", hits[2].Entry.ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.Greater(t, hits[1].Score, hits[2].Score)

	// Source filter
	hits, err = repo.Search(ctx, query, 10, index.Filter{
		Symbol:  "AAPL",
		Sources: []domain.SourceType{domain.SourceTypeFiling},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "aapl-far", hits[0].Entry.ChunkID)

	// k caps the result
	hits, err = repo.Search(ctx, query, 2, index.Filter{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	// No matches is not an error
	hits, err = repo.Search(ctx, query, 10, index.Filter{Symbol: "TSLA"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChunkIndexRepository_SearchRecencyTieBreak(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkIndexRepository(pool)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	vec := []float32{0.5, 0.5, 0}
	require.NoError(t, repo.Upsert(ctx, []index.Entry{
		chunkEntry("old", "doc-1", "AAPL", domain.SourceTypeNews, base.AddDate(0, 0, -20), vec),
		chunkEntry("new", "doc-1", "AAPL", domain.SourceTypeNews, base, vec),
		chunkEntry("mid", "doc-1", "AAPL", domain.SourceTypeNews, base.AddDate(0, 0, -10), vec),
	}))

	hits, err := repo.Search(ctx, vec, 10, index.Filter{Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "new", hits[0].Entry.ChunkID)
	assert.Equal(t, "mid", hits[1].Entry.ChunkID)
	assert.Equal(t, "old", hits[2].Entry.ChunkID)
}

func TestChunkIndexRepository_SearchWindowFilter(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkIndexRepository(pool)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	vec := []float32{1, 0, 0}
	require.NoError(t, repo.Upsert(ctx, []index.Entry{
		chunkEntry("january", "doc-1", "AAPL", domain.SourceTypeNews, base.AddDate(0, -1, 0), vec),
		chunkEntry("march", "doc-1", "AAPL", domain.SourceTypeNews, base, vec),
	}))

	hits, err := repo.Search(ctx, vec, 10, index.Filter{
		Symbol: "AAPL",
		From:   base.AddDate(0, 0, -7),
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "march", hits[0].Entry.ChunkID)

	hits, err = repo.Search(ctx, vec, 10, index.Filter{
		Symbol: "AAPL",
		To:     base.AddDate(0, 0, -20),
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "january", hits[0].Entry.ChunkID)
}

func TestChunkIndexRepository_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkIndexRepository(pool)

	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, []index.Entry{
		chunkEntry("a", "doc-1", "AAPL", domain.SourceTypeNews, end, []float32{1, 0, 0}),
		chunkEntry("b", "doc-1", "AAPL", domain.SourceTypeNews, end, []float32{0, 1, 0}),
		chunkEntry("c", "doc-2", "AAPL", domain.SourceTypeNews, end, []float32{0, 0, 1}),
	}))

	removed, err := repo.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestChunkIndexRepository_DeleteBefore(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkIndexRepository(pool)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, []index.Entry{
		chunkEntry("stale", "doc-1", "AAPL", domain.SourceTypeNews, base.AddDate(0, 0, -100), []float32{1, 0, 0}),
		chunkEntry("fresh", "doc-1", "AAPL", domain.SourceTypeNews, base, []float32{0, 1, 0}),
		chunkEntry("cutoff", "doc-1", "AAPL", domain.SourceTypeNews, base.AddDate(0, 0, -30), []float32{0, 0, 1}),
	}))

	// Strictly before the cutoff; the entry ending exactly on it survives
	removed, err := repo.DeleteBefore(ctx, base.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := repo.Get(ctx, "cutoff")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChunkIndexRepository_Stats(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkIndexRepository(pool)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, index.Stats{}, stats)

	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, []index.Entry{
		chunkEntry("a", "doc-1", "AAPL", domain.SourceTypeNews, end, []float32{1, 0, 0}),
		chunkEntry("b", "doc-2", "MSFT", domain.SourceTypeNews, end, []float32{0, 1, 0}),
		chunkEntry("c", "doc-2", "MSFT", domain.SourceTypePriceSeries, end, []float32{0, 0, 1}),
	}))

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 2, stats.Symbols)
	assert.Equal(t, 3, stats.Dimension)
}
