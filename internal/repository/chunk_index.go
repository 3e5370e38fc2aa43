package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/index"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkIndexRepository persists chunk embeddings in Postgres using pgvector.
// It implements the same contract as index.Memory: upserts are idempotent by
// chunk ID and searches rank by cosine similarity with a recency tie-break.
type ChunkIndexRepository struct {
	db dbtx
}

func NewChunkIndexRepository(pool *pgxpool.Pool) *ChunkIndexRepository {
	return &ChunkIndexRepository{db: pool}
}

func NewChunkIndexRepositoryWithTx(tx dbtx) *ChunkIndexRepository {
	return &ChunkIndexRepository{db: tx}
}

// Upsert inserts or replaces entries by chunk ID. Entries must match the
// dimension of vectors already stored; the first entry admitted pins it.
func (r *ChunkIndexRepository) Upsert(ctx context.Context, entries []index.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	for i := range entries {
		if err := index.ValidateEntry(&entries[i]); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	dimension, err := r.storedDimension(ctx)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if dimension == 0 {
			dimension = len(e.Vector)
		} else if len(e.Vector) != dimension {
			return fmt.Errorf("entry %s: vector dimension %d does not match index dimension %d",
				e.ChunkID, len(e.Vector), dimension)
		}

		_, err := r.db.Exec(ctx,
			`INSERT INTO chunk_index
				(chunk_id, document_id, symbol, source, ordinal, window_start, window_end, content, sentiment, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (chunk_id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				symbol = EXCLUDED.symbol,
				source = EXCLUDED.source,
				ordinal = EXCLUDED.ordinal,
				window_start = EXCLUDED.window_start,
				window_end = EXCLUDED.window_end,
				content = EXCLUDED.content,
				sentiment = EXCLUDED.sentiment,
				embedding = EXCLUDED.embedding`,
			e.ChunkID,
			e.DocumentID,
			e.Symbol,
			string(e.Source),
			e.Ordinal,
			e.WindowStart,
			e.WindowEnd,
			e.Text,
			e.Sentiment,
			pgvector.NewVector(e.Vector),
			time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", e.ChunkID, err)
		}
	}

	return nil
}

// Search returns up to k entries matching the filter, ranked by cosine
// similarity to the query vector. Equal scores rank newer windows first, then
// lower chunk IDs. An empty result is not an error.
func (r *ChunkIndexRepository) Search(ctx context.Context, vector []float32, k int, f index.Filter) ([]index.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}

	args := []any{pgvector.NewVector(vector)}
	var conditions []string

	if f.Symbol != "" {
		args = append(args, domain.NormalizeSymbol(f.Symbol))
		conditions = append(conditions, fmt.Sprintf("symbol = $%d", len(args)))
	}
	if len(f.Sources) > 0 {
		sources := make([]string, len(f.Sources))
		for i, s := range f.Sources {
			sources[i] = string(s)
		}
		args = append(args, sources)
		conditions = append(conditions, fmt.Sprintf("source = ANY($%d)", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conditions = append(conditions, fmt.Sprintf("window_end >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conditions = append(conditions, fmt.Sprintf("window_start <= $%d", len(args)))
	}

	query := `SELECT chunk_id, document_id, symbol, source, ordinal, window_start, window_end, content, sentiment, embedding,
	       1 - (embedding <=> $1) AS score
	FROM chunk_index`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, k)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1, window_end DESC, chunk_id LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]index.Hit, 0, k)
	for rows.Next() {
		var h index.Hit
		var source string
		var vec pgvector.Vector
		if err := rows.Scan(
			&h.Entry.ChunkID, &h.Entry.DocumentID, &h.Entry.Symbol, &source, &h.Entry.Ordinal,
			&h.Entry.WindowStart, &h.Entry.WindowEnd, &h.Entry.Text, &h.Entry.Sentiment, &vec, &h.Score,
		); err != nil {
			return nil, err
		}
		h.Entry.Source = domain.SourceType(source)
		h.Entry.Vector = vec.Slice()
		hits = append(hits, h)
	}

	return hits, rows.Err()
}

// Get returns the entry for a chunk ID, if present.
func (r *ChunkIndexRepository) Get(ctx context.Context, chunkID string) (index.Entry, bool, error) {
	var e index.Entry
	var source string
	var vec pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT chunk_id, document_id, symbol, source, ordinal, window_start, window_end, content, sentiment, embedding
		 FROM chunk_index WHERE chunk_id = $1`,
		chunkID,
	).Scan(&e.ChunkID, &e.DocumentID, &e.Symbol, &source, &e.Ordinal,
		&e.WindowStart, &e.WindowEnd, &e.Text, &e.Sentiment, &vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return index.Entry{}, false, nil
		}
		return index.Entry{}, false, err
	}
	e.Source = domain.SourceType(source)
	e.Vector = vec.Slice()
	return e, true, nil
}

// DeleteDocument removes every entry belonging to a document and returns the
// number removed.
func (r *ChunkIndexRepository) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM chunk_index WHERE document_id = $1`,
		documentID,
	)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// DeleteBefore removes entries whose window end falls before the cutoff and
// returns the number removed.
func (r *ChunkIndexRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM chunk_index WHERE window_end < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// Stats reports entry and distinct-symbol counts plus the stored dimension.
func (r *ChunkIndexRepository) Stats(ctx context.Context) (index.Stats, error) {
	var s index.Stats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT symbol) FROM chunk_index`,
	).Scan(&s.Entries, &s.Symbols)
	if err != nil {
		return index.Stats{}, err
	}

	dimension, err := r.storedDimension(ctx)
	if err != nil {
		return index.Stats{}, err
	}
	s.Dimension = dimension
	return s, nil
}

// storedDimension probes one row for the vector dimension currently in the
// table, 0 when empty. The embedding column is dimensionless so local and
// remote embedders share the schema.
func (r *ChunkIndexRepository) storedDimension(ctx context.Context) (int, error) {
	var dimension int
	err := r.db.QueryRow(ctx,
		`SELECT vector_dims(embedding) FROM chunk_index LIMIT 1`,
	).Scan(&dimension)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return dimension, nil
}
