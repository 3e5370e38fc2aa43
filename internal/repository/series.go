package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeriesRepository persists daily price bars keyed by (symbol, day).
type SeriesRepository struct {
	db dbtx
}

func NewSeriesRepository(pool *pgxpool.Pool) *SeriesRepository {
	return &SeriesRepository{db: pool}
}

func NewSeriesRepositoryWithTx(tx dbtx) *SeriesRepository {
	return &SeriesRepository{db: tx}
}

// UpsertPoints inserts or replaces daily bars for a symbol and returns the
// number written. Later writes for the same day win.
func (r *SeriesRepository) UpsertPoints(ctx context.Context, symbol string, points []domain.PricePoint) (int, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}

	for i, p := range points {
		if err := domain.ValidatePricePoint(p); err != nil {
			return 0, fmt.Errorf("point %d: %w", i, err)
		}
	}

	written := 0
	for _, p := range points {
		_, err := r.db.Exec(ctx,
			`INSERT INTO prices (symbol, day, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (symbol, day) DO UPDATE SET
				open = EXCLUDED.open,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				volume = EXCLUDED.volume`,
			symbol, domain.DayUTC(p.Day), p.Open, p.High, p.Low, p.Close, p.Volume,
		)
		if err != nil {
			return written, fmt.Errorf("upsert bar %s %s: %w", symbol, p.Day.Format("2006-01-02"), err)
		}
		written++
	}

	return written, nil
}

// GetSeries returns the stored bars of a symbol within [from, to], both
// inclusive. A zero bound leaves that side open. A symbol without bars in the
// window yields an empty series, not an error.
func (r *SeriesRepository) GetSeries(ctx context.Context, symbol string, from, to time.Time) (*domain.PriceSeries, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	args := []any{symbol}
	query := `SELECT day, open, high, low, close, volume FROM prices WHERE symbol = $1`
	if !from.IsZero() {
		args = append(args, domain.DayUTC(from))
		query += fmt.Sprintf(" AND day >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, domain.DayUTC(to))
		query += fmt.Sprintf(" AND day <= $%d", len(args))
	}
	query += " ORDER BY day"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := domain.NewPriceSeries(symbol)
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Day, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, err
		}
		p.Day = domain.DayUTC(p.Day)
		series.Points = append(series.Points, p)
	}
	return series, rows.Err()
}

// HasSymbol reports whether any bars are stored for the symbol.
func (r *SeriesRepository) HasSymbol(ctx context.Context, symbol string) (bool, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM prices WHERE symbol = $1)`,
		symbol,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ListSymbols pages through known symbols in ascending order with their bar
// counts and date coverage.
func (r *SeriesRepository) ListSymbols(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[domain.SymbolInfo], error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT symbol, COUNT(*), MIN(day), MAX(day)
			 FROM prices
			 WHERE symbol > $1
			 GROUP BY symbol
			 ORDER BY symbol
			 LIMIT $2`,
			cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT symbol, COUNT(*), MIN(day), MAX(day)
			 FROM prices
			 GROUP BY symbol
			 ORDER BY symbol
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.SymbolInfo
	for rows.Next() {
		var info domain.SymbolInfo
		if err := rows.Scan(&info.Symbol, &info.Bars, &info.FirstDay, &info.LastDay); err != nil {
			return nil, err
		}
		info.FirstDay = domain.DayUTC(info.FirstDay)
		info.LastDay = domain.DayUTC(info.LastDay)
		items = append(items, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.Symbol, last.LastDay)
	}

	return &pagination.PageResult[domain.SymbolInfo]{
		Items:   items,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}
