package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/pagination"
)

// MemorySeriesStore keeps price history in process. It backs the memory index
// driver so the service runs without Postgres. Safe for concurrent use.
type MemorySeriesStore struct {
	mu     sync.RWMutex
	series map[string]*domain.PriceSeries
}

func NewMemorySeriesStore() *MemorySeriesStore {
	return &MemorySeriesStore{series: make(map[string]*domain.PriceSeries)}
}

// UpsertPoints inserts or replaces daily bars for a symbol and returns the
// number written. Later writes for the same day win.
func (s *MemorySeriesStore) UpsertPoints(ctx context.Context, symbol string, points []domain.PricePoint) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}

	for i, p := range points {
		if err := domain.ValidatePricePoint(p); err != nil {
			return 0, fmt.Errorf("point %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.series[symbol]
	if !ok {
		series = domain.NewPriceSeries(symbol)
		s.series[symbol] = series
	}

	written := 0
	for _, p := range points {
		if err := series.Append(p); err != nil {
			if err != domain.ErrDuplicateDay {
				return written, err
			}
			day := domain.DayUTC(p.Day)
			for i := range series.Points {
				if series.Points[i].Day.Equal(day) {
					p.Day = day
					series.Points[i] = p
					break
				}
			}
		}
		written++
	}
	return written, nil
}

// GetSeries returns the stored bars of a symbol within [from, to], both
// inclusive. A zero bound leaves that side open.
func (s *MemorySeriesStore) GetSeries(ctx context.Context, symbol string, from, to time.Time) (*domain.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.series[symbol]
	if !ok {
		return domain.NewPriceSeries(symbol), nil
	}
	return series.Window(from, to), nil
}

// HasSymbol reports whether any bars are stored for the symbol.
func (s *MemorySeriesStore) HasSymbol(ctx context.Context, symbol string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.series[domain.NormalizeSymbol(symbol)]
	return ok && series.Len() > 0, nil
}

// ListSymbols pages through known symbols in ascending order with their bar
// counts and date coverage.
func (s *MemorySeriesStore) ListSymbols(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[domain.SymbolInfo], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	symbols := make([]string, 0, len(s.series))
	for sym, series := range s.series {
		if series.Len() == 0 {
			continue
		}
		if cursor != nil && sym <= cursor.LastID {
			continue
		}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	hasMore := len(symbols) > limit
	if hasMore {
		symbols = symbols[:limit]
	}

	items := make([]domain.SymbolInfo, 0, len(symbols))
	for _, sym := range symbols {
		series := s.series[sym]
		items = append(items, domain.SymbolInfo{
			Symbol:   sym,
			Bars:     series.Len(),
			FirstDay: series.Start(),
			LastDay:  series.End(),
		})
	}
	s.mu.RUnlock()

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
