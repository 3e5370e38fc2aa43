//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/pagination"
	"github.com/cloo-solutions/finsight/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyBars(start time.Time, closes ...float64) []domain.PricePoint {
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{
			Day:    start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return points
}

func TestSeriesRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSeriesRepository(pool)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	written, err := repo.UpsertPoints(ctx, "aapl", dailyBars(start, 100, 101, 102))
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	series, err := repo.GetSeries(ctx, "AAPL", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", series.Symbol)
	require.Equal(t, 3, series.Len())
	assert.True(t, series.Start().Equal(start))
	assert.True(t, series.End().Equal(start.AddDate(0, 0, 2)))
	assert.Equal(t, []float64{100, 101, 102}, series.Closes())
	assert.Equal(t, int64(1000), series.Points[0].Volume)
}

func TestSeriesRepository_UpsertReplacesSameDay(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSeriesRepository(pool)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.UpsertPoints(ctx, "AAPL", dailyBars(start, 100))
	require.NoError(t, err)

	_, err = repo.UpsertPoints(ctx, "AAPL", dailyBars(start, 105))
	require.NoError(t, err)

	series, err := repo.GetSeries(ctx, "AAPL", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	assert.Equal(t, 105.0, series.Points[0].Close)
}

func TestSeriesRepository_GetSeriesWindow(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSeriesRepository(pool)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.UpsertPoints(ctx, "AAPL", dailyBars(start, 100, 101, 102, 103, 104))
	require.NoError(t, err)

	series, err := repo.GetSeries(ctx, "AAPL", start.AddDate(0, 0, 1), start.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103}, series.Closes())

	// Window outside the data yields an empty series, not an error
	series, err = repo.GetSeries(ctx, "AAPL", start.AddDate(1, 0, 0), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, series.Len())
}

func TestSeriesRepository_HasSymbol(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSeriesRepository(pool)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.UpsertPoints(ctx, "AAPL", dailyBars(start, 100))
	require.NoError(t, err)

	has, err := repo.HasSymbol(ctx, "aapl")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasSymbol(ctx, "TSLA")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = repo.HasSymbol(ctx, "")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSeriesRepository_ListSymbols(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSeriesRepository(pool)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, symbol := range []string{"AAPL", "GOOG", "MSFT", "NVDA", "TSLA"} {
		_, err := repo.UpsertPoints(ctx, symbol, dailyBars(start, 100, 101))
		require.NoError(t, err)
	}

	page, err := repo.ListSymbols(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "AAPL", page.Items[0].Symbol)
	assert.Equal(t, "GOOG", page.Items[1].Symbol)
	assert.Equal(t, 2, page.Items[0].Bars)
	assert.True(t, page.Items[0].FirstDay.Equal(start))
	assert.True(t, page.Items[0].LastDay.Equal(start.AddDate(0, 0, 1)))
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.Cursor)

	cursor, err := pagination.DecodeCursor(page.Cursor)
	require.NoError(t, err)

	page, err = repo.ListSymbols(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "MSFT", page.Items[0].Symbol)
	assert.Equal(t, "NVDA", page.Items[1].Symbol)
	assert.True(t, page.HasMore)

	cursor, err = pagination.DecodeCursor(page.Cursor)
	require.NoError(t, err)

	page, err = repo.ListSymbols(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "TSLA", page.Items[0].Symbol)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.Cursor)
}
