package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func point(d time.Time, close float64) PricePoint {
	return PricePoint{Day: d, Open: close, High: close, Low: close, Close: close, Volume: 100}
}

func TestPriceSeriesAppendKeepsOrder(t *testing.T) {
	s := NewPriceSeries("aapl")
	require.Equal(t, "AAPL", s.Symbol)

	require.NoError(t, s.Append(point(day(2024, 3, 5), 102)))
	require.NoError(t, s.Append(point(day(2024, 3, 1), 100)))
	require.NoError(t, s.Append(point(day(2024, 3, 3), 101)))

	require.Equal(t, 3, s.Len())
	assert.Equal(t, day(2024, 3, 1), s.Start())
	assert.Equal(t, day(2024, 3, 5), s.End())
	assert.Equal(t, []float64{100, 101, 102}, s.Closes())
}

func TestPriceSeriesAppendRejectsDuplicateDay(t *testing.T) {
	s := NewPriceSeries("AAPL")
	require.NoError(t, s.Append(point(day(2024, 3, 1), 100)))

	err := s.Append(point(day(2024, 3, 1).Add(5*time.Hour), 105))
	assert.ErrorIs(t, err, ErrDuplicateDay)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 100.0, s.Points[0].Close)
}

func TestPriceSeriesAppendValidates(t *testing.T) {
	s := NewPriceSeries("AAPL")
	assert.Error(t, s.Append(PricePoint{Day: day(2024, 3, 1), Close: 0}))
	assert.Error(t, s.Append(PricePoint{Close: 100}))
	assert.Error(t, s.Append(PricePoint{Day: day(2024, 3, 1), Close: math.NaN()}))
	assert.Error(t, s.Append(PricePoint{Day: day(2024, 3, 1), High: 1, Low: 2, Close: 1.5}))
	assert.Equal(t, 0, s.Len())
}

func TestPriceSeriesWindow(t *testing.T) {
	s := NewPriceSeries("AAPL")
	for i := 1; i <= 10; i++ {
		require.NoError(t, s.Append(point(day(2024, 3, i), float64(100+i))))
	}

	w := s.Window(day(2024, 3, 3), day(2024, 3, 7))
	assert.Equal(t, 5, w.Len())
	assert.Equal(t, day(2024, 3, 3), w.Start())
	assert.Equal(t, day(2024, 3, 7), w.End())

	open := s.Window(time.Time{}, day(2024, 3, 2))
	assert.Equal(t, 2, open.Len())

	empty := s.Window(day(2025, 1, 1), day(2025, 2, 1))
	assert.Equal(t, 0, empty.Len())
}

func TestPriceSeriesLast(t *testing.T) {
	s := NewPriceSeries("AAPL")
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Append(point(day(2024, 3, i), float64(i))))
	}

	assert.Equal(t, []float64{3, 4, 5}, s.Last(3).Closes())
	assert.Equal(t, 5, s.Last(99).Len())
	assert.Equal(t, 0, s.Last(0).Len())
}

func TestPriceSeriesReturns(t *testing.T) {
	s := NewPriceSeries("AAPL")
	require.NoError(t, s.Append(point(day(2024, 3, 1), 100)))
	require.NoError(t, s.Append(point(day(2024, 3, 2), 110)))
	require.NoError(t, s.Append(point(day(2024, 3, 3), 99)))

	rets := s.Returns()
	require.Len(t, rets, 2)
	assert.InDelta(t, 0.10, rets[0], 1e-9)
	assert.InDelta(t, -0.10, rets[1], 1e-9)

	logs := s.LogReturns()
	require.Len(t, logs, 2)
	assert.InDelta(t, math.Log(1.1), logs[0], 1e-9)

	assert.Nil(t, NewPriceSeries("X").Returns())
}

func TestDayUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2024, 3, 1, 2, 30, 0, 0, loc)
	assert.Equal(t, day(2024, 2, 29), DayUTC(ts))
}
