package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PricePoint represents one daily bar of market data
type PricePoint struct {
	Day    time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// PriceSeries represents the ordered daily price history of one symbol.
// Points are kept in ascending date order with at most one point per day.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// SymbolInfo summarizes the stored price history of one symbol
type SymbolInfo struct {
	Symbol   string    `json:"symbol"`
	Bars     int       `json:"bars"`
	FirstDay time.Time `json:"first_day"`
	LastDay  time.Time `json:"last_day"`
}

// NewPriceSeries creates an empty PriceSeries for a symbol
func NewPriceSeries(symbol string) *PriceSeries {
	return &PriceSeries{Symbol: NormalizeSymbol(symbol)}
}

// DayUTC truncates a timestamp to its UTC calendar date
func DayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidatePricePoint validates a single bar
func ValidatePricePoint(p PricePoint) error {
	if p.Day.IsZero() {
		return fmt.Errorf("price point Day is required")
	}
	for _, v := range []float64{p.Open, p.High, p.Low, p.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("price point contains a non-finite value")
		}
	}
	if p.Close <= 0 {
		return fmt.Errorf("price point Close must be positive")
	}
	if p.High < p.Low {
		return fmt.Errorf("price point High is below Low")
	}
	if p.Volume < 0 {
		return fmt.Errorf("price point Volume cannot be negative")
	}
	return nil
}

// Append inserts a point keeping ascending date order. Appending a date the
// series already holds returns ErrDuplicateDay and leaves the series unchanged.
func (s *PriceSeries) Append(p PricePoint) error {
	if err := ValidatePricePoint(p); err != nil {
		return err
	}
	p.Day = DayUTC(p.Day)

	i := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Day.Before(p.Day)
	})
	if i < len(s.Points) && s.Points[i].Day.Equal(p.Day) {
		return ErrDuplicateDay
	}

	s.Points = append(s.Points, PricePoint{})
	copy(s.Points[i+1:], s.Points[i:])
	s.Points[i] = p
	return nil
}

// Len returns the number of points in the series
func (s *PriceSeries) Len() int {
	return len(s.Points)
}

// Start returns the date of the first point, zero when empty
func (s *PriceSeries) Start() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].Day
}

// End returns the date of the last point, zero when empty
func (s *PriceSeries) End() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Day
}

// Window returns the sub-series with dates in [from, to], both inclusive.
// A zero bound leaves that side open.
func (s *PriceSeries) Window(from, to time.Time) *PriceSeries {
	out := &PriceSeries{Symbol: s.Symbol}
	for _, p := range s.Points {
		if !from.IsZero() && p.Day.Before(DayUTC(from)) {
			continue
		}
		if !to.IsZero() && p.Day.After(DayUTC(to)) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}

// Last returns the trailing n points as a sub-series
func (s *PriceSeries) Last(n int) *PriceSeries {
	out := &PriceSeries{Symbol: s.Symbol}
	if n <= 0 {
		return out
	}
	if n > len(s.Points) {
		n = len(s.Points)
	}
	out.Points = append(out.Points, s.Points[len(s.Points)-n:]...)
	return out
}

// Closes returns the closing prices in date order
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Returns computes simple daily returns close-over-close. A series of n
// points yields n-1 returns.
func (s *PriceSeries) Returns() []float64 {
	if len(s.Points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Close
		out = append(out, (s.Points[i].Close-prev)/prev)
	}
	return out
}

// LogReturns computes daily log returns close-over-close
func (s *PriceSeries) LogReturns() []float64 {
	if len(s.Points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		out = append(out, math.Log(s.Points[i].Close/s.Points[i-1].Close))
	}
	return out
}
