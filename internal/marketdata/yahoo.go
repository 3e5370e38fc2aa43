// Package marketdata adapts external market data providers: daily price bars
// from the Yahoo Finance chart API and news documents from RSS/Atom feeds.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/cloo-solutions/finsight/internal/domain"
)

const (
	chartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"

	// defaultRequestsPerMinute keeps the source under Yahoo's informal limits.
	defaultRequestsPerMinute = 30
)

// chartResponse is the top-level Yahoo Finance chart API response.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`
}

// YahooSource fetches daily OHLCV bars from the Yahoo Finance chart API.
type YahooSource struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	limiter    *rate.Limiter
}

// NewYahooSource creates a Yahoo chart source over the given HTTP client.
func NewYahooSource(httpClient *http.Client) *YahooSource {
	return &YahooSource{
		httpClient: httpClient,
		baseURL:    chartBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(float64(defaultRequestsPerMinute)/60.0), 1),
	}
}

// Name returns the source's display name.
func (s *YahooSource) Name() string { return "Yahoo Finance" }

// FetchDaily fetches daily bars for one symbol over [from, to]. Failures map
// to ErrDataUnavailable, unknown symbols included.
func (s *YahooSource) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (*domain.PriceSeries, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := s.baseURL + "/" + symbol +
		"?period1=" + strconv.FormatInt(from.Unix(), 10) +
		"&period2=" + strconv.FormatInt(to.Unix(), 10) +
		"&interval=1d"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var chart chartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&chart)

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: unknown symbol %s", domain.ErrDataUnavailable, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrDataUnavailable, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrDataUnavailable, decodeErr)
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: unknown symbol %s", domain.ErrDataUnavailable, symbol)
		}
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrDataUnavailable,
			chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no quote data for %s", domain.ErrDataUnavailable, symbol)
	}

	return buildSeries(symbol, chart.Chart.Result[0])
}

// buildSeries converts a chart result into a sorted PriceSeries. Null bars
// (holidays, halts) and same-day duplicates are skipped.
func buildSeries(symbol string, result chartResult) (*domain.PriceSeries, error) {
	quote := result.Indicators.Quote[0]
	series := domain.NewPriceSeries(symbol)

	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		p := domain.PricePoint{
			Day:   domain.DayUTC(time.Unix(ts, 0).UTC()),
			Close: quote.Close[i],
		}
		if i < len(quote.Open) {
			p.Open = quote.Open[i]
		}
		if i < len(quote.High) {
			p.High = quote.High[i]
		}
		if i < len(quote.Low) {
			p.Low = quote.Low[i]
		}
		if i < len(quote.Volume) {
			p.Volume = int64(quote.Volume[i])
		}
		if p.High < p.Low {
			continue
		}

		if err := series.Append(p); err != nil {
			// Yahoo repeats the last session with an intraday timestamp;
			// keep the first bar for the day.
			if errors.Is(err, domain.ErrDuplicateDay) {
				continue
			}
			return nil, fmt.Errorf("%w: bar %d: %v", domain.ErrDataUnavailable, i, err)
		}
	}

	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: no usable bars for %s", domain.ErrDataUnavailable, symbol)
	}
	return series, nil
}
