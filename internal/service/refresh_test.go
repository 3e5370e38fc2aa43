package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// MockPriceSource is a mock implementation of PriceSource
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (*domain.PriceSeries, error) {
	args := m.Called(ctx, symbol, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceSeries), args.Error(1)
}

// MockDocumentSource is a mock implementation of DocumentSource
type MockDocumentSource struct {
	mock.Mock
}

func (m *MockDocumentSource) Fetch(ctx context.Context, symbol, feedURL string) ([]domain.Document, error) {
	args := m.Called(ctx, symbol, feedURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

// MockIngestor is a mock implementation of Ingestor
type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) Ingest(ctx context.Context, doc *domain.Document) (*IngestResult, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IngestResult), args.Error(1)
}

func feedDocument(id string, published time.Time) domain.Document {
	return domain.Document{
		ID:          id,
		Symbol:      "AAPL",
		Source:      domain.SourceTypeNews,
		Title:       "headline " + id,
		Body:        "body " + id,
		PublishedAt: published,
	}
}

// TestRefreshService_Refresh tests on-demand market data refresh
func TestRefreshService_Refresh(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	since := now.AddDate(0, 0, -30)

	t.Run("pulls prices and feeds through ingestion", func(t *testing.T) {
		mockPrices := new(MockPriceSource)
		mockDocs := new(MockDocumentSource)
		mockIngestor := new(MockIngestor)

		series := risingSeries("AAPL", 20, now)
		mockPrices.On("FetchDaily", mock.Anything, "AAPL", since, now).Return(series, nil)

		mockDocs.On("Fetch", mock.Anything, "AAPL", "https://feeds.example.com/aapl").
			Return([]domain.Document{
				feedDocument("news-1", now.AddDate(0, 0, -2)),
				feedDocument("news-2", now.AddDate(0, 0, -1)),
			}, nil)

		mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
			return doc.Source == domain.SourceTypePriceSeries &&
				doc.Symbol == "AAPL" &&
				len(doc.Points) == 20
		})).Return(&IngestResult{DocumentID: "prices", ChunkIDs: []string{"p1", "p2"}}, nil).Once()
		mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
			return doc.Source == domain.SourceTypeNews
		})).Return(&IngestResult{ChunkIDs: []string{"n"}}, nil).Twice()

		svc := NewRefreshService(mockPrices, mockDocs, mockIngestor, RefreshConfig{
			Feeds: map[string][]string{"AAPL": {"https://feeds.example.com/aapl"}},
		})
		svc.now = func() time.Time { return now }

		result, err := svc.Refresh(ctx, "aapl", since)

		require.NoError(t, err)
		assert.Equal(t, "AAPL", result.Symbol)
		assert.Equal(t, since, result.Since)
		assert.Equal(t, 20, result.PricePoints)
		assert.Equal(t, 3, result.Documents)
		assert.Equal(t, 4, result.Chunks)
		assert.Empty(t, result.FeedErrors)

		mockPrices.AssertExpectations(t)
		mockDocs.AssertExpectations(t)
		mockIngestor.AssertExpectations(t)
	})

	t.Run("defaults since to the configured lookback", func(t *testing.T) {
		mockPrices := new(MockPriceSource)
		wantSince := now.AddDate(0, 0, -90)
		mockPrices.On("FetchDaily", mock.Anything, "AAPL", wantSince, now).
			Return(domain.NewPriceSeries("AAPL"), nil)

		svc := NewRefreshService(mockPrices, nil, new(MockIngestor), RefreshConfig{LookbackDays: 90})
		svc.now = func() time.Time { return now }

		result, err := svc.Refresh(ctx, "AAPL", time.Time{})

		require.NoError(t, err)
		assert.Equal(t, wantSince, result.Since)
		assert.Zero(t, result.Documents, "an empty series ingests nothing")
		mockPrices.AssertExpectations(t)
	})

	t.Run("skips feed documents published before since", func(t *testing.T) {
		mockPrices := new(MockPriceSource)
		mockDocs := new(MockDocumentSource)
		mockIngestor := new(MockIngestor)

		mockPrices.On("FetchDaily", mock.Anything, "AAPL", since, now).
			Return(domain.NewPriceSeries("AAPL"), nil)
		mockDocs.On("Fetch", mock.Anything, "AAPL", "feed").
			Return([]domain.Document{
				feedDocument("stale", since.AddDate(0, 0, -5)),
				feedDocument("fresh", now.AddDate(0, 0, -1)),
			}, nil)
		mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
			return doc.ID == "fresh"
		})).Return(&IngestResult{ChunkIDs: []string{"c1"}}, nil).Once()

		svc := NewRefreshService(mockPrices, mockDocs, mockIngestor, RefreshConfig{
			Feeds: map[string][]string{"AAPL": {"feed"}},
		})
		svc.now = func() time.Time { return now }

		result, err := svc.Refresh(ctx, "AAPL", since)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Documents)
		mockIngestor.AssertExpectations(t)
		mockIngestor.AssertNumberOfCalls(t, "Ingest", 1)
	})

	t.Run("a failing price source aborts the refresh", func(t *testing.T) {
		mockPrices := new(MockPriceSource)
		mockPrices.On("FetchDaily", mock.Anything, "AAPL", mock.Anything, mock.Anything).
			Return(nil, domain.ErrDataUnavailable)

		svc := NewRefreshService(mockPrices, nil, new(MockIngestor), RefreshConfig{})
		svc.now = func() time.Time { return now }

		result, err := svc.Refresh(ctx, "AAPL", since)

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	})

	t.Run("a failing feed is recorded and skipped", func(t *testing.T) {
		mockPrices := new(MockPriceSource)
		mockDocs := new(MockDocumentSource)
		mockIngestor := new(MockIngestor)

		mockPrices.On("FetchDaily", mock.Anything, "AAPL", since, now).
			Return(domain.NewPriceSeries("AAPL"), nil)
		mockDocs.On("Fetch", mock.Anything, "AAPL", "bad-feed").
			Return(nil, errors.New("connection refused"))
		mockDocs.On("Fetch", mock.Anything, "AAPL", "good-feed").
			Return([]domain.Document{feedDocument("news-1", now.AddDate(0, 0, -1))}, nil)
		mockIngestor.On("Ingest", mock.Anything, mock.Anything).
			Return(&IngestResult{ChunkIDs: []string{"c1"}}, nil)

		svc := NewRefreshService(mockPrices, mockDocs, mockIngestor, RefreshConfig{
			Feeds: map[string][]string{"AAPL": {"bad-feed", "good-feed"}},
		})
		svc.now = func() time.Time { return now }

		result, err := svc.Refresh(ctx, "AAPL", since)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Documents)
		require.Len(t, result.FeedErrors, 1)
		assert.Contains(t, result.FeedErrors[0], "bad-feed")
	})

	t.Run("a failing document ingest is recorded and skipped", func(t *testing.T) {
		mockPrices := new(MockPriceSource)
		mockDocs := new(MockDocumentSource)
		mockIngestor := new(MockIngestor)

		mockPrices.On("FetchDaily", mock.Anything, "AAPL", since, now).
			Return(domain.NewPriceSeries("AAPL"), nil)
		mockDocs.On("Fetch", mock.Anything, "AAPL", "feed").
			Return([]domain.Document{
				feedDocument("broken", now.AddDate(0, 0, -2)),
				feedDocument("fine", now.AddDate(0, 0, -1)),
			}, nil)
		mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
			return doc.ID == "broken"
		})).Return(nil, errors.New("index unavailable"))
		mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
			return doc.ID == "fine"
		})).Return(&IngestResult{ChunkIDs: []string{"c1"}}, nil)

		svc := NewRefreshService(mockPrices, mockDocs, mockIngestor, RefreshConfig{
			Feeds: map[string][]string{"AAPL": {"feed"}},
		})
		svc.now = func() time.Time { return now }

		result, err := svc.Refresh(ctx, "AAPL", since)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Documents)
		require.Len(t, result.FeedErrors, 1)
		assert.Contains(t, result.FeedErrors[0], "broken")
	})

	t.Run("rejects an empty symbol", func(t *testing.T) {
		svc := NewRefreshService(new(MockPriceSource), nil, new(MockIngestor), RefreshConfig{})

		result, err := svc.Refresh(ctx, "   ", time.Time{})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})
}
