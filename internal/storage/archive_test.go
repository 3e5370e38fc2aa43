package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory objectStore for tests.
type memStore struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
}

func (s *memStore) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	s.objects[key] = body
	s.contentTypes[key] = contentType
	return nil
}

func (s *memStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	body, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return body, nil
}

func TestArchiveKey(t *testing.T) {
	doc := domain.NewDocument("doc-1", " aapl ", domain.SourceTypeNews, "t", time.Now())
	assert.Equal(t, "documents/AAPL/doc-1.json", ArchiveKey(doc))
}

func TestDocumentArchive_RoundTripNews(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	archive := NewDocumentArchive(store)

	published := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	doc := domain.NewDocument("doc-news", "AAPL", domain.SourceTypeNews, "Earnings beat", published)
	doc.Body = "Record revenue as services surge."

	key, err := archive.ArchiveDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, "documents/AAPL/doc-news.json", key)
	assert.Equal(t, "application/json", store.contentTypes[key])

	got, err := archive.FetchDocument(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Symbol, got.Symbol)
	assert.Equal(t, doc.Source, got.Source)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Body, got.Body)
	assert.True(t, got.PublishedAt.Equal(published))
	assert.Empty(t, got.Points)
}

func TestDocumentArchive_PriceDocumentKeepsBars(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	archive := NewDocumentArchive(store)

	doc := domain.NewDocument("doc-price", "AAPL", domain.SourceTypePriceSeries, "", time.Time{})
	doc.Points = []domain.PricePoint{
		{Day: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 100, High: 102, Low: 99, Close: 101, Volume: 5000},
		{Day: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 101, High: 103, Low: 100, Close: 102.5, Volume: 6000},
	}

	key, err := archive.ArchiveDocument(ctx, doc)
	require.NoError(t, err)

	// The stored form carries calendar dates, not timestamps
	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(store.objects[key], &stored))
	points := stored["points"].([]interface{})
	require.Len(t, points, 2)
	assert.Equal(t, "2024-01-02", points[0].(map[string]interface{})["day"])

	got, err := archive.FetchDocument(ctx, key)
	require.NoError(t, err)
	require.Len(t, got.Points, 2)
	assert.True(t, got.Points[0].Day.Equal(doc.Points[0].Day))
	assert.Equal(t, 101.0, got.Points[0].Close)
	assert.Equal(t, int64(6000), got.Points[1].Volume)
}

func TestDocumentArchive_InvalidDocumentNotStored(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	archive := NewDocumentArchive(store)

	doc := domain.NewDocument("doc-bad", "", domain.SourceTypeNews, "t", time.Now())
	doc.Body = "body"

	_, err := archive.ArchiveDocument(ctx, doc)
	require.Error(t, err)
	assert.Empty(t, store.objects)
}
