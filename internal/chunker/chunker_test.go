package chunker

import (
	"testing"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var published = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newsDoc(body string) *domain.Document {
	d := domain.NewDocument("doc-news", "AAPL", domain.SourceTypeNews, "Earnings beat", published)
	d.Body = body
	return d
}

func priceDoc(t *testing.T, closes []float64) *domain.Document {
	t.Helper()
	d := domain.NewDocument("doc-price", "AAPL", domain.SourceTypePriceSeries, "", time.Time{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		d.Points = append(d.Points, domain.PricePoint{
			Day: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 500,
		})
	}
	return d
}

func TestChunkEmptyBodyYieldsNoChunks(t *testing.T) {
	c := New(DefaultConfig())

	chunks, err := c.Chunk(newsDoc(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.Chunk(newsDoc("   \n\n  "))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkEmptyPriceDocumentYieldsNoChunks(t *testing.T) {
	c := New(DefaultConfig())

	chunks, err := c.Chunk(priceDoc(t, nil))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkRejectsInvalidDocument(t *testing.T) {
	c := New(DefaultConfig())

	doc := newsDoc("body")
	doc.Symbol = ""
	_, err := c.Chunk(doc)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}

func TestChunkRejectsDuplicatePriceDays(t *testing.T) {
	c := New(DefaultConfig())

	doc := priceDoc(t, []float64{100, 101})
	doc.Points[1].Day = doc.Points[0].Day
	_, err := c.Chunk(doc)
	assert.Error(t, err)
}

func TestChunkIsDeterministic(t *testing.T) {
	c := New(DefaultConfig())
	doc := newsDoc("Apple reported record revenue.\n\nShares rose in after-hours trading.")

	first, err := c.Chunk(doc)
	require.NoError(t, err)
	second, err := c.Chunk(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkAssignsDerivedIDsAndWindows(t *testing.T) {
	c := New(DefaultConfig())
	doc := newsDoc("Apple reported record revenue.")

	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	got := chunks[0]
	assert.Equal(t, domain.NewChunkID("doc-news", 0), got.ID)
	assert.Equal(t, "doc-news", got.DocumentID)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, domain.SourceTypeNews, got.Source)
	assert.Equal(t, published, got.WindowStart)
	assert.Equal(t, published, got.WindowEnd)
	assert.NoError(t, domain.ValidateChunk(&got))
}

func TestNewFallsBackToDefaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultConfig().MaxChars, c.cfg.MaxChars)
	assert.Equal(t, DefaultConfig().WindowDays, c.cfg.WindowDays)

	custom := New(Config{WindowDays: []int{5}})
	assert.Equal(t, []int{5}, custom.cfg.WindowDays)
	assert.Equal(t, DefaultConfig().MaxChars, custom.cfg.MaxChars)
}
