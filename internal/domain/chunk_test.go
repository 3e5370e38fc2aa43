package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewChunkIDDeterministic(t *testing.T) {
	a := NewChunkID("doc-1", 0)
	b := NewChunkID("doc-1", 0)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, NewChunkID("doc-1", 1))
	assert.NotEqual(t, a, NewChunkID("doc-2", 0))
}

func TestValidateChunk(t *testing.T) {
	published := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	valid := func() *Chunk {
		return &Chunk{
			ID:          NewChunkID("doc-1", 0),
			DocumentID:  "doc-1",
			Symbol:      "AAPL",
			Source:      SourceTypeNews,
			Ordinal:     0,
			WindowStart: published,
			WindowEnd:   published,
			Text:        "Apple reported record revenue.",
			Sentiment:   0.5,
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, ValidateChunk(valid()))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.Error(t, ValidateChunk(nil))
	})

	t.Run("MissingID", func(t *testing.T) {
		c := valid()
		c.ID = ""
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("MissingDocumentID", func(t *testing.T) {
		c := valid()
		c.DocumentID = ""
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("MissingText", func(t *testing.T) {
		c := valid()
		c.Text = ""
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("NegativeOrdinal", func(t *testing.T) {
		c := valid()
		c.Ordinal = -1
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("InvertedWindow", func(t *testing.T) {
		c := valid()
		c.WindowEnd = c.WindowStart.Add(-time.Hour)
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("SentimentOutOfRange", func(t *testing.T) {
		c := valid()
		c.Sentiment = 1.5
		assert.Error(t, ValidateChunk(c))
	})
}
