package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected SourceType
		wantErr  bool
	}{
		{"PriceSeries", "price_series", SourceTypePriceSeries, false},
		{"News", "news", SourceTypeNews, false},
		{"Filing", "filing", SourceTypeFiling, false},
		{"UppercaseNormalized", "NEWS", SourceTypeNews, false},
		{"Padded", "  filing ", SourceTypeFiling, false},
		{"Unknown", "tweets", "", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := ParseSourceType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, st)
		})
	}
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeSymbol(" aapl "))
	assert.Equal(t, "MSFT", NormalizeSymbol("MSFT"))
	assert.Equal(t, "", NormalizeSymbol("   "))
}

func TestValidateDocument(t *testing.T) {
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	newsDoc := func() *Document {
		d := NewDocument("doc-1", "aapl", SourceTypeNews, "Earnings beat", published)
		d.Body = "Apple reported record revenue."
		return d
	}

	priceDoc := func() *Document {
		d := NewDocument("doc-2", "AAPL", SourceTypePriceSeries, "", time.Time{})
		d.Points = []PricePoint{
			{Day: published, Open: 100, High: 105, Low: 99, Close: 104, Volume: 1000},
		}
		return d
	}

	t.Run("ValidNewsDocument", func(t *testing.T) {
		assert.NoError(t, ValidateDocument(newsDoc()))
	})

	t.Run("ValidPriceDocument", func(t *testing.T) {
		assert.NoError(t, ValidateDocument(priceDoc()))
	})

	t.Run("PriceDocumentWithEmptyPoints", func(t *testing.T) {
		d := priceDoc()
		d.Points = nil
		assert.NoError(t, ValidateDocument(d))
	})

	t.Run("NewsDocumentWithEmptyBody", func(t *testing.T) {
		d := newsDoc()
		d.Body = ""
		assert.NoError(t, ValidateDocument(d))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.Error(t, ValidateDocument(nil))
	})

	t.Run("MissingID", func(t *testing.T) {
		d := newsDoc()
		d.ID = ""
		assert.Error(t, ValidateDocument(d))
	})

	t.Run("MissingSymbol", func(t *testing.T) {
		d := newsDoc()
		d.Symbol = "  "
		assert.Error(t, ValidateDocument(d))
	})

	t.Run("InvalidSource", func(t *testing.T) {
		d := newsDoc()
		d.Source = "blog"
		assert.Error(t, ValidateDocument(d))
	})

	t.Run("NewsDocumentWithPoints", func(t *testing.T) {
		d := newsDoc()
		d.Points = priceDoc().Points
		assert.Error(t, ValidateDocument(d))
	})

	t.Run("NewsDocumentWithoutPublishedAt", func(t *testing.T) {
		d := newsDoc()
		d.PublishedAt = time.Time{}
		assert.Error(t, ValidateDocument(d))
	})

	t.Run("PriceDocumentWithBody", func(t *testing.T) {
		d := priceDoc()
		d.Body = "stray text"
		assert.Error(t, ValidateDocument(d))
	})

	t.Run("PriceDocumentWithBadPoint", func(t *testing.T) {
		d := priceDoc()
		d.Points[0].Close = -3
		assert.Error(t, ValidateDocument(d))
	})
}

func TestNewDocumentNormalizesSymbol(t *testing.T) {
	d := NewDocument("doc-1", " msft", SourceTypeNews, "t", time.Now())
	assert.Equal(t, "MSFT", d.Symbol)
}
