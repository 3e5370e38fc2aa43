package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceType represents the origin of a document
type SourceType string

const (
	SourceTypePriceSeries SourceType = "price_series"
	SourceTypeNews        SourceType = "news"
	SourceTypeFiling      SourceType = "filing"
)

// Document represents an immutable unit of input data. Price documents carry
// Points, textual documents carry Body; the two payloads are mutually exclusive.
type Document struct {
	ID          string
	Symbol      string
	Source      SourceType
	Title       string
	Body        string
	Points      []PricePoint
	PublishedAt time.Time
}

// NewDocument creates a new Document instance with a normalized symbol
func NewDocument(id, symbol string, source SourceType, title string, publishedAt time.Time) *Document {
	return &Document{
		ID:          id,
		Symbol:      NormalizeSymbol(symbol),
		Source:      source,
		Title:       title,
		PublishedAt: publishedAt,
	}
}

// NormalizeSymbol trims and uppercases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// IsTextual reports whether the source type carries a textual body
func (s SourceType) IsTextual() bool {
	return s == SourceTypeNews || s == SourceTypeFiling
}

// ParseSourceType converts a string into a SourceType
func ParseSourceType(s string) (SourceType, error) {
	st := SourceType(strings.ToLower(strings.TrimSpace(s)))
	if !isValidSourceType(st) {
		return "", fmt.Errorf("source type is invalid: %s", s)
	}
	return st, nil
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if NormalizeSymbol(d.Symbol) == "" {
		return fmt.Errorf("document Symbol is required")
	}

	if !isValidSourceType(d.Source) {
		return fmt.Errorf("document Source is invalid: %s", d.Source)
	}

	if d.Source.IsTextual() {
		if len(d.Points) > 0 {
			return fmt.Errorf("textual document cannot carry price points")
		}
		if d.PublishedAt.IsZero() {
			return fmt.Errorf("textual document PublishedAt is required")
		}
		return nil
	}

	// Price documents: body text belongs to textual sources only. An empty
	// point list is allowed and chunks to nothing.
	if strings.TrimSpace(d.Body) != "" {
		return fmt.Errorf("price document cannot carry a text body")
	}
	for i, p := range d.Points {
		if err := ValidatePricePoint(p); err != nil {
			return fmt.Errorf("price point %d: %w", i, err)
		}
	}
	return nil
}

// isValidSourceType checks if a SourceType is valid
func isValidSourceType(s SourceType) bool {
	switch s {
	case SourceTypePriceSeries, SourceTypeNews, SourceTypeFiling:
		return true
	}
	return false
}
