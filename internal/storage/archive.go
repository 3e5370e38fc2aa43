package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// objectStore is the subset of S3Client the archive uses.
type objectStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// DocumentArchive keeps raw ingested documents in object storage so the
// original inputs stay recoverable after chunking.
type DocumentArchive struct {
	store objectStore
}

func NewDocumentArchive(store objectStore) *DocumentArchive {
	return &DocumentArchive{store: store}
}

// archivedDocument is the stored JSON form of a document.
type archivedDocument struct {
	ID          string        `json:"id"`
	Symbol      string        `json:"symbol"`
	Source      string        `json:"source"`
	Title       string        `json:"title,omitempty"`
	Body        string        `json:"body,omitempty"`
	Points      []archivedBar `json:"points,omitempty"`
	PublishedAt time.Time     `json:"published_at"`
	ArchivedAt  time.Time     `json:"archived_at"`
}

type archivedBar struct {
	Day    string  `json:"day"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// ArchiveKey returns the object key for a document.
func ArchiveKey(doc *domain.Document) string {
	return fmt.Sprintf("documents/%s/%s.json", domain.NormalizeSymbol(doc.Symbol), doc.ID)
}

// ArchiveDocument stores the raw document as JSON and returns its object key.
// Archiving the same document twice overwrites in place.
func (a *DocumentArchive) ArchiveDocument(ctx context.Context, doc *domain.Document) (string, error) {
	if err := domain.ValidateDocument(doc); err != nil {
		return "", err
	}

	stored := archivedDocument{
		ID:          doc.ID,
		Symbol:      domain.NormalizeSymbol(doc.Symbol),
		Source:      string(doc.Source),
		Title:       doc.Title,
		Body:        doc.Body,
		PublishedAt: doc.PublishedAt.UTC(),
		ArchivedAt:  time.Now().UTC(),
	}
	for _, p := range doc.Points {
		stored.Points = append(stored.Points, archivedBar{
			Day:    domain.DayUTC(p.Day).Format("2006-01-02"),
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Close:  p.Close,
			Volume: p.Volume,
		})
	}

	body, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	key := ArchiveKey(doc)
	if err := a.store.PutObject(ctx, key, "application/json", body); err != nil {
		return "", err
	}
	return key, nil
}

// FetchDocument loads an archived document back from its object key.
func (a *DocumentArchive) FetchDocument(ctx context.Context, key string) (*domain.Document, error) {
	body, err := a.store.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}

	var stored archivedDocument
	if err := json.Unmarshal(body, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	doc := &domain.Document{
		ID:          stored.ID,
		Symbol:      stored.Symbol,
		Source:      domain.SourceType(stored.Source),
		Title:       stored.Title,
		Body:        stored.Body,
		PublishedAt: stored.PublishedAt,
	}
	for _, b := range stored.Points {
		day, err := time.Parse("2006-01-02", b.Day)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bar date %q: %w", b.Day, err)
		}
		doc.Points = append(doc.Points, domain.PricePoint{
			Day:    day,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return doc, nil
}
