package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cloo-solutions/finsight/internal/api"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/index"
	"github.com/cloo-solutions/finsight/internal/service"
)

type IngestService interface {
	Ingest(ctx context.Context, doc *domain.Document) (*service.IngestResult, error)
	IngestBatch(ctx context.Context, docs []*domain.Document) ([]*service.IngestResult, error)
	IndexStats(ctx context.Context) (index.Stats, error)
}

type DocumentHandler struct {
	svc IngestService
}

func NewDocumentHandler(svc IngestService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type PricePointRequest struct {
	Day    string  `json:"day"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type DocumentRequest struct {
	ID          string              `json:"id"`
	Symbol      string              `json:"symbol"`
	Source      string              `json:"source"`
	Title       string              `json:"title"`
	Body        string              `json:"body"`
	Points      []PricePointRequest `json:"points"`
	PublishedAt time.Time           `json:"published_at"`
}

// IngestRequest carries one document or a batch. A bare document object is
// also accepted for single ingests.
type IngestRequest struct {
	Documents []DocumentRequest `json:"documents"`
}

type IngestResponse struct {
	DocumentID  string   `json:"document_id"`
	Symbol      string   `json:"symbol"`
	ChunkIDs    []string `json:"chunk_ids"`
	PricePoints int      `json:"price_points,omitempty"`
	ArchiveKey  string   `json:"archive_key,omitempty"`
}

type IngestBatchResponse struct {
	Results []*IngestResponse `json:"results"`
	Count   int               `json:"count"`
}

const dayFormat = "2006-01-02"

func toDocument(req DocumentRequest) (*domain.Document, error) {
	source, err := domain.ParseSourceType(req.Source)
	if err != nil {
		return nil, err
	}

	doc := domain.NewDocument(req.ID, req.Symbol, source, req.Title, req.PublishedAt)
	doc.Body = req.Body
	for _, p := range req.Points {
		day, err := time.Parse(dayFormat, p.Day)
		if err != nil {
			return nil, err
		}
		doc.Points = append(doc.Points, domain.PricePoint{
			Day:    day.UTC(),
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Close:  p.Close,
			Volume: p.Volume,
		})
	}
	return doc, nil
}

func ingestToResponse(r *service.IngestResult) *IngestResponse {
	return &IngestResponse{
		DocumentID:  r.DocumentID,
		Symbol:      r.Symbol,
		ChunkIDs:    r.ChunkIDs,
		PricePoints: r.PricePoints,
		ArchiveKey:  r.ArchiveKey,
	}
}

func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "failed to read request body")
		return
	}

	var req IngestRequest
	if err := json.Unmarshal(body, &req); err != nil || len(req.Documents) == 0 {
		var single DocumentRequest
		if err := json.Unmarshal(body, &single); err != nil {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
			return
		}
		if single.Symbol == "" && single.ID == "" {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "document or documents is required")
			return
		}
		req.Documents = []DocumentRequest{single}
	}

	docs := make([]*domain.Document, len(req.Documents))
	for i, dr := range req.Documents {
		doc, err := toDocument(dr)
		if err != nil {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, err.Error())
			return
		}
		docs[i] = doc
	}

	if len(docs) == 1 {
		result, err := h.svc.Ingest(r.Context(), docs[0])
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusCreated, ingestToResponse(result))
		return
	}

	results, err := h.svc.IngestBatch(r.Context(), docs)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*IngestResponse, len(results))
	for i, res := range results {
		responses[i] = ingestToResponse(res)
	}
	api.Success(w, http.StatusCreated, IngestBatchResponse{
		Results: responses,
		Count:   len(responses),
	})
}

func (h *DocumentHandler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.IndexStats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, stats)
}
