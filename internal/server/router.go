package server

import (
	"net/http"

	"github.com/cloo-solutions/finsight/internal/api"
	"github.com/cloo-solutions/finsight/internal/api/handlers"
	"github.com/cloo-solutions/finsight/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	// APIKey enables bearer authentication on /v1 routes when non-empty.
	APIKey          string
	DocumentHandler *handlers.DocumentHandler
	InsightHandler  *handlers.InsightHandler
	SymbolHandler   *handlers.SymbolHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(middleware.StaticAPIKey(cfg.APIKey))
		}

		r.Post("/documents", cfg.DocumentHandler.Ingest)
		r.Get("/index/stats", cfg.DocumentHandler.IndexStats)

		r.Post("/insights", cfg.InsightHandler.Answer)

		r.Route("/symbols", func(r chi.Router) {
			r.Get("/", cfg.SymbolHandler.List)
			r.Get("/{symbol}/risk", cfg.SymbolHandler.Risk)
			r.Get("/{symbol}/series", cfg.SymbolHandler.Series)
			r.Post("/{symbol}/refresh", cfg.SymbolHandler.Refresh)
		})
	})

	return r
}
