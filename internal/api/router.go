// Package api exposes the pipeline over HTTP: one-shot resolution and
// transcription, plus asynchronous batch management.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/legadoives/transcritor/internal/api/handlers"
	"github.com/legadoives/transcritor/internal/api/middleware"
	"github.com/legadoives/transcritor/internal/pipeline"
)

// NewRouter wires the HTTP surface. rdb may be nil when no cache is
// configured.
func NewRouter(svc pipeline.Resolver, newBatch handlers.OrchestratorFactory, rdb *redis.Client, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(10, 20)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rdb)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	resolve := handlers.NewResolveHandler(svc)
	transcribe := handlers.NewTranscribeHandler(newBatch, logger)
	batches := handlers.NewBatchHandler(newBatch, logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/resolve", resolve.Resolve)
		r.Post("/transcribe", transcribe.Transcribe)

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", batches.Create)
			r.Get("/{batchID}", batches.Status)
			r.Post("/{batchID}/retry", batches.Retry)
			r.Delete("/{batchID}/jobs/{jobID}", batches.DiscardJob)
		})
	})

	return r
}
