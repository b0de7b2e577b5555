package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridianpay/reconciler/internal/batch"
	"github.com/meridianpay/reconciler/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(recordRepo *repository.RecordRepo, svc *batch.Service) http.Handler {
	h := &Handlers{
		recordRepo: recordRepo,
		svc:        svc,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Records.
		r.Post("/records", h.CreateRecord)
		r.Get("/records", h.ListRecords)
		r.Get("/records/{id}", h.GetRecord)
		r.Post("/records/{id}/hyperswitch", h.UpsertHyperswitchSnapshot)
		r.Post("/records/{id}/connector", h.UpsertConnectorSnapshot)
		r.Post("/records/{id}/process", h.ProcessRecord)
		r.Post("/records/{id}/discrepancies/{index}/resolve", h.ResolveDiscrepancy)
		r.Post("/records/{id}/manual-review", h.MarkForManualReview)
		r.Post("/records/{id}/manual-review/complete", h.CompleteManualReview)

		// Batches.
		r.Post("/batches/{batchID}/run", h.RunBatch)

		// Reporting.
		r.Get("/summary", h.GetSummary)
		r.Get("/currencies", h.ListCurrencies)
	})

	return r
}
