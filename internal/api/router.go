// Package api assembles the HTTP surface of the ingress service.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/batch-etl/internal/api/handlers"
	"github.com/dvloznov/batch-etl/internal/api/middleware"
	"github.com/dvloznov/batch-etl/internal/jobs"
)

// NewRouter wires the routes and wraps them in the middleware chain.
// store may be nil, in which case the job endpoints are not registered.
func NewRouter(events handlers.EventHandler, store jobs.JobStore, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	eventsHandler := handlers.NewEventsHandler(events, log)
	mux.HandleFunc("POST /events", eventsHandler.HandleEvent)

	if store != nil {
		jobsHandler := handlers.NewJobsHandler(store, log)
		mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
			jobsHandler.GetJob(w, r, r.PathValue("id"))
		})
	}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)
}
