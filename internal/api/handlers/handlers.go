package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/batch-etl/internal/api/middleware"
	"github.com/dvloznov/batch-etl/internal/ingress"
	"github.com/dvloznov/batch-etl/internal/jobs"
)

// maxEventBytes bounds the size of an event notification body.
const maxEventBytes = 1 << 20

// EventHandler is the part of ingress.Handler the HTTP adapter needs.
type EventHandler interface {
	Handle(ctx context.Context, event ingress.Event) ingress.Response
}

// EventsHandler handles object-created notifications.
type EventsHandler struct {
	handler EventHandler
	log     zerolog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(handler EventHandler, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		handler: handler,
		log:     log,
	}
}

// HandleEvent handles POST /events
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var event ingress.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&event); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid event body")
		return
	}

	resp := h.handler.Handle(r.Context(), event)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write([]byte(resp.Body)); err != nil {
		h.log.Error().Err(err).Msg("Failed to write event response")
	}
}

// JobsHandler handles job-run endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobRunID string) {
	ctx := r.Context()

	run, err := h.store.GetJobRun(ctx, jobRunID)
	if errors.Is(err, jobs.ErrJobRunNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job run not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_run_id", jobRunID).Msg("Failed to get job run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job run")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, run)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		JobName: query.Get("job_name"),
		Status:  jobs.JobRunStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		filter.Offset = offset
	}

	runs, err := h.store.ListJobRuns(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list job runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list job runs")
		return
	}
	if runs == nil {
		runs = []*jobs.JobRun{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_runs": runs,
		"count":    len(runs),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
