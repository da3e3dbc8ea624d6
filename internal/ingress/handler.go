// Package ingress handles object-created events: it wraps the new object in a
// processed envelope, stores it, and requests a batch job run over it.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dvloznov/batch-etl/internal/config"
	"github.com/dvloznov/batch-etl/internal/logger"
	"github.com/dvloznov/batch-etl/internal/metrics"
	"github.com/dvloznov/batch-etl/internal/objectstore"
)

// Envelope objects are written under ProcessedPrefix/<UTC timestamp>/.
const (
	ProcessedPrefix   = "processed"
	TimestampLayout   = "20060102_150405"
	EnvelopeMediaType = "application/json"
	SuccessMessage    = "processing succeeded"
)

// Storage is the object store the handler reads from and writes to.
type Storage interface {
	Get(ctx context.Context, u objectstore.URI) ([]byte, error)
	Put(ctx context.Context, u objectstore.URI, data []byte, contentType string) error
}

// Trigger starts asynchronous job runs.
type Trigger interface {
	StartJobRun(ctx context.Context, jobName string, args map[string]string) (string, error)
}

// Options configure a Handler. Zero values fall back to the deployed defaults.
type Options struct {
	// Scheme of the bucket named in events (gs, s3 or mem).
	Scheme         string
	JobName        string
	OutputPrefix   string
	BookmarkOption string
	Clock          func() time.Time
}

// Handler processes one object-created event per call. It keeps no state between
// calls.
type Handler struct {
	storage Storage
	trigger Trigger
	opts    Options
}

// NewHandler creates a Handler.
func NewHandler(storage Storage, trigger Trigger, opts Options) *Handler {
	if opts.Scheme == "" {
		opts.Scheme = objectstore.SchemeGCS
	}
	if opts.JobName == "" {
		opts.JobName = config.DefaultJobName
	}
	if opts.OutputPrefix == "" {
		opts.OutputPrefix = config.DefaultOutputPrefix
	}
	if opts.BookmarkOption == "" {
		opts.BookmarkOption = config.DefaultBookmarkOption
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Handler{storage: storage, trigger: trigger, opts: opts}
}

// Response is the handler's HTTP-style result. Body is a JSON document.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessBody is the body of a 200 response.
type SuccessBody struct {
	Message        string `json:"message"`
	JobRunID       string `json:"job_run_id"`
	OutputLocation string `json:"output_location"`
}

// ErrorBody is the body of a 500 response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Handle runs the full ingress flow for event. Every failure becomes a 500
// response; nothing written before the failure is rolled back.
func (h *Handler) Handle(ctx context.Context, event Event) Response {
	log := logger.FromContext(ctx)

	result, err := h.process(ctx, event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to handle object-created event")
		metrics.IngressEventsTotal.WithLabelValues(outcome(err)).Inc()
		return newResponse(500, ErrorBody{Error: err.Error()})
	}

	metrics.IngressEventsTotal.WithLabelValues("success").Inc()
	return newResponse(200, result)
}

func (h *Handler) process(ctx context.Context, event Event) (SuccessBody, error) {
	bucket, key, err := event.Target()
	if err != nil {
		return SuccessBody{}, err
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"bucket": bucket,
		"key":    key,
	})
	log.Info().Msg("Processing uploaded object")

	source := objectstore.URI{Scheme: h.opts.Scheme, Bucket: bucket, Key: key}
	raw, err := h.storage.Get(ctx, source)
	if err != nil {
		return SuccessBody{}, &FetchError{Bucket: bucket, Key: key, Err: err}
	}
	if !utf8.Valid(raw) {
		return SuccessBody{}, &FetchError{Bucket: bucket, Key: key, Err: errors.New("object is not valid UTF-8")}
	}

	now := h.opts.Clock()
	envelope, fallback, err := BuildEnvelope(string(raw), now)
	if err != nil {
		return SuccessBody{}, fmt.Errorf("building envelope: %w", err)
	}
	if fallback {
		metrics.IngressParseFallbacksTotal.Inc()
		log.Warn().Msg("Payload is not valid JSON, writing error envelope")
	}

	target := source
	target.Key = EnvelopeKey(key, now)
	if err := h.storage.Put(ctx, target, envelope, EnvelopeMediaType); err != nil {
		return SuccessBody{}, fmt.Errorf("writing envelope %s: %w", target, err)
	}

	output := objectstore.URI{Scheme: h.opts.Scheme, Bucket: bucket, Key: h.opts.OutputPrefix}
	jobRunID, err := h.trigger.StartJobRun(ctx, h.opts.JobName, map[string]string{
		"--input_path":          target.String(),
		"--output_path":         output.String(),
		"--job-bookmark-option": h.opts.BookmarkOption,
	})
	if err != nil {
		return SuccessBody{}, fmt.Errorf("starting job %s: %w", h.opts.JobName, err)
	}

	log.Info().
		Str("job_run_id", jobRunID).
		Str("output_location", target.String()).
		Msg("Batch job started")

	return SuccessBody{
		Message:        SuccessMessage,
		JobRunID:       jobRunID,
		OutputLocation: target.String(),
	}, nil
}

// EnvelopeKey is processed/<UTC YYYYMMDD_HHMMSS>/<base name of key>.json.
func EnvelopeKey(key string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s.json", ProcessedPrefix, now.UTC().Format(TimestampLayout), objectstore.BaseName(key))
}

func outcome(err error) string {
	var fetchErr *FetchError
	var shapeErr *DataShapeError
	switch {
	case errors.As(err, &fetchErr):
		return "fetch_error"
	case errors.As(err, &shapeErr):
		return "data_shape_error"
	default:
		return "error"
	}
}

func newResponse(status int, body any) Response {
	b, err := json.Marshal(body)
	if err != nil {
		b, _ = json.Marshal(ErrorBody{Error: err.Error()})
		status = 500
	}
	return Response{StatusCode: status, Body: string(b)}
}
