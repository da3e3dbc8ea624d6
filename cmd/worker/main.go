package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/batch-etl/internal/api/handlers"
	"github.com/dvloznov/batch-etl/internal/app"
	"github.com/dvloznov/batch-etl/internal/config"
	"github.com/dvloznov/batch-etl/internal/jobs"
	"github.com/dvloznov/batch-etl/internal/jobs/inmemory"
	"github.com/dvloznov/batch-etl/internal/logger"
	"github.com/dvloznov/batch-etl/internal/pipeline"
)

func main() {
	configPath := flag.String("config", os.Getenv("BATCH_ETL_CONFIG"), "Path to YAML config file (or set BATCH_ETL_CONFIG env)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	if cfg.Trigger.Backend != config.BackendAMQP {
		log.Fatal().Str("backend", cfg.Trigger.Backend).Msg("Worker requires the amqp trigger backend")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	stores, closeStores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open object stores")
	}
	defer closeStores()

	cat, closeCatalog, err := app.OpenCatalog(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open catalog")
	}
	defer closeCatalog()

	// Runs this worker executes, served on /api/jobs next to /metrics.
	jobStore := inmemory.NewStore()
	queue, err := app.OpenQueue(cfg, jobStore)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to job queue")
	}

	handler := pipeline.NewJobHandler(pipeline.Deps{Storage: stores, Catalog: cat}, nil)
	if err := queue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newStatusMux(jobStore, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	log.Info().
		Str("queue", cfg.Trigger.Queue).
		Int("prefetch", cfg.Trigger.Workers).
		Str("metrics_addr", cfg.ListenAddr).
		Msg("Worker service started, waiting for job runs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop consuming and wait for in-flight runs
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop metrics server")
	}

	log.Info().Msg("Worker service exited")
}

// newStatusMux serves metrics, health and the runs this worker has executed.
func newStatusMux(store jobs.JobStore, log zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", handlers.Health)

	jobsHandler := handlers.NewJobsHandler(store, log)
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		jobsHandler.GetJob(w, r, r.PathValue("id"))
	})
	return mux
}
