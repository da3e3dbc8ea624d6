package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/batch-etl/internal/api"
	"github.com/dvloznov/batch-etl/internal/app"
	"github.com/dvloznov/batch-etl/internal/config"
	"github.com/dvloznov/batch-etl/internal/ingress"
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

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	stores, closeStores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open object stores")
	}
	defer closeStores()

	// Job run state is kept in memory; with the amqp backend the worker
	// records the execution side of each run.
	jobStore := inmemory.NewStore()
	queue, err := app.OpenQueue(cfg, jobStore)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open job queue")
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.Trigger.Backend == config.BackendInMemory {
		cat, closeCatalog, err := app.OpenCatalog(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open catalog")
		}
		defer closeCatalog()

		handler := pipeline.NewJobHandler(pipeline.Deps{Storage: stores, Catalog: cat}, nil)
		if err := queue.Start(workerCtx, handler); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job workers")
		}
		log.Info().Int("workers", cfg.Trigger.Workers).Msg("Started in-process job workers")
	}

	launcher := jobs.NewLauncher(queue, jobStore, app.Definition(cfg))
	events := ingress.NewHandler(stores, launcher, ingress.Options{
		Scheme:         cfg.Storage.Scheme,
		JobName:        cfg.Job.Name,
		OutputPrefix:   cfg.Job.OutputPrefix,
		BookmarkOption: cfg.Job.BookmarkOption,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewRouter(events, jobStore, log),
		BaseContext:  func(net.Listener) context.Context { return ctx },
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("addr", cfg.ListenAddr).
			Str("scheme", cfg.Storage.Scheme).
			Str("trigger", cfg.Trigger.Backend).
			Msg("Starting ingress server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop accepting runs and wait for in-flight ones
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()
	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
