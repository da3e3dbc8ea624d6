package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/batch-etl/internal/app"
	"github.com/dvloznov/batch-etl/internal/config"
	"github.com/dvloznov/batch-etl/internal/logger"
	"github.com/dvloznov/batch-etl/internal/objectstore"
	"github.com/dvloznov/batch-etl/internal/pipeline"
)

// usage is printed when the job arguments do not resolve.
const usage = `Usage: batchjob [-config FILE] [-timeout D] -- --JOB_NAME NAME --input_path URI --output_path URI --database_name DB --table_name TABLE [--job-bookmark-option OPTION]`

func main() {
	configPath := flag.String("config", os.Getenv("BATCH_ETL_CONFIG"), "Path to YAML config file (or set BATCH_ETL_CONFIG env)")
	timeout := flag.Duration("timeout", 30*time.Minute, "Maximum run time")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize structured logger
	log := logger.NewWithLevel(cfg.LogLevel)

	args, err := config.ParseJobArgs(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		log.Fatal().Err(err).Msg("Invalid job arguments")
	}

	// Create context with timeout so the job doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	input, err := objectstore.ParseURI(args.InputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid input path")
	}
	output, err := objectstore.ParseURI(args.OutputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid output path")
	}

	cfg.Storage.Scheme = input.Scheme
	stores, closeStores, err := app.OpenStores(ctx, cfg, output.Scheme)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open object stores")
	}
	defer closeStores()

	cat, closeCatalog, err := app.OpenCatalog(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open catalog")
	}
	defer closeCatalog()

	rc := pipeline.NewRunContext(args, "", time.Now())
	state, err := pipeline.Run(ctx, rc, pipeline.Deps{Storage: stores, Catalog: cat})
	if err != nil {
		log.Fatal().Err(err).Str("job_run_id", rc.RunID).Msg("Batch job failed")
	}

	if state.Skipped {
		fmt.Println("No new input; batch job skipped.")
		return
	}
	fmt.Printf("Batch job %s completed: wrote %s\n", rc.RunID, state.DataFile)
}
