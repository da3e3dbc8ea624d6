// Package pipeline implements the batch transform job: load, clean, transform,
// quality check, persist, catalog, report and commit.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/batch-etl/internal/bookmark"
	"github.com/dvloznov/batch-etl/internal/catalog"
	"github.com/dvloznov/batch-etl/internal/config"
	"github.com/dvloznov/batch-etl/internal/jobs"
	"github.com/dvloznov/batch-etl/internal/logger"
	"github.com/dvloznov/batch-etl/internal/metrics"
	"github.com/dvloznov/batch-etl/internal/objectstore"
)

// RunContext carries everything a run reads from its environment. Now is the
// single instant the run is stamped with: lineage columns, partition date and
// report name all derive from it.
type RunContext struct {
	JobName        string
	RunID          string
	InputPath      string
	OutputPath     string
	Database       string
	Table          string
	BookmarkOption bookmark.Option
	Now            time.Time

	// Clock stamps quality metrics and bookmark commits. Defaults to time.Now.
	Clock func() time.Time
}

func (rc RunContext) clock() func() time.Time {
	if rc.Clock != nil {
		return rc.Clock
	}
	return time.Now
}

// NewRunContext builds a run context from resolved job arguments.
func NewRunContext(args config.JobArgs, runID string, now time.Time) RunContext {
	if runID == "" {
		runID = uuid.New().String()
	}
	return RunContext{
		JobName:        args.JobName,
		RunID:          runID,
		InputPath:      args.InputPath,
		OutputPath:     args.OutputPath,
		Database:       args.DatabaseName,
		Table:          args.TableName,
		BookmarkOption: args.BookmarkOption,
		Now:            now.UTC(),
	}
}

// PartitionURI is <output>/year=Y/month=M/day=D for the date of now, unpadded.
func PartitionURI(output objectstore.URI, now time.Time) objectstore.URI {
	now = now.UTC()
	return output.Join(
		fmt.Sprintf("year=%d", now.Year()),
		fmt.Sprintf("month=%d", int(now.Month())),
		fmt.Sprintf("day=%d", now.Day()),
	)
}

// ReportURI names the quality report object of a run.
func ReportURI(output objectstore.URI, now time.Time, runID string) objectstore.URI {
	return output.Join(QualityReportsDir, fmt.Sprintf("part-%s-%s.json", now.UTC().Format(BatchIDLayout), runID))
}

// Deps are the external services a run uses.
type Deps struct {
	Storage StorageService
	Catalog catalog.Catalog
}

// Run executes the batch transform pipeline for rc.
func Run(ctx context.Context, rc RunContext, deps Deps) (*PipelineState, error) {
	input, err := objectstore.ParseURI(rc.InputPath)
	if err != nil {
		return nil, fmt.Errorf("input_path: %w", err)
	}
	output, err := objectstore.ParseURI(rc.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("output_path: %w", err)
	}

	log := logger.WithRun(logger.FromContext(ctx), rc.JobName, rc.RunID)
	ctx = logger.WithContext(ctx, log)
	log.Info().
		Str("input_path", rc.InputPath).
		Str("output_path", rc.OutputPath).
		Str("table", rc.Database+"."+rc.Table).
		Str("bookmark", string(rc.BookmarkOption)).
		Msg("Starting batch transform job")

	state := &PipelineState{Run: rc, Input: input, Output: output}
	if err := NewBatchTransformPipeline(deps.Storage, deps.Catalog).Execute(ctx, state); err != nil {
		return state, err
	}

	log.Info().Bool("skipped", state.Skipped).Msg("Batch transform job succeeded")
	return state, nil
}

// NewJobHandler adapts Run to a job queue consumer. clock supplies the run
// instant; nil means time.Now.
func NewJobHandler(deps Deps, clock func() time.Time) jobs.JobHandler {
	if clock == nil {
		clock = time.Now
	}
	return func(ctx context.Context, run *jobs.JobRun) error {
		metrics.JobRunsInFlight.Inc()
		defer metrics.JobRunsInFlight.Dec()

		args, err := config.ParseJobArgs(config.Argv(run.Arguments))
		if err != nil {
			metrics.JobRunsTotal.WithLabelValues(run.JobName, string(jobs.JobRunStatusFailed)).Inc()
			return err
		}

		rc := NewRunContext(args, run.JobRunID, clock())
		rc.Clock = clock
		if _, err := Run(ctx, rc, deps); err != nil {
			metrics.JobRunsTotal.WithLabelValues(run.JobName, string(jobs.JobRunStatusFailed)).Inc()
			return err
		}
		metrics.JobRunsTotal.WithLabelValues(run.JobName, string(jobs.JobRunStatusSucceeded)).Inc()
		return nil
	}
}
