package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dvloznov/batch-etl/internal/bookmark"
	"github.com/dvloznov/batch-etl/internal/catalog"
	"github.com/dvloznov/batch-etl/internal/columnar"
	"github.com/dvloznov/batch-etl/internal/dataset"
	"github.com/dvloznov/batch-etl/internal/logger"
	"github.com/dvloznov/batch-etl/internal/metrics"
	"github.com/dvloznov/batch-etl/internal/objectstore"
)

// PipelineStep represents a single step in the batch transform pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Run    RunContext
	Input  objectstore.URI
	Output objectstore.URI

	Bookmark *bookmark.Tracker
	Inputs   []objectstore.URI

	Dataset *dataset.Dataset
	Cleaned CleanResult
	Quality []QualityMetric

	DataFile   objectstore.URI
	ReportFile objectstore.URI
	Catalog    catalog.Result

	// Skipped is set when there is nothing new to process; the remaining steps
	// do not run and the run still succeeds.
	Skipped bool
}

// Step 1: LoadStep reads every document at the input path.
type LoadStep struct {
	Storage StorageService
}

func (s *LoadStep) Name() string { return "load" }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	found, err := s.Storage.List(ctx, state.Input)
	if err != nil {
		return fmt.Errorf("listing %s: %w", state.Input, err)
	}
	inputs := make([]objectstore.URI, 0, len(found))
	for _, u := range found {
		if hiddenBelow(state.Input, u) {
			continue
		}
		inputs = append(inputs, u)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("path does not exist: %s", state.Input)
	}

	tracker, err := bookmark.Open(ctx, s.Storage, state.Run.BookmarkOption, state.Output, state.Run.JobName)
	if err != nil {
		return err
	}
	state.Bookmark = tracker

	state.Inputs = tracker.Filter(inputs)
	if len(state.Inputs) == 0 {
		log.Info().Int("inputs", len(inputs)).Msg("All inputs already processed, nothing to do")
		state.Skipped = true
		return nil
	}

	docs := make([][]byte, 0, len(state.Inputs))
	for _, u := range state.Inputs {
		data, err := s.Storage.Get(ctx, u)
		if err != nil {
			return fmt.Errorf("reading %s: %w", u, err)
		}
		docs = append(docs, data)
	}

	state.Dataset = dataset.ReadJSON(docs...)
	metrics.RowsLoadedTotal.Add(float64(state.Dataset.NumRows()))
	log.Info().
		Int("objects", len(state.Inputs)).
		Int("rows", state.Dataset.NumRows()).
		Int("columns", state.Dataset.NumColumns()).
		Msg("Loaded input records")
	return nil
}

// hidden reports whether a path segment is ignored when reading a path, as with
// "_SUCCESS" markers, "_temporary/" directories or ".tmp" files.
func hidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

// hiddenBelow reports whether any segment of u's key below the input path is hidden.
// The input path itself is never filtered.
func hiddenBelow(input, u objectstore.URI) bool {
	rel := strings.TrimPrefix(u.Key, strings.TrimSuffix(input.Key, "/"))
	for _, seg := range strings.Split(rel, "/") {
		if seg != "" && hidden(seg) {
			return true
		}
	}
	return false
}

// Step 2: CleanStep drops near-empty columns and duplicate rows.
type CleanStep struct{}

func (s *CleanStep) Name() string { return "clean" }

func (s *CleanStep) Execute(ctx context.Context, state *PipelineState) error {
	cleaned, res := Clean(state.Dataset)
	state.Dataset = cleaned
	state.Cleaned = res

	metrics.ColumnsDroppedTotal.Add(float64(len(res.DroppedColumns)))
	metrics.DuplicatesRemovedTotal.Add(float64(res.DuplicatesRemoved))

	log := logger.FromContext(ctx)
	log.Info().
		Strs("dropped_columns", res.DroppedColumns).
		Int("duplicates_removed", res.DuplicatesRemoved).
		Int("rows", cleaned.NumRows()).
		Msg("Cleaned dataset")
	return nil
}

// Step 3: TransformStep adds lineage columns and normalizes names and strings.
type TransformStep struct{}

func (s *TransformStep) Name() string { return "transform" }

func (s *TransformStep) Execute(ctx context.Context, state *PipelineState) error {
	out, err := Transform(state.Dataset, state.Run.Now)
	if err != nil {
		return err
	}
	state.Dataset = out
	return nil
}

// Step 4: QualityStep computes the quality report.
type QualityStep struct{}

func (s *QualityStep) Name() string { return "quality" }

func (s *QualityStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Quality = ComputeQuality(state.Dataset, state.Run.clock())

	log := logger.FromContext(ctx)
	for _, m := range state.Quality {
		log.Debug().Str("metric", m.MetricName).Str("value", m.MetricValue).Msg("Quality metric")
	}
	return nil
}

// Step 5: PersistStep overwrites the run date's partition with a Parquet file.
type PersistStep struct {
	Storage StorageService
}

func (s *PersistStep) Name() string { return "persist" }

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	partition := PartitionURI(state.Output, state.Run.Now)

	data, err := columnar.EncodeParquet(state.Dataset)
	if err != nil {
		return err
	}

	removed, err := s.Storage.DeletePrefix(ctx, partition)
	if err != nil {
		return fmt.Errorf("clearing %s: %w", partition, err)
	}

	state.DataFile = partition.Join(DataFilePrefix + state.Run.RunID + columnar.FileSuffix)
	if err := s.Storage.Put(ctx, state.DataFile, data, columnar.ContentType); err != nil {
		return fmt.Errorf("writing %s: %w", state.DataFile, err)
	}

	metrics.RowsWrittenTotal.Add(float64(state.Dataset.NumRows()))
	log := logger.FromContext(ctx)
	log.Info().
		Str("path", state.DataFile.String()).
		Int("replaced_objects", removed).
		Int("rows", state.Dataset.NumRows()).
		Msg("Wrote partition")
	return nil
}

// Step 6: CatalogStep registers the output as a table. Failures are logged and
// counted but never fail the run.
type CatalogStep struct {
	Catalog catalog.Catalog
}

func (s *CatalogStep) Name() string { return "catalog" }

func (s *CatalogStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	if s.Catalog == nil {
		log.Warn().Msg("No catalog configured, skipping table registration")
		return nil
	}

	spec := catalog.TableSpec{
		Database: state.Run.Database,
		Table:    state.Run.Table,
		Location: strings.TrimSuffix(state.Output.String(), "/"),
		Format:   catalog.FormatParquet,
	}
	state.Catalog = catalog.Register(ctx, s.Catalog, spec)
	if !state.Catalog.OK() {
		metrics.CatalogErrorsTotal.Inc()
		log.Error().Err(state.Catalog.Err).Msg("Catalog update failed, continuing")
		return nil
	}

	log.Info().
		Str("table", spec.Database+"."+spec.Table).
		Bool("database_created", state.Catalog.DatabaseCreated).
		Bool("table_created", state.Catalog.TableCreated).
		Msg("Catalog updated")
	return nil
}

// Step 7: ReportStep writes the quality report as a new object. Earlier reports
// are never touched, so a rerun adds a second set of rows.
type ReportStep struct {
	Storage StorageService
}

func (s *ReportStep) Name() string { return "report" }

func (s *ReportStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := EncodeReport(state.Quality)
	if err != nil {
		return err
	}

	state.ReportFile = ReportURI(state.Output, state.Run.Now, state.Run.RunID)
	if err := s.Storage.Put(ctx, state.ReportFile, data, ReportContentType); err != nil {
		return fmt.Errorf("writing %s: %w", state.ReportFile, err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("path", state.ReportFile.String()).Int("metrics", len(state.Quality)).Msg("Wrote quality report")
	return nil
}

// Step 8: CommitStep records the processed inputs in the job bookmark.
type CommitStep struct{}

func (s *CommitStep) Name() string { return "commit" }

func (s *CommitStep) Execute(ctx context.Context, state *PipelineState) error {
	return state.Bookmark.Commit(ctx, state.Inputs, state.Run.clock()())
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps sequentially. It stops at the first error, or without
// error once a step marks the state as skipped.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		timer := prometheus.NewTimer(metrics.StepDurationSeconds.WithLabelValues(step.Name()))
		err := step.Execute(logger.WithContext(ctx, logger.FromContext(ctx).With().Str("step", step.Name()).Logger()), state)
		timer.ObserveDuration()
		if err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		if state.Skipped {
			return nil
		}
	}
	return nil
}

// NewBatchTransformPipeline creates the standard 8-step batch transform pipeline.
func NewBatchTransformPipeline(storage StorageService, cat catalog.Catalog) *Pipeline {
	return NewPipeline(
		&LoadStep{Storage: storage},
		&CleanStep{},
		&TransformStep{},
		&QualityStep{},
		&PersistStep{Storage: storage},
		&CatalogStep{Catalog: cat},
		&ReportStep{Storage: storage},
		&CommitStep{},
	)
}
