package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/batch-etl/internal/logger"
)

// Launcher starts runs of registered job definitions.
type Launcher struct {
	defs      map[string]Definition
	publisher Publisher
	store     JobStore
	now       func() time.Time
}

// NewLauncher creates a launcher publishing to pub. store may be nil.
func NewLauncher(pub Publisher, store JobStore, defs ...Definition) *Launcher {
	l := &Launcher{
		defs:      make(map[string]Definition, len(defs)),
		publisher: pub,
		store:     store,
		now:       time.Now,
	}
	for _, d := range defs {
		l.defs[d.Name] = d
	}
	return l
}

// StartJobRun requests an asynchronous run of jobName and returns its run id.
// Run arguments override the definition's defaults and "--JOB_NAME" is always set.
func (l *Launcher) StartJobRun(ctx context.Context, jobName string, args map[string]string) (string, error) {
	def, ok := l.defs[jobName]
	if !ok {
		return "", fmt.Errorf("StartJobRun: unknown job %q", jobName)
	}

	merged := make(map[string]string, len(def.DefaultArguments)+len(args)+1)
	for k, v := range def.DefaultArguments {
		merged[argKey(k)] = v
	}
	for k, v := range args {
		merged[argKey(k)] = v
	}
	merged["--JOB_NAME"] = jobName

	run := &JobRun{
		JobRunID:   uuid.New().String(),
		JobName:    jobName,
		Arguments:  merged,
		Status:     JobRunStatusPending,
		CreatedAt:  l.now().UTC(),
		MaxRetries: def.MaxRetries,
	}

	if l.store != nil {
		if err := l.store.SaveJobRun(ctx, run); err != nil {
			return "", fmt.Errorf("StartJobRun: saving run: %w", err)
		}
	}
	if err := l.publisher.PublishJobRun(ctx, run.Clone()); err != nil {
		if l.store != nil {
			_ = l.store.UpdateJobRunStatus(ctx, run.JobRunID, JobRunStatusFailed, err.Error())
		}
		return "", fmt.Errorf("StartJobRun: publishing run: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("job_name", jobName).
		Str("job_run_id", run.JobRunID).
		Msg("Job run requested")

	return run.JobRunID, nil
}

func argKey(k string) string {
	return "--" + strings.TrimPrefix(k, "--")
}
