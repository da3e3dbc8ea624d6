package jobs

import (
	"context"
	"errors"
	"time"
)

// JobRunStatus represents the current status of a job run.
type JobRunStatus string

const (
	// JobRunStatusPending indicates the run is waiting for a worker.
	JobRunStatusPending JobRunStatus = "pending"
	// JobRunStatusRunning indicates the run is executing.
	JobRunStatusRunning JobRunStatus = "running"
	// JobRunStatusSucceeded indicates the run completed successfully.
	JobRunStatusSucceeded JobRunStatus = "succeeded"
	// JobRunStatusFailed indicates the run failed and will not be retried.
	JobRunStatusFailed JobRunStatus = "failed"
	// JobRunStatusRetrying indicates the run failed and is scheduled again.
	JobRunStatusRetrying JobRunStatus = "retrying"
)

// ErrJobRunNotFound is returned by JobStore lookups for unknown run ids.
var ErrJobRunNotFound = errors.New("job run not found")

// JobRun is one requested execution of a job.
type JobRun struct {
	// JobRunID is the unique identifier for this run.
	JobRunID string `json:"job_run_id"`

	// JobName names the job definition the run belongs to.
	JobName string `json:"job_name"`

	// Arguments are the resolved "--key" arguments passed to the job.
	Arguments map[string]string `json:"arguments"`

	Status JobRunStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the run failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this run has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Clone returns a deep copy of the run.
func (r *JobRun) Clone() *JobRun {
	c := *r
	if r.Arguments != nil {
		c.Arguments = make(map[string]string, len(r.Arguments))
		for k, v := range r.Arguments {
			c.Arguments[k] = v
		}
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Definition is a job the launcher knows how to start.
type Definition struct {
	Name string

	// DefaultArguments are merged under the arguments of every run.
	DefaultArguments map[string]string

	// MaxRetries is how often a failed run is retried. Zero disables retries.
	MaxRetries int
}

// Publisher defines the interface for publishing job runs to a queue.
type Publisher interface {
	// PublishJobRun enqueues a job run for asynchronous execution.
	PublishJobRun(ctx context.Context, run *JobRun) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming job runs from a queue.
type Consumer interface {
	// Start begins consuming job runs from the queue.
	// The handler function is called for each run received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight runs to complete.
	Stop(ctx context.Context) error
}

// JobHandler executes a job run. A returned error marks the run failed.
type JobHandler func(ctx context.Context, run *JobRun) error

// JobStore defines the interface for storing and retrieving job run state.
type JobStore interface {
	// SaveJobRun saves or updates a run's state.
	SaveJobRun(ctx context.Context, run *JobRun) error

	// GetJobRun retrieves a run by ID.
	GetJobRun(ctx context.Context, jobRunID string) (*JobRun, error)

	// ListJobRuns retrieves runs with optional filtering, newest first.
	ListJobRuns(ctx context.Context, filter JobFilter) ([]*JobRun, error)

	// UpdateJobRunStatus updates the status of a run.
	UpdateJobRunStatus(ctx context.Context, jobRunID string, status JobRunStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing job runs.
type JobFilter struct {
	JobName string
	Status  JobRunStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
