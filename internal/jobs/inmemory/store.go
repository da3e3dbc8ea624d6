package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/batch-etl/internal/jobs"
)

// Store is an in-memory implementation of JobStore.
// Data is lost on service restart.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*jobs.JobRun
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{
		runs: make(map[string]*jobs.JobRun),
	}
}

// SaveJobRun implements the JobStore interface.
func (s *Store) SaveJobRun(ctx context.Context, run *jobs.JobRun) error {
	if run.JobRunID == "" {
		return fmt.Errorf("job run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.JobRunID] = run.Clone()
	return nil
}

// GetJobRun implements the JobStore interface.
func (s *Store) GetJobRun(ctx context.Context, jobRunID string) (*jobs.JobRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[jobRunID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobRunNotFound, jobRunID)
	}
	return run.Clone(), nil
}

// ListJobRuns implements the JobStore interface. Runs are ordered newest first.
func (s *Store) ListJobRuns(ctx context.Context, filter jobs.JobFilter) ([]*jobs.JobRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.JobRun{}
	for _, run := range s.runs {
		if filter.JobName != "" && run.JobName != filter.JobName {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		result = append(result, run.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].JobRunID < result[j].JobRunID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.JobRun{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateJobRunStatus implements the JobStore interface.
func (s *Store) UpdateJobRunStatus(ctx context.Context, jobRunID string, status jobs.JobRunStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, exists := s.runs[jobRunID]
	if !exists {
		return fmt.Errorf("%w: %s", jobs.ErrJobRunNotFound, jobRunID)
	}

	run.Status = status
	if errorMsg != "" {
		run.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
