package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/batch-etl/internal/jobs"
	"github.com/dvloznov/batch-etl/internal/logger"
)

// Queue is an in-memory implementation of job run publisher and consumer.
// It uses Go channels for distribution and is safe for concurrent use.
// Suitable for single-instance deployments and testing; the amqp package
// serves multi-instance deployments.
type Queue struct {
	runChan   chan *jobs.JobRun
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	closed    bool

	// RetryBackoff is multiplied by the retry count before a failed run is
	// published again.
	RetryBackoff time.Duration
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many runs can be queued before PublishJobRun blocks;
// workers is how many runs execute concurrently.
func NewQueue(bufferSize, workers int, store jobs.JobStore) *Queue {
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		runChan:      make(chan *jobs.JobRun, bufferSize),
		closeChan:    make(chan struct{}),
		store:        store,
		workers:      workers,
		RetryBackoff: time.Second,
	}
}

// PublishJobRun implements the Publisher interface.
func (q *Queue) PublishJobRun(ctx context.Context, run *jobs.JobRun) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if run.JobRunID == "" {
		run.JobRunID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = jobs.JobRunStatusPending
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if q.store != nil {
		if err := q.store.SaveJobRun(ctx, run); err != nil {
			return fmt.Errorf("failed to save job run: %w", err)
		}
	}

	select {
	case q.runChan <- run:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case run := <-q.runChan:
			if run == nil {
				return
			}

			q.processRun(ctx, run, handler)
		}
	}
}

// processRun executes a single run with retry logic.
func (q *Queue) processRun(ctx context.Context, run *jobs.JobRun, handler jobs.JobHandler) {
	log := logger.WithRun(logger.FromContext(ctx), run.JobName, run.JobRunID)

	run.Status = jobs.JobRunStatusRunning
	now := time.Now().UTC()
	run.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJobRun(ctx, run)
	}

	err := handler(logger.WithContext(ctx, log), run.Clone())

	var retry *jobs.JobRun

	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt

	if err != nil {
		run.Error = err.Error()

		if run.RetryCount < run.MaxRetries {
			run.RetryCount++
			run.Status = jobs.JobRunStatusRetrying
			log.Warn().Err(err).Int("retry", run.RetryCount).Msg("Job run failed, retrying")

			retry = run.Clone()
			retry.Status = jobs.JobRunStatusPending
			retry.StartedAt = nil
			retry.CompletedAt = nil
		} else {
			run.Status = jobs.JobRunStatusFailed
			log.Error().Err(err).Msg("Job run failed")
		}
	} else {
		run.Status = jobs.JobRunStatusSucceeded
		run.Error = ""
		log.Info().Msg("Job run succeeded")
	}

	if q.store != nil {
		_ = q.store.SaveJobRun(ctx, run)
	}

	if retry != nil {
		backoff := time.Duration(retry.RetryCount) * q.RetryBackoff
		time.AfterFunc(backoff, func() {
			if err := q.PublishJobRun(ctx, retry); err != nil {
				log.Error().Err(err).Msg("Failed to republish job run")
			}
		})
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight runs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
