// Package amqp distributes job runs over a durable RabbitMQ queue.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dvloznov/batch-etl/internal/jobs"
	"github.com/dvloznov/batch-etl/internal/logger"
)

// Channel is the subset of *amqp.Channel the queue uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Close() error
}

// Queue publishes job runs as persistent JSON messages and consumes them with
// manual acknowledgement. A failed run is republished while it has retries left;
// otherwise it is dropped without requeueing.
type Queue struct {
	conn     *amqp.Connection
	ch       Channel
	name     string
	consumer string
	prefetch int
	store    jobs.JobStore

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// Dial connects to url, retrying for a short while, and declares the durable queue.
func Dial(url, queue string, prefetch int, store jobs.JobStore) (*Queue, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		time.Sleep(time.Second * time.Duration(1+i))
	}
	if err != nil {
		return nil, fmt.Errorf("amqp.Dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp.Dial: opening channel: %w", err)
	}

	q, err := NewQueue(ch, queue, prefetch, store)
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.conn = conn
	return q, nil
}

// NewQueue declares queue on ch.
func NewQueue(ch Channel, queue string, prefetch int, store jobs.JobStore) (*Queue, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("amqp.NewQueue: declaring %s: %w", queue, err)
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Queue{
		ch:       ch,
		name:     queue,
		consumer: "batch-etl-worker",
		prefetch: prefetch,
		store:    store,
	}, nil
}

// PublishJobRun implements jobs.Publisher.
func (q *Queue) PublishJobRun(ctx context.Context, run *jobs.JobRun) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("PublishJobRun: encoding: %w", err)
	}

	err = q.ch.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    run.JobRunID,
		Timestamp:    run.CreatedAt,
		Type:         run.JobName,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("PublishJobRun: %w", err)
	}
	return nil
}

// Start implements jobs.Consumer. Deliveries are handled one at a time.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	if err := q.ch.Qos(q.prefetch, 0, false); err != nil {
		return fmt.Errorf("Start: setting qos: %w", err)
	}
	deliveries, err := q.ch.Consume(q.name, q.consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("Start: consuming %s: %w", q.name, err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				q.process(ctx, d.Body, d, handler)
			}
		}
	}()
	return nil
}

// Acknowledger is the subset of amqp.Delivery used to settle a message.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (q *Queue) process(ctx context.Context, body []byte, ack Acknowledger, handler jobs.JobHandler) {
	log := logger.FromContext(ctx)

	var run jobs.JobRun
	if err := json.Unmarshal(body, &run); err != nil || run.JobRunID == "" {
		log.Error().Err(err).Msg("Discarding malformed job run message")
		_ = ack.Nack(false, false)
		return
	}

	log = logger.WithRun(log, run.JobName, run.JobRunID)
	now := time.Now().UTC()
	run.Status = jobs.JobRunStatusRunning
	run.StartedAt = &now
	q.save(ctx, &run)

	err := handler(logger.WithContext(ctx, log), run.Clone())

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	if err == nil {
		run.Status = jobs.JobRunStatusSucceeded
		run.Error = ""
		q.save(ctx, &run)
		log.Info().Msg("Job run succeeded")
		_ = ack.Ack(false)
		return
	}

	run.Error = err.Error()
	if run.RetryCount < run.MaxRetries {
		retry := run.Clone()
		retry.RetryCount++
		retry.Status = jobs.JobRunStatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		perr := q.PublishJobRun(ctx, retry)
		if perr == nil {
			run.RetryCount = retry.RetryCount
			run.Status = jobs.JobRunStatusRetrying
			q.save(ctx, &run)
			log.Warn().Err(err).Int("retry", retry.RetryCount).Msg("Job run failed, retrying")
			_ = ack.Ack(false)
			return
		}
		log.Error().Err(perr).Msg("Failed to republish job run")
	}

	run.Status = jobs.JobRunStatusFailed
	q.save(ctx, &run)
	log.Error().Err(err).Msg("Job run failed")
	_ = ack.Nack(false, false)
}

func (q *Queue) save(ctx context.Context, run *jobs.JobRun) {
	if q.store != nil {
		_ = q.store.SaveJobRun(ctx, run)
	}
}

// Stop implements jobs.Consumer.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	_ = q.ch.Cancel(q.consumer, false)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := q.ch.Close(); err != nil {
		return fmt.Errorf("Stop: closing channel: %w", err)
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// Close implements jobs.Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
