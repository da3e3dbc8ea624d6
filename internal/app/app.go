// Package app builds the storage, catalog and trigger backends named by a Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/batch-etl/internal/catalog"
	bqcatalog "github.com/dvloznov/batch-etl/internal/catalog/bigquery"
	memcatalog "github.com/dvloznov/batch-etl/internal/catalog/inmemory"
	"github.com/dvloznov/batch-etl/internal/config"
	"github.com/dvloznov/batch-etl/internal/jobs"
	amqpqueue "github.com/dvloznov/batch-etl/internal/jobs/amqp"
	memqueue "github.com/dvloznov/batch-etl/internal/jobs/inmemory"
	"github.com/dvloznov/batch-etl/internal/objectstore"
	"github.com/dvloznov/batch-etl/internal/objectstore/gcs"
	"github.com/dvloznov/batch-etl/internal/objectstore/inmemory"
	"github.com/dvloznov/batch-etl/internal/objectstore/s3"
)

// Closer releases a backend.
type Closer func() error

// OpenStores registers a Store for the configured scheme and for each extra
// scheme. The mem scheme is always available.
func OpenStores(ctx context.Context, cfg *config.Config, schemes ...string) (*objectstore.Mux, Closer, error) {
	mux := objectstore.NewMux()
	mux.Register(objectstore.SchemeMemory, inmemory.NewStore())

	var closers []Closer
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	wanted := append([]string{cfg.Storage.Scheme}, schemes...)
	for _, scheme := range wanted {
		if _, err := mux.Store(scheme); err == nil {
			continue
		}
		switch scheme {
		case objectstore.SchemeGCS:
			store, err := gcs.NewStore(ctx)
			if err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("OpenStores: %w", err)
			}
			closers = append(closers, store.Close)
			mux.Register(scheme, store)
		case objectstore.SchemeS3:
			store, err := s3.NewStore(s3.Options{
				Endpoint:  cfg.Storage.S3.Endpoint,
				AccessKey: cfg.Storage.S3.AccessKey,
				SecretKey: cfg.Storage.S3.SecretKey,
				Region:    cfg.Storage.S3.Region,
				UseSSL:    cfg.Storage.S3.UseSSL,
			})
			if err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("OpenStores: %w", err)
			}
			mux.Register(scheme, store)
		default:
			_ = closeAll()
			return nil, nil, fmt.Errorf("OpenStores: unsupported scheme %q", scheme)
		}
	}
	return mux, closeAll, nil
}

// OpenCatalog returns the configured catalog backend.
func OpenCatalog(ctx context.Context, cfg *config.Config) (catalog.Catalog, Closer, error) {
	switch cfg.Catalog.Backend {
	case config.BackendBigQuery:
		cat, err := bqcatalog.NewCatalog(ctx, cfg.Catalog.ProjectID, cfg.Catalog.Location)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenCatalog: %w", err)
		}
		return cat, cat.Close, nil
	case config.BackendInMemory, "":
		return memcatalog.NewCatalog(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("OpenCatalog: unknown backend %q", cfg.Catalog.Backend)
	}
}

// Definition is the job definition described by cfg.
func Definition(cfg *config.Config) jobs.Definition {
	return jobs.Definition{
		Name:             cfg.Job.Name,
		DefaultArguments: cfg.Job.DefaultArguments,
		MaxRetries:       cfg.Job.MaxRetries,
	}
}

// Queue is a job-run publisher that can also consume.
type Queue interface {
	jobs.Publisher
	jobs.Consumer
}

// OpenQueue returns the configured trigger backend, recording runs in store.
func OpenQueue(cfg *config.Config, store jobs.JobStore) (Queue, error) {
	switch cfg.Trigger.Backend {
	case config.BackendAMQP:
		q, err := amqpqueue.Dial(cfg.Trigger.AMQPURL, cfg.Trigger.Queue, cfg.Trigger.Workers, store)
		if err != nil {
			return nil, fmt.Errorf("OpenQueue: %w", err)
		}
		return q, nil
	case config.BackendInMemory, "":
		return memqueue.NewQueue(cfg.Trigger.BufferSize, cfg.Trigger.Workers, store), nil
	default:
		return nil, fmt.Errorf("OpenQueue: unknown backend %q", cfg.Trigger.Backend)
	}
}
