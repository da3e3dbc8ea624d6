// Package bigquery registers datasets as BigQuery external tables over Parquet files.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/batch-etl/internal/catalog"
)

// Catalog maps catalog databases to BigQuery datasets and tables to Hive-partitioned
// external tables over the year=/month=/day= directories under the table location.
type Catalog struct {
	client   *bigquery.Client
	location string
}

// NewCatalog creates a BigQuery client for projectID. location is the region new
// datasets are created in; empty uses the BigQuery default.
func NewCatalog(ctx context.Context, projectID, location string) (*Catalog, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewCatalog: creating client: %w", err)
	}
	return &Catalog{client: client, location: location}, nil
}

// NewCatalogWithClient wraps an existing client.
func NewCatalogWithClient(client *bigquery.Client, location string) *Catalog {
	return &Catalog{client: client, location: location}
}

// Close closes the BigQuery client connection.
func (c *Catalog) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// CreateDatabaseIfNotExists implements catalog.Catalog.
func (c *Catalog) CreateDatabaseIfNotExists(ctx context.Context, name string) (bool, error) {
	err := c.client.Dataset(name).Create(ctx, &bigquery.DatasetMetadata{Location: c.location})
	switch {
	case err == nil:
		return true, nil
	case isStatus(err, http.StatusConflict):
		return false, nil
	default:
		return false, fmt.Errorf("CreateDatabaseIfNotExists: %w", err)
	}
}

// CreateTableIfNotExists implements catalog.Catalog.
func (c *Catalog) CreateTableIfNotExists(ctx context.Context, spec catalog.TableSpec) (bool, error) {
	table := c.client.Dataset(spec.Database).Table(spec.Table)

	if _, err := table.Metadata(ctx); err == nil {
		return false, nil
	} else if !isStatus(err, http.StatusNotFound) {
		return false, fmt.Errorf("CreateTableIfNotExists: reading metadata: %w", err)
	}

	meta, err := ExternalTableMetadata(spec)
	if err != nil {
		return false, fmt.Errorf("CreateTableIfNotExists: %w", err)
	}

	err = table.Create(ctx, meta)
	switch {
	case err == nil:
		return true, nil
	case isStatus(err, http.StatusConflict):
		return false, nil
	default:
		return false, fmt.Errorf("CreateTableIfNotExists: %w", err)
	}
}

// ExternalTableMetadata builds the table definition for spec.
func ExternalTableMetadata(spec catalog.TableSpec) (*bigquery.TableMetadata, error) {
	format := spec.Format
	if format == "" {
		format = catalog.FormatParquet
	}
	if format != catalog.FormatParquet {
		return nil, fmt.Errorf("unsupported table format %q", format)
	}
	if !strings.HasPrefix(spec.Location, "gs://") {
		return nil, fmt.Errorf("external table location must be a gs:// URI, got %q", spec.Location)
	}

	root := strings.TrimSuffix(spec.Location, "/")
	return &bigquery.TableMetadata{
		Name:        spec.Table,
		Description: "Batch ETL output at " + root,
		ExternalDataConfig: &bigquery.ExternalDataConfig{
			SourceFormat: bigquery.Parquet,
			SourceURIs:   []string{root + "/year=*"},
			AutoDetect:   true,
			HivePartitioningOptions: &bigquery.HivePartitioningOptions{
				Mode:            bigquery.AutoHivePartitioningMode,
				SourceURIPrefix: root + "/",
			},
		},
	}, nil
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
