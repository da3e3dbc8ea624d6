package app

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/batch-etl/internal/config"
	memqueue "github.com/dvloznov/batch-etl/internal/jobs/inmemory"
)

func memConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.Scheme = "mem"
	return cfg
}

func TestOpenStores(t *testing.T) {
	cfg := memConfig()
	cfg.Storage.S3.Endpoint = "localhost:9000"

	mux, closeStores, err := OpenStores(context.Background(), cfg, "s3", "mem")
	if err != nil {
		t.Fatal(err)
	}
	defer closeStores()

	if diff := cmp.Diff([]string{"mem", "s3"}, mux.Schemes()); diff != "" {
		t.Errorf("schemes mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenStores_UnsupportedScheme(t *testing.T) {
	_, _, err := OpenStores(context.Background(), memConfig(), "ftp")
	if err == nil || !strings.Contains(err.Error(), `unsupported scheme "ftp"`) {
		t.Errorf("err = %v", err)
	}
}

func TestOpenCatalog_InMemory(t *testing.T) {
	cat, closeCat, err := OpenCatalog(context.Background(), memConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer closeCat()

	created, err := cat.CreateDatabaseIfNotExists(context.Background(), "batch_etl")
	if err != nil || !created {
		t.Errorf("CreateDatabaseIfNotExists = %v, %v", created, err)
	}
}

func TestOpenQueue_InMemory(t *testing.T) {
	q, err := OpenQueue(memConfig(), memqueue.NewStore())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*memqueue.Queue); !ok {
		t.Errorf("queue type = %T", q)
	}
	if err := q.Close(); err != nil {
		t.Error(err)
	}
}

func TestDefinition(t *testing.T) {
	cfg := memConfig()
	cfg.Job.MaxRetries = 2

	def := Definition(cfg)
	if def.Name != config.DefaultJobName || def.MaxRetries != 2 {
		t.Errorf("def = %+v", def)
	}
	if def.DefaultArguments["--table_name"] != config.DefaultTableName {
		t.Errorf("default arguments = %v", def.DefaultArguments)
	}
}
