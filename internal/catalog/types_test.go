package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/batch-etl/internal/catalog"
	"github.com/dvloznov/batch-etl/internal/catalog/inmemory"
)

type failingCatalog struct {
	dbErr    error
	tableErr error
}

func (f failingCatalog) CreateDatabaseIfNotExists(context.Context, string) (bool, error) {
	return false, f.dbErr
}

func (f failingCatalog) CreateTableIfNotExists(context.Context, catalog.TableSpec) (bool, error) {
	return false, f.tableErr
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	cat := inmemory.NewCatalog()
	spec := catalog.TableSpec{Database: "analytics", Table: "events", Location: "mem://b/output"}

	res := catalog.Register(ctx, cat, spec)
	if !res.OK() || !res.DatabaseCreated || !res.TableCreated {
		t.Fatalf("first Register = %+v", res)
	}
	got, _ := cat.Table("analytics", "events")
	if got.Format != catalog.FormatParquet {
		t.Errorf("Format = %q, want default %q", got.Format, catalog.FormatParquet)
	}

	res = catalog.Register(ctx, cat, spec)
	if !res.OK() || res.DatabaseCreated || res.TableCreated {
		t.Errorf("second Register should be a no-op, got %+v", res)
	}
}

func TestRegister_Failures(t *testing.T) {
	boom := errors.New("permission denied")
	tests := []struct {
		name   string
		cat    failingCatalog
		wantOp string
	}{
		{"database", failingCatalog{dbErr: boom}, "create database"},
		{"table", failingCatalog{tableErr: boom}, "create table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := catalog.Register(context.Background(), tt.cat, catalog.TableSpec{Database: "d", Table: "t"})

			var catErr *catalog.CatalogError
			if !errors.As(res.Err, &catErr) {
				t.Fatalf("expected *CatalogError, got %v", res.Err)
			}
			if catErr.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", catErr.Op, tt.wantOp)
			}
			if !errors.Is(res.Err, boom) {
				t.Error("cause not preserved")
			}
		})
	}
}
