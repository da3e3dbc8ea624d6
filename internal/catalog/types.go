// Package catalog registers written datasets as queryable tables.
package catalog

import (
	"context"
	"fmt"
)

// FormatParquet is the only storage format tables are registered with.
const FormatParquet = "parquet"

// TableSpec describes an external table backed by files under Location.
type TableSpec struct {
	Database string
	Table    string
	Location string
	Format   string
}

// Catalog is the metadata service tables are registered in.
// Both operations report whether they created something; an existing database or
// table is left untouched.
type Catalog interface {
	CreateDatabaseIfNotExists(ctx context.Context, name string) (bool, error)
	CreateTableIfNotExists(ctx context.Context, spec TableSpec) (bool, error)
}

// CatalogError is returned when a database or table cannot be registered.
type CatalogError struct {
	Op       string
	Database string
	Table    string
	Err      error
}

func (e *CatalogError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("catalog %s %s: %v", e.Op, e.Database, e.Err)
	}
	return fmt.Sprintf("catalog %s %s.%s: %v", e.Op, e.Database, e.Table, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// Result is the outcome of Register. Err is nil on success and a *CatalogError
// otherwise; callers decide whether a failure is fatal.
type Result struct {
	DatabaseCreated bool
	TableCreated    bool
	Err             error
}

// OK reports whether registration succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Register ensures the database and then the table described by spec exist.
func Register(ctx context.Context, cat Catalog, spec TableSpec) Result {
	if spec.Format == "" {
		spec.Format = FormatParquet
	}

	var res Result
	created, err := cat.CreateDatabaseIfNotExists(ctx, spec.Database)
	if err != nil {
		res.Err = &CatalogError{Op: "create database", Database: spec.Database, Err: err}
		return res
	}
	res.DatabaseCreated = created

	created, err = cat.CreateTableIfNotExists(ctx, spec)
	if err != nil {
		res.Err = &CatalogError{Op: "create table", Database: spec.Database, Table: spec.Table, Err: err}
		return res
	}
	res.TableCreated = created
	return res
}
