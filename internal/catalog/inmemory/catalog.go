// Package inmemory provides a map-backed catalog for local runs and tests.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/batch-etl/internal/catalog"
)

// Catalog keeps databases and tables in memory.
type Catalog struct {
	mu        sync.RWMutex
	databases map[string]map[string]catalog.TableSpec
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{databases: make(map[string]map[string]catalog.TableSpec)}
}

// CreateDatabaseIfNotExists implements catalog.Catalog.
func (c *Catalog) CreateDatabaseIfNotExists(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("database name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.databases[name]; ok {
		return false, nil
	}
	c.databases[name] = make(map[string]catalog.TableSpec)
	return true, nil
}

// CreateTableIfNotExists implements catalog.Catalog.
func (c *Catalog) CreateTableIfNotExists(ctx context.Context, spec catalog.TableSpec) (bool, error) {
	if spec.Table == "" {
		return false, fmt.Errorf("table name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tables, ok := c.databases[spec.Database]
	if !ok {
		return false, fmt.Errorf("database %s does not exist", spec.Database)
	}
	if _, ok := tables[spec.Table]; ok {
		return false, nil
	}
	tables[spec.Table] = spec
	return true, nil
}

// Table returns the registered definition of database.table.
func (c *Catalog) Table(database, table string) (catalog.TableSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	spec, ok := c.databases[database][table]
	return spec, ok
}

// HasDatabase reports whether the database exists.
func (c *Catalog) HasDatabase(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.databases[name]
	return ok
}
