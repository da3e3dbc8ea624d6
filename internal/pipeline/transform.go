package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/batch-etl/internal/dataset"
)

var columnNameReplacer = []struct{ old, new string }{
	{" ", "_"},
	{"-", "_"},
	{".", "_"},
}

// NormalizeColumnName lower-cases name and then replaces spaces, hyphens and
// periods with underscores. Applying it twice gives the same result as once.
func NormalizeColumnName(name string) string {
	out := strings.ToLower(name)
	for _, r := range columnNameReplacer {
		out = strings.ReplaceAll(out, r.old, r.new)
	}
	return out
}

// BatchID renders the run instant as the batch identifier shared by every row.
func BatchID(now time.Time) string {
	return now.UTC().Format(BatchIDLayout)
}

// Transform adds the lineage columns, normalizes column names and trims string
// values. now is evaluated once so every row carries the same processing time and
// batch id. Two columns that normalize to the same name are an error.
func Transform(ds *dataset.Dataset, now time.Time) (*dataset.Dataset, error) {
	now = now.UTC()
	batchID := BatchID(now)

	out := ds.
		WithColumn(dataset.Column{Name: ProcessingTimestampColumn, Type: dataset.TypeTimestamp}, func(dataset.Row) any { return now }).
		WithColumn(dataset.Column{Name: BatchIDColumn, Type: dataset.TypeString}, func(dataset.Row) any { return batchID })

	for _, name := range out.ColumnNames() {
		renamed, err := out.WithColumnRenamed(name, NormalizeColumnName(name))
		if err != nil {
			return nil, fmt.Errorf("normalizing column names: %w", err)
		}
		out = renamed
	}

	for _, col := range out.Columns() {
		if !col.Type.IsTextual() {
			continue
		}
		out = out.MapColumn(col.Name, func(v any) any {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s)
			}
			return v
		})
	}

	return out, nil
}
