package pipeline

import (
	"github.com/dvloznov/batch-etl/internal/dataset"
)

// CleanResult describes what Clean removed.
type CleanResult struct {
	DroppedColumns    []string
	DuplicatesRemoved int
}

// Clean drops every column whose null ratio, computed over the input rows, is above
// NullRatioThreshold and then removes exact duplicate rows. A dataset without rows
// keeps all its columns.
func Clean(ds *dataset.Dataset) (*dataset.Dataset, CleanResult) {
	var res CleanResult

	rows := ds.NumRows()
	for _, name := range ds.ColumnNames() {
		if rows == 0 {
			break
		}
		// nulls/rows > 0.9 without floating point.
		if ds.NullCount(name)*10 > rows*9 {
			res.DroppedColumns = append(res.DroppedColumns, name)
		}
	}

	cleaned := ds.Drop(res.DroppedColumns...).DropDuplicates()
	res.DuplicatesRemoved = rows - cleaned.NumRows()
	return cleaned, res
}
