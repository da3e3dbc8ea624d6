package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dvloznov/batch-etl/internal/dataset"
)

// QualityMetric is one row of the quality report.
type QualityMetric struct {
	MetricName  string    `json:"metric_name"`
	MetricValue string    `json:"metric_value"`
	Timestamp   time.Time `json:"timestamp"`
}

// ComputeQuality reports total_rows, total_columns and null_percentage_<column>
// for every column of ds, in column order. Each metric is stamped by clock when
// it is computed.
func ComputeQuality(ds *dataset.Dataset, clock func() time.Time) []QualityMetric {
	rows := ds.NumRows()
	metrics := []QualityMetric{
		{MetricName: "total_rows", MetricValue: strconv.Itoa(rows), Timestamp: clock().UTC()},
		{MetricName: "total_columns", MetricValue: strconv.Itoa(ds.NumColumns()), Timestamp: clock().UTC()},
	}

	for _, name := range ds.ColumnNames() {
		metrics = append(metrics, QualityMetric{
			MetricName:  "null_percentage_" + name,
			MetricValue: nullPercentage(ds.NullCount(name), rows),
			Timestamp:   clock().UTC(),
		})
	}
	return metrics
}

// nullPercentage is (nulls/rows)*100 with two decimals; "0.00" when there are no rows.
func nullPercentage(nulls, rows int) string {
	if rows == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(nulls)/float64(rows)*100)
}

// EncodeReport renders metrics as one JSON object per line.
func EncodeReport(metrics []QualityMetric) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, m := range metrics {
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("encoding metric %s: %w", m.MetricName, err)
		}
	}
	return buf.Bytes(), nil
}
