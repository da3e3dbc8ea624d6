package pipeline

// Columns added by the transform step.
const (
	ProcessingTimestampColumn = "processing_timestamp"
	BatchIDColumn             = "batch_id"
)

// Layouts derived from the run's wall-clock instant.
const (
	// BatchIDLayout renders the run instant as YYYYMMDDHHMMSS.
	BatchIDLayout = "20060102150405"
)

// Output layout under the output path.
const (
	QualityReportsDir = "quality_reports"
	DataFilePrefix    = "part-00000-"
	ReportContentType = "application/json"
)

// Columns whose null ratio is above NullRatioThreshold are dropped during cleaning.
const (
	NullRatioThreshold = 0.9
)
