// Package columnar encodes datasets into Parquet files.
package columnar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/apache/arrow/go/v15/parquet"
	"github.com/apache/arrow/go/v15/parquet/compress"
	"github.com/apache/arrow/go/v15/parquet/pqarrow"

	"github.com/dvloznov/batch-etl/internal/dataset"
)

// FileSuffix is appended to part file names written by EncodeParquet.
const FileSuffix = ".snappy.parquet"

// ContentType is the media type used when storing Parquet objects.
const ContentType = "application/vnd.apache.parquet"

var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// Schema maps dataset columns to an Arrow schema. Every field is nullable.
func Schema(ds *dataset.Dataset) *arrow.Schema {
	cols := ds.Columns()
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Type), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t dataset.Type) arrow.DataType {
	switch t {
	case dataset.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case dataset.TypeInt:
		return arrow.PrimitiveTypes.Int64
	case dataset.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case dataset.TypeTimestamp:
		return timestampType
	default:
		return arrow.BinaryTypes.String
	}
}

// EncodeParquet writes ds as a single snappy-compressed Parquet file.
func EncodeParquet(ds *dataset.Dataset) ([]byte, error) {
	if ds.NumColumns() == 0 {
		return nil, fmt.Errorf("EncodeParquet: dataset has no columns")
	}

	schema := Schema(ds)
	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for i, col := range ds.Columns() {
		fb := builder.Field(i)
		for r := 0; r < ds.NumRows(); r++ {
			if err := appendValue(fb, ds.Value(r, col.Name)); err != nil {
				return nil, fmt.Errorf("EncodeParquet: column %q row %d: %w", col.Name, r, err)
			}
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	w, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, fmt.Errorf("EncodeParquet: create writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("EncodeParquet: write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("EncodeParquet: close writer: %w", err)
	}

	return buf.Bytes(), nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch fb := b.(type) {
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		fb.Append(x)
	case *array.Int64Builder:
		x, ok := v.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", v)
		}
		fb.Append(x)
	case *array.Float64Builder:
		switch x := v.(type) {
		case float64:
			fb.Append(x)
		case int64:
			fb.Append(float64(x))
		default:
			return fmt.Errorf("expected float64, got %T", v)
		}
	case *array.TimestampBuilder:
		x, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected time.Time, got %T", v)
		}
		fb.Append(arrow.Timestamp(x.UnixMicro()))
	case *array.StringBuilder:
		if s, ok := v.(string); ok {
			fb.Append(s)
		} else {
			fb.Append(dataset.CanonicalValue(v))
		}
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}
