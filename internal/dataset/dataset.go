// Package dataset holds the Batch Dataset: an ordered set of typed columns plus rows
// keyed by column name. Every operation returns a new Dataset and leaves its receiver
// untouched.
package dataset

import (
	"errors"
	"fmt"
)

// Type is the inferred value type of a column.
type Type int

const (
	// TypeNull marks a column that has only ever held nulls.
	TypeNull Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeTimestamp
	// TypeJSON holds nested objects and arrays.
	TypeJSON
)

var typeNames = map[Type]string{
	TypeNull:      "null",
	TypeBool:      "bool",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeString:    "string",
	TypeTimestamp: "timestamp",
	TypeJSON:      "json",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// IsTextual reports whether values of this type are strings.
func (t Type) IsTextual() bool {
	return t == TypeString
}

// ErrDuplicateColumn is returned when an operation would produce two columns with one name.
var ErrDuplicateColumn = errors.New("duplicate column name")

// Column is a named, typed column definition.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Row maps column names to values. A missing key reads as null.
type Row map[string]any

// Dataset is an immutable table with a dynamic schema.
type Dataset struct {
	columns []Column
	rows    []Row
}

// New builds a Dataset from column definitions and rows. Both are copied.
func New(columns []Column, rows []Row) *Dataset {
	cols := make([]Column, len(columns))
	copy(cols, columns)

	rs := make([]Row, len(rows))
	for i, r := range rows {
		rs[i] = copyRow(r)
	}

	return &Dataset{columns: cols, rows: rs}
}

// Columns returns the column definitions in order.
func (d *Dataset) Columns() []Column {
	cols := make([]Column, len(d.columns))
	copy(cols, d.columns)
	return cols
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column definition by name.
func (d *Dataset) Column(name string) (Column, bool) {
	if i := d.index(name); i >= 0 {
		return d.columns[i], true
	}
	return Column{}, false
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int {
	return len(d.rows)
}

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// Row returns a copy of row i restricted to the dataset's columns.
func (d *Dataset) Row(i int) Row {
	out := make(Row, len(d.columns))
	for _, c := range d.columns {
		out[c.Name] = d.rows[i][c.Name]
	}
	return out
}

// Value returns the value of column name in row i, or nil.
func (d *Dataset) Value(i int, name string) any {
	return d.rows[i][name]
}

// NullCount counts rows where column name is null or absent.
func (d *Dataset) NullCount(name string) int {
	n := 0
	for _, r := range d.rows {
		if r[name] == nil {
			n++
		}
	}
	return n
}

// NullRatio returns nulls/rows for column name. ok is false when the dataset has no
// rows and the ratio is undefined.
func (d *Dataset) NullRatio(name string) (ratio float64, ok bool) {
	if len(d.rows) == 0 {
		return 0, false
	}
	return float64(d.NullCount(name)) / float64(len(d.rows)), true
}

func (d *Dataset) index(name string) int {
	for i, c := range d.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
