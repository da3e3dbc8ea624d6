package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Drop removes the named columns. Unknown names are ignored.
func (d *Dataset) Drop(names ...string) *Dataset {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	cols := make([]Column, 0, len(d.columns))
	for _, c := range d.columns {
		if !drop[c.Name] {
			cols = append(cols, c)
		}
	}

	rows := make([]Row, len(d.rows))
	for i, r := range d.rows {
		nr := copyRow(r)
		for n := range drop {
			delete(nr, n)
		}
		rows[i] = nr
	}

	return &Dataset{columns: cols, rows: rows}
}

// DropDuplicates removes rows that are identical across all columns. The first
// occurrence of each distinct row is kept and the surviving rows keep their order.
func (d *Dataset) DropDuplicates() *Dataset {
	seen := make(map[string]bool, len(d.rows))
	rows := make([]Row, 0, len(d.rows))

	for _, r := range d.rows {
		key := d.rowKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, copyRow(r))
	}

	return &Dataset{columns: d.Columns(), rows: rows}
}

// WithColumn adds a column computed per row. An existing column of the same name is
// replaced in place.
func (d *Dataset) WithColumn(col Column, value func(Row) any) *Dataset {
	cols := d.Columns()
	if i := d.index(col.Name); i >= 0 {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}

	rows := make([]Row, len(d.rows))
	for i, r := range d.rows {
		nr := copyRow(r)
		nr[col.Name] = value(r)
		rows[i] = nr
	}

	return &Dataset{columns: cols, rows: rows}
}

// WithColumnRenamed renames a column. Renaming to the current name is a no-op;
// renaming onto another existing column fails with ErrDuplicateColumn.
func (d *Dataset) WithColumnRenamed(oldName, newName string) (*Dataset, error) {
	i := d.index(oldName)
	if i < 0 || oldName == newName {
		return d, nil
	}
	if d.index(newName) >= 0 {
		return nil, fmt.Errorf("rename %q to %q: %w", oldName, newName, ErrDuplicateColumn)
	}

	cols := d.Columns()
	cols[i].Name = newName

	rows := make([]Row, len(d.rows))
	for j, r := range d.rows {
		nr := copyRow(r)
		if v, ok := nr[oldName]; ok {
			nr[newName] = v
			delete(nr, oldName)
		}
		rows[j] = nr
	}

	return &Dataset{columns: cols, rows: rows}, nil
}

// MapColumn replaces every non-null value of column name with fn(value).
func (d *Dataset) MapColumn(name string, fn func(any) any) *Dataset {
	if d.index(name) < 0 {
		return d
	}

	rows := make([]Row, len(d.rows))
	for i, r := range d.rows {
		nr := copyRow(r)
		if v := nr[name]; v != nil {
			nr[name] = fn(v)
		}
		rows[i] = nr
	}

	return &Dataset{columns: d.Columns(), rows: rows}
}

// rowKey encodes a row's values, in column order, into a string that is equal for
// two rows exactly when all their values are equal.
func (d *Dataset) rowKey(r Row) string {
	var b strings.Builder
	for _, c := range d.columns {
		enc := CanonicalValue(r[c.Name])
		b.WriteString(strconv.Itoa(len(enc)))
		b.WriteByte(':')
		b.WriteString(enc)
	}
	return b.String()
}

// CanonicalValue renders a value as stable text: nested values are JSON with sorted
// object keys and timestamps are RFC 3339 in UTC. Null renders as "null".
func CanonicalValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}
