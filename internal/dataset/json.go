package dataset

import (
	"bytes"
	"strconv"

	"github.com/tidwall/gjson"
)

// CorruptRecordColumn holds the raw text of input lines that are not JSON objects.
const CorruptRecordColumn = "_corrupt_record"

// cell is a decoded value with the raw JSON it came from.
type cell struct {
	value any
	typ   Type
	raw   string
}

type record struct {
	keys  []string
	cells map[string]cell
}

// ReadJSON builds a Dataset from JSON documents.
//
// A document that is a single JSON value is read whole; otherwise it is read as JSON
// Lines. An object becomes one row and an array contributes one row per element.
// Anything else becomes a row holding only CorruptRecordColumn. Columns appear in
// the order their keys are first seen.
func ReadJSON(docs ...[]byte) *Dataset {
	var records []record
	for _, doc := range docs {
		records = appendDocument(records, doc)
	}
	return fromRecords(records)
}

func appendDocument(records []record, doc []byte) []record {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		return records
	}
	if gjson.ValidBytes(trimmed) {
		return appendValue(records, gjson.ParseBytes(trimmed))
	}

	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			records = append(records, corrupt(string(line)))
			continue
		}
		records = appendValue(records, gjson.ParseBytes(line))
	}
	return records
}

func appendValue(records []record, v gjson.Result) []record {
	switch {
	case v.IsObject():
		return append(records, objectRecord(v))
	case v.IsArray():
		v.ForEach(func(_, el gjson.Result) bool {
			if el.IsObject() {
				records = append(records, objectRecord(el))
			} else {
				records = append(records, corrupt(el.Raw))
			}
			return true
		})
		return records
	default:
		return append(records, corrupt(v.Raw))
	}
}

func objectRecord(obj gjson.Result) record {
	rec := record{cells: make(map[string]cell)}
	obj.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if _, dup := rec.cells[name]; !dup {
			rec.keys = append(rec.keys, name)
		}
		rec.cells[name] = decode(v)
		return true
	})
	return rec
}

func corrupt(raw string) record {
	return record{
		keys:  []string{CorruptRecordColumn},
		cells: map[string]cell{CorruptRecordColumn: {value: raw, typ: TypeString, raw: raw}},
	}
}

func decode(v gjson.Result) cell {
	switch v.Type {
	case gjson.Null:
		return cell{typ: TypeNull, raw: v.Raw}
	case gjson.True, gjson.False:
		return cell{value: v.Bool(), typ: TypeBool, raw: v.Raw}
	case gjson.Number:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return cell{value: n, typ: TypeInt, raw: v.Raw}
		}
		return cell{value: v.Float(), typ: TypeFloat, raw: v.Raw}
	case gjson.String:
		return cell{value: v.String(), typ: TypeString, raw: v.Raw}
	default:
		return cell{value: v.Value(), typ: TypeJSON, raw: v.Raw}
	}
}

// widen merges two observed types into the narrowest type that holds both.
func widen(a, b Type) Type {
	switch {
	case a == b:
		return a
	case a == TypeNull:
		return b
	case b == TypeNull:
		return a
	case (a == TypeInt && b == TypeFloat) || (a == TypeFloat && b == TypeInt):
		return TypeFloat
	default:
		return TypeString
	}
}

func fromRecords(records []record) *Dataset {
	var cols []Column
	pos := make(map[string]int)

	for _, rec := range records {
		for _, k := range rec.keys {
			t := rec.cells[k].typ
			if i, ok := pos[k]; ok {
				cols[i].Type = widen(cols[i].Type, t)
				continue
			}
			pos[k] = len(cols)
			cols = append(cols, Column{Name: k, Type: t})
		}
	}

	rows := make([]Row, len(records))
	for i, rec := range records {
		row := make(Row, len(rec.keys))
		for _, k := range rec.keys {
			row[k] = coerce(rec.cells[k], cols[pos[k]].Type)
		}
		rows[i] = row
	}

	return &Dataset{columns: cols, rows: rows}
}

// coerce converts a cell to the column's widened type.
func coerce(c cell, t Type) any {
	if c.typ == TypeNull {
		return nil
	}
	switch t {
	case TypeFloat:
		if n, ok := c.value.(int64); ok {
			return float64(n)
		}
	case TypeString:
		if _, ok := c.value.(string); !ok {
			return c.raw
		}
	}
	return c.value
}
