package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadJSON_ArrayDocument(t *testing.T) {
	ds := ReadJSON([]byte(`[{"a":1,"b":null},{"a":2,"b":null}]`))

	want := []Column{{Name: "a", Type: TypeInt}, {Name: "b", Type: TypeNull}}
	if diff := cmp.Diff(want, ds.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if ds.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", ds.NumRows())
	}
	if ds.Value(1, "a") != int64(2) {
		t.Errorf("a[1] = %#v, want int64(2)", ds.Value(1, "a"))
	}
}

func TestReadJSON_JSONLines(t *testing.T) {
	doc := []byte("{\"z\":\"first\",\"a\":1}\n\n{\"a\":2.5,\"m\":{\"k\":true}}\nnot json\n")
	ds := ReadJSON(doc)

	want := []Column{
		{Name: "z", Type: TypeString},
		{Name: "a", Type: TypeFloat},
		{Name: "m", Type: TypeJSON},
		{Name: CorruptRecordColumn, Type: TypeString},
	}
	if diff := cmp.Diff(want, ds.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if ds.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", ds.NumRows())
	}
	if ds.Value(0, "a") != float64(1) {
		t.Errorf("int widened to float expected, got %#v", ds.Value(0, "a"))
	}
	if ds.Value(2, CorruptRecordColumn) != "not json" {
		t.Errorf("corrupt record = %#v", ds.Value(2, CorruptRecordColumn))
	}
}

func TestReadJSON_PrettyPrintedDocument(t *testing.T) {
	doc := []byte("{\n  \"data\": {\"x\": 1},\n  \"processed_at\": \"2024-03-07T10:00:00Z\",\n  \"record_count\": 1\n}\n")
	ds := ReadJSON(doc)

	if ds.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", ds.NumRows())
	}
	if diff := cmp.Diff([]string{"data", "processed_at", "record_count"}, ds.ColumnNames()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestReadJSON_ConflictingTypesWidenToString(t *testing.T) {
	ds := ReadJSON([]byte("{\"v\":\"text\"}\n{\"v\":42}\n{\"v\":true}\n{\"v\":null}"))

	col, _ := ds.Column("v")
	if col.Type != TypeString {
		t.Fatalf("type = %v, want string", col.Type)
	}
	var got []any
	for i := 0; i < ds.NumRows(); i++ {
		got = append(got, ds.Value(i, "v"))
	}
	if diff := cmp.Diff([]any{"text", "42", "true", nil}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestReadJSON_MultipleDocuments(t *testing.T) {
	ds := ReadJSON([]byte(`{"a":1}`), []byte(`{"b":"x"}`), []byte("   "))

	if ds.NumRows() != 2 || ds.NumColumns() != 2 {
		t.Errorf("got %d rows x %d columns, want 2 x 2", ds.NumRows(), ds.NumColumns())
	}
	if ds.Value(0, "b") != nil {
		t.Error("missing key should read as null")
	}
}
