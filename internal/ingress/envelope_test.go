package ingress

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var fixedNow = time.Date(2024, 3, 7, 10, 15, 30, 0, time.UTC)

func decodeMap(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	return m
}

func TestBuildEnvelope_PlainText(t *testing.T) {
	out, fallback, err := BuildEnvelope("hello\nworld\n", fixedNow)
	if err != nil || fallback {
		t.Fatalf("BuildEnvelope: fallback=%v err=%v", fallback, err)
	}

	got := decodeMap(t, out)
	want := map[string]any{
		"data":         map[string]any{"raw_content": "hello\nworld\n", "lines": float64(2)},
		"processed_at": "2024-03-07T10:15:30.000000Z",
		"record_count": float64(1),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildEnvelope_MalformedJSON(t *testing.T) {
	out, fallback, err := BuildEnvelope("{bad", fixedNow)
	if err != nil {
		t.Fatalf("BuildEnvelope: %v", err)
	}
	if !fallback {
		t.Error("expected parse fallback")
	}

	got := decodeMap(t, out)
	if got["raw_data_preview"] != "{bad" {
		t.Errorf("raw_data_preview = %v", got["raw_data_preview"])
	}
	if msg, _ := got["error"].(string); msg == "" {
		t.Error("expected error message")
	}
	if _, ok := got["data"]; ok {
		t.Error("error envelope must not carry data")
	}
}

func TestBuildEnvelope_JSON(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCount float64
		wantData  string
	}{
		{"array", `  [{"a":1,"b":null}, {"a":2,"b":null}]`, 2, `[{"a":1,"b":null},{"a":2,"b":null}]`},
		{"object keeps key order", "{\"z\": 1,\n \"a\": [1, 2]}", 1, `{"z":1,"a":[1,2]}`},
		{"empty array", `[]`, 0, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, fallback, err := BuildEnvelope(tt.text, fixedNow)
			if err != nil || fallback {
				t.Fatalf("BuildEnvelope: fallback=%v err=%v", fallback, err)
			}

			var env Envelope
			if err := json.Unmarshal(out, &env); err != nil {
				t.Fatal(err)
			}
			if float64(env.RecordCount) != tt.wantCount {
				t.Errorf("record_count = %d, want %v", env.RecordCount, tt.wantCount)
			}
			if string(env.Data) != tt.wantData {
				t.Errorf("data = %s, want %s", env.Data, tt.wantData)
			}
		})
	}
}

func TestParseContent_ParseError(t *testing.T) {
	_, _, err := ParseContent("[1, 2")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestPreviewTruncatesCharacters(t *testing.T) {
	text := "{" + strings.Repeat("é", 150)
	got := preview(text)
	if n := len([]rune(got)); n != PreviewLength {
		t.Errorf("preview has %d characters, want %d", n, PreviewLength)
	}
	if preview("{short") != "{short" {
		t.Error("short text should be kept whole")
	}
}
