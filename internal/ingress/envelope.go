package ingress

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// PreviewLength is how many characters of an unparseable payload are kept.
const PreviewLength = 100

// ProcessedAtLayout formats the envelope's processed_at field.
const ProcessedAtLayout = "2006-01-02T15:04:05.000000Z07:00"

// Envelope wraps a payload with processing metadata.
type Envelope struct {
	Data        json.RawMessage `json:"data"`
	ProcessedAt string          `json:"processed_at"`
	RecordCount int             `json:"record_count"`
}

// TextData is the envelope data of a payload that is not JSON.
type TextData struct {
	RawContent string `json:"raw_content"`
	Lines      int    `json:"lines"`
}

// ErrorEnvelope replaces the envelope when a JSON-looking payload fails to parse.
type ErrorEnvelope struct {
	Error          string `json:"error"`
	RawDataPreview string `json:"raw_data_preview"`
}

// ParseContent classifies text. A payload starting with '{' or '[' after trimming
// must be JSON and is returned compacted with its record count (array length, or
// 1). Anything else is wrapped as TextData.
func ParseContent(text string) (json.RawMessage, int, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		data, err := json.Marshal(TextData{RawContent: text, Lines: strings.Count(text, "\n")})
		if err != nil {
			return nil, 0, &DataShapeError{Reason: err.Error()}
		}
		return data, 1, nil
	}

	var probe any
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		return nil, 0, &ParseError{Err: err}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(trimmed)); err != nil {
		return nil, 0, &ParseError{Err: err}
	}

	count := 1
	if v := gjson.ParseBytes(buf.Bytes()); v.IsArray() {
		count = len(v.Array())
	}
	return buf.Bytes(), count, nil
}

// BuildEnvelope returns the JSON document written for text. A ParseError yields
// an ErrorEnvelope; the returned bool reports that fallback.
func BuildEnvelope(text string, now time.Time) ([]byte, bool, error) {
	data, count, err := ParseContent(text)
	if err != nil {
		perr, ok := err.(*ParseError)
		if !ok {
			return nil, false, err
		}
		out, merr := json.Marshal(ErrorEnvelope{Error: perr.Error(), RawDataPreview: preview(text)})
		if merr != nil {
			return nil, false, merr
		}
		return out, true, nil
	}

	out, err := json.Marshal(Envelope{
		Data:        data,
		ProcessedAt: now.UTC().Format(ProcessedAtLayout),
		RecordCount: count,
	})
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}

func preview(text string) string {
	n := 0
	for i := range text {
		if n == PreviewLength {
			return text[:i]
		}
		n++
	}
	return text
}
