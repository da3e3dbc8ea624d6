package objectstore

import (
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		raw     string
		want    URI
		wantErr bool
	}{
		{"gs://bucket/folder/file.json", URI{Scheme: "gs", Bucket: "bucket", Key: "folder/file.json"}, false},
		{"s3://bucket/output/", URI{Scheme: "s3", Bucket: "bucket", Key: "output/"}, false},
		{"mem://bucket", URI{Scheme: "mem", Bucket: "bucket"}, false},
		{"bucket/file.json", URI{}, true},
		{"ftp://bucket/file.json", URI{}, true},
		{"gs:///file.json", URI{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseURI(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseURI(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestURIJoin(t *testing.T) {
	tests := []struct {
		base string
		elem []string
		want string
	}{
		{"gs://b/output/", []string{"year=2024", "month=3", "day=7"}, "gs://b/output/year=2024/month=3/day=7"},
		{"gs://b/output", []string{"quality_reports"}, "gs://b/output/quality_reports"},
		{"gs://b/", []string{"processed", "x.json"}, "gs://b/processed/x.json"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			u, err := ParseURI(tt.base)
			if err != nil {
				t.Fatalf("ParseURI: %v", err)
			}
			if got := u.Join(tt.elem...).String(); got != tt.want {
				t.Errorf("Join = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"uploads/2024/data.csv", "data.csv"},
		{"data.csv", "data.csv"},
		{"uploads/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := BaseName(tt.key); got != tt.want {
				t.Errorf("BaseName(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
