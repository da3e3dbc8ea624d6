package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/batch-etl/internal/bookmark"
)

func TestResolveOptions(t *testing.T) {
	argv := []string{"batchjob", "--JOB_NAME", "DataProcessingJob", "--input_path=gs://b/in.json", "--flag", "--output_path", "gs://b/output/"}

	got, err := ResolveOptions(argv, "JOB_NAME", "input_path")
	if err != nil {
		t.Fatalf("ResolveOptions: %v", err)
	}

	want := map[string]string{
		"JOB_NAME":    "DataProcessingJob",
		"input_path":  "gs://b/in.json",
		"flag":        "",
		"output_path": "gs://b/output/",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveOptions_Missing(t *testing.T) {
	_, err := ResolveOptions([]string{"--input_path", "gs://b/x", "--table_name", ""}, RequiredJobArgs...)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"JOB_NAME", "output_path", "database_name", "table_name"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name %s", err, name)
		}
	}
	if strings.Contains(err.Error(), "input_path") {
		t.Errorf("error %q names a present argument", err)
	}
}

func TestArgvRoundTrip(t *testing.T) {
	args := map[string]string{
		"--JOB_NAME":            "DataProcessingJob",
		"--input_path":          "gs://b/processed/20240307_100000/a.json",
		"output_path":           "gs://b/output/",
		"--database_name":       "analytics",
		"--table_name":          "events",
		"--job-bookmark-option": "job-bookmark-enable",
	}

	ja, err := ParseJobArgs(Argv(args))
	if err != nil {
		t.Fatalf("ParseJobArgs: %v", err)
	}

	want := JobArgs{
		JobName:        "DataProcessingJob",
		InputPath:      "gs://b/processed/20240307_100000/a.json",
		OutputPath:     "gs://b/output/",
		DatabaseName:   "analytics",
		TableName:      "events",
		BookmarkOption: bookmark.Enable,
	}
	if diff := cmp.Diff(want, ja); diff != "" {
		t.Errorf("JobArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJobArgs_InvalidBookmark(t *testing.T) {
	argv := []string{"--JOB_NAME", "j", "--input_path", "i", "--output_path", "o", "--database_name", "d", "--table_name", "t", "--job-bookmark-option", "sometimes"}
	if _, err := ParseJobArgs(argv); err == nil {
		t.Error("expected error for invalid bookmark option")
	}
}
