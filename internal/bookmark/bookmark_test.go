package bookmark

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/batch-etl/internal/objectstore"
	"github.com/dvloznov/batch-etl/internal/objectstore/inmemory"
)

func newMux() *objectstore.Mux {
	mux := objectstore.NewMux()
	mux.Register(objectstore.SchemeMemory, inmemory.NewStore())
	return mux
}

func mustURI(t *testing.T, raw string) objectstore.URI {
	t.Helper()
	u, err := objectstore.ParseURI(raw)
	if err != nil {
		t.Fatalf("ParseURI(%q): %v", raw, err)
	}
	return u
}

func TestParseOption(t *testing.T) {
	tests := []struct {
		in      string
		want    Option
		wantErr bool
	}{
		{"job-bookmark-enable", Enable, false},
		{"job-bookmark-pause", Pause, false},
		{"job-bookmark-disable", Disable, false},
		{"", Disable, false},
		{"enable", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOption(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOption(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOption(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTracker_EnableCommitsAndSkips(t *testing.T) {
	ctx := context.Background()
	mux := newMux()
	output := mustURI(t, "mem://bucket/output/")
	first := mustURI(t, "mem://bucket/processed/20240307_100000/a.json")
	second := mustURI(t, "mem://bucket/processed/20240307_110000/b.json")
	at := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)

	tr, err := Open(ctx, mux, Enable, output, "DataProcessingJob")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := tr.Filter([]objectstore.URI{first}); len(got) != 1 {
		t.Fatalf("fresh bookmark filtered inputs: %v", got)
	}
	if err := tr.Commit(ctx, []objectstore.URI{first}, at); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := mux.Get(ctx, Path(output, "DataProcessingJob")); err != nil {
		t.Fatalf("bookmark not written: %v", err)
	}

	tr, err = Open(ctx, mux, Enable, output, "DataProcessingJob")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := tr.Filter([]objectstore.URI{first, second})
	if diff := cmp.Diff([]objectstore.URI{second}, got); diff != "" {
		t.Errorf("Filter mismatch (-want +got):\n%s", diff)
	}
}

func TestTracker_PauseAndDisable(t *testing.T) {
	ctx := context.Background()
	mux := newMux()
	output := mustURI(t, "mem://bucket/output")
	input := mustURI(t, "mem://bucket/in.json")
	at := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)

	tr, _ := Open(ctx, mux, Enable, output, "job")
	if err := tr.Commit(ctx, []objectstore.URI{input}, at); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	paused, err := Open(ctx, mux, Pause, output, "job")
	if err != nil {
		t.Fatalf("Open pause: %v", err)
	}
	if got := paused.Filter([]objectstore.URI{input}); len(got) != 0 {
		t.Errorf("pause should skip committed inputs, got %v", got)
	}
	other := mustURI(t, "mem://bucket/other.json")
	if err := paused.Commit(ctx, []objectstore.URI{other}, at); err != nil {
		t.Fatalf("Commit pause: %v", err)
	}

	reopened, _ := Open(ctx, mux, Enable, output, "job")
	if reopened.Seen(other) {
		t.Error("pause must not record new inputs")
	}

	disabled, _ := Open(ctx, mux, Disable, output, "job")
	if got := disabled.Filter([]objectstore.URI{input}); len(got) != 1 {
		t.Errorf("disable should keep every input, got %v", got)
	}
}

func TestOpen_CorruptState(t *testing.T) {
	ctx := context.Background()
	mux := newMux()
	output := mustURI(t, "mem://bucket/output")
	if err := mux.Put(ctx, Path(output, "job"), []byte("{not json"), "application/json"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := Open(ctx, mux, Enable, output, "job"); err == nil {
		t.Error("expected decode error")
	}
}

func TestTracker_ConcurrentCommitsMerge(t *testing.T) {
	ctx := context.Background()
	mux := newMux()
	output := mustURI(t, "mem://bucket/output/")
	a := mustURI(t, "mem://bucket/processed/a.json")
	b := mustURI(t, "mem://bucket/processed/b.json")
	at := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)

	// Both runs open the bookmark before either commits.
	first, err := Open(ctx, mux, Enable, output, "DataProcessingJob")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	second, err := Open(ctx, mux, Enable, output, "DataProcessingJob")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); errs[0] = first.Commit(ctx, []objectstore.URI{a}, at) }()
	go func() { defer wg.Done(); errs[1] = second.Commit(ctx, []objectstore.URI{b}, at) }()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}

	tr, err := Open(ctx, mux, Enable, output, "DataProcessingJob")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	want := []string{a.String(), b.String()}
	if diff := cmp.Diff(want, tr.Processed()); diff != "" {
		t.Errorf("Processed mismatch (-want +got):\n%s", diff)
	}
}
