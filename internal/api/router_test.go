package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/batch-etl/internal/ingress"
	"github.com/dvloznov/batch-etl/internal/jobs"
	jobsinmemory "github.com/dvloznov/batch-etl/internal/jobs/inmemory"
	"github.com/dvloznov/batch-etl/internal/objectstore"
	storeinmemory "github.com/dvloznov/batch-etl/internal/objectstore/inmemory"
)

type recordingPublisher struct {
	runs []*jobs.JobRun
}

func (p *recordingPublisher) PublishJobRun(ctx context.Context, run *jobs.JobRun) error {
	p.runs = append(p.runs, run)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestRouter_EventToJobRun(t *testing.T) {
	ctx := context.Background()

	objects := storeinmemory.NewStore()
	if err := objects.Put(ctx, "raw-data", "uploads/a.json", []byte(`[{"a":1}]`), "application/json"); err != nil {
		t.Fatal(err)
	}
	mux := objectstore.NewMux()
	mux.Register(objectstore.SchemeMemory, objects)

	runs := jobsinmemory.NewStore()
	pub := &recordingPublisher{}
	launcher := jobs.NewLauncher(pub, runs, jobs.Definition{Name: "DataProcessingJob"})
	handler := ingress.NewHandler(mux, launcher, ingress.Options{
		Scheme: objectstore.SchemeMemory,
		Clock:  func() time.Time { return time.Date(2024, 3, 7, 10, 15, 30, 0, time.UTC) },
	})

	srv := httptest.NewServer(NewRouter(handler, runs, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/events", "application/json",
		strings.NewReader(`{"Records":[{"s3":{"bucket":{"name":"raw-data"},"object":{"key":"uploads/a.json"}}}]}`))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /events status = %d, body %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
	if len(pub.runs) != 1 {
		t.Fatalf("published %d runs, want 1", len(pub.runs))
	}

	resp, err = http.Get(srv.URL + "/api/jobs/" + pub.runs[0].JobRunID)
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"pending"`) {
		t.Errorf("GET job run = %d %s", resp.StatusCode, body)
	}
}

func TestRouter_HealthMetricsAndMethods(t *testing.T) {
	srv := httptest.NewServer(NewRouter(nil, nil, zerolog.Nop()))
	defer srv.Close()

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/events", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/jobs", http.StatusNotFound},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
		}
	}
}
