// Package bookmark tracks which inputs a job has already processed so that reruns
// can skip them.
package bookmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/batch-etl/internal/objectstore"
)

// Option controls how a run uses its bookmark.
type Option string

const (
	// Enable skips committed inputs and commits this run's inputs on success.
	Enable Option = "job-bookmark-enable"
	// Disable ignores the bookmark entirely.
	Disable Option = "job-bookmark-disable"
	// Pause skips committed inputs but does not record new ones.
	Pause Option = "job-bookmark-pause"
)

// ParseOption validates a job-bookmark-option argument. Empty means Disable.
func ParseOption(s string) (Option, error) {
	switch Option(s) {
	case "":
		return Disable, nil
	case Enable, Disable, Pause:
		return Option(s), nil
	default:
		return "", fmt.Errorf("invalid job-bookmark-option %q", s)
	}
}

// Storage is the subset of the object store a bookmark needs.
type Storage interface {
	Get(ctx context.Context, u objectstore.URI) ([]byte, error)
	Put(ctx context.Context, u objectstore.URI, data []byte, contentType string) error
}

// State is the persisted bookmark of one job.
type State struct {
	JobName   string               `json:"job_name"`
	Processed map[string]time.Time `json:"processed"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Path returns where the bookmark of jobName is kept under output.
func Path(output objectstore.URI, jobName string) objectstore.URI {
	return output.Join("_bookmarks", jobName+".json")
}

// Tracker is the bookmark of a single run.
type Tracker struct {
	storage Storage
	option  Option
	path    objectstore.URI
	state   State
}

// Open loads the bookmark for jobName. With Disable nothing is read.
func Open(ctx context.Context, storage Storage, opt Option, output objectstore.URI, jobName string) (*Tracker, error) {
	t := &Tracker{
		storage: storage,
		option:  opt,
		path:    Path(output, jobName),
		state:   State{JobName: jobName, Processed: make(map[string]time.Time)},
	}
	if opt == Disable {
		return t, nil
	}

	state, err := read(ctx, storage, t.path)
	if err != nil {
		return nil, fmt.Errorf("bookmark.Open: %w", err)
	}
	if state != nil {
		t.state = *state
	}
	return t, nil
}

// read loads the stored state at path. A missing bookmark yields nil.
func read(ctx context.Context, storage Storage, path objectstore.URI) (*State, error) {
	data, err := storage.Get(ctx, path)
	if errors.Is(err, objectstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if state.Processed == nil {
		state.Processed = make(map[string]time.Time)
	}
	return &state, nil
}

// commitLocks serializes read-merge-write cycles per bookmark path within a process.
var commitLocks sync.Map

func lockFor(path objectstore.URI) *sync.Mutex {
	mu, _ := commitLocks.LoadOrStore(path.String(), &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Option returns the option the tracker was opened with.
func (t *Tracker) Option() Option { return t.option }

// Seen reports whether input was committed by an earlier run.
func (t *Tracker) Seen(input objectstore.URI) bool {
	_, ok := t.state.Processed[input.String()]
	return ok
}

// Filter drops inputs committed by earlier runs. With Disable every input is kept.
func (t *Tracker) Filter(inputs []objectstore.URI) []objectstore.URI {
	if t.option == Disable {
		return inputs
	}
	out := make([]objectstore.URI, 0, len(inputs))
	for _, in := range inputs {
		if !t.Seen(in) {
			out = append(out, in)
		}
	}
	return out
}

// Commit records inputs as processed at the given time. Only Enable writes.
// The stored state is re-read and merged first, so commits from runs that
// opened the bookmark concurrently are kept.
func (t *Tracker) Commit(ctx context.Context, inputs []objectstore.URI, at time.Time) error {
	if t.option != Enable || len(inputs) == 0 {
		return nil
	}

	mu := lockFor(t.path)
	mu.Lock()
	defer mu.Unlock()

	latest, err := read(ctx, t.storage, t.path)
	if err != nil {
		return fmt.Errorf("bookmark.Commit: %w", err)
	}
	if latest != nil {
		for k, v := range latest.Processed {
			if _, ok := t.state.Processed[k]; !ok {
				t.state.Processed[k] = v
			}
		}
	}

	for _, in := range inputs {
		t.state.Processed[in.String()] = at.UTC()
	}
	t.state.UpdatedAt = at.UTC()

	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return fmt.Errorf("bookmark.Commit: encoding: %w", err)
	}
	if err := t.storage.Put(ctx, t.path, data, "application/json"); err != nil {
		return fmt.Errorf("bookmark.Commit: writing %s: %w", t.path, err)
	}
	return nil
}

// Processed lists committed inputs in sorted order.
func (t *Tracker) Processed() []string {
	keys := make([]string, 0, len(t.state.Processed))
	for k := range t.state.Processed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
