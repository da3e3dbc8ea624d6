package objectstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Mux routes URI-addressed operations to the Store registered for the URI scheme.
type Mux struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{stores: make(map[string]Store)}
}

// Register binds a Store to a scheme, replacing any earlier binding.
func (m *Mux) Register(scheme string, s Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[scheme] = s
}

// Store returns the Store registered for scheme.
func (m *Mux) Store(scheme string) (Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stores[scheme]
	if !ok {
		return nil, fmt.Errorf("no object store registered for scheme %q", scheme)
	}
	return s, nil
}

// Schemes lists the registered schemes, sorted.
func (m *Mux) Schemes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.stores))
	for s := range m.stores {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Get downloads the object at u.
func (m *Mux) Get(ctx context.Context, u URI) ([]byte, error) {
	s, err := m.Store(u.Scheme)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, u.Bucket, u.Key)
}

// Put uploads data to u.
func (m *Mux) Put(ctx context.Context, u URI, data []byte, contentType string) error {
	s, err := m.Store(u.Scheme)
	if err != nil {
		return err
	}
	return s.Put(ctx, u.Bucket, u.Key, data, contentType)
}

// List resolves u as a path: the object at u itself if one exists, plus every object
// under "u/". Keys that merely share a prefix ("u.bak") are not included.
func (m *Mux) List(ctx context.Context, u URI) ([]URI, error) {
	s, err := m.Store(u.Scheme)
	if err != nil {
		return nil, err
	}

	keys, err := s.List(ctx, u.Bucket, u.Key)
	if err != nil {
		return nil, err
	}

	dir := strings.TrimSuffix(u.Key, "/") + "/"
	var out []URI
	for _, k := range keys {
		if u.Key == "" || k == u.Key || strings.HasPrefix(k, dir) {
			out = append(out, URI{Scheme: u.Scheme, Bucket: u.Bucket, Key: k})
		}
	}
	return out, nil
}

// DeletePrefix removes every object under the directory u and reports how many were deleted.
func (m *Mux) DeletePrefix(ctx context.Context, u URI) (int, error) {
	s, err := m.Store(u.Scheme)
	if err != nil {
		return 0, err
	}

	dir := u.Dir()
	keys, err := s.List(ctx, dir.Bucket, dir.Key)
	if err != nil {
		return 0, err
	}

	for i, k := range keys {
		if err := s.Delete(ctx, dir.Bucket, k); err != nil {
			return i, fmt.Errorf("DeletePrefix: deleting %s: %w", k, err)
		}
	}
	return len(keys), nil
}
