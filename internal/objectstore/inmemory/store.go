package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dvloznov/batch-etl/internal/objectstore"
)

// Object is a stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// Store is an in-memory implementation of objectstore.Store.
// It is safe for concurrent use. Data is lost on restart; use it for tests and local runs.
type Store struct {
	mu      sync.RWMutex
	objects map[string]map[string]Object
}

// NewStore creates an empty in-memory object store.
func NewStore() *Store {
	return &Store{
		objects: make(map[string]map[string]Object),
	}
}

// Get implements objectstore.Store.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[bucket][key]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, objectstore.ErrNotFound)
	}

	// Return a copy to avoid external modifications
	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)
	return data, nil
}

// Put implements objectstore.Store.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if key == "" {
		return fmt.Errorf("put %s: empty key", bucket)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.objects[bucket] == nil {
		s.objects[bucket] = make(map[string]Object)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[bucket][key] = Object{Data: buf, ContentType: contentType}
	return nil
}

// List implements objectstore.Store.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.objects[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete implements objectstore.Store.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects[bucket], key)
	return nil
}

// Stat returns the stored object, for assertions on content type.
func (s *Store) Stat(bucket, key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[bucket][key]
	return obj, ok
}

// Ensure Store implements objectstore.Store.
var _ objectstore.Store = (*Store)(nil)
