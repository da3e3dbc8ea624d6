package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/batch-etl/internal/objectstore"
	"google.golang.org/api/iterator"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Store is the objectstore.Store implementation backed by Google Cloud Storage.
// It assumes Application Default Credentials are configured; STORAGE_EMULATOR_HOST
// is honoured by the client library for local runs.
type Store struct {
	client *storage.Client
}

// NewStore creates a Store with its own storage client. Call Close when done.
func NewStore(ctx context.Context) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStore: create storage client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing storage client.
func NewStoreWithClient(client *storage.Client) *Store {
	return &Store{client: client}
}

// Close releases the storage client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Get downloads the object bytes.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("gcs get %s/%s: %w", bucket, key, objectstore.ErrNotFound)
		}
		return nil, fmt.Errorf("gcs get %s/%s: open reader: %w", bucket, key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("gcs get %s/%s: reading bytes: %w", bucket, key, err)
	}

	return data, nil
}

// Put uploads data as a single object.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs put %s/%s: copy to writer: %w", bucket, key, err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs put %s/%s: finalize upload: %w", bucket, key, err)
	}

	return nil
}

// List returns object names under prefix. GCS lists in lexicographic order.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list %s/%s: iterating: %w", bucket, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}

	return keys, nil
}

// Delete removes the object if it exists.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	err := s.client.Bucket(bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Ensure Store implements objectstore.Store.
var _ objectstore.Store = (*Store)(nil)
