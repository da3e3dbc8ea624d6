package objectstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned (possibly wrapped) when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Store provides an interface for object storage operations addressed by bucket and key.
// This interface enables mocking and testing of storage functionality.
type Store interface {
	// Get downloads the object bytes. A missing object yields an error wrapping ErrNotFound.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put uploads data under key, replacing any existing object.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error

	// List returns the keys of all objects whose key starts with prefix, sorted.
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error
}
