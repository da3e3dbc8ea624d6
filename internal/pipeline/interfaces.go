package pipeline

import (
	"context"

	"github.com/dvloznov/batch-etl/internal/objectstore"
)

// StorageService is the object store the batch job reads inputs from and writes
// outputs to. *objectstore.Mux implements it.
type StorageService interface {
	Get(ctx context.Context, u objectstore.URI) ([]byte, error)
	Put(ctx context.Context, u objectstore.URI, data []byte, contentType string) error
	List(ctx context.Context, u objectstore.URI) ([]objectstore.URI, error)
	DeletePrefix(ctx context.Context, u objectstore.URI) (int, error)
}
