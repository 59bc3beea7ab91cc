package bucketsample

import (
	"context"
	"io"
)

// Store is the read-side contract the sampling pipeline needs from an
// object-storage provider.
//
// All methods accept a context.Context for cancellation and timeouts.
type Store interface {
	// Objects lists objects under the given key prefix, fetched lazily in
	// provider-sized pages. An empty prefix lists the whole bucket.
	Objects(ctx context.Context, prefix string) ObjectIterator

	// Open returns a streaming reader for the object's bytes.
	// Returns ErrNotFound if the key does not exist.
	// The returned reader must be closed after use.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Download copies the object to localPath, creating parent directories
	// as needed. Used for formats that require random access (Parquet).
	Download(ctx context.Context, key, localPath string) error

	// Close releases any resources held by the store.
	// After Close, all other methods return ErrStoreClosed.
	Close() error
}
