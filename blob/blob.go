// Package blob stores uploaded file contents under opaque keys.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("blob: object not found")

// Store is the object storage contract used by the file service. Keys are
// chosen by the caller; Put overwrites.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	// Get returns the object body and the content type it was stored with.
	// The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
