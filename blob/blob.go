// Package blob defines the key-value store the hash cache persists into, and
// its backends: in-memory, a plain folder, a bolt file, redis, postgres and a
// cloud storage bucket.
//
// A Store gets a payload by name, puts a payload under a name, checks whether
// a name exists and deletes a name. Every Put is atomic for the single name it
// writes.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the name has never been written.
var ErrNotFound = errors.New("blob: not found")

// Store is a durable name to payload store.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, payload []byte) error
	Exists(ctx context.Context, name string) (bool, error)
	// Delete removes name. Deleting an absent name is not an error.
	Delete(ctx context.Context, name string) error
	Close() error
}
