package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCS stores each payload as an object of a cloud storage bucket.
// Object writes only become visible when the writer is closed, which keeps
// Put atomic.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// OpenGCS creates a client using the ambient application credentials.
func OpenGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), prefix: prefix}, nil
}

func (g *GCS) object(name string) *storage.ObjectHandle {
	return g.bucket.Object(g.prefix + name)
}

func (g *GCS) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := g.object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", name, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", name, err)
	}
	return b, nil
}

func (g *GCS) Put(ctx context.Context, name string, payload []byte) error {
	w := g.object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return fmt.Errorf("could not write %q: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("could not commit %q: %w", name, err)
	}
	return nil
}

func (g *GCS) Exists(ctx context.Context, name string) (bool, error) {
	_, err := g.object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not check %q: %w", name, err)
	}
	return true, nil
}

func (g *GCS) Delete(ctx context.Context, name string) error {
	err := g.object(name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("could not delete %q: %w", name, err)
	}
	return nil
}

func (g *GCS) Close() error { return g.client.Close() }
