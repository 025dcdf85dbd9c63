package blob

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/boltdb/bolt"
)

var bucketName = []byte("books")

// Bolt stores payloads in a single bucket of a bolt database file.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates the bolt file at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open boltdb at %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create bucket in %q: %w", path, err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(_ context.Context, name string) ([]byte, error) {
	var v []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		// bolt values are only valid during the transaction.
		v = slices.Clone(tx.Bucket(bucketName).Get([]byte(name)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", name, err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (b *Bolt) Put(_ context.Context, name string, payload []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		// bolt treats a nil value as absent, store empty payloads as empty slices.
		if payload == nil {
			payload = []byte{}
		}
		return tx.Bucket(bucketName).Put([]byte(name), payload)
	})
	if err != nil {
		return fmt.Errorf("could not write %q: %w", name, err)
	}
	return nil
}

func (b *Bolt) Exists(ctx context.Context, name string) (bool, error) {
	_, err := b.Get(ctx, name)
	switch err {
	case nil:
		return true, nil
	case ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

func (b *Bolt) Delete(_ context.Context, name string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("could not delete %q: %w", name, err)
	}
	return nil
}

func (b *Bolt) Close() error { return b.db.Close() }
