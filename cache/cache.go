// Package cache memoizes expensive computations in a blob.Store, keyed by a
// name and addressed by a fingerprint of their inputs.
//
// A request with the fingerprint already stored for a name returns the stored
// payload without calling the generator. Any other fingerprint calls the
// generator, and on success persists the new (name, fingerprint, payload)
// triple. Failures never leave the cache: they are logged and replaced by the
// caller supplied default, and the stored fingerprint stays untouched so the
// next request tries again.
//
// Storage layout for a name n:
//
//	n                 the fingerprint pointer, a plain string
//	n@<fingerprint>   the record envelope for that fingerprint
//
// The pointer is written last, so it commits the triple: a reader either sees
// the previous fingerprint with its payload, or the new one with its payload.
// Once the pointer moved, the previous payload is deleted; a reader that still
// holds the previous fingerprint then misses and recomputes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/etnz/books/blob"
	"github.com/etnz/books/internal/logger"
)

// Never is the fingerprint of a name that was never computed. It is reserved
// and can never be written.
const Never = "0"

var (
	// ErrReservedFingerprint is returned when writing the Never fingerprint.
	ErrReservedFingerprint = errors.New("cache: fingerprint \"0\" is reserved")
	// ErrSameFingerprint is returned when writing the fingerprint already stored.
	ErrSameFingerprint = errors.New("cache: fingerprint is already stored")
)

// Record is a cacheable value. Kind names its variant in the Codec.
type Record interface {
	Kind() string
}

// Codec turns records into JSON payloads and back.
type Codec interface {
	Encode(Record) ([]byte, error)
	Decode([]byte) (Record, error)
}

// Generator computes the record for a name.
type Generator func(ctx context.Context, name string) (Record, error)

// Stats counts request outcomes.
type Stats struct {
	Hits     int64 // served from the store
	Misses   int64 // generator called and record persisted
	Failures int64 // default returned
}

// Cache is safe for concurrent use.
type Cache struct {
	store blob.Store
	codec Codec

	group singleflight.Group
	locks sync.Map // name -> *sync.Mutex

	hits, misses, failures atomic.Int64
}

// New returns a cache persisting into store.
func New(store blob.Store, codec Codec) *Cache {
	return &Cache{store: store, codec: codec}
}

// envelope is the persisted triple.
type envelope struct {
	Name        string          `json:"name"`
	Fingerprint string          `json:"fingerprint"`
	Payload     json.RawMessage `json:"payload"`
}

func payloadKey(name, fingerprint string) string { return name + "@" + fingerprint }

// Fingerprint returns the fingerprint stored for name, or Never.
func (c *Cache) Fingerprint(ctx context.Context, name string) (string, error) {
	b, err := c.store.Get(ctx, name)
	if errors.Is(err, blob.ErrNotFound) {
		return Never, nil
	}
	if err != nil {
		return "", fmt.Errorf("could not read fingerprint of %q: %w", name, err)
	}
	return string(b), nil
}

// SetFingerprint stores a new fingerprint for name. Writing the fingerprint
// already stored is refused, it would look like new work.
func (c *Cache) SetFingerprint(ctx context.Context, name, fingerprint string) error {
	if fingerprint == Never {
		return ErrReservedFingerprint
	}
	current, err := c.Fingerprint(ctx, name)
	if err != nil {
		return err
	}
	if current == fingerprint {
		return fmt.Errorf("%w: %q for %q", ErrSameFingerprint, fingerprint, name)
	}
	if err := c.store.Put(ctx, name, []byte(fingerprint)); err != nil {
		return fmt.Errorf("could not write fingerprint of %q: %w", name, err)
	}
	return nil
}

// Stats returns a snapshot of the request counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Failures: c.failures.Load()}
}

// Request returns the record for (name, fingerprint), calling gen only when
// the stored fingerprint differs. The returned record is of the given kind,
// or def.
//
// Concurrent requests for the same name and fingerprint share a single call,
// run under the context of the first caller. When that context ends before the
// call completes, callers whose context is still live request again.
// Requests for the same name with different fingerprints are serialized.
func (c *Cache) Request(ctx context.Context, name, fingerprint, kind string, gen Generator, def Record) Record {
	for {
		v, err, shared := c.group.Do(name+"\x00"+fingerprint, func() (any, error) {
			rec := c.request(ctx, name, fingerprint, kind, gen, def)
			return rec, ctx.Err()
		})
		rec, _ := v.(Record)
		if err == nil || !shared || ctx.Err() != nil {
			return rec
		}
	}
}

func (c *Cache) lock(name string) *sync.Mutex {
	mu, _ := c.locks.LoadOrStore(name, new(sync.Mutex))
	return mu.(*sync.Mutex)
}

func (c *Cache) request(ctx context.Context, name, fingerprint, kind string, gen Generator, def Record) Record {
	mu := c.lock(name)
	mu.Lock()
	defer mu.Unlock()

	log := logger.FromContext(ctx).With().Str("cache", name).Str("fingerprint", fingerprint).Logger()

	if fingerprint == Never {
		log.Error().Msg("refusing to cache under the reserved fingerprint")
		c.failures.Add(1)
		return def
	}

	stored, err := c.Fingerprint(ctx, name)
	if err != nil {
		log.Warn().Err(err).Msg("cannot read stored fingerprint, recomputing")
		stored = Never
	}

	if stored == fingerprint {
		rec, err := c.load(ctx, name, fingerprint, kind)
		if err == nil {
			log.Debug().Msg("cache hit")
			c.hits.Add(1)
			return rec
		}
		log.Warn().Err(err).Msg("cached payload unusable, recomputing")
	}

	rec, err := generate(ctx, name, gen)
	if err == nil && (rec == nil || rec.Kind() != kind) {
		err = fmt.Errorf("generator returned %s, want %q", describe(rec), kind)
	}
	if err != nil {
		log.Error().Err(err).Msg("generation failed, using default")
		c.failures.Add(1)
		return def
	}

	if err := c.save(ctx, name, fingerprint, stored, rec); err != nil {
		// the record is valid, only its persistence failed: next request recomputes.
		log.Error().Err(err).Msg("could not persist record")
	} else {
		log.Debug().Msg("cache updated")
	}
	c.misses.Add(1)
	return rec
}

// generate calls gen and turns a panic into an error.
func generate(ctx context.Context, name string, gen Generator) (rec Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return gen(ctx, name)
}

func describe(rec Record) string {
	if rec == nil {
		return "nil"
	}
	return fmt.Sprintf("kind %q", rec.Kind())
}

func (c *Cache) load(ctx context.Context, name, fingerprint, kind string) (Record, error) {
	b, err := c.store.Get(ctx, payloadKey(name, fingerprint))
	if err != nil {
		return nil, fmt.Errorf("could not read payload: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("could not parse envelope: %w", err)
	}
	if env.Name != name || env.Fingerprint != fingerprint {
		return nil, fmt.Errorf("envelope is for %q@%q", env.Name, env.Fingerprint)
	}
	rec, err := c.codec.Decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("could not decode payload: %w", err)
	}
	if rec.Kind() != kind {
		return nil, fmt.Errorf("stored record is of kind %q, want %q", rec.Kind(), kind)
	}
	return rec, nil
}

func (c *Cache) save(ctx context.Context, name, fingerprint, stored string, rec Record) error {
	payload, err := c.codec.Encode(rec)
	if err != nil {
		return fmt.Errorf("could not encode record: %w", err)
	}
	if !json.Valid(payload) {
		return fmt.Errorf("codec produced invalid JSON for kind %q", rec.Kind())
	}
	b, err := json.Marshal(envelope{Name: name, Fingerprint: fingerprint, Payload: payload})
	if err != nil {
		return fmt.Errorf("could not encode envelope: %w", err)
	}
	if err := c.store.Put(ctx, payloadKey(name, fingerprint), b); err != nil {
		return err
	}
	if stored == fingerprint {
		// payload repaired in place, the pointer is already right.
		return nil
	}
	if err := c.SetFingerprint(ctx, name, fingerprint); err != nil {
		return err
	}
	if stored == Never {
		return nil
	}
	// nothing points to the previous payload anymore.
	if err := c.store.Delete(ctx, payloadKey(name, stored)); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("cache", name).Str("fingerprint", stored).Msg("could not delete stale payload")
	}
	return nil
}
