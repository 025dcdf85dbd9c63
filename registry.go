package books

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// IDRegistry records which account owns each transaction ID of a run, to
// catch hash collisions across accounts. It is owned by the caller and safe
// for concurrent use.
type IDRegistry struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewIDRegistry returns an empty registry.
func NewIDRegistry() *IDRegistry {
	return &IDRegistry{owners: make(map[string]string)}
}

// Claim registers ids for owner. IDs already claimed, by any owner, are
// reported in a ConsistencyError and nothing is registered.
func (r *IDRegistry) Claim(owner string, ids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dups []string
	batch := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		_, inBatch := batch[id]
		if _, claimed := r.owners[id]; claimed || inBatch {
			dups = append(dups, id)
		}
		batch[id] = struct{}{}
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return &ConsistencyError{Reason: fmt.Sprintf("duplicate transaction ids in %q", owner), IDs: slices.Compact(dups)}
	}
	for id := range batch {
		r.owners[id] = owner
	}
	return nil
}

// Copy returns a registry holding the claims of r. A nil r copies to an
// empty registry.
func (r *IDRegistry) Copy() *IDRegistry {
	c := NewIDRegistry()
	if r == nil {
		return c
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	maps.Copy(c.owners, r.owners)
	return c
}

// ClaimAccount claims every transaction ID of a.
func (r *IDRegistry) ClaimAccount(a *Account) error {
	return r.Claim(a.Name, a.IDs()...)
}

// Owner returns the owner of id.
func (r *IDRegistry) Owner(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[id]
	return owner, ok
}

// Len returns the number of claimed IDs.
func (r *IDRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}
