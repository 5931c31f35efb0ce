package crawler

import (
	"sort"
	"sync"
)

// VisitedSet is a domain's set of normalized URL keys already claimed
// for fetching. It only grows within a run. MarkIfNew is the atomic
// check-then-add the at-most-once dispatch guarantee rests on: of any
// number of concurrent callers with the same key, exactly one wins.
type VisitedSet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{keys: make(map[string]struct{})}
}

// Contains reports whether the key is in the set.
func (v *VisitedSet) Contains(key string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.keys[key]
	return ok
}

// MarkIfNew adds the key and reports whether this call added it. The
// check and the add are one critical section, so two workers holding
// tasks for the same URL can never both proceed to fetch it.
func (v *VisitedSet) MarkIfNew(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.keys[key]; ok {
		return false
	}
	v.keys[key] = struct{}{}
	return true
}

// Unmark releases a key claimed by MarkIfNew whose fetch was never
// attempted, so a shutdown does not leave unfetched URLs looking
// crawled in the checkpoint. Only the claiming worker may call it.
func (v *VisitedSet) Unmark(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.keys, key)
}

// Merge adds every key in keys and returns how many were new. Merging
// the same keys twice is a no-op, which makes startup reconciliation
// idempotent.
func (v *VisitedSet) Merge(keys []string) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	added := 0
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := v.keys[key]; !ok {
			v.keys[key] = struct{}{}
			added++
		}
	}
	return added
}

// Len returns the number of keys in the set.
func (v *VisitedSet) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.keys)
}

// Keys returns the keys sorted, for deterministic checkpoint records.
func (v *VisitedSet) Keys() []string {
	v.mu.RLock()
	keys := make([]string, 0, len(v.keys))
	for key := range v.keys {
		keys = append(keys, key)
	}
	v.mu.RUnlock()

	sort.Strings(keys)
	return keys
}
