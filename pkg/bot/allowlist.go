package bot

import "sync"

// Allowlist is the process-wide set of telegram ids allowed to talk to the
// bot. Refresh computes the complete next set first and applies the diff in
// one critical section, so readers never observe a half-applied update.
type Allowlist struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func NewAllowlist(ids []int64) *Allowlist {
	a := &Allowlist{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		a.ids[id] = struct{}{}
	}
	return a
}

func (a *Allowlist) Contains(id int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.ids[id]
	return ok
}

func (a *Allowlist) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.ids)
}

// Replace swaps in the next id set and reports how many ids were added and
// removed relative to the previous one.
func (a *Allowlist) Replace(next []int64) (added, removed int) {
	nextSet := make(map[int64]struct{}, len(next))
	for _, id := range next {
		nextSet[id] = struct{}{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for id := range nextSet {
		if _, ok := a.ids[id]; !ok {
			added++
		}
	}
	for id := range a.ids {
		if _, ok := nextSet[id]; !ok {
			removed++
		}
	}

	a.ids = nextSet
	return added, removed
}
