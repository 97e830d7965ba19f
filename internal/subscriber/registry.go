package subscriber

import (
	"sort"
	"sync"

	"profile_watch_bot/internal/extractor"
)

// Registry maps chat IDs to subscribers. Entries are never removed.
type Registry struct {
	extractor *extractor.Extractor

	mu   sync.RWMutex
	subs map[int64]*Subscriber
}

// NewRegistry creates an empty registry whose subscribers share x.
func NewRegistry(x *extractor.Extractor) *Registry {
	return &Registry{
		extractor: x,
		subs:      make(map[int64]*Subscriber),
	}
}

// Add registers a subscriber for id unless one already exists.
// It reports whether a new subscriber was created; an existing subscriber
// keeps its original profile.
func (r *Registry) Add(id int64, profile string) (*Subscriber, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subs[id]; ok {
		return s, false
	}
	s := New(id, profile, r.extractor)
	r.subs[id] = s
	return s, true
}

// Get returns the subscriber registered for id.
func (r *Registry) Get(id int64) (*Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[id]
	return s, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id int64) bool {
	_, ok := r.Get(id)
	return ok
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Snapshot returns the current subscribers ordered by ID.
// Subscribers added after the call are not included.
func (r *Registry) Snapshot() []*Subscriber {
	r.mu.RLock()
	out := make([]*Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
