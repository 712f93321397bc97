package ingest

import (
	"sync"
	"time"
)

// Registry tracks when each client host was first observed. Counter time
// series need a fixed start point, so entries are keyed by host (not
// host:port) and survive disconnects for the life of the process: a
// reconnecting client must keep its original start time or cumulative
// series stop being monotonic.
type Registry struct {
	mu        sync.Mutex
	firstSeen map[string]float64
	now       func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		firstSeen: make(map[string]float64),
		now:       time.Now,
	}
}

// Observe records the client on first sight and returns its first-seen
// time as unix seconds. Subsequent calls for the same client return the
// original timestamp unchanged.
func (r *Registry) Observe(clientID string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ts, ok := r.firstSeen[clientID]; ok {
		return ts
	}
	ts := float64(r.now().UTC().UnixNano()) / float64(time.Second)
	r.firstSeen[clientID] = ts
	return ts
}

// FirstSeen returns the recorded first-seen time for a client, if any.
func (r *Registry) FirstSeen(clientID string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.firstSeen[clientID]
	return ts, ok
}

// Len reports how many distinct clients have been observed.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.firstSeen)
}
