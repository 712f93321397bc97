package publish

import "sync"

// DescriptorCache records which canonical keys have had a registration
// attempt. Entries are write-once for the process lifetime: a failed
// attempt is still an attempt and is never retried automatically.
type DescriptorCache struct {
	mu        sync.Mutex
	attempted map[string]struct{}
}

func NewDescriptorCache() *DescriptorCache {
	return &DescriptorCache{attempted: make(map[string]struct{})}
}

// Begin reports whether this is the first registration attempt for key
// and marks it attempted either way.
func (c *DescriptorCache) Begin(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.attempted[key]; ok {
		return false
	}
	c.attempted[key] = struct{}{}
	return true
}

// Attempted reports whether a registration attempt was recorded for key.
func (c *DescriptorCache) Attempted(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.attempted[key]
	return ok
}

// Len reports how many keys have been attempted.
func (c *DescriptorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attempted)
}
