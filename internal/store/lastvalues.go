package store

import "sync"

// LastValues is the in-memory last-published-payload cache.
//
// Every publish path (MQTT and WebSocket) consults it so identical
// successive values are suppressed. Keys match the Store's states section.
//
// Thread Safety: all methods are safe for concurrent use.
type LastValues struct {
	mu sync.Mutex
	m  map[string]string
}

// NewLastValues creates an empty cache.
func NewLastValues() *LastValues {
	return &LastValues{m: make(map[string]string)}
}

// Seed preloads the cache, typically from the persisted states section.
func (c *LastValues) Seed(values map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		c.m[k] = v
	}
}

// Changed records the payload and reports whether it differs from the
// cached value. A false return means the publish should be suppressed.
func (c *LastValues) Changed(key, payload string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.m[key]; ok && prev == payload {
		return false
	}
	c.m[key] = payload
	return true
}

// Get returns the cached payload for a key.
func (c *LastValues) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

// Forget removes a key (device removal) so a future re-add republishes.
func (c *LastValues) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// Len returns the number of cached entries.
func (c *LastValues) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
