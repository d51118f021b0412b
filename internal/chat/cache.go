// ABOUTME: Resolver cache mapping canonical pair keys to resolved conversations
// ABOUTME: Entries are never evicted; the cache lives as long as its owner

package chat

import "sync"

// Cache memoizes resolved conversations by pair key.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Conversation
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Conversation)}
}

// Get returns the conversation cached under key.
func (c *Cache) Get(key string) (Conversation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv, ok := c.entries[key]
	return conv, ok
}

// Put stores conv under key, replacing any previous entry.
func (c *Cache) Put(key string, conv Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = conv
}

// Len reports the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
