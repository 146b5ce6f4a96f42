package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type CacheItem struct {
	Value     string
	ExpiresAt time.Time
}

// Cache is a small TTL map used to memoise translations between cycles.
// Expired entries are dropped lazily on access and whenever the cache grows
// past maxItems.
type Cache struct {
	mu       sync.Mutex
	items    map[string]CacheItem
	ttl      time.Duration
	maxItems int
	now      func() time.Time
}

func New(ttl time.Duration, maxItems int) *Cache {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &Cache{
		items:    make(map[string]CacheItem),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
	}
}

func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxItems {
		c.cleanupLocked()
	}
	if len(c.items) >= c.maxItems {
		c.evictOldestLocked()
	}

	c.items[key] = CacheItem{
		Value:     value,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return "", false
	}

	if c.now().After(item.ExpiresAt) {
		delete(c.items, key)
		return "", false
	}

	return item.Value, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// GenerateKey builds a cache key from any number of parts.
func GenerateKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) cleanupLocked() {
	now := c.now()
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
		}
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.ExpiresAt.Before(oldest) {
			oldestKey, oldest = key, item.ExpiresAt
		}
	}
	delete(c.items, oldestKey)
}
