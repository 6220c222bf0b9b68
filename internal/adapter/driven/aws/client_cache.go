package aws

import (
	"sync"
	"time"
)

const (
	// defaultClientTTL bounds cache entries whose credentials carry no
	// expiry of their own.
	defaultClientTTL = 10 * time.Minute

	// credentialSafetyMargin evicts entries before their credentials
	// actually expire, tolerating clock skew between us and STS.
	credentialSafetyMargin = 5 * time.Minute
)

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// clientCache guarda configs e clientes AWS com expiração, keyed por
// região+role+perfil. É apenas uma otimização: um miss recria o cliente de
// forma transparente.
type clientCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newClientCache() *clientCache {
	return &clientCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// GetOrCreate returns the cached value for key, or invokes factory and caches
// its result. The factory's expiry is reduced by the safety margin; a zero
// expiry falls back to the fixed TTL.
func (c *clientCache) GetOrCreate(key string, factory func() (interface{}, time.Time, error)) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok && c.now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	value, expiry, err := factory()
	if err != nil {
		return nil, err
	}

	expiresAt := c.now().Add(defaultClientTTL)
	if !expiry.IsZero() {
		expiresAt = expiry.Add(-credentialSafetyMargin)
	}
	c.entries[key] = cacheEntry{value: value, expiresAt: expiresAt}
	return value, nil
}

// Clear drops every entry. Test hook.
func (c *clientCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Size returns the number of live entries. Test hook.
func (c *clientCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, entry := range c.entries {
		if c.now().Before(entry.expiresAt) {
			n++
		}
	}
	return n
}
