package providers

import (
	"sync"
	"time"
)

// refreshMargin is taken off a token's lifetime so it is renewed before
// the server starts rejecting it.
const refreshMargin = 5 * time.Second

// TokenCache keeps one API token in memory while it is fresh. It is safe
// for concurrent use.
type TokenCache struct {
	mu    sync.Mutex
	token string
	until time.Time
	now   func() time.Time
}

func NewTokenCache() *TokenCache {
	return &TokenCache{now: time.Now}
}

// Get returns the cached token unless it is missing or stale.
func (c *TokenCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" || !c.now().Before(c.until) {
		return "", false
	}
	return c.token, true
}

// Set caches token for ttl minus the refresh margin. Lifetimes shorter
// than the margin are used as given.
func (c *TokenCache) Set(token string, ttl time.Duration) {
	if ttl > refreshMargin {
		ttl -= refreshMargin
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.until = c.now().Add(ttl)
}

// Clear forgets the token, forcing the next caller to authenticate.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.until = time.Time{}
}
