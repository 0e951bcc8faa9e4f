package router

import (
	"github.com/xprobe/mars/transport"
)

// cacheKey identifies one cached client slot. Empty purpose and clientType
// mean "absent".
type cacheKey struct {
	external   string
	purpose    string
	clientType string
}

// ClientCache holds one execution context's live connections. Each worker
// obtains its own cache from the router it uses and never shares it: two
// contexts never observe each other's entries, which is what makes
// concurrent acquisition lock-free. Nothing in here is safe for concurrent
// use, and nothing needs to be.
type ClientCache struct {
	router  *Router
	gen     uint64
	entries map[cacheKey]transport.Client
}

// NewCache creates the per-context client cache for this router.
func (r *Router) NewCache() *ClientCache {
	return &ClientCache{
		router:  r,
		gen:     r.gen.Load(),
		entries: make(map[cacheKey]transport.Client),
	}
}

// sync drops every entry when the router has mutated since the last
// access. Checking the generation on each access makes invalidation
// explicit and total: a context that resolved before the mutation may
// still finish against the old address, but no context reuses a stale
// cached handle afterwards. Dropped handles are not closed; a caller
// still holding one keeps a working connection and owns its shutdown.
func (c *ClientCache) sync() {
	if gen := c.router.gen.Load(); gen != c.gen {
		clear(c.entries)
		c.gen = gen
	}
}

// lookup returns the cached client for key. A handle observed closed is
// evicted on the spot and reported absent; eviction is lazy, there is no
// proactive sweep.
func (c *ClientCache) lookup(key cacheKey) (transport.Client, bool) {
	c.sync()
	client, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if client.Closed() {
		delete(c.entries, key)
		return nil, false
	}
	return client, true
}

func (c *ClientCache) store(key cacheKey, client transport.Client) {
	c.sync()
	c.entries[key] = client
}

// InvalidateAll drops every entry without closing the underlying handles.
func (c *ClientCache) InvalidateAll() {
	clear(c.entries)
}

// Len reports the number of cached entries still considered current.
func (c *ClientCache) Len() int {
	c.sync()
	return len(c.entries)
}
