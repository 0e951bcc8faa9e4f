// Package router resolves logical ("external") endpoint addresses to
// concrete transport endpoints, picks the client implementation for the
// resulting scheme and hands out cached client connections, so repeated
// sends to the same peer reuse an established connection.
package router

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/xprobe/mars/transport"
)

// Router owns the routing table and coordinates the per-context client
// caches. Lookups are lock-free against an immutable snapshot; mutations
// serialize on a mutex, swap the snapshot and bump the generation counter
// the caches compare on every access.
type Router struct {
	mu  sync.Mutex // serializes mutations; lookups go through tab alone
	tab atomic.Pointer[table]
	gen atomic.Uint64
}

// Option adjusts the initial routing table.
type Option func(t *table)

// WithMapping seeds the overlay mapping from external to internal
// addresses.
func WithMapping(m map[string]string) Option {
	return func(t *table) {
		maps.Copy(t.overlay, m)
	}
}

// WithTransportConfig attaches the per-scheme configuration blob handed to
// client construction.
func WithTransportConfig(cfg map[string]any) Option {
	return func(t *table) {
		maps.Copy(t.config, cfg)
	}
}

// New builds a router reachable as externals, the first entry being the
// primary address advertised to peers. local, when non-empty, becomes the
// same-process delivery target for every own address.
func New(externals []string, local string, opts ...Option) *Router {
	t := newTable(externals, local)
	for _, opt := range opts {
		opt(t)
	}
	r := &Router{}
	r.tab.Store(t)
	return r
}

// ExternalAddress returns the primary own address, empty when the router
// has none.
func (r *Router) ExternalAddress() string {
	return r.tab.Load().primary()
}

// OwnAddresses returns the external addresses this router is reachable as.
func (r *Router) OwnAddresses() []string {
	return slices.Clone(r.tab.Load().own)
}

// ResolveInternal maps an external address to the concrete endpoint to
// dial: loopback first, then overlay. ok is false when no mapping exists
// and the address should be dialed as-is.
func (r *Router) ResolveInternal(external string) (addr string, ok bool) {
	return r.tab.Load().resolveInternal(external)
}

// Generation counts mutations; per-context caches drop their entries when
// it moves.
func (r *Router) Generation() uint64 {
	return r.gen.Load()
}

func (r *Router) mutate(f func(t *table)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.tab.Load().clone()
	f(t)
	r.tab.Store(t)
	r.gen.Add(1)
}

// SetMapping replaces the overlay mapping wholesale; own addresses and the
// loopback mapping are untouched. Every per-context cache is invalidated.
func (r *Router) SetMapping(m map[string]string) {
	r.mutate(func(t *table) {
		t.overlay = make(map[string]string, len(m))
		maps.Copy(t.overlay, m)
	})
}

// AddRouter merges other's routing knowledge into this router: own
// addresses append (duplicates kept), mappings and transport config union
// with other winning collisions.
func (r *Router) AddRouter(other *Router) {
	r.mutate(func(t *table) {
		t.merge(other.tab.Load())
	})
}

// RemoveRouter subtracts a previously merged router: one occurrence per
// own address, mapping keys dropped regardless of current value. Only
// meaningful with a router that was in fact merged before.
func (r *Router) RemoveRouter(other *Router) {
	r.mutate(func(t *table) {
		t.unmerge(other.tab.Load())
	})
}

type acquireOptions struct {
	purpose  string
	useCache bool
}

// AcquireOption adjusts a single client acquisition.
type AcquireOption func(o *acquireOptions)

// WithPurpose tags the acquisition; connections acquired under different
// purposes occupy different cache slots.
func WithPurpose(tag string) AcquireOption {
	return func(o *acquireOptions) {
		o.purpose = tag
	}
}

// WithoutCache bypasses the cache in both directions: no lookup, no store.
func WithoutCache() AcquireOption {
	return func(o *acquireOptions) {
		o.useCache = false
	}
}

// GetClient returns a usable client for an external address, reusing the
// calling context's cached connection when it holds one that is still
// open. cache belongs to exactly one execution context and may be nil,
// which disables reuse for this call.
//
// Concurrent calls from different contexts are independent by
// construction. Two racing calls within one context for the same key are
// not deduplicated: both dial, the later store wins the slot.
func (r *Router) GetClient(ctx context.Context, cache *ClientCache, external string, opts ...AcquireOption) (transport.Client, error) {
	ao := acquireOptions{useCache: true}
	for _, opt := range opts {
		opt(&ao)
	}
	useCache := ao.useCache && cache != nil
	key := cacheKey{external: external, purpose: ao.purpose}

	if useCache {
		if client, ok := cache.lookup(key); ok {
			return client, nil
		}
	}

	tab := r.tab.Load()
	addr, ok := tab.resolveInternal(external)
	if !ok {
		// no mapping, the address is already concrete
		addr = external
	}
	ct, err := transport.ClientTypeFor(addr)
	if err != nil {
		return nil, err
	}
	client, err := createClient(ctx, tab, ct, addr, ao.purpose)
	if err != nil {
		return nil, err
	}

	if useCache {
		cache.store(key, client)
	}
	return client, nil
}

// GetClientByType is GetClient with the transport pinned: when the
// requested type is not among the address's candidates it fails with an
// UnsupportedClientTypeError instead of falling back. By-type acquisitions
// occupy cache slots of their own, independent of the default-typed slot
// for the same address.
func (r *Router) GetClientByType(ctx context.Context, cache *ClientCache, external string, ct *transport.ClientType, opts ...AcquireOption) (transport.Client, error) {
	ao := acquireOptions{useCache: true}
	for _, opt := range opts {
		opt(&ao)
	}
	useCache := ao.useCache && cache != nil
	key := cacheKey{external: external, purpose: ao.purpose, clientType: ct.Name}

	if useCache {
		if client, ok := cache.lookup(key); ok {
			return client, nil
		}
	}

	tab := r.tab.Load()
	candidates, err := typeCandidates(tab, external)
	if err != nil {
		return nil, err
	}
	addr, found := "", false
	for _, cand := range candidates {
		if cand.ct == ct {
			addr, found = cand.addr, true
			break
		}
	}
	if !found {
		return nil, &UnsupportedClientTypeError{ClientType: ct.Name, Address: external}
	}
	client, err := createClient(ctx, tab, ct, addr, ao.purpose)
	if err != nil {
		return nil, err
	}

	if useCache {
		cache.store(key, client)
	}
	return client, nil
}

// SupportedClientTypes lists the transports a caller could request for an
// external address before committing to one.
func (r *Router) SupportedClientTypes(external string) ([]*transport.ClientType, error) {
	candidates, err := typeCandidates(r.tab.Load(), external)
	if err != nil {
		return nil, err
	}
	cts := make([]*transport.ClientType, len(candidates))
	for i, cand := range candidates {
		cts[i] = cand.ct
	}
	return cts, nil
}

type candidate struct {
	ct   *transport.ClientType
	addr string
}

// typeCandidates computes the (client type, dial address) pairs reachable
// for an external address: the address's own scheme, the loopback target
// when the address is one of ours, and the overlay target when one is
// mapped. A type appearing twice keeps its first position and takes the
// later address.
func typeCandidates(tab *table, external string) ([]candidate, error) {
	var list []candidate
	add := func(addr string) error {
		ct, err := transport.ClientTypeFor(addr)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].ct == ct {
				list[i].addr = addr
				return nil
			}
		}
		list = append(list, candidate{ct: ct, addr: addr})
		return nil
	}

	if err := add(external); err != nil {
		return nil, err
	}
	if slices.Contains(tab.own, external) {
		if addr, ok := tab.loopback[external]; ok {
			if err := add(addr); err != nil {
				return nil, err
			}
		}
	}
	if addr, ok := tab.overlay[external]; ok {
		if err := add(addr); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// createClient runs the client type's config-parsing contract against the
// snapshot's transport config and dials, presenting the primary own
// address so the peer can address responses back. Dial failures surface
// unchanged; retry policy belongs to the caller.
func createClient(ctx context.Context, tab *table, ct *transport.ClientType, addr, purpose string) (transport.Client, error) {
	var cfg any
	if ct.ParseConfig != nil {
		parsed, err := ct.ParseConfig(tab.config)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}
	return ct.Connect(ctx, addr, transport.ConnectOptions{
		LocalAddress: tab.primary(),
		Purpose:      purpose,
		Config:       cfg,
	})
}

// UnsupportedClientTypeError reports a GetClientByType request for a
// transport that cannot reach the address.
type UnsupportedClientTypeError struct {
	ClientType string
	Address    string
}

func (e *UnsupportedClientTypeError) Error() string {
	return fmt.Sprintf("router: client type %q is not supported for %q", e.ClientType, e.Address)
}
