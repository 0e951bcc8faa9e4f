package router

import (
	"maps"
	"slices"
)

// table is one immutable snapshot of the routing state. Mutations copy the
// current snapshot, adjust the copy and swap it in, so concurrent lookups
// never observe a half-applied change.
type table struct {
	// own lists the external addresses this process is reachable as,
	// ordered; the first entry is the primary address advertised to peers.
	own []string

	// loopback maps own addresses to the same-process delivery target.
	// Populated only when a local target was configured; keys are always
	// a subset of own.
	loopback map[string]string

	// overlay maps external to internal addresses cluster-wide, for
	// relays and NAT traversal.
	overlay map[string]string

	// config holds the per-scheme transport configuration blob, passed
	// opaquely to client construction.
	config map[string]any
}

func newTable(externals []string, local string) *table {
	t := &table{
		own:      slices.Clone(externals),
		loopback: make(map[string]string),
		overlay:  make(map[string]string),
		config:   make(map[string]any),
	}
	if local != "" {
		for _, addr := range t.own {
			t.loopback[addr] = local
		}
	}
	return t
}

func (t *table) clone() *table {
	return &table{
		own:      slices.Clone(t.own),
		loopback: maps.Clone(t.loopback),
		overlay:  maps.Clone(t.overlay),
		config:   maps.Clone(t.config),
	}
}

func (t *table) primary() string {
	if len(t.own) > 0 {
		return t.own[0]
	}
	return ""
}

// resolveInternal maps an external address to the endpoint to dial.
// Loopback wins over the overlay. Absence is not an error: the caller
// treats the address as already internal.
func (t *table) resolveInternal(external string) (string, bool) {
	if addr, ok := t.loopback[external]; ok {
		return addr, true
	}
	if addr, ok := t.overlay[external]; ok {
		return addr, true
	}
	return "", false
}

// merge folds another router's knowledge in: own addresses append
// (duplicates kept), mappings and config union with other winning key
// collisions.
func (t *table) merge(o *table) {
	t.own = append(t.own, o.own...)
	maps.Copy(t.loopback, o.loopback)
	maps.Copy(t.overlay, o.overlay)
	maps.Copy(t.config, o.config)
}

// unmerge structurally subtracts a previously merged table: at most one
// occurrence per own address, mapping keys deleted regardless of their
// current value. Addresses never merged are silently ignored.
func (t *table) unmerge(o *table) {
	for _, addr := range o.own {
		if i := slices.Index(t.own, addr); i >= 0 {
			t.own = slices.Delete(t.own, i, i+1)
		}
	}
	for addr := range o.loopback {
		delete(t.loopback, addr)
	}
	for addr := range o.overlay {
		delete(t.overlay, addr)
	}
}
