package transport

import (
	"strings"
	"sync"

	"github.com/xprobe/mars/utils/errors"
)

// registry maps scheme prefixes to client types. Types register from their
// package init at process startup; after that the table is read-only, the
// lock only guards against registration racing an early lookup.
type registry struct {
	mu       sync.RWMutex
	schemes  map[string]*ClientType
	names    map[string]*ClientType
	fallback *ClientType
}

var reg = &registry{
	schemes: make(map[string]*ClientType),
	names:   make(map[string]*ClientType),
}

// RegisterClientType installs a client type for its schemes. Colliding
// registrations are a programmer error and panic.
func RegisterClientType(ct *ClientType) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.names[ct.Name]; ok {
		panic(errors.Format("transport: client type %q registered twice", ct.Name))
	}
	for _, scheme := range ct.Schemes {
		if prev, ok := reg.schemes[scheme]; ok {
			panic(errors.Format("transport: scheme %q claimed by both %q and %q", scheme, prev.Name, ct.Name))
		}
	}
	if ct.Default && reg.fallback != nil {
		panic(errors.Format("transport: default client type claimed by both %q and %q", reg.fallback.Name, ct.Name))
	}

	reg.names[ct.Name] = ct
	for _, scheme := range ct.Schemes {
		reg.schemes[scheme] = ct
	}
	if ct.Default {
		reg.fallback = ct
	}
}

// ClientTypeFor resolves the client type serving an address, a pure
// function of its scheme prefix. Addresses without a scheme fall to the
// default type.
func ClientTypeFor(address string) (*ClientType, error) {
	scheme, ok := SchemeOf(address)

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	if !ok {
		if reg.fallback == nil {
			return nil, &UnknownSchemeError{Address: address}
		}
		return reg.fallback, nil
	}
	ct, ok := reg.schemes[scheme]
	if !ok {
		return nil, &UnknownSchemeError{Address: address, Scheme: scheme}
	}
	return ct, nil
}

// ClientTypeByName looks a registered type up by its name.
func ClientTypeByName(name string) (*ClientType, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	ct, ok := reg.names[name]
	return ct, ok
}

// SchemeOf splits the scheme prefix off an address. Bare addresses such as
// "127.0.0.1:7777" have none.
func SchemeOf(address string) (string, bool) {
	i := strings.Index(address, "://")
	if i < 0 {
		return "", false
	}
	return address[:i], true
}
