package router

import (
	"context"
	"slices"
	"testing"

	"github.com/xprobe/mars/transport"
	"github.com/xprobe/mars/utils/errors"
)

func TestSupportedClientTypes(t *testing.T) {
	r := New([]string{"mem://a"}, "relay://l", WithMapping(map[string]string{
		"mem://a": "other://o",
	}))

	cts, err := r.SupportedClientTypes("mem://a")
	if err != nil {
		t.Fatal(err)
	}
	want := []*transport.ClientType{memType, relayType, otherType}
	if !slices.Equal(cts, want) {
		t.Fatalf("SupportedClientTypes(mem://a) = %v, want %v", cts, want)
	}

	// an unmapped foreign address only offers its own scheme
	cts, err = r.SupportedClientTypes("mem://x")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(cts, []*transport.ClientType{memType}) {
		t.Fatalf("SupportedClientTypes(mem://x) = %v, want [mem]", cts)
	}
}

func TestGetClientByType(t *testing.T) {
	resetDials()
	ctx := context.Background()
	r := New([]string{"mem://a"}, "relay://l")
	cache := r.NewCache()

	// the default acquisition follows the loopback mapping
	c1, err := r.GetClient(ctx, cache, "mem://a")
	if err != nil {
		t.Fatal(err)
	}
	if d := lastDial(); d.typeName != "relay" || d.addr != "relay://l" {
		t.Fatalf("default acquisition dialed %s %q, want relay relay://l", d.typeName, d.addr)
	}

	// pinning the address's own scheme dials the external address itself,
	// independent of the default-typed cache entry
	c2, err := r.GetClientByType(ctx, cache, "mem://a", memType)
	if err != nil {
		t.Fatal(err)
	}
	if d := lastDial(); d.typeName != "mem" || d.addr != "mem://a" {
		t.Fatalf("by-type acquisition dialed %s %q, want mem mem://a", d.typeName, d.addr)
	}
	if c2 == c1 {
		t.Fatal("by-type acquisition shared the default-typed handle")
	}

	// the by-type slot caches independently
	c3, err := r.GetClientByType(ctx, cache, "mem://a", memType)
	if err != nil {
		t.Fatal(err)
	}
	if c3 != c2 {
		t.Fatal("repeated by-type acquisition did not reuse its slot")
	}

	// a type outside the candidate set fails, no fallback
	_, err = r.GetClientByType(ctx, cache, "mem://a", otherType)
	var ute *UnsupportedClientTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("err = %v, want UnsupportedClientTypeError", err)
	}
	if ute.ClientType != "other" || ute.Address != "mem://a" {
		t.Fatalf("error carries (%q, %q), want (other, mem://a)", ute.ClientType, ute.Address)
	}
}

func TestConnectPresentsCallerAddressAndConfig(t *testing.T) {
	resetDials()
	ctx := context.Background()
	r := New([]string{"mem://a", "mem://b"}, "",
		WithTransportConfig(map[string]any{"relay": "relay-settings"}),
	)

	if _, err := r.GetClient(ctx, nil, "relay://peer", WithPurpose("store")); err != nil {
		t.Fatal(err)
	}
	d := lastDial()
	if d.opts.LocalAddress != "mem://a" {
		t.Fatalf("presented local address %q, want the primary own address", d.opts.LocalAddress)
	}
	if d.opts.Purpose != "store" {
		t.Fatalf("presented purpose %q, want store", d.opts.Purpose)
	}
	if d.opts.Config != "relay-settings" {
		t.Fatalf("parsed config %v, want the relay section", d.opts.Config)
	}

	// the mem type has no config contract, its clients see none
	if _, err := r.GetClient(ctx, nil, "mem://peer"); err != nil {
		t.Fatal(err)
	}
	if d := lastDial(); d.opts.Config != nil {
		t.Fatalf("parsed config %v, want nil", d.opts.Config)
	}
}

func TestUnknownScheme(t *testing.T) {
	ctx := context.Background()
	r := New(nil, "")

	_, err := r.GetClient(ctx, nil, "bogus://x")
	var use *transport.UnknownSchemeError
	if !errors.As(err, &use) {
		t.Fatalf("err = %v, want UnknownSchemeError", err)
	}
	if use.Scheme != "bogus" {
		t.Fatalf("error carries scheme %q, want bogus", use.Scheme)
	}

	// no default type is registered in these tests, so bare addresses
	// fail the same way
	if _, err := r.GetClient(ctx, nil, "10.0.0.1:7777"); !errors.As(err, &use) {
		t.Fatalf("err = %v, want UnknownSchemeError", err)
	}
}

func TestConnectErrorSurfacedUncached(t *testing.T) {
	ctx := context.Background()
	r := New(nil, "")
	cache := r.NewCache()

	_, err := r.GetClient(ctx, cache, "flaky://x")
	var ce *transport.ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConnectError", err)
	}
	if !errors.Is(err, errFlaky) {
		t.Fatalf("err = %v, does not wrap the dial failure", err)
	}
	if n := cache.Len(); n != 0 {
		t.Fatalf("failed dial left %d cache entries", n)
	}
}

func TestDefaultRouter(t *testing.T) {
	defer SetDefault(nil)

	SetDefault(nil)
	if Default() != nil {
		t.Fatal("Default() non-nil after clearing")
	}
	empty := DefaultOrEmpty()
	if empty == nil {
		t.Fatal("DefaultOrEmpty() returned nil")
	}
	if addr := empty.ExternalAddress(); addr != "" {
		t.Fatalf("empty router has external address %q", addr)
	}

	mine := New([]string{"mem://a"}, "")
	SetDefault(mine)
	if Default() != mine {
		t.Fatal("Default() did not return the installed router")
	}
	if DefaultOrEmpty() != mine {
		t.Fatal("DefaultOrEmpty() did not return the installed router")
	}
}
