package router

import (
	"context"
	"sync"

	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/transport"
	"github.com/xprobe/mars/utils/errors"
)

// In-memory client types for exercising acquisition without sockets: every
// dial succeeds instantly and is recorded, except "flaky" which always
// refuses.

type dialRecord struct {
	typeName string
	addr     string
	opts     transport.ConnectOptions
}

var (
	dialMu sync.Mutex
	dials  []dialRecord
)

func recordDial(name, addr string, opts transport.ConnectOptions) {
	dialMu.Lock()
	defer dialMu.Unlock()
	dials = append(dials, dialRecord{typeName: name, addr: addr, opts: opts})
}

func resetDials() {
	dialMu.Lock()
	defer dialMu.Unlock()
	dials = nil
}

func dialCount() int {
	dialMu.Lock()
	defer dialMu.Unlock()
	return len(dials)
}

func lastDial() dialRecord {
	dialMu.Lock()
	defer dialMu.Unlock()
	if len(dials) == 0 {
		return dialRecord{}
	}
	return dials[len(dials)-1]
}

func testConnect(ct *transport.ClientType) func(ctx context.Context, addr string, opts transport.ConnectOptions) (transport.Client, error) {
	return func(ctx context.Context, addr string, opts transport.ConnectOptions) (transport.Client, error) {
		recordDial(ct.Name, addr, opts)
		return transport.NewConn(ct, opts.LocalAddress, addr,
			func(*protocol.Envelope) error { return nil },
			nil,
		), nil
	}
}

var (
	memType = &transport.ClientType{Name: "mem", Schemes: []string{"mem"}}
	relayType = &transport.ClientType{
		Name:    "relay",
		Schemes: []string{"relay"},
		ParseConfig: func(global map[string]any) (any, error) {
			return global["relay"], nil
		},
	}
	otherType = &transport.ClientType{Name: "other", Schemes: []string{"other"}}
	flakyType = &transport.ClientType{Name: "flaky", Schemes: []string{"flaky"}}
)

var errFlaky = errors.New("flaky: connection refused")

func init() {
	memType.Connect = testConnect(memType)
	relayType.Connect = testConnect(relayType)
	otherType.Connect = testConnect(otherType)
	flakyType.Connect = func(ctx context.Context, addr string, opts transport.ConnectOptions) (transport.Client, error) {
		return nil, transport.WrapConnect(flakyType, addr, errFlaky)
	}
	for _, ct := range []*transport.ClientType{memType, relayType, otherType, flakyType} {
		transport.RegisterClientType(ct)
	}
}
