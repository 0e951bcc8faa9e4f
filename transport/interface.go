// Package transport defines the contracts shared by every transport scheme:
// the Client connection handle, the ClientType descriptor a scheme registers
// itself under, and the server-side Manager. The package also hosts the
// process-wide registry that maps an address's scheme prefix to the client
// implementation responsible for it.
package transport

import (
	"context"

	"github.com/xprobe/mars/protocol"
)

// Client is a live connection to a peer, produced by a ClientType's Connect
// function. A client is exclusively owned by whoever obtained it — usually
// one router cache slot — and is never shared between execution contexts.
type Client interface {
	// ID names the connection in logs.
	ID() string

	// LocalAddr is the external address this side presented on connect.
	// Empty when the dialing router has no addresses of its own.
	LocalAddr() string

	// RemoteAddr is the internal address the client actually dialed.
	RemoteAddr() string

	// Type returns the client type that produced this connection.
	Type() *ClientType

	Send(ctx context.Context, env *protocol.Envelope) error

	// Recv yields inbound envelopes. The channel is never closed; select
	// on Done to observe shutdown.
	Recv() <-chan *protocol.Envelope

	// Done is closed when the connection shuts down, from either side.
	Done() <-chan struct{}

	Closed() bool
	Close() error
}

// ConnectOptions carry the caller-side parameters of a dial.
type ConnectOptions struct {
	// LocalAddress is the dialing router's primary external address,
	// presented to the peer so responses can be addressed back.
	LocalAddress string

	// Purpose is the caller-supplied tag the connection was acquired for.
	Purpose string

	// Config is the value produced by the client type's ParseConfig,
	// nil when the type takes no configuration.
	Config any
}

// ClientType describes one transport scheme implementation.
type ClientType struct {
	// Name identifies the type, unique across the registry.
	Name string

	// Schemes lists the address prefixes this type serves, without the
	// "://" separator. A type registered as Default additionally serves
	// bare host:port addresses.
	Schemes []string

	Default bool

	// ParseConfig extracts this type's section from the global transport
	// configuration blob. May be nil when the type takes no
	// configuration; may return (nil, nil) when the blob has no section
	// for it.
	ParseConfig func(global map[string]any) (any, error)

	// Connect dials addr and returns a live client. Dial failures are
	// reported as *ConnectError.
	Connect func(ctx context.Context, addr string, opts ConnectOptions) (Client, error)
}

func (ct *ClientType) String() string {
	return ct.Name
}

// Handler consumes envelopes received by a manager. reply sends an envelope
// back over the connection the envelope arrived on; it stays valid after
// the handler returns, so replies may be produced asynchronously.
type Handler func(env *protocol.Envelope, reply func(*protocol.Envelope) error)

// Manager is the server side of a transport scheme: it binds an address,
// accepts peer connections and feeds inbound envelopes to its handler.
type Manager interface {
	// Addr returns the address the manager serves.
	Addr() string

	// Scheme names the transport scheme, matching the ClientType name.
	Scheme() string

	// Run blocks until ctx is cancelled or the listener fails.
	Run(ctx context.Context) error
}
