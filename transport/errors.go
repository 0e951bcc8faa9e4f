package transport

import (
	"fmt"

	"github.com/xprobe/mars/utils/errors"
)

// ErrClosed is returned by Send on a connection that has been closed.
var ErrClosed = errors.New("transport: connection closed")

// UnknownSchemeError reports an address whose scheme has no registered
// client type. It fails the specific acquisition, never the router.
type UnknownSchemeError struct {
	Address string
	Scheme  string
}

func (e *UnknownSchemeError) Error() string {
	if e.Scheme == "" {
		return fmt.Sprintf("transport: no default client type for address %q", e.Address)
	}
	return fmt.Sprintf("transport: no client type registered for scheme %q (address %q)", e.Scheme, e.Address)
}

// ConnectError reports a failed dial: unreachable, refused or timed out.
type ConnectError struct {
	Type    string
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: %s connect to %s: %v", e.Type, e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// WrapConnect packs a dial failure into a ConnectError for the given type
// and address.
func WrapConnect(ct *ClientType, addr string, err error) *ConnectError {
	return &ConnectError{Type: ct.Name, Address: addr, Err: err}
}
