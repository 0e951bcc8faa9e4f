package transport

import (
	"context"
	"sync"

	"github.com/xprobe/mars/configs"
	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/utils"
)

// Conn is the channel-backed connection core shared by the bundled client
// implementations. A scheme client establishes its socket, then wraps it in
// a Conn by supplying a sender and a closer; its read loop feeds inbound
// envelopes through Produce.
type Conn struct {
	id         string
	ct         *ClientType
	localAddr  string
	remoteAddr string
	sender     func(env *protocol.Envelope) error
	closer     func() error
	recv       chan *protocol.Envelope
	done       chan struct{}
	closeOnce  sync.Once
}

// NewConn wraps an established socket. sender pushes one envelope to the
// peer; closer tears the socket down and may be nil.
func NewConn(ct *ClientType, localAddr, remoteAddr string, sender func(env *protocol.Envelope) error, closer func() error) *Conn {
	return &Conn{
		id:         utils.GenConnID(),
		ct:         ct,
		localAddr:  localAddr,
		remoteAddr: remoteAddr,
		sender:     sender,
		closer:     closer,
		recv:       make(chan *protocol.Envelope, configs.ChannelBufferSize),
		done:       make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) LocalAddr() string {
	return c.localAddr
}

func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

func (c *Conn) Type() *ClientType {
	return c.ct
}

// Send pushes an envelope to the peer, stamping the connection's local
// address as the sender when the envelope carries none. A send failure
// closes the connection.
func (c *Conn) Send(ctx context.Context, env *protocol.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Closed() {
		return ErrClosed
	}
	if env.From == "" {
		env.From = c.localAddr
	}
	if err := c.sender(env); err != nil {
		_ = c.Close()
		return err
	}
	return nil
}

func (c *Conn) Recv() <-chan *protocol.Envelope {
	return c.recv
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Produce hands an inbound envelope to the receive queue. Envelopes
// arriving after close are dropped.
func (c *Conn) Produce(env *protocol.Envelope) {
	select {
	case c.recv <- env:
	case <-c.done:
	}
}

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close marks the connection closed and tears down the underlying socket.
// Safe to call from either the owner or the read loop, any number of times.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closer != nil {
			err = c.closer()
		}
	})
	return err
}
