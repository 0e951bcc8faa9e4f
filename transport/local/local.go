// Package local provides same-process delivery for local:// addresses. A
// bound manager and its clients exchange envelopes by pointer through a
// pair of protoactor mailboxes; nothing is encoded. The router's loopback
// mapping points own addresses at a manager bound here.
package local

import (
	"context"
	"sync"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"

	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/transport"
	"github.com/xprobe/mars/utils/errors"
)

var clientType = &transport.ClientType{
	Name:    "local",
	Schemes: []string{"local"},
}

func init() {
	clientType.Connect = connect
	transport.RegisterClientType(clientType)
}

// Type returns the local client type descriptor.
func Type() *transport.ClientType {
	return clientType
}

// bindings is the process-wide table of bound local addresses. Like the
// scheme registry it is written on startup paths and read on every dial.
var (
	bindingsMu sync.RWMutex
	bindings   = make(map[string]*Manager)
)

// delivery carries an envelope from a client mailbox to a manager mailbox,
// with the client actor to address replies to.
type delivery struct {
	env     *protocol.Envelope
	replyTo *actor.PID
}

// Manager serves one local:// address inside an actor system.
type Manager struct {
	addr    string
	sys     *actor.ActorSystem
	handler transport.Handler
	pid     *actor.PID
}

func NewManager(addr string, sys *actor.ActorSystem, handler transport.Handler) *Manager {
	return &Manager{
		addr:    addr,
		sys:     sys,
		handler: handler,
	}
}

func (m *Manager) Addr() string {
	return m.addr
}

func (m *Manager) Scheme() string {
	return "local"
}

func (m *Manager) receive(c actor.Context) {
	switch msg := c.Message().(type) {
	case *delivery:
		if m.handler == nil {
			logrus.Warnf("local: dropping envelope %s from %q: no handler", msg.env.ID, msg.env.From)
			return
		}
		replyTo := msg.replyTo
		// replies go through the root context: the handler may answer
		// after this receive has returned
		m.handler(msg.env, func(reply *protocol.Envelope) error {
			if replyTo == nil {
				return errors.New("local: no reply address")
			}
			m.sys.Root.Send(replyTo, reply)
			return nil
		})
	}
}

// Run binds the address and blocks until ctx is cancelled. Binding an
// address twice in one process is an error.
func (m *Manager) Run(ctx context.Context) error {
	pid := m.sys.Root.Spawn(actor.PropsFromFunc(m.receive))
	m.pid = pid

	bindingsMu.Lock()
	if _, ok := bindings[m.addr]; ok {
		bindingsMu.Unlock()
		m.sys.Root.Stop(pid)
		return errors.Format("local: address %q already bound", m.addr)
	}
	bindings[m.addr] = m
	bindingsMu.Unlock()
	logrus.Infof("local: bound %s", m.addr)

	<-ctx.Done()

	bindingsMu.Lock()
	delete(bindings, m.addr)
	bindingsMu.Unlock()
	m.sys.Root.Stop(pid)
	return ctx.Err()
}

// clientActor feeds envelopes addressed back to a client into its
// connection's receive queue.
type clientActor struct {
	conn *transport.Conn
}

func (a *clientActor) Receive(c actor.Context) {
	switch env := c.Message().(type) {
	case *protocol.Envelope:
		a.conn.Produce(env)
	}
}

func connect(ctx context.Context, addr string, opts transport.ConnectOptions) (transport.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, transport.WrapConnect(clientType, addr, err)
	}

	bindingsMu.RLock()
	m, ok := bindings[addr]
	bindingsMu.RUnlock()
	if !ok {
		return nil, transport.WrapConnect(clientType, addr, errors.Format("no binding for %q", addr))
	}

	root := m.sys.Root
	a := &clientActor{}
	pid := root.Spawn(actor.PropsFromProducer(func() actor.Actor { return a }))

	conn := transport.NewConn(clientType, opts.LocalAddress, addr,
		func(env *protocol.Envelope) error {
			root.Send(m.pid, &delivery{env: env, replyTo: pid})
			return nil
		},
		func() error {
			root.Stop(pid)
			return nil
		},
	)
	a.conn = conn
	return conn, nil
}
