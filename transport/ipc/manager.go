package ipc

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/zeromq/goczmq.v4"

	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/transport"
	"github.com/xprobe/mars/utils/errors"
)

// Manager binds a ZeroMQ Router socket and relays envelopes between peers
// and its handler. The identity frame of each inbound message routes the
// reply back to the dealer it came from.
type Manager struct {
	addr    string
	handler transport.Handler
}

func NewManager(addr string, handler transport.Handler) *Manager {
	return &Manager{
		addr:    addr,
		handler: handler,
	}
}

func (m *Manager) Addr() string {
	return m.addr
}

func (m *Manager) Scheme() string {
	return "ipc"
}

func (m *Manager) Run(ctx context.Context) error {
	router := goczmq.NewRouterChanneler(m.addr)
	defer router.Destroy()
	logrus.Infof("ipc: listening on %s", m.addr)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frames, ok := <-router.RecvChan:
			if !ok {
				return errors.New("ipc: router socket closed")
			}
			if len(frames) < 2 {
				continue
			}
			identity, data := frames[0], frames[len(frames)-1]
			env := &protocol.Envelope{}
			if err := protocol.CBOR.Unmarshal(data, env); err != nil {
				logrus.Warnf("ipc: dropping malformed frame: %v", err)
				continue
			}
			if env.Kind == protocol.KindBye {
				continue
			}
			if m.handler == nil {
				logrus.Warnf("ipc: dropping envelope %s from %q: no handler", env.ID, env.From)
				continue
			}
			m.handler(env, func(reply *protocol.Envelope) error {
				out, err := protocol.CBOR.Marshal(reply)
				if err != nil {
					return err
				}
				router.SendChan <- [][]byte{identity, out}
				return nil
			})
		}
	}
}
