// Package ipc provides the ZeroMQ transport for ipc:// socket files and
// raw tcp:// endpoints: a Dealer socket per client against one Router
// socket per manager, envelopes as CBOR payload frames.
package ipc

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/zeromq/goczmq.v4"

	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/transport"
)

var clientType = &transport.ClientType{
	Name:    "ipc",
	Schemes: []string{"ipc", "tcp"},
	Connect: connect,
}

func init() {
	transport.RegisterClientType(clientType)
}

// Type returns the ipc client type descriptor.
func Type() *transport.ClientType {
	return clientType
}

// connect attaches a Dealer to the peer's Router socket. ZeroMQ connects
// lazily: an unreachable peer does not fail the dial, it surfaces when the
// caller probes or the send queue fills.
func connect(ctx context.Context, addr string, opts transport.ConnectOptions) (transport.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, transport.WrapConnect(clientType, addr, err)
	}

	dealer := goczmq.NewDealerChanneler(addr)

	conn := transport.NewConn(clientType, opts.LocalAddress, addr,
		func(env *protocol.Envelope) error {
			data, err := protocol.CBOR.Marshal(env)
			if err != nil {
				return err
			}
			dealer.SendChan <- [][]byte{data}
			return nil
		},
		func() error {
			dealer.Destroy()
			return nil
		},
	)

	go func() {
		defer conn.Close()
		for frames := range dealer.RecvChan {
			if len(frames) == 0 {
				continue
			}
			env := &protocol.Envelope{}
			if err := protocol.CBOR.Unmarshal(frames[len(frames)-1], env); err != nil {
				logrus.Warnf("ipc: %s dropping malformed frame: %v", conn.ID(), err)
				continue
			}
			if env.Kind == protocol.KindBye {
				return
			}
			conn.Produce(env)
		}
	}()

	return conn, nil
}
