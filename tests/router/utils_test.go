package router

import (
	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/transport"
)

// echo answers pings with pongs, the liveness behavior every node daemon
// provides.
func echo(own string) transport.Handler {
	return func(env *protocol.Envelope, reply func(*protocol.Envelope) error) {
		if env.Kind == protocol.KindPing {
			_ = reply(protocol.NewPong(env, own))
		}
	}
}
