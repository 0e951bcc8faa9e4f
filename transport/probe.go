package transport

import (
	"context"

	"github.com/xprobe/mars/configs"
	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/utils"
)

// Probe checks a connection end to end: it sends a ping and waits for the
// peer's pong. The probe consumes from Recv, so it is only safe before the
// connection is handed over to its consumer.
func Probe(ctx context.Context, c Client, from string) error {
	ping := protocol.NewPing(from, c.RemoteAddr())
	fut := utils.NewFuture[*protocol.Envelope](configs.HandshakeTimeout)

	go func() {
		for {
			select {
			case env := <-c.Recv():
				if env.Kind == protocol.KindPong && env.ID == ping.ID {
					fut.Resolve(env)
					return
				}
			case <-c.Done():
				fut.Reject(ErrClosed)
				return
			case <-ctx.Done():
				fut.Reject(ctx.Err())
				return
			}
		}
	}()

	if err := c.Send(ctx, ping); err != nil {
		return err
	}
	_, err := fut.Result()
	return err
}
