package transport

import (
	"context"
	"testing"
	"time"

	"github.com/xprobe/mars/configs"
	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/utils/errors"
)

func TestConnSendStampsFrom(t *testing.T) {
	var sent *protocol.Envelope
	c := NewConn(alphaType, "alpha://me", "alpha://peer",
		func(env *protocol.Envelope) error {
			sent = env
			return nil
		},
		nil,
	)

	if err := c.Send(context.Background(), protocol.NewPing("", "alpha://peer")); err != nil {
		t.Fatal(err)
	}
	if sent.From != "alpha://me" {
		t.Fatalf("sent.From = %q, want the local address", sent.From)
	}
}

func TestConnSendFailureCloses(t *testing.T) {
	closed := false
	sendErr := errors.New("broken pipe")
	c := NewConn(alphaType, "", "alpha://peer",
		func(*protocol.Envelope) error { return sendErr },
		func() error {
			closed = true
			return nil
		},
	)

	if err := c.Send(context.Background(), protocol.NewPing("me", "peer")); !errors.Is(err, sendErr) {
		t.Fatalf("err = %v, want the sender failure", err)
	}
	if !c.Closed() || !closed {
		t.Fatal("send failure did not close the connection")
	}
	if err := c.Send(context.Background(), protocol.NewPing("me", "peer")); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after close = %v, want ErrClosed", err)
	}
}

func TestConnProduceAfterCloseDrops(t *testing.T) {
	c := NewConn(alphaType, "", "alpha://peer", func(*protocol.Envelope) error { return nil }, nil)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	// must not block
	c.Produce(protocol.NewPing("a", "b"))

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestProbe(t *testing.T) {
	var c *Conn
	c = NewConn(alphaType, "alpha://me", "alpha://peer",
		func(env *protocol.Envelope) error {
			if env.Kind == protocol.KindPing {
				go c.Produce(protocol.NewPong(env, "alpha://peer"))
			}
			return nil
		},
		nil,
	)

	if err := Probe(context.Background(), c, "alpha://me"); err != nil {
		t.Fatal(err)
	}
}

func TestProbeTimeout(t *testing.T) {
	restore := configs.HandshakeTimeout
	configs.HandshakeTimeout = 50 * time.Millisecond
	defer func() { configs.HandshakeTimeout = restore }()

	// peer never answers
	c := NewConn(alphaType, "", "alpha://peer", func(*protocol.Envelope) error { return nil }, nil)
	defer c.Close()

	if err := Probe(context.Background(), c, "alpha://me"); err == nil {
		t.Fatal("probe against a silent peer succeeded")
	}
}
