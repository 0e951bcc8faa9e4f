package router

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/xprobe/mars/router"
	"github.com/xprobe/mars/transport"
	"github.com/xprobe/mars/transport/ipc"
)

func TestIPCRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := "ipc://" + path.Join(t.TempDir(), "relay.sock")
	mgr := ipc.NewManager(addr, echo(addr))
	go mgr.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	r := router.New([]string{"127.0.0.1:42140"}, "")
	cache := r.NewCache()

	c, err := r.GetClient(ctx, cache, addr)
	if err != nil {
		t.Fatal(err)
	}
	if c.Type() != ipc.Type() {
		t.Fatalf("client type = %v, want ipc", c.Type())
	}
	if err := transport.Probe(ctx, c, r.ExternalAddress()); err != nil {
		t.Fatal(err)
	}

	again, err := r.GetClient(ctx, cache, addr)
	if err != nil {
		t.Fatal(err)
	}
	if again != c {
		t.Fatal("second acquisition did not reuse the connection")
	}
}

func TestIPCOverTCP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := "tcp://127.0.0.1:42141"
	mgr := ipc.NewManager(addr, echo(addr))
	go mgr.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	r := router.New(nil, "")
	c, err := r.GetClient(ctx, nil, addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Type() != ipc.Type() {
		t.Fatalf("client type = %v, want ipc for zmq tcp endpoints", c.Type())
	}
	if err := transport.Probe(ctx, c, "tester"); err != nil {
		t.Fatal(err)
	}
}
