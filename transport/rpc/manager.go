package rpc

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/xprobe/mars/configs"
	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/transport"
)

const (
	// gracefulShutdownTimeout bounds the wait for in-flight streams on stop
	gracefulShutdownTimeout = 10 * time.Second
)

// relayServer is the service contract behind the hand-built descriptor;
// the manager itself implements it.
type relayServer interface{}

// Manager serves the relay stream for peers dialing this node over gRPC.
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
	return "rpc"
}

// Run starts the gRPC server and blocks until ctx is cancelled or the
// listener fails.
func (m *Manager) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", m.addr)
	if err != nil {
		return err
	}
	logrus.Infof("rpc: listening on %s", m.addr)

	server := grpc.NewServer(
		grpc.ForceServerCodec(envelopeCodec{}),
		grpc.MaxRecvMsgSize(configs.MaximumMessageSize),
		grpc.MaxSendMsgSize(configs.MaximumMessageSize),
	)
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: relayService,
		HandlerType: (*relayServer)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    "Attach",
			Handler:       m.attach,
			ServerStreams: true,
			ClientStreams: true,
		}},
	}, m)

	defer func() {
		done := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			logrus.Info("rpc: server gracefully stopped")
		case <-time.After(gracefulShutdownTimeout):
			logrus.Warn("rpc: graceful shutdown timeout, forcing stop")
			server.Stop()
		}
	}()

	ech := make(chan error)
	go func() {
		ech <- server.Serve(lis)
		close(ech)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-ech:
		return err
	}
}

func (m *Manager) attach(_ any, stream grpc.ServerStream) error {
	md, _ := metadata.FromIncomingContext(stream.Context())
	peer := firstValue(md, mdAddress)
	purpose := firstValue(md, mdPurpose)
	logrus.Infof("rpc: peer %q attached (purpose %q)", peer, purpose)

	// gRPC allows one concurrent sender per stream; handlers may reply
	// from their own goroutines.
	var sendMu sync.Mutex
	reply := func(env *protocol.Envelope) error {
		sendMu.Lock()
		defer sendMu.Unlock()
		return stream.SendMsg(env)
	}

	for {
		env := &protocol.Envelope{}
		if err := stream.RecvMsg(env); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if env.From == "" {
			env.From = peer
		}
		if env.Kind == protocol.KindBye {
			return nil
		}
		if m.handler == nil {
			logrus.Warnf("rpc: dropping envelope %s from %q: no handler", env.ID, env.From)
			continue
		}
		m.handler(env, reply)
	}
}

func firstValue(md metadata.MD, key string) string {
	if vs := md.Get(key); len(vs) > 0 {
		return vs[0]
	}
	return ""
}
