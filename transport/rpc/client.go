// Package rpc provides the default transport: a gRPC bidirectional stream
// carrying CBOR envelopes. Bare host:port addresses resolve to this scheme.
package rpc

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/xprobe/mars/configs"
	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/transport"
)

const (
	relayService = "mars.Relay"
	attachMethod = "/mars.Relay/Attach"

	// metadata keys of the attach handshake
	mdAddress = "mars-address"
	mdPurpose = "mars-purpose"
)

// Config is the "rpc" section of the transport configuration blob.
type Config struct {
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	MaxMessageSize int           `mapstructure:"max_message_size"`
}

var attachDesc = &grpc.StreamDesc{
	StreamName:    "Attach",
	ClientStreams: true,
	ServerStreams: true,
}

var clientType = &transport.ClientType{
	Name:        "rpc",
	Default:     true,
	ParseConfig: parseConfig,
}

func init() {
	clientType.Connect = connect
	transport.RegisterClientType(clientType)
}

// Type returns the rpc client type descriptor.
func Type() *transport.ClientType {
	return clientType
}

func parseConfig(global map[string]any) (any, error) {
	cfg := &Config{}
	ok, err := transport.DecodeConfig(global, "rpc", cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return cfg, nil
}

func connect(ctx context.Context, addr string, opts transport.ConnectOptions) (transport.Client, error) {
	cfg, _ := opts.Config.(*Config)
	maxSize := configs.MaximumMessageSize
	dialTimeout := configs.ConnectTimeout
	if cfg != nil && cfg.MaxMessageSize > 0 {
		maxSize = cfg.MaxMessageSize
	}
	if cfg != nil && cfg.DialTimeout > 0 {
		dialTimeout = cfg.DialTimeout
	}

	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff:           backoff.DefaultConfig,
			MinConnectTimeout: dialTimeout,
		}),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(envelopeCodec{}),
			grpc.MaxCallRecvMsgSize(maxSize),
			grpc.MaxCallSendMsgSize(maxSize),
		),
	)
	if err != nil {
		return nil, transport.WrapConnect(clientType, addr, err)
	}

	// The stream outlives the acquisition call; its lifetime is bound to
	// the connection, not to ctx.
	streamCtx, cancel := context.WithCancel(context.Background())
	streamCtx = metadata.AppendToOutgoingContext(streamCtx,
		mdAddress, opts.LocalAddress,
		mdPurpose, opts.Purpose,
	)

	stream, err := cc.NewStream(streamCtx, attachDesc, attachMethod)
	if err != nil {
		cancel()
		_ = cc.Close()
		return nil, transport.WrapConnect(clientType, addr, err)
	}

	conn := transport.NewConn(clientType, opts.LocalAddress, addr,
		func(env *protocol.Envelope) error {
			return stream.SendMsg(env)
		},
		func() error {
			cancel()
			return cc.Close()
		},
	)

	go func() {
		defer conn.Close()
		for {
			env := &protocol.Envelope{}
			if err := stream.RecvMsg(env); err != nil {
				if err != io.EOF && streamCtx.Err() == nil {
					logrus.Debugf("rpc: %s recv: %v", conn.ID(), err)
				}
				return
			}
			if env.Kind == protocol.KindBye {
				return
			}
			conn.Produce(env)
		}
	}()

	return conn, nil
}
