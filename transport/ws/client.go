// Package ws provides the ws:// transport: envelopes as websocket messages,
// CBOR in binary frames or JSON in text frames.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/xprobe/mars/configs"
	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/transport"
	"github.com/xprobe/mars/utils/errors"
)

const (
	// handshake headers of the upgrade request
	headerAddress = "X-Mars-Address"
	headerPurpose = "X-Mars-Purpose"
)

// Config is the "ws" section of the transport configuration blob.
type Config struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	Compression      bool          `mapstructure:"compression"`
	// Codec selects the wire format: "cbor" (binary frames, default) or
	// "json" (text frames).
	Codec string `mapstructure:"codec"`
}

var clientType = &transport.ClientType{
	Name:        "ws",
	Schemes:     []string{"ws"},
	ParseConfig: parseConfig,
}

func init() {
	clientType.Connect = connect
	transport.RegisterClientType(clientType)
}

// Type returns the ws client type descriptor.
func Type() *transport.ClientType {
	return clientType
}

func parseConfig(global map[string]any) (any, error) {
	cfg := &Config{}
	ok, err := transport.DecodeConfig(global, "ws", cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return cfg, nil
}

func codecFor(name string) (protocol.Codec, int, error) {
	switch name {
	case "", "cbor":
		return protocol.CBOR, websocket.BinaryMessage, nil
	case "json":
		return protocol.JSON, websocket.TextMessage, nil
	default:
		return nil, 0, errors.Format("ws: unknown codec %q", name)
	}
}

func connect(ctx context.Context, addr string, opts transport.ConnectOptions) (transport.Client, error) {
	cfg, _ := opts.Config.(*Config)
	handshakeTimeout := configs.HandshakeTimeout
	compression := false
	codecName := ""
	if cfg != nil {
		if cfg.HandshakeTimeout > 0 {
			handshakeTimeout = cfg.HandshakeTimeout
		}
		compression = cfg.Compression
		codecName = cfg.Codec
	}
	codec, msgType, err := codecFor(codecName)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  handshakeTimeout,
		EnableCompression: compression,
	}
	header := http.Header{}
	if opts.LocalAddress != "" {
		header.Set(headerAddress, opts.LocalAddress)
	}
	if opts.Purpose != "" {
		header.Set(headerPurpose, opts.Purpose)
	}

	wsConn, _, err := dialer.DialContext(ctx, addr, header)
	if err != nil {
		return nil, transport.WrapConnect(clientType, addr, err)
	}

	// gorilla allows one concurrent writer per connection
	var writeMu sync.Mutex
	conn := transport.NewConn(clientType, opts.LocalAddress, addr,
		func(env *protocol.Envelope) error {
			data, err := codec.Marshal(env)
			if err != nil {
				return err
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			return wsConn.WriteMessage(msgType, data)
		},
		wsConn.Close,
	)

	go func() {
		defer conn.Close()
		for {
			mt, data, err := wsConn.ReadMessage()
			if err != nil {
				return
			}
			var c protocol.Codec
			switch mt {
			case websocket.BinaryMessage:
				c = protocol.CBOR
			case websocket.TextMessage:
				c = protocol.JSON
			default:
				continue
			}
			env := &protocol.Envelope{}
			if err := c.Unmarshal(data, env); err != nil {
				logrus.Warnf("ws: %s dropping malformed message: %v", conn.ID(), err)
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
