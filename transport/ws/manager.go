package ws

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/transport"
)

const shutdownTimeout = 5 * time.Second

// Manager upgrades HTTP requests on a ws:// address and relays envelopes
// between the socket and its handler. Replies go out in the format the
// inbound message arrived in, so CBOR and JSON peers can share one
// endpoint.
type Manager struct {
	addr     string
	handler  transport.Handler
	upgrader websocket.Upgrader
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
	return "ws"
}

func (m *Manager) Run(ctx context.Context) error {
	u, err := url.Parse(m.addr)
	if err != nil {
		return err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, m.serve)
	server := &http.Server{Addr: u.Host, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logrus.Infof("ws: listening on %s", m.addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

func (m *Manager) serve(w http.ResponseWriter, r *http.Request) {
	peer := r.Header.Get(headerAddress)
	purpose := r.Header.Get(headerPurpose)

	wsConn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("ws: upgrade failed: %v", err)
		return
	}
	defer wsConn.Close()
	logrus.Infof("ws: peer %q attached (purpose %q)", peer, purpose)

	var writeMu sync.Mutex
	for {
		mt, data, err := wsConn.ReadMessage()
		if err != nil {
			return
		}
		var codec protocol.Codec
		switch mt {
		case websocket.BinaryMessage:
			codec = protocol.CBOR
		case websocket.TextMessage:
			codec = protocol.JSON
		default:
			continue
		}
		env := &protocol.Envelope{}
		if err := codec.Unmarshal(data, env); err != nil {
			logrus.Warnf("ws: dropping malformed message from %q: %v", peer, err)
			continue
		}
		if env.From == "" {
			env.From = peer
		}
		if env.Kind == protocol.KindBye {
			return
		}
		if m.handler == nil {
			logrus.Warnf("ws: dropping envelope %s from %q: no handler", env.ID, env.From)
			continue
		}
		m.handler(env, func(reply *protocol.Envelope) error {
			out, err := codec.Marshal(reply)
			if err != nil {
				return err
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			return wsConn.WriteMessage(mt, out)
		})
	}
}
