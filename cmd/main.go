package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/xprobe/mars/configs"
	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/router"
	"github.com/xprobe/mars/transport"
	"github.com/xprobe/mars/transport/ipc"
	"github.com/xprobe/mars/transport/local"
	"github.com/xprobe/mars/transport/rpc"
	"github.com/xprobe/mars/transport/ws"
	"github.com/xprobe/mars/utils"
)

// nodeConfig is the optional TOML configuration file. Flags override it
// only when the file leaves the corresponding field empty.
type nodeConfig struct {
	Addresses []string          `toml:"addresses"`
	Local     string            `toml:"local"`
	Mapping   map[string]string `toml:"mapping"`
	Transport map[string]any    `toml:"transport"`
}

func main() {
	_ = godotenv.Load()

	rpcAddr := flag.String("addr", envOr("MARS_ADDR", "localhost:7777"), "RPC listen address (host:port)")
	wsAddr := flag.String("ws", os.Getenv("MARS_WS"), "websocket listen address (ws://host:port/path), empty disables")
	ipcAddr := flag.String("ipc", envOr("MARS_IPC", "ipc://"+path.Join(configs.RuntimePath, "node-ipc")), "zeromq listen endpoint (ipc://path or tcp://host:port), empty disables")
	localAddr := flag.String("local", "local://"+configs.AppName, "same-process delivery address")
	configPath := flag.String("config", os.Getenv("MARS_CONFIG"), "TOML config file")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logrus.SetLevel(logrus.InfoLevel)

	cfg := &nodeConfig{}
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, cfg); err != nil {
			logrus.Fatalf("loading config %s: %v", *configPath, err)
		}
	}

	addrs := cfg.Addresses
	if len(addrs) == 0 {
		addrs = []string{*rpcAddr}
		if *wsAddr != "" {
			addrs = append(addrs, *wsAddr)
		}
		if *ipcAddr != "" {
			addrs = append(addrs, *ipcAddr)
		}
	}
	localTarget := cfg.Local
	if localTarget == "" {
		localTarget = *localAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := router.New(addrs, localTarget,
		router.WithMapping(cfg.Mapping),
		router.WithTransportConfig(cfg.Transport),
	)
	router.SetDefault(r)
	defer router.SetDefault(nil)

	own := r.ExternalAddress()
	echo := func(env *protocol.Envelope, reply func(*protocol.Envelope) error) {
		switch env.Kind {
		case protocol.KindPing:
			if err := reply(protocol.NewPong(env, own)); err != nil {
				logrus.Warnf("answering ping from %q: %v", env.From, err)
			}
		case protocol.KindData:
			logrus.Infof("data envelope %s from %q (%d bytes)", env.ID, env.From, len(env.Payload))
		}
	}

	sys := actor.NewActorSystem(utils.WithLogger())
	managers := []transport.Manager{
		rpc.NewManager(*rpcAddr, echo),
		local.NewManager(localTarget, sys, echo),
	}
	if *wsAddr != "" {
		managers = append(managers, ws.NewManager(*wsAddr, echo))
	}
	if *ipcAddr != "" {
		managers = append(managers, ipc.NewManager(*ipcAddr, echo))
	}

	logrus.Infof("starting mars node on %s", own)
	ech := make(chan error, len(managers))
	for _, m := range managers {
		go func() {
			if err := m.Run(ctx); err != nil && err != context.Canceled {
				ech <- err
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logrus.Infof("received signal: %v, shutting down...", sig)
		cancel()
	case err := <-ech:
		logrus.Errorf("transport error: %v", err)
		cancel()
	}

	<-ctx.Done()
	logrus.Info("mars node shutdown complete")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
