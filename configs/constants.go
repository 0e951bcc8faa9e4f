package configs

import (
	"os"
	"path"
	"time"

	"github.com/xprobe/mars/utils/errors"
)

const (
	// Timeouts for client acquisition
	kDefaultConnectTimeout   = 30 * time.Second
	kDefaultHandshakeTimeout = 10 * time.Second

	// Values
	kDefaultChannelBufferSize  = 50
	kDefaultMaximumMessageSize = 4 * 1024 * 1024

	AppName = "mars-node"
)

var (
	ConnectTimeout     = kDefaultConnectTimeout   // transport dial + handshake
	HandshakeTimeout   = kDefaultHandshakeTimeout // peer hello exchange
	ChannelBufferSize  = kDefaultChannelBufferSize
	MaximumMessageSize = kDefaultMaximumMessageSize
)

// RuntimePath hosts per-node runtime state, such as ipc socket files.
var RuntimePath = func() string {
	home, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	dir := path.Join(home, AppName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(errors.WrapWith(err, "error preparing runtime dir"))
	}
	return dir
}()
