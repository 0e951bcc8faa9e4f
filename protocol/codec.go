package protocol

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"

	"github.com/xprobe/mars/utils/errors"
)

// Codec turns envelopes into wire bytes and back. Implementations must be
// safe for concurrent use; the bundled ones hold no mutable state.
type Codec interface {
	Name() string
	Marshal(env *Envelope) ([]byte, error)
	Unmarshal(data []byte, env *Envelope) error
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func (c *cborCodec) Name() string { return "cbor" }

func (c *cborCodec) Marshal(env *Envelope) ([]byte, error) {
	return c.enc.Marshal(env)
}

func (c *cborCodec) Unmarshal(data []byte, env *Envelope) error {
	return c.dec.Unmarshal(data, env)
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (jsonCodec) Unmarshal(data []byte, env *Envelope) error {
	return json.Unmarshal(data, env)
}

var (
	// CBOR is the default wire codec: deterministic encoding, compact
	// binary payloads.
	CBOR = func() Codec {
		em, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			panic(errors.WrapWith(err, "protocol: building cbor encoder"))
		}
		dm, err := cbor.DecOptions{}.DecMode()
		if err != nil {
			panic(errors.WrapWith(err, "protocol: building cbor decoder"))
		}
		return &cborCodec{enc: em, dec: dm}
	}()

	// JSON trades size for readability; the ws transport uses it for
	// text-mode peers.
	JSON Codec = jsonCodec{}
)
