package rpc

import (
	"github.com/xprobe/mars/protocol"
	"github.com/xprobe/mars/utils/errors"
)

// envelopeCodec makes gRPC carry CBOR envelopes instead of protobuf
// messages. Both ends force it on the relay stream, so no generated code is
// involved.
type envelopeCodec struct{}

func (envelopeCodec) Name() string {
	return "mars-cbor"
}

func (envelopeCodec) Marshal(v any) ([]byte, error) {
	env, ok := v.(*protocol.Envelope)
	if !ok {
		return nil, errors.Format("rpc: codec expects *protocol.Envelope, got %T", v)
	}
	return protocol.CBOR.Marshal(env)
}

func (envelopeCodec) Unmarshal(data []byte, v any) error {
	env, ok := v.(*protocol.Envelope)
	if !ok {
		return errors.Format("rpc: codec expects *protocol.Envelope, got %T", v)
	}
	return protocol.CBOR.Unmarshal(data, env)
}
