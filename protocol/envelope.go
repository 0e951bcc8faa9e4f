package protocol

import (
	"github.com/xprobe/mars/utils"
)

// Kind tags what an envelope carries.
type Kind uint8

const (
	KindData Kind = iota // opaque payload for the layer above
	KindPing             // liveness probe
	KindPong             // answer to a ping
	KindBye              // peer is closing the connection
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindPing:
		return "ping"
	case KindPong:
		return "pong"
	case KindBye:
		return "bye"
	default:
		return "unknown"
	}
}

// Envelope is the unit every transport client exchanges. The payload is
// opaque: object serialization belongs to the layer above, the envelope
// only carries enough addressing for the receiving node to dispatch it.
type Envelope struct {
	ID      string            `cbor:"id" json:"id"`
	From    string            `cbor:"from,omitempty" json:"from,omitempty"`
	To      string            `cbor:"to,omitempty" json:"to,omitempty"`
	Purpose string            `cbor:"purpose,omitempty" json:"purpose,omitempty"`
	Kind    Kind              `cbor:"kind" json:"kind"`
	Headers map[string]string `cbor:"headers,omitempty" json:"headers,omitempty"`
	Payload []byte            `cbor:"payload,omitempty" json:"payload,omitempty"`
}

func NewData(from, to string, payload []byte) *Envelope {
	return &Envelope{
		ID:      utils.GenID(),
		From:    from,
		To:      to,
		Kind:    KindData,
		Payload: payload,
	}
}

func NewPing(from, to string) *Envelope {
	return &Envelope{
		ID:   utils.GenID(),
		From: from,
		To:   to,
		Kind: KindPing,
	}
}

// NewPong answers ping, echoing its ID so the sender can match the reply.
func NewPong(ping *Envelope, from string) *Envelope {
	return &Envelope{
		ID:   ping.ID,
		From: from,
		To:   ping.From,
		Kind: KindPong,
	}
}

func NewBye(from string) *Envelope {
	return &Envelope{
		ID:   utils.GenID(),
		From: from,
		Kind: KindBye,
	}
}
