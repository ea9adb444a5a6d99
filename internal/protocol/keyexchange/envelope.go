package keyexchange

import (
	"encoding/binary"
	"fmt"

	"cryptochat/internal/protocol/wire"
)

// Envelope is one sealed chat message.
//
// Under the legacy suite Signature covers Ciphertext; under the AEAD suite
// Signature is empty and authenticity comes from the cipher itself.
type Envelope struct {
	Ciphertext []byte
	Signature  []byte
}

// MarshalBinary encodes e as len(ct) | ct | len(sig) | sig with
// big-endian uint32 lengths.
func (e Envelope) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 8+len(e.Ciphertext)+len(e.Signature))
	out = binary.BigEndian.AppendUint32(out, uint32(len(e.Ciphertext)))
	out = append(out, e.Ciphertext...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(e.Signature)))
	out = append(out, e.Signature...)
	return out, nil
}

// ParseEnvelope decodes the output of MarshalBinary. Any length mismatch
// is wire.ErrMalformed.
func ParseEnvelope(b []byte) (Envelope, error) {
	ct, rest, err := readField(b)
	if err != nil {
		return Envelope{}, err
	}
	sig, rest, err := readField(rest)
	if err != nil {
		return Envelope{}, err
	}
	if len(rest) != 0 {
		return Envelope{}, fmt.Errorf("%w: %d trailing envelope bytes", wire.ErrMalformed, len(rest))
	}
	return Envelope{Ciphertext: ct, Signature: sig}, nil
}

func readField(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: short envelope", wire.ErrMalformed)
	}
	n := binary.BigEndian.Uint32(b)
	b = b[4:]
	if uint64(n) > uint64(len(b)) {
		return nil, nil, fmt.Errorf("%w: envelope field overruns payload", wire.ErrMalformed)
	}
	return b[:n], b[n:], nil
}

// Frame wraps the encoded envelope in an ENVELOPE frame.
func (e Envelope) Frame() wire.Frame {
	b, _ := e.MarshalBinary()
	return wire.Frame{Tag: wire.TagEnvelope, Payload: b}
}
