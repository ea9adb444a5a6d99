package wire_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"cryptochat/internal/domain"
	"cryptochat/internal/protocol/wire"
)

func TestReadWriteFrame_Sequence(t *testing.T) {
	var buf bytes.Buffer
	in := []wire.Frame{
		wire.CommandFrame(domain.CommandAccepted),
		{Tag: wire.TagPublicKey, Payload: []byte("der bytes")},
		wire.CommandFrame(domain.CommandMessage),
		{Tag: wire.TagEnvelope, Payload: []byte{0, 1, 2, 3}},
		wire.CommandFrame(domain.CommandDeclined),
	}
	for _, f := range in {
		if err := wire.WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame(%s): %v", f.Tag, err)
		}
	}
	for _, want := range in {
		got, err := wire.ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if got.Tag != want.Tag || !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("got %s %x, want %s %x", got.Tag, got.Payload, want.Tag, want.Payload)
		}
	}
	if _, err := wire.ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("want io.EOF at frame boundary, got %v", err)
	}
}

func TestFrame_Command(t *testing.T) {
	c, ok := wire.CommandFrame(domain.CommandDeclined).Command()
	if !ok || c != domain.CommandDeclined {
		t.Fatalf("Command() = %v, %v", c, ok)
	}
	if _, ok := (wire.Frame{Tag: wire.TagEnvelope}).Command(); ok {
		t.Fatal("envelope frame reported as a command")
	}
}

func TestReadFrame_Malformed(t *testing.T) {
	header := func(tag byte, n uint32) []byte {
		b := []byte{tag, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(b[1:], n)
		return b
	}
	cases := map[string][]byte{
		"unknown tag":      header(0x7f, 0),
		"command payload":  append(header(byte(wire.TagAccepted), 1), 'x'),
		"oversize payload": header(byte(wire.TagEnvelope), wire.MaxPayload+1),
		"zero tag":         header(0x00, 0),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := wire.ReadFrame(bytes.NewReader(raw)); !errors.Is(err, wire.ErrMalformed) {
				t.Fatalf("want ErrMalformed, got %v", err)
			}
		})
	}
}

func TestReadFrame_TruncatedIsUnexpectedEOF(t *testing.T) {
	var buf bytes.Buffer
	_ = wire.WriteFrame(&buf, wire.Frame{Tag: wire.TagPublicKey, Payload: []byte("0123456789")})
	raw := buf.Bytes()
	for _, cut := range []int{3, len(raw) - 4} {
		if _, err := wire.ReadFrame(bytes.NewReader(raw[:cut])); !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("cut at %d: want io.ErrUnexpectedEOF, got %v", cut, err)
		}
	}
}

func TestWriteFrame_RejectsInvalid(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.WriteFrame(&buf, wire.Frame{Tag: wire.TagMessage, Payload: []byte("x")}); !errors.Is(err, wire.ErrMalformed) {
		t.Fatalf("want ErrMalformed, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("invalid frame was partially written")
	}
}

func TestExpect(t *testing.T) {
	f := wire.Frame{Tag: wire.TagSealedKey}
	if _, err := wire.Expect(f, wire.TagSealedKey); err != nil {
		t.Fatalf("Expect: %v", err)
	}
	_, err := wire.Expect(f, wire.TagPublicKey)
	var ue *wire.UnexpectedFrameError
	if !errors.As(err, &ue) || ue.Got != wire.TagSealedKey {
		t.Fatalf("want UnexpectedFrameError, got %v", err)
	}
	if !errors.Is(err, wire.ErrMalformed) {
		t.Fatal("UnexpectedFrameError should match ErrMalformed")
	}
}
