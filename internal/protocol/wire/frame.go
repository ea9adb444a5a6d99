package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"cryptochat/internal/domain"
)

// Tag identifies the kind of a frame.
type Tag byte

const (
	TagAccepted  Tag = Tag(domain.CommandAccepted)
	TagDeclined  Tag = Tag(domain.CommandDeclined)
	TagMessage   Tag = Tag(domain.CommandMessage)
	TagPublicKey Tag = 0x10
	TagSealedKey Tag = 0x11
	TagEnvelope  Tag = 0x12
)

// MaxPayload bounds the payload of a single frame.
const MaxPayload = 1 << 20

const headerLen = 5

// ErrMalformed is returned for frames that violate the framing rules.
var ErrMalformed = errors.New("wire: malformed frame")

func (t Tag) known() bool {
	switch t {
	case TagAccepted, TagDeclined, TagMessage, TagPublicKey, TagSealedKey, TagEnvelope:
		return true
	}
	return false
}

// IsCommand reports whether t is one of the handshake commands.
func (t Tag) IsCommand() bool {
	return domain.Command(t).Valid()
}

func (t Tag) String() string {
	switch t {
	case TagPublicKey:
		return "PUBLIC_KEY"
	case TagSealedKey:
		return "SEALED_KEY"
	case TagEnvelope:
		return "ENVELOPE"
	}
	if t.IsCommand() {
		return domain.Command(t).String()
	}
	return fmt.Sprintf("Tag(0x%02x)", byte(t))
}

// Frame is a single tagged unit on the wire.
type Frame struct {
	Tag     Tag
	Payload []byte
}

// CommandFrame returns the frame for a handshake command.
func CommandFrame(c domain.Command) Frame {
	return Frame{Tag: Tag(c)}
}

// Command returns the handshake command carried by f, if any.
func (f Frame) Command() (domain.Command, bool) {
	if !f.Tag.IsCommand() {
		return 0, false
	}
	return domain.Command(f.Tag), true
}

// UnexpectedFrameError reports a well-formed frame that arrived out of order.
type UnexpectedFrameError struct {
	Got  Tag
	Want []Tag
}

func (e *UnexpectedFrameError) Error() string {
	return fmt.Sprintf("wire: unexpected %s frame (want %v)", e.Got, e.Want)
}

// Is lets errors.Is match UnexpectedFrameError against ErrMalformed.
func (e *UnexpectedFrameError) Is(target error) bool {
	return target == ErrMalformed
}

// Expect returns f when its tag is one of want, otherwise an UnexpectedFrameError.
func Expect(f Frame, want ...Tag) (Frame, error) {
	for _, t := range want {
		if f.Tag == t {
			return f, nil
		}
	}
	return Frame{}, &UnexpectedFrameError{Got: f.Tag, Want: want}
}

func validate(f Frame) error {
	if !f.Tag.known() {
		return fmt.Errorf("%w: unknown tag 0x%02x", ErrMalformed, byte(f.Tag))
	}
	if f.Tag.IsCommand() && len(f.Payload) != 0 {
		return fmt.Errorf("%w: %s carries a payload", ErrMalformed, f.Tag)
	}
	if len(f.Payload) > MaxPayload {
		return fmt.Errorf("%w: payload of %d bytes exceeds limit", ErrMalformed, len(f.Payload))
	}
	return nil
}

// Encode appends the wire form of f to dst.
func Encode(dst []byte, f Frame) ([]byte, error) {
	if err := validate(f); err != nil {
		return dst, err
	}
	var hdr [headerLen]byte
	hdr[0] = byte(f.Tag)
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(f.Payload)))
	dst = append(dst, hdr[:]...)
	return append(dst, f.Payload...), nil
}

// WriteFrame writes f to w in a single Write call.
func WriteFrame(w io.Writer, f Frame) error {
	b, err := Encode(nil, f)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadFrame reads one frame from r.
//
// It returns io.EOF when r ends cleanly between frames and
// io.ErrUnexpectedEOF when it ends inside one.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	f := Frame{Tag: Tag(hdr[0])}
	if !f.Tag.known() {
		return Frame{}, fmt.Errorf("%w: unknown tag 0x%02x", ErrMalformed, hdr[0])
	}
	n := binary.BigEndian.Uint32(hdr[1:])
	if f.Tag.IsCommand() && n != 0 {
		return Frame{}, fmt.Errorf("%w: %s carries a payload", ErrMalformed, f.Tag)
	}
	if n > MaxPayload {
		return Frame{}, fmt.Errorf("%w: payload of %d bytes exceeds limit", ErrMalformed, n)
	}
	if n == 0 {
		return f, nil
	}
	f.Payload = make([]byte, n)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return f, nil
}
