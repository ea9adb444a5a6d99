package wire

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"
)

// Channel is a bidirectional stream of frames.
type Channel interface {
	// Send writes frames as one contiguous unit.
	Send(frames ...Frame) error
	// Receive returns the next frame or ctx's error, whichever comes first.
	Receive(ctx context.Context) (Frame, error)
}

var _ Channel = (*Conn)(nil)

// Conn frames a net.Conn.
//
// A single reader goroutine decodes frames from the socket, so a Receive
// can be abandoned on context cancellation without leaving a half-read
// frame behind. Writes are serialized and bounded by the write timeout.
type Conn struct {
	nc           net.Conn
	writeTimeout time.Duration

	wmu sync.Mutex

	frames  chan Frame
	readErr error // valid once frames is closed

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewConn starts reading frames from nc. A zero writeTimeout disables the
// write deadline.
func NewConn(nc net.Conn, writeTimeout time.Duration) *Conn {
	c := &Conn{
		nc:           nc,
		writeTimeout: writeTimeout,
		frames:       make(chan Frame, 8),
		done:         make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.frames)
	r := bufio.NewReader(c.nc)
	for {
		f, err := ReadFrame(r)
		if err != nil {
			c.readErr = err
			return
		}
		select {
		case c.frames <- f:
		case <-c.done:
			c.readErr = net.ErrClosed
			return
		}
	}
}

// Send encodes frames into one buffer and writes it under the write lock.
func (c *Conn) Send(frames ...Frame) error {
	var buf []byte
	for _, f := range frames {
		var err error
		if buf, err = Encode(buf, f); err != nil {
			return err
		}
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.nc.Write(buf)
	return err
}

// Receive returns the next frame. Once the peer closes the stream it
// returns io.EOF (or io.ErrUnexpectedEOF mid-frame); a decoding failure is
// returned as ErrMalformed and is final.
func (c *Conn) Receive(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return Frame{}, c.readErr
		}
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Incoming exposes the decoded frames for callers that multiplex reads
// with other work. It is closed when reading stops; ReadErr then reports
// why.
func (c *Conn) Incoming() <-chan Frame {
	return c.frames
}

// ReadErr returns the error that ended the read loop. It is only
// meaningful after Incoming has been closed.
func (c *Conn) ReadErr() error {
	return c.readErr
}

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// Close closes the socket. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.nc.Close()
	})
	return c.closeErr
}
