package wire_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"cryptochat/internal/domain"
	"cryptochat/internal/protocol/wire"
)

func pipe(t *testing.T) (*wire.Conn, *wire.Conn) {
	t.Helper()
	a, b := net.Pipe()
	ca, cb := wire.NewConn(a, time.Second), wire.NewConn(b, time.Second)
	t.Cleanup(func() {
		_ = ca.Close()
		_ = cb.Close()
	})
	return ca, cb
}

func TestConn_SendReceive(t *testing.T) {
	a, b := pipe(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- a.Send(wire.CommandFrame(domain.CommandMessage), wire.Frame{Tag: wire.TagEnvelope, Payload: []byte("env")})
	}()

	f, err := b.Receive(ctx)
	if err != nil || f.Tag != wire.TagMessage {
		t.Fatalf("first frame = %v, %v", f.Tag, err)
	}
	f, err = b.Receive(ctx)
	if err != nil || f.Tag != wire.TagEnvelope || string(f.Payload) != "env" {
		t.Fatalf("second frame = %v %q, %v", f.Tag, f.Payload, err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestConn_SimultaneousSendDoesNotDeadlock(t *testing.T) {
	a, b := pipe(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, c := range []*wire.Conn{a, b} {
		if err := c.Send(wire.Frame{Tag: wire.TagPublicKey, Payload: []byte("k")}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for _, c := range []*wire.Conn{a, b} {
		if f, err := c.Receive(ctx); err != nil || f.Tag != wire.TagPublicKey {
			t.Fatalf("Receive = %v, %v", f.Tag, err)
		}
	}
}

func TestConn_ReceiveHonoursContext(t *testing.T) {
	_, b := pipe(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Receive(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestConn_PeerCloseIsEOF(t *testing.T) {
	a, b := pipe(t)
	_ = a.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := b.Receive(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("want io.EOF, got %v", err)
	}
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	a, _ := pipe(t)
	_ = a.Close()
	_ = a.Close()
	if err := a.Send(wire.CommandFrame(domain.CommandDeclined)); err == nil {
		t.Fatal("Send on closed conn succeeded")
	}
}
