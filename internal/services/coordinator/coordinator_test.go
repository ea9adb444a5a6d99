package coordinator_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"cryptochat/internal/domain"
	"cryptochat/internal/protocol/wire"
	"cryptochat/internal/services/coordinator"
	"cryptochat/internal/services/dialer"
	"cryptochat/internal/services/listener"
	"cryptochat/internal/services/session"
)

const wait = 20 * time.Second

type declined struct {
	peer   string
	reason domain.EndReason
}

type sink struct {
	serverStarted chan string
	started       chan domain.SessionInfo
	ended         chan domain.EndReason
	received      chan string
	sent          chan string
	failed        chan string
	outFailed     chan domain.EndReason
	inDeclined    chan declined
}

func newSink() *sink {
	return &sink{
		serverStarted: make(chan string, 4),
		started:       make(chan domain.SessionInfo, 4),
		ended:         make(chan domain.EndReason, 4),
		received:      make(chan string, 16),
		sent:          make(chan string, 16),
		failed:        make(chan string, 16),
		outFailed:     make(chan domain.EndReason, 4),
		inDeclined:    make(chan declined, 4),
	}
}

func (s *sink) ServerStarted(addr string)                   { s.serverStarted <- addr }
func (s *sink) ServerFailed(error)                          {}
func (s *sink) SessionStarted(info domain.SessionInfo)      { s.started <- info }
func (s *sink) SessionEnded(reason domain.EndReason)        { s.ended <- reason }
func (s *sink) MessageReceived(text string)                 { s.received <- text }
func (s *sink) MessageSent(text string)                     { s.sent <- text }
func (s *sink) MessageFailed(text string, _ error)          { s.failed <- text }
func (s *sink) OutgoingConnectionFailed(r domain.EndReason) { s.outFailed <- r }
func (s *sink) IncomingDeclined(peer string, r domain.EndReason) {
	s.inDeclined <- declined{peer, r}
}

func recv[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(wait):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func none[T any](t *testing.T, ch chan T, what string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected %s: %v", what, v)
	default:
	}
}

// node is one chat instance: a coordinator with its listener.
type node struct {
	c     *coordinator.Coordinator
	sink  *sink
	addr  string
	asked atomic.Int32
}

type confirmFunc func(ctx context.Context, peer string) (bool, error)

func newNode(t *testing.T, confirm confirmFunc, cfg coordinator.Config) *node {
	t.Helper()
	n := &node{sink: newSink()}
	provider := domain.ConfirmationFunc(func(ctx context.Context, peer string) (bool, error) {
		n.asked.Add(1)
		return confirm(ctx, peer)
	})
	if cfg.Session.WriteTimeout == 0 {
		cfg.Session.WriteTimeout = 2 * time.Second
	}
	log := zaptest.NewLogger(t)
	n.c = coordinator.New(cfg, n.sink, provider, log)
	srv := listener.New(listener.Config{Address: "127.0.0.1:0"}, n.c, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		sctx, scancel := context.WithTimeout(context.Background(), wait)
		defer scancel()
		if err := n.c.Shutdown(sctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	n.addr = recv(t, n.sink.serverStarted, "server start")
	return n
}

func answer(ok bool) confirmFunc {
	return func(context.Context, string) (bool, error) { return ok, nil }
}

func connectPair(t *testing.T) (*node, *node) {
	t.Helper()
	a := newNode(t, answer(false), coordinator.Config{})
	b := newNode(t, answer(true), coordinator.Config{})
	if err := a.c.ConnectTo(b.addr); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	ia := recv(t, a.sink.started, "A session start")
	ib := recv(t, b.sink.started, "B session start")
	if ia.OwnFingerprint != ib.PeerFingerprint || ia.PeerFingerprint != ib.OwnFingerprint {
		t.Fatalf("fingerprints disagree: A=%+v B=%+v", ia, ib)
	}
	return a, b
}

func TestCoordinator_ChatAndStop(t *testing.T) {
	a, b := connectPair(t)
	if st := a.c.State(); st != coordinator.StateActiveSession {
		t.Fatalf("A state = %s", st)
	}

	if err := a.c.SendMessage("hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := recv(t, b.sink.received, "message"); got != "hello" {
		t.Fatalf("B received %q", got)
	}
	if got := recv(t, a.sink.sent, "sent event"); got != "hello" {
		t.Fatalf("A sent %q", got)
	}

	if err := a.c.StopActiveSession(); err != nil {
		t.Fatalf("StopActiveSession: %v", err)
	}
	if r := recv(t, a.sink.ended, "A end"); r != domain.ReasonUserEnded {
		t.Fatalf("A reason = %s", r)
	}
	if r := recv(t, b.sink.ended, "B end"); r != domain.ReasonPeerEnded {
		t.Fatalf("B reason = %s", r)
	}
	if a.c.State() != coordinator.StateInactive || b.c.State() != coordinator.StateInactive {
		t.Fatalf("states after stop: %s / %s", a.c.State(), b.c.State())
	}
	if err := a.c.SendMessage("gone"); !errors.Is(err, coordinator.ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}
}

func TestCoordinator_PeerDeclines(t *testing.T) {
	a := newNode(t, answer(false), coordinator.Config{})
	b := newNode(t, answer(false), coordinator.Config{})
	if err := a.c.ConnectTo(b.addr); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	if r := recv(t, a.sink.outFailed, "A outcome"); r != domain.ReasonPeerDeclined {
		t.Fatalf("A reason = %s", r)
	}
	if d := recv(t, b.sink.inDeclined, "B decline"); d.reason != domain.ReasonDeclined {
		t.Fatalf("B decline reason = %s", d.reason)
	}
	none(t, a.sink.started, "A session start")
	none(t, b.sink.started, "B session start")
	if a.c.State() != coordinator.StateInactive {
		t.Fatalf("A state = %s", a.c.State())
	}
}

func TestCoordinator_BusyPeerDeclinesWithoutAsking(t *testing.T) {
	_, b := connectPair(t)
	c := newNode(t, answer(false), coordinator.Config{})

	if err := c.c.ConnectTo(b.addr); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	if r := recv(t, c.sink.outFailed, "C outcome"); r != domain.ReasonPeerDeclined {
		t.Fatalf("C reason = %s", r)
	}
	if d := recv(t, b.sink.inDeclined, "B decline"); d.reason != domain.ReasonBusy {
		t.Fatalf("B decline reason = %s", d.reason)
	}
	if n := b.asked.Load(); n != 1 {
		t.Fatalf("B asked for confirmation %d times, want 1", n)
	}
	if b.c.State() != coordinator.StateActiveSession {
		t.Fatalf("B session disturbed: %s", b.c.State())
	}
}

func TestCoordinator_ConnectWhileBusy(t *testing.T) {
	a, b := connectPair(t)
	if err := a.c.ConnectTo(b.addr); !errors.Is(err, coordinator.ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	if err := a.c.SendMessage("still here"); err != nil {
		t.Fatalf("first session affected: %v", err)
	}
	if got := recv(t, b.sink.received, "message"); got != "still here" {
		t.Fatalf("B received %q", got)
	}
}

func TestCoordinator_ConcurrentConnectRejectsSecond(t *testing.T) {
	blocked := func(ctx context.Context, _, _ string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	a := newNode(t, answer(false), coordinator.Config{Dialer: dialer.Config{ConnectTimeout: time.Hour, Dial: blocked}})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- a.c.ConnectTo("peer.example") }()
	}
	e1, e2 := <-errs, <-errs
	if (e1 == nil) == (e2 == nil) {
		t.Fatalf("want exactly one success, got %v and %v", e1, e2)
	}
	if !errors.Is(e1, coordinator.ErrBusy) && !errors.Is(e2, coordinator.ErrBusy) {
		t.Fatalf("want ErrBusy, got %v and %v", e1, e2)
	}
}

func TestCoordinator_CancelBeforeConnect(t *testing.T) {
	entered := make(chan struct{}, 1)
	blocked := func(ctx context.Context, _, _ string) (net.Conn, error) {
		entered <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	a := newNode(t, answer(false), coordinator.Config{Dialer: dialer.Config{ConnectTimeout: time.Hour, Dial: blocked}})
	if err := a.c.ConnectTo("peer.example"); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	recv(t, entered, "dial")
	if err := a.c.CancelOutgoingConnection(); err != nil {
		t.Fatalf("CancelOutgoingConnection: %v", err)
	}
	if r := recv(t, a.sink.outFailed, "cancel outcome"); r != domain.ReasonUserCancelled {
		t.Fatalf("reason = %s", r)
	}
	none(t, a.sink.started, "session start")
	none(t, a.sink.ended, "session end")
	if a.c.State() != coordinator.StateInactive {
		t.Fatalf("state = %s", a.c.State())
	}
	if err := a.c.CancelOutgoingConnection(); !errors.Is(err, coordinator.ErrNoAttempt) {
		t.Fatalf("want ErrNoAttempt, got %v", err)
	}
}

func TestCoordinator_CancelWhilePeerDecides(t *testing.T) {
	asked := make(chan struct{}, 1)
	slow := func(ctx context.Context, _ string) (bool, error) {
		asked <- struct{}{}
		<-ctx.Done()
		return false, ctx.Err()
	}
	a := newNode(t, answer(false), coordinator.Config{})
	b := newNode(t, slow, coordinator.Config{})

	if err := a.c.ConnectTo(b.addr); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	recv(t, asked, "confirmation request")
	if err := a.c.CancelOutgoingConnection(); err != nil {
		t.Fatalf("CancelOutgoingConnection: %v", err)
	}
	if r := recv(t, a.sink.outFailed, "cancel outcome"); r != domain.ReasonUserCancelled {
		t.Fatalf("reason = %s", r)
	}
	none(t, a.sink.started, "session start")
}

func TestCoordinator_NothingToStop(t *testing.T) {
	a := newNode(t, answer(false), coordinator.Config{})
	if err := a.c.StopActiveSession(); !errors.Is(err, coordinator.ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}
	if err := a.c.SendMessage("x"); !errors.Is(err, coordinator.ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}
}

func TestCoordinator_BadAddress(t *testing.T) {
	a := newNode(t, answer(false), coordinator.Config{})
	if err := a.c.ConnectTo(""); !errors.Is(err, dialer.ErrBadAddress) {
		t.Fatalf("want ErrBadAddress, got %v", err)
	}
	if a.c.State() != coordinator.StateInactive {
		t.Fatalf("state = %s", a.c.State())
	}
}

func TestCoordinator_AEADSuiteEndToEnd(t *testing.T) {
	cfg := coordinator.Config{Session: session.Config{}}
	cfg.Session.Crypto.Suite = "chacha20poly1305"
	a := newNode(t, answer(false), cfg)
	b := newNode(t, answer(true), cfg)
	if err := a.c.ConnectTo(b.addr); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	recv(t, a.sink.started, "A session start")
	recv(t, b.sink.started, "B session start")
	if err := b.c.SendMessage("sealed"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := recv(t, a.sink.received, "message"); got != "sealed" {
		t.Fatalf("A received %q", got)
	}
}

func TestCoordinator_CancelRacingConnectEndsSession(t *testing.T) {
	a := newNode(t, answer(false), coordinator.Config{})
	attempt, err := dialer.New("peer.example", dialer.Config{}, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("dialer.New: %v", err)
	}
	local, remote := net.Pipe()
	peer := wire.NewConn(remote, 2*time.Second)
	defer peer.Close()

	coordinator.ConnectAfterCancel(a.c, attempt, local)

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	f, err := peer.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if cmd, _ := f.Command(); cmd != domain.CommandDeclined {
		t.Fatalf("peer got %s, want DECLINED", f.Tag)
	}
	if r := recv(t, a.sink.outFailed, "cancel outcome"); r != domain.ReasonUserCancelled {
		t.Fatalf("reason = %s", r)
	}
	none(t, a.sink.started, "session start")
	if a.c.State() != coordinator.StateInactive {
		t.Fatalf("state = %s", a.c.State())
	}
}
