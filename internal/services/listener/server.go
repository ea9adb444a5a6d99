package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"cryptochat/internal/domain"
)

// ErrBindFailed is returned by Run when every bind retry failed.
var ErrBindFailed = errors.New("listener: could not bind")

// ListenFunc opens the server socket. (*net.ListenConfig).Listen fits.
type ListenFunc func(ctx context.Context, network, address string) (net.Listener, error)

// Config tunes a Server.
type Config struct {
	// Address is the host:port to bind.
	Address string
	// BindRetries caps consecutive bind failures before Run gives up.
	// Zero retries forever.
	BindRetries int
	// RetryDelay separates the first bind attempts. It doubles after each
	// consecutive failure up to RetryMaxDelay; a RetryMaxDelay at or below
	// RetryDelay keeps the delay fixed.
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
	// AcceptRate limits inbound connections per second. Zero disables
	// the limit.
	AcceptRate  float64
	AcceptBurst int
	Listen      ListenFunc
}

// Handler decides the fate of accepted sockets and hears about server
// lifecycle changes.
type Handler interface {
	// Busy reports whether a session or outgoing attempt is in progress.
	Busy() bool
	RequestConfirmation(ctx context.Context, peerAddress string) (bool, error)
	// AcceptIncoming takes ownership of conn. It fails when the handler
	// became busy while the user was deciding.
	AcceptIncoming(conn net.Conn) error
	// DeclineIncoming takes ownership of conn and turns the peer away.
	DeclineIncoming(conn net.Conn, reason domain.EndReason)
	ServerStarted(address string)
	ServerFailed(err error)
}

// Server is the accept loop.
type Server struct {
	cfg     Config
	h       Handler
	log     *zap.Logger
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	addr net.Addr
}

// New prepares a Server. It does not bind until Run.
func New(cfg Config, h Handler, log *zap.Logger) *Server {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.RetryMaxDelay < cfg.RetryDelay {
		cfg.RetryMaxDelay = cfg.RetryDelay
	}
	if cfg.Listen == nil {
		cfg.Listen = (&net.ListenConfig{}).Listen
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{cfg: cfg, h: h, log: log.With(zap.String("listen", cfg.Address))}
	if cfg.AcceptRate > 0 {
		burst := cfg.AcceptBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), burst)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Addr returns the bound address, or nil while unbound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) setAddr(a net.Addr) {
	s.mu.Lock()
	s.addr = a
	s.mu.Unlock()
}

// Deactivate stops the accept loop and closes the server socket.
func (s *Server) Deactivate() { s.cancel() }

// Run binds and accepts until Deactivate is called or ctx is done, in
// which case it returns nil. A failed bind or a broken listener is
// reported to the Handler and retried with backoff; Run returns
// ErrBindFailed once BindRetries is exhausted.
func (s *Server) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()
	ctx = s.ctx

	bo := NewBackoff(s.cfg.RetryDelay, s.cfg.RetryMaxDelay)
	failures := 0
	for {
		ln, err := s.cfg.Listen(ctx, "tcp", s.cfg.Address)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			s.log.Error("bind failed", zap.Int("failures", failures), zap.Error(err))
			s.h.ServerFailed(err)
			if s.cfg.BindRetries > 0 && failures > s.cfg.BindRetries {
				return fmt.Errorf("%w: %s: %v", ErrBindFailed, s.cfg.Address, err)
			}
			if !sleep(ctx, bo.Next()) {
				return nil
			}
			continue
		}

		failures = 0
		bo.Reset()
		s.setAddr(ln.Addr())
		s.log.Info("server started", zap.Stringer("addr", ln.Addr()))
		s.h.ServerStarted(ln.Addr().String())

		err = s.serve(ctx, ln)
		s.setAddr(nil)
		if ctx.Err() != nil {
			s.log.Info("server stopped")
			return nil
		}
		s.log.Error("accept failed, rebinding", zap.Error(err))
		s.h.ServerFailed(err)
		if !sleep(ctx, bo.Next()) {
			return nil
		}
	}
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		s.route(ctx, conn)
	}
}

// route runs the accept decision for one socket. It blocks the accept loop
// while the user decides; further peers wait in the backlog.
func (s *Server) route(ctx context.Context, conn net.Conn) {
	peer := conn.RemoteAddr().String()
	log := s.log.With(zap.String("peer", peer))

	if s.limiter != nil && !s.limiter.Allow() {
		log.Warn("incoming connection rate limited")
		s.h.DeclineIncoming(conn, domain.ReasonRateLimited)
		return
	}
	if s.h.Busy() {
		log.Info("incoming connection while busy")
		s.h.DeclineIncoming(conn, domain.ReasonBusy)
		return
	}

	ok, err := s.h.RequestConfirmation(ctx, peer)
	switch {
	case err != nil && ctx.Err() != nil:
		_ = conn.Close()
		return
	case err != nil:
		log.Warn("confirmation failed", zap.Error(err))
		s.h.DeclineIncoming(conn, domain.ReasonDeclined)
		return
	case !ok:
		log.Info("incoming connection declined by user")
		s.h.DeclineIncoming(conn, domain.ReasonDeclined)
		return
	}

	if err := s.h.AcceptIncoming(conn); err != nil {
		log.Info("incoming connection lost the race", zap.Error(err))
		s.h.DeclineIncoming(conn, domain.ReasonBusy)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
