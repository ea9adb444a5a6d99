package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cryptochat/internal/domain"
	"cryptochat/internal/protocol/keyexchange"
	"cryptochat/internal/protocol/wire"
)

var (
	// ErrNotActive is returned by Send outside the Active state.
	ErrNotActive = errors.New("session: not active")
	// ErrOutboxFull is returned by Send when messages are queued faster
	// than they can be written.
	ErrOutboxFull = errors.New("session: outbox full")
	// ErrBadResponse is returned for a responder response that is neither
	// ACCEPTED nor DECLINED.
	ErrBadResponse = errors.New("session: response must be ACCEPTED or DECLINED")
)

// Config tunes a session.
type Config struct {
	Crypto keyexchange.Config
	// WriteTimeout bounds every socket write. Zero disables it.
	WriteTimeout time.Duration
	// KeyExchangeTimeout bounds the key exchange. Zero waits until the
	// session is cancelled.
	KeyExchangeTimeout time.Duration
	EndNotice          EndNotice
	OutboxSize         int
}

// Session is the actor that owns one chat connection.
type Session struct {
	id       domain.SessionID
	role     domain.Role
	response domain.Command

	cfg  Config
	conn *wire.Conn
	kx   *keyexchange.Cryptographer
	obs  Observer
	log  *zap.Logger

	state  atomic.Int32
	outbox chan string

	// sendMu orders Send against closing stopping, so nothing is queued
	// after the outbox has been drained.
	sendMu   sync.RWMutex
	stopping chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	runOnce sync.Once
	done    chan struct{}

	// Owned by the session goroutine.
	declinedSent     bool
	declinedReceived bool
}

// NewInitiator wraps a socket we dialed. The session starts by waiting
// for the peer's answer.
func NewInitiator(nc net.Conn, cfg Config, obs Observer, log *zap.Logger) *Session {
	return newSession(nc, domain.RoleInitiator, 0, cfg, obs, log)
}

// NewResponder wraps an accepted socket. The session starts by sending
// response, which must be ACCEPTED or DECLINED.
func NewResponder(nc net.Conn, response domain.Command, cfg Config, obs Observer, log *zap.Logger) (*Session, error) {
	if response != domain.CommandAccepted && response != domain.CommandDeclined {
		return nil, fmt.Errorf("%w: got %s", ErrBadResponse, response)
	}
	return newSession(nc, domain.RoleResponder, response, cfg, obs, log), nil
}

func newSession(nc net.Conn, role domain.Role, response domain.Command, cfg Config, obs Observer, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = 64
	}
	if cfg.EndNotice == "" {
		cfg.EndNotice = NoticeAlways
	}
	id := domain.SessionID(uuid.NewString())
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       id,
		role:     role,
		response: response,
		cfg:      cfg,
		conn:     wire.NewConn(nc, cfg.WriteTimeout),
		kx:       keyexchange.New(cfg.Crypto),
		obs:      obs,
		outbox:   make(chan string, cfg.OutboxSize),
		stopping: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.log = log.With(
		zap.String("session_id", id.String()),
		zap.Stringer("role", role),
		zap.String("peer", s.RemoteAddr()),
	)
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() domain.SessionID { return s.id }

// Role returns whether we dialed or accepted.
func (s *Session) Role() domain.Role { return s.role }

// State returns the current state.
func (s *Session) State() State { return State(s.state.Load()) }

// RemoteAddr returns the peer's address.
func (s *Session) RemoteAddr() string {
	if a := s.conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

// Done is closed after the session has reported its end.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel asks the session to end. It returns immediately; the outcome is
// reported through the Observer.
func (s *Session) Cancel() { s.cancel() }

// Send queues text for sealing and transmission.
func (s *Session) Send(text string) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.State() != StateActive {
		return ErrNotActive
	}
	select {
	case <-s.stopping:
		return ErrNotActive
	default:
	}
	select {
	case s.outbox <- text:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	s.log.Debug("session state", zap.Stringer("from", prev), zap.Stringer("to", st))
}

// Run drives the session to Closed. It blocks until the end has been
// reported; cancelling ctx has the same effect as Cancel. Run may only be
// called once.
func (s *Session) Run(ctx context.Context) {
	first := false
	s.runOnce.Do(func() { first = true })
	if !first {
		<-s.done
		return
	}
	defer close(s.done)
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	reason, err := s.run()

	s.setState(StateEnding)
	s.sendMu.Lock()
	close(s.stopping)
	s.sendMu.Unlock()
	s.failQueued()
	s.notifyEnd(reason)

	s.setState(StateClosed)
	_ = s.conn.Close()
	s.kx.Destroy()
	s.cancel()

	fields := []zap.Field{zap.Stringer("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	switch reason {
	case domain.ReasonProtocolBreach, domain.ReasonVerificationFailed, domain.ReasonDecryptionFailed:
		s.log.Warn("session ended", fields...)
	default:
		s.log.Info("session ended", fields...)
	}
	s.obs.SessionEnded(s, reason, err)
}

func (s *Session) run() (domain.EndReason, error) {
	switch s.role {
	case domain.RoleInitiator:
		s.setState(StateAwaitingPeerResponse)
		f, err := s.conn.Receive(s.ctx)
		if err != nil {
			return s.classify(err), err
		}
		cmd, _ := f.Command()
		switch cmd {
		case domain.CommandAccepted:
		case domain.CommandDeclined:
			s.declinedReceived = true
			return domain.ReasonPeerDeclined, nil
		default:
			return domain.ReasonProtocolBreach, &wire.UnexpectedFrameError{Got: f.Tag, Want: []wire.Tag{wire.TagAccepted, wire.TagDeclined}}
		}
	case domain.RoleResponder:
		s.setState(StateSendingResponse)
		if err := s.conn.Send(wire.CommandFrame(s.response)); err != nil {
			return domain.ReasonConnectionLost, err
		}
		if s.response == domain.CommandDeclined {
			s.declinedSent = true
			return domain.ReasonDeclined, nil
		}
	}

	s.setState(StateKeyExchange)
	if err := s.exchangeKeys(); err != nil {
		return s.classify(err), err
	}

	info, err := s.info()
	if err != nil {
		return domain.ReasonSessionError, err
	}
	s.setState(StateActive)
	s.log.Info("session started",
		zap.Stringer("own_fingerprint", info.OwnFingerprint),
		zap.Stringer("peer_fingerprint", info.PeerFingerprint),
		zap.Stringer("suite", s.kx.Suite()),
	)
	s.obs.SessionStarted(s, info)

	return s.active()
}

func (s *Session) exchangeKeys() error {
	ctx := s.ctx
	if s.cfg.KeyExchangeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.KeyExchangeTimeout)
		defer cancel()
	}
	return s.kx.ExchangeKeys(ctx, s.conn)
}

func (s *Session) info() (domain.SessionInfo, error) {
	own, err := s.kx.OwnFingerprint()
	if err != nil {
		return domain.SessionInfo{}, err
	}
	peer, err := s.kx.PeerFingerprint()
	if err != nil {
		return domain.SessionInfo{}, err
	}
	return domain.SessionInfo{
		ID:              s.id,
		Role:            s.role,
		OwnFingerprint:  own,
		PeerFingerprint: peer,
		PeerAddress:     s.RemoteAddr(),
	}, nil
}

func (s *Session) active() (domain.EndReason, error) {
	for {
		select {
		case <-s.ctx.Done():
			return domain.ReasonUserEnded, nil

		case text := <-s.outbox:
			if reason, err := s.write(text); err != nil {
				return reason, err
			}

		case f, ok := <-s.conn.Incoming():
			if !ok {
				err := s.conn.ReadErr()
				return s.classify(err), err
			}
			if reason, err := s.handle(f); reason != domain.ReasonNone {
				return reason, err
			}
		}
	}
}

func (s *Session) handle(f wire.Frame) (domain.EndReason, error) {
	switch f.Tag {
	case wire.TagDeclined:
		s.declinedReceived = true
		return domain.ReasonPeerEnded, nil
	case wire.TagMessage:
	default:
		return domain.ReasonProtocolBreach, &wire.UnexpectedFrameError{Got: f.Tag, Want: []wire.Tag{wire.TagMessage, wire.TagDeclined}}
	}

	f, err := s.conn.Receive(s.ctx)
	if err == nil {
		f, err = wire.Expect(f, wire.TagEnvelope)
	}
	if err != nil {
		return s.classify(err), err
	}
	env, err := keyexchange.ParseEnvelope(f.Payload)
	if err != nil {
		return domain.ReasonProtocolBreach, err
	}
	text, err := s.kx.Open(env)
	if err != nil {
		return s.classify(err), err
	}
	s.obs.SessionMessage(s, text)
	return domain.ReasonNone, nil
}

func (s *Session) write(text string) (domain.EndReason, error) {
	env, err := s.kx.Seal(text)
	if err != nil {
		s.obs.SessionSendFailed(s, text, err)
		return domain.ReasonSessionError, err
	}
	if err := s.conn.Send(wire.CommandFrame(domain.CommandMessage), env.Frame()); err != nil {
		s.obs.SessionSendFailed(s, text, err)
		return domain.ReasonConnectionLost, err
	}
	s.obs.SessionSent(s, text)
	return domain.ReasonNone, nil
}

// failQueued reports messages that were accepted by Send but never written.
func (s *Session) failQueued() {
	for {
		select {
		case text := <-s.outbox:
			s.obs.SessionSendFailed(s, text, ErrNotActive)
		default:
			return
		}
	}
}

func (s *Session) notifyEnd(reason domain.EndReason) {
	if s.declinedSent || s.declinedReceived || reason == domain.ReasonConnectionLost {
		return
	}
	switch s.cfg.EndNotice {
	case NoticeNever:
		return
	case NoticeInitiator:
		if s.role != domain.RoleInitiator {
			return
		}
	case NoticeResponder:
		if s.role != domain.RoleResponder {
			return
		}
	}
	if err := s.conn.Send(wire.CommandFrame(domain.CommandDeclined)); err != nil {
		s.log.Debug("end notice not delivered", zap.Error(err))
		return
	}
	s.declinedSent = true
}

// classify maps the error that stopped the session to a terminal reason.
func (s *Session) classify(err error) domain.EndReason {
	state := s.State()
	if s.ctx.Err() != nil {
		if state == StateAwaitingPeerResponse {
			return domain.ReasonUserCancelled
		}
		return domain.ReasonUserEnded
	}

	var unexpected *wire.UnexpectedFrameError
	if errors.As(err, &unexpected) && unexpected.Got == wire.TagDeclined {
		s.declinedReceived = true
		if state == StateAwaitingPeerResponse {
			return domain.ReasonPeerDeclined
		}
		return domain.ReasonPeerEnded
	}

	var opErr *net.OpError
	switch {
	case errors.Is(err, wire.ErrMalformed):
		return domain.ReasonProtocolBreach
	case errors.Is(err, keyexchange.ErrVerificationFailed):
		return domain.ReasonVerificationFailed
	case errors.Is(err, keyexchange.ErrDecryptionFailed):
		return domain.ReasonDecryptionFailed
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed), errors.As(err, &opErr):
		return domain.ReasonConnectionLost
	case errors.Is(err, keyexchange.ErrKeyExchange):
		return domain.ReasonKeyExchangeFailed
	}
	return domain.ReasonSessionError
}
