package coordinator

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"cryptochat/internal/domain"
	"cryptochat/internal/services/dialer"
	"cryptochat/internal/services/listener"
	"cryptochat/internal/services/session"
)

var (
	// ErrBusy is returned when an attempt or session already exists.
	ErrBusy = errors.New("coordinator: a connection or session is already in progress")
	// ErrNoSession is returned when there is no session to act on.
	ErrNoSession = errors.New("coordinator: no active session")
	// ErrNoAttempt is returned when there is no outgoing connection to cancel.
	ErrNoAttempt = errors.New("coordinator: no outgoing connection")
	// ErrClosed is returned after Shutdown.
	ErrClosed = errors.New("coordinator: shut down")
)

// Config carries the settings handed to dialers and sessions.
type Config struct {
	Dialer  dialer.Config
	Session session.Config
}

// Coordinator owns the current attempt or session.
type Coordinator struct {
	cfg     Config
	sink    domain.EventSink
	confirm domain.ConfirmationProvider
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	attempt *dialer.Attempt
	session *session.Session
	started bool
	closed  bool
}

var (
	_ listener.Handler = (*Coordinator)(nil)
	_ dialer.Observer  = (*Coordinator)(nil)
	_ session.Observer = (*Coordinator)(nil)
)

// New returns an idle Coordinator. sink receives every event; confirm is
// asked about each invitation that arrives while idle.
func New(cfg Config, sink domain.EventSink, confirm domain.ConfirmationProvider, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:     cfg,
		sink:    sink,
		confirm: confirm,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) busyLocked() bool {
	return c.closed || c.attempt != nil || c.session != nil
}

// ConnectTo starts dialing address. It fails with ErrBusy while another
// attempt or session exists; callers are expected to prevent that.
func (c *Coordinator) ConnectTo(address string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.busyLocked() {
		state := c.state
		c.mu.Unlock()
		c.log.Error("connect requested while busy", zap.String("peer", address), zap.Stringer("state", state))
		return ErrBusy
	}
	a, err := dialer.New(address, c.cfg.Dialer, c, c.log)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.attempt = a
	c.state = StateConnecting
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Info("connecting", zap.String("peer", a.Address()))
	go func() {
		defer c.wg.Done()
		a.Run(c.ctx)
	}()
	return nil
}

// CancelOutgoingConnection abandons the current dial, or an outgoing
// session whose peer has not answered yet.
func (c *Coordinator) CancelOutgoingConnection() error {
	c.mu.Lock()
	a, s := c.attempt, c.session
	switch {
	case a != nil:
		c.state = StateCancellingConnection
		c.mu.Unlock()
		a.Cancel()
		return nil
	case s != nil && s.Role() == domain.RoleInitiator && !c.started:
		c.state = StateCancellingConnection
		c.mu.Unlock()
		s.Cancel()
		return nil
	}
	c.mu.Unlock()
	return ErrNoAttempt
}

// StopActiveSession ends the current session.
func (c *Coordinator) StopActiveSession() error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	c.state = StateClosingSession
	c.mu.Unlock()
	s.Cancel()
	return nil
}

// SendMessage queues text on the active session. Delivery is reported
// through MessageSent or MessageFailed.
func (c *Coordinator) SendMessage(text string) error {
	c.mu.Lock()
	s, started := c.session, c.started
	c.mu.Unlock()
	if s == nil || !started {
		return ErrNoSession
	}
	return s.Send(text)
}

// Shutdown cancels everything in flight and waits for it to finish or for
// ctx to expire.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) run(s *session.Session) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		s.Run(c.ctx)
	}()
}

// Dialer events.

func (c *Coordinator) OutgoingConnected(a *dialer.Attempt, conn net.Conn) {
	c.mu.Lock()
	if c.attempt != a || c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.attempt = nil
	s := session.NewInitiator(conn, c.cfg.Session, c, c.log)
	c.session, c.started = s, false
	// A cancel that raced the connect still applies to the new session.
	cancelled := c.state == StateCancellingConnection
	if !cancelled {
		c.state = StateConnecting
	}
	c.run(s)
	c.mu.Unlock()
	if cancelled {
		s.Cancel()
	}
}

func (c *Coordinator) OutgoingFailed(a *dialer.Attempt, reason domain.EndReason, _ error) {
	c.mu.Lock()
	if c.attempt != a {
		c.mu.Unlock()
		return
	}
	c.attempt = nil
	c.state = StateInactive
	c.mu.Unlock()
	c.sink.OutgoingConnectionFailed(reason)
}

// Session events.

func (c *Coordinator) SessionStarted(s *session.Session, info domain.SessionInfo) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}
	c.started = true
	if c.state == StateConnecting {
		c.state = StateActiveSession
	}
	c.mu.Unlock()
	c.sink.SessionStarted(info)
}

func (c *Coordinator) SessionMessage(_ *session.Session, text string) {
	c.sink.MessageReceived(text)
}

func (c *Coordinator) SessionSent(_ *session.Session, text string) {
	c.sink.MessageSent(text)
}

func (c *Coordinator) SessionSendFailed(_ *session.Session, text string, err error) {
	c.sink.MessageFailed(text, err)
}

// SessionEnded clears the session. An outgoing session that never got
// past the handshake is reported as a failed connection.
func (c *Coordinator) SessionEnded(s *session.Session, reason domain.EndReason, _ error) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}
	started := c.started
	c.session, c.started = nil, false
	c.state = StateInactive
	c.mu.Unlock()

	if s.Role() == domain.RoleInitiator && !started {
		c.sink.OutgoingConnectionFailed(reason)
		return
	}
	c.sink.SessionEnded(reason)
}

// Listener decisions.

func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busyLocked()
}

func (c *Coordinator) RequestConfirmation(ctx context.Context, peerAddress string) (bool, error) {
	if c.confirm == nil {
		return false, nil
	}
	return c.confirm.RequestConfirmation(ctx, peerAddress)
}

func (c *Coordinator) AcceptIncoming(conn net.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyLocked() {
		return ErrBusy
	}
	s, err := session.NewResponder(conn, domain.CommandAccepted, c.cfg.Session, c, c.log)
	if err != nil {
		return err
	}
	c.session, c.started = s, false
	c.state = StateConnecting
	c.run(s)
	return nil
}

func (c *Coordinator) DeclineIncoming(conn net.Conn, reason domain.EndReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return
	}
	obs := &declineObserver{sink: c.sink, reason: reason}
	s, err := session.NewResponder(conn, domain.CommandDeclined, c.cfg.Session, obs, c.log)
	if err != nil {
		_ = conn.Close()
		return
	}
	c.run(s)
}

func (c *Coordinator) ServerStarted(address string) { c.sink.ServerStarted(address) }

func (c *Coordinator) ServerFailed(err error) { c.sink.ServerFailed(err) }

// declineObserver reports a turned-away invitation once its DECLINED has
// been sent.
type declineObserver struct {
	sink   domain.EventSink
	reason domain.EndReason
}

func (o *declineObserver) SessionStarted(*session.Session, domain.SessionInfo) {}
func (o *declineObserver) SessionMessage(*session.Session, string)             {}
func (o *declineObserver) SessionSent(*session.Session, string)                {}
func (o *declineObserver) SessionSendFailed(*session.Session, string, error)   {}
func (o *declineObserver) SessionEnded(s *session.Session, _ domain.EndReason, _ error) {
	o.sink.IncomingDeclined(s.RemoteAddr(), o.reason)
}
