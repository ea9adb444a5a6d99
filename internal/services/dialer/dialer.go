package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cryptochat/internal/domain"
)

// DefaultPort is the well-known chat port.
const DefaultPort = 27119

// DialFunc opens a stream connection. (*net.Dialer).DialContext fits.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config tunes an Attempt.
type Config struct {
	// Port is used when the address has none.
	Port int
	// ConnectTimeout bounds each connect. Timeouts are retried.
	ConnectTimeout time.Duration
	// MaxAttempts caps the number of timed-out connects. Zero retries
	// until cancelled.
	MaxAttempts int
	Dial        DialFunc
}

// Observer receives the outcome of an Attempt.
type Observer interface {
	OutgoingConnected(a *Attempt, conn net.Conn)
	OutgoingFailed(a *Attempt, reason domain.EndReason, err error)
}

// Attempt is one cancellable outbound connect.
type Attempt struct {
	id      string
	address string
	cfg     Config
	obs     Observer
	log     *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	runOnce sync.Once
	done    chan struct{}
}

// New validates address and prepares an Attempt. Nothing is dialed until
// Run.
func New(address string, cfg Config, obs Observer, log *zap.Logger) (*Attempt, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.Dial == nil {
		cfg.Dial = (&net.Dialer{}).DialContext
	}
	if log == nil {
		log = zap.NewNop()
	}
	addr, err := NormalizeAddress(address, cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, address)
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Attempt{
		id:      id,
		address: addr,
		cfg:     cfg,
		obs:     obs,
		log:     log.With(zap.String("attempt_id", id), zap.String("peer", addr)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// ID returns the attempt's unique id.
func (a *Attempt) ID() string { return a.id }

// Address returns the normalized host:port being dialed.
func (a *Attempt) Address() string { return a.address }

// Done is closed once the outcome has been reported.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Cancel abandons the attempt. A connect in flight is interrupted.
func (a *Attempt) Cancel() { a.cancel() }

// Run dials until connected, failed or cancelled, then reports the
// outcome. Cancelling ctx has the same effect as Cancel.
func (a *Attempt) Run(ctx context.Context) {
	first := false
	a.runOnce.Do(func() { first = true })
	if !first {
		<-a.done
		return
	}
	defer close(a.done)
	stop := context.AfterFunc(ctx, a.cancel)
	defer stop()
	defer a.cancel()

	for n := 1; ; n++ {
		if err := a.ctx.Err(); err != nil {
			a.fail(domain.ReasonUserCancelled, err)
			return
		}

		dctx, cancel := context.WithTimeout(a.ctx, a.cfg.ConnectTimeout)
		conn, err := a.cfg.Dial(dctx, "tcp", a.address)
		cancel()

		if a.ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			a.fail(domain.ReasonUserCancelled, a.ctx.Err())
			return
		}
		if err == nil {
			a.log.Info("connected", zap.Int("attempt", n))
			a.obs.OutgoingConnected(a, conn)
			return
		}
		if !isTimeout(err) {
			a.fail(domain.ReasonConnectFailed, err)
			return
		}
		if a.cfg.MaxAttempts > 0 && n >= a.cfg.MaxAttempts {
			a.fail(domain.ReasonConnectFailed, fmt.Errorf("gave up after %d attempts: %w", n, err))
			return
		}
		a.log.Debug("connect timed out, retrying", zap.Int("attempt", n), zap.Error(err))
	}
}

func (a *Attempt) fail(reason domain.EndReason, err error) {
	if reason == domain.ReasonUserCancelled {
		a.log.Info("connect cancelled")
	} else {
		a.log.Warn("connect failed", zap.Stringer("reason", reason), zap.Error(err))
	}
	a.obs.OutgoingFailed(a, reason, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
