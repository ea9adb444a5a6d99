package app

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"cryptochat/internal/domain"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the listener until ctx is done, then ends any conversation in
// progress so the peer is notified before the process exits.
func (w *Wire) Serve(ctx context.Context) error {
	err := w.Server.Run(ctx)

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := w.Coordinator.Shutdown(sctx); serr != nil {
		w.Log.Warn("shutdown incomplete", zap.Error(serr))
	}
	return err
}

// ResolveAddress maps a saved peer name to its address. Anything else is
// returned unchanged for the dialer to interpret.
func (w *Wire) ResolveAddress(target string) (string, error) {
	p, ok, err := w.Peers.LookupPeer(domain.PeerName(target))
	if err != nil {
		return "", err
	}
	if ok {
		return p.Address, nil
	}
	return target, nil
}

// JoinHostPort formats a listen address.
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
