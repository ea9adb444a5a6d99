package coordinator

import (
	"net"

	"cryptochat/internal/services/dialer"
)

// ConnectAfterCancel delivers conn for a as if the dial finished just after
// the user asked to cancel it.
func ConnectAfterCancel(c *Coordinator, a *dialer.Attempt, conn net.Conn) {
	c.mu.Lock()
	c.attempt = a
	c.state = StateCancellingConnection
	c.mu.Unlock()
	c.OutgoingConnected(a, conn)
}
