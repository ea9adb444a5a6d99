package interfaces

import (
	"context"

	domaintypes "cryptochat/internal/domain/types"
)

// EventSink receives protocol events for presentation to the user.
//
// Implementations must not block for long: events are delivered from the
// listener, dialer and session goroutines.
type EventSink interface {
	ServerStarted(address string)
	ServerFailed(err error)
	SessionStarted(info domaintypes.SessionInfo)
	SessionEnded(reason domaintypes.EndReason)
	MessageReceived(text string)
	MessageSent(text string)
	MessageFailed(text string, err error)
	OutgoingConnectionFailed(reason domaintypes.EndReason)
	IncomingDeclined(peerAddress string, reason domaintypes.EndReason)
}

// ConfirmationProvider asks the local user whether to accept an invitation.
// It blocks until the user answers or ctx is done.
type ConfirmationProvider interface {
	RequestConfirmation(ctx context.Context, peerAddress string) (bool, error)
}

// ConfirmationFunc adapts a function to ConfirmationProvider.
type ConfirmationFunc func(ctx context.Context, peerAddress string) (bool, error)

// RequestConfirmation calls f.
func (f ConfirmationFunc) RequestConfirmation(ctx context.Context, peerAddress string) (bool, error) {
	return f(ctx, peerAddress)
}
