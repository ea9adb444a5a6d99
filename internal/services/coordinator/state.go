package coordinator

import "fmt"

// State summarizes what the Coordinator is doing.
type State int

const (
	// StateInactive: no attempt and no session.
	StateInactive State = iota
	// StateConnecting: dialing, or a session that has not finished its
	// handshake.
	StateConnecting
	// StateCancellingConnection: the user cancelled and the outcome is
	// pending.
	StateCancellingConnection
	// StateActiveSession: keys are exchanged and messages may be sent.
	StateActiveSession
	// StateClosingSession: the user stopped the session and it is winding
	// down.
	StateClosingSession
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateConnecting:
		return "connecting"
	case StateCancellingConnection:
		return "cancelling connection"
	case StateActiveSession:
		return "active session"
	case StateClosingSession:
		return "closing session"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
