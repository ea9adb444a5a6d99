package types

import "fmt"

// Command is one of the control values exchanged on the wire.
//
// ACCEPTED and DECLINED answer an invitation (and DECLINED doubles as the
// end-of-session notice); MESSAGE prefixes an encrypted chat envelope.
type Command byte

const (
	CommandAccepted Command = iota + 1
	CommandDeclined
	CommandMessage
)

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	return c >= CommandAccepted && c <= CommandMessage
}

// String returns the protocol name of the command.
func (c Command) String() string {
	switch c {
	case CommandAccepted:
		return "ACCEPTED"
	case CommandDeclined:
		return "DECLINED"
	case CommandMessage:
		return "MESSAGE"
	default:
		return fmt.Sprintf("Command(%d)", byte(c))
	}
}
