package types

import "fmt"

// EndReason is the terminal outcome of a session, an outgoing attempt, or a
// declined incoming connection. Every value renders a distinct message.
type EndReason int

const (
	ReasonNone EndReason = iota
	ReasonPeerDeclined
	ReasonDeclined
	ReasonBusy
	ReasonRateLimited
	ReasonPeerEnded
	ReasonUserEnded
	ReasonUserCancelled
	ReasonProtocolBreach
	ReasonKeyExchangeFailed
	ReasonVerificationFailed
	ReasonDecryptionFailed
	ReasonSessionError
	ReasonConnectionLost
	ReasonConnectFailed
)

var reasonText = map[EndReason]string{
	ReasonNone:               "No reason.",
	ReasonPeerDeclined:       "The remote host declined the connection.",
	ReasonDeclined:           "Incoming connection declined.",
	ReasonBusy:               "Incoming connection declined: a chat session is already in progress.",
	ReasonRateLimited:        "Incoming connection declined: too many connection attempts.",
	ReasonPeerEnded:          "The remote host ended the session.",
	ReasonUserEnded:          "You ended the session.",
	ReasonUserCancelled:      "Connection attempt cancelled.",
	ReasonProtocolBreach:     "Session terminated: the remote host sent data that does not follow the protocol.",
	ReasonKeyExchangeFailed:  "Session terminated: the key exchange failed.",
	ReasonVerificationFailed: "WARNING: a message failed signature verification and may have been forged or tampered with. The session was terminated; the connection should be considered compromised.",
	ReasonDecryptionFailed:   "Session terminated: a message could not be decrypted.",
	ReasonSessionError:       "Session terminated because of an error.",
	ReasonConnectionLost:     "The connection to the remote host was lost.",
	ReasonConnectFailed:      "Could not connect to the remote host.",
}

// String returns the human-readable message shown to the user.
func (r EndReason) String() string {
	if s, ok := reasonText[r]; ok {
		return s
	}
	return fmt.Sprintf("EndReason(%d)", int(r))
}
