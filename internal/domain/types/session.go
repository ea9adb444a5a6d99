package types

// Role tells which side of the invitation a session is on.
type Role int

const (
	RoleInitiator Role = iota + 1
	RoleResponder
)

// String returns the lower-case role name.
func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// SessionInfo is published once a session's key exchange has completed.
//
// OwnFingerprint on one side equals PeerFingerprint on the other.
type SessionInfo struct {
	ID              SessionID
	Role            Role
	OwnFingerprint  Fingerprint
	PeerFingerprint Fingerprint
	PeerAddress     string
}
