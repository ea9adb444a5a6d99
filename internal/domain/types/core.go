package types

// PeerName is a local alias for a remote host in the address book.
type PeerName string

// String returns the string form of the peer name.
func (n PeerName) String() string { return string(n) }

// Fingerprint is a short printable digest of a public key presented to users
// for out-of-band comparison. It is never used for trust decisions.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// SessionID identifies one session actor for logging and event correlation.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }
