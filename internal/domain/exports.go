package domain

import (
	interfaces "cryptochat/internal/domain/interfaces"
	types "cryptochat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	PeerName    = types.PeerName
	Fingerprint = types.Fingerprint
	SessionID   = types.SessionID
	Command     = types.Command
	EndReason   = types.EndReason
	Role        = types.Role
	SessionInfo = types.SessionInfo
	Peer        = types.Peer
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	EventSink            = interfaces.EventSink
	ConfirmationProvider = interfaces.ConfirmationProvider
	ConfirmationFunc     = interfaces.ConfirmationFunc
	PeerStore            = interfaces.PeerStore
)

// Wire commands.
const (
	CommandAccepted = types.CommandAccepted
	CommandDeclined = types.CommandDeclined
	CommandMessage  = types.CommandMessage
)

// Session roles.
const (
	RoleInitiator = types.RoleInitiator
	RoleResponder = types.RoleResponder
)

// Terminal outcomes.
const (
	ReasonNone               = types.ReasonNone
	ReasonPeerDeclined       = types.ReasonPeerDeclined
	ReasonDeclined           = types.ReasonDeclined
	ReasonBusy               = types.ReasonBusy
	ReasonRateLimited        = types.ReasonRateLimited
	ReasonPeerEnded          = types.ReasonPeerEnded
	ReasonUserEnded          = types.ReasonUserEnded
	ReasonUserCancelled      = types.ReasonUserCancelled
	ReasonProtocolBreach     = types.ReasonProtocolBreach
	ReasonKeyExchangeFailed  = types.ReasonKeyExchangeFailed
	ReasonVerificationFailed = types.ReasonVerificationFailed
	ReasonDecryptionFailed   = types.ReasonDecryptionFailed
	ReasonSessionError       = types.ReasonSessionError
	ReasonConnectionLost     = types.ReasonConnectionLost
	ReasonConnectFailed      = types.ReasonConnectFailed
)
