package interfaces

import domaintypes "cryptochat/internal/domain/types"

// PeerStore persists the local address book. It never holds keys or messages.
type PeerStore interface {
	SavePeer(peer domaintypes.Peer) error
	LookupPeer(name domaintypes.PeerName) (domaintypes.Peer, bool, error)
	ListPeers() ([]domaintypes.Peer, error)
	RemovePeer(name domaintypes.PeerName) (bool, error)
}
