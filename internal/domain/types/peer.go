package types

// Peer is an address book entry.
type Peer struct {
	Name    PeerName `json:"name"`
	Address string   `json:"address"`
}
