package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cryptochat/internal/domain"
)

const peersFile = "peers.json"

// ErrInvalidPeer is returned when saving a peer without a usable name or
// address.
var ErrInvalidPeer = errors.New("store: peer needs a name without spaces and an address")

// PeerFileStore keeps the address book in peers.json under dir.
type PeerFileStore struct {
	dir string
	mu  sync.Mutex
}

var _ domain.PeerStore = (*PeerFileStore)(nil)

func NewPeerFileStore(dir string) *PeerFileStore { return &PeerFileStore{dir: dir} }

func (s *PeerFileStore) path() string { return filepath.Join(s.dir, peersFile) }

func (s *PeerFileStore) load() (map[domain.PeerName]domain.Peer, error) {
	m := make(map[domain.PeerName]domain.Peer)
	if err := readJSON(s.path(), &m); err != nil {
		return nil, fmt.Errorf("store: read %s: %w", peersFile, err)
	}
	return m, nil
}

// SavePeer adds p or replaces the entry with the same name.
func (s *PeerFileStore) SavePeer(p domain.Peer) error {
	p.Name = domain.PeerName(strings.TrimSpace(string(p.Name)))
	p.Address = strings.TrimSpace(p.Address)
	if p.Name == "" || strings.ContainsAny(string(p.Name), " \t\n") || p.Address == "" {
		return ErrInvalidPeer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	m[p.Name] = p
	return writeJSON(s.path(), m, 0o600)
}

// LookupPeer returns the peer saved under name.
func (s *PeerFileStore) LookupPeer(name domain.PeerName) (domain.Peer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return domain.Peer{}, false, err
	}
	p, ok := m[name]
	return p, ok, nil
}

// ListPeers returns every saved peer ordered by name.
func (s *PeerFileStore) ListPeers() ([]domain.Peer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Peer, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RemovePeer deletes name and reports whether it existed.
func (s *PeerFileStore) RemovePeer(name domain.PeerName) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := m[name]; !ok {
		return false, nil
	}
	delete(m, name)
	return true, writeJSON(s.path(), m, 0o600)
}
