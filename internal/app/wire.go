package app

import (
	"go.uber.org/zap"

	"cryptochat/internal/domain"
	"cryptochat/internal/services/coordinator"
	"cryptochat/internal/services/listener"
	"cryptochat/internal/store"
)

// Wire bundles the stores and services for the CLI.
type Wire struct {
	Config      Config
	Log         *zap.Logger
	Peers       domain.PeerStore
	Coordinator *coordinator.Coordinator
	Server      *listener.Server
}

// NewWire constructs the dependency graph from cfg. sink receives every
// chat event and confirm answers incoming invitations.
func NewWire(cfg Config, sink domain.EventSink, confirm domain.ConfirmationProvider, log *zap.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	peers := store.NewPeerFileStore(cfg.Home)
	coord := coordinator.New(cfg.CoordinatorConfig(), sink, confirm, log.Named("coordinator"))
	srv := listener.New(cfg.ListenerConfig(), coord, log.Named("listener"))

	return &Wire{
		Config:      cfg,
		Log:         log,
		Peers:       peers,
		Coordinator: coord,
		Server:      srv,
	}, nil
}
