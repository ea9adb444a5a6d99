package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cryptochat/internal/domain"
	"cryptochat/internal/services/dialer"
	"cryptochat/internal/store"
)

func peersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Manage saved peer addresses",
	}
	cmd.AddCommand(peersAddCmd(), peersListCmd(), peersRemoveCmd())
	return cmd
}

func peersAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <host[:port]>",
		Short: "Save or update a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := dialer.NormalizeAddress(args[1], cfg.Dial.DefaultPort)
			if err != nil {
				return fmt.Errorf("%q: %w", args[1], err)
			}
			p := domain.Peer{Name: domain.PeerName(args[0]), Address: addr}
			if err := store.NewPeerFileStore(cfg.Home).SavePeer(p); err != nil {
				return err
			}
			fmt.Printf("Saved %s -> %s\n", p.Name, p.Address)
			return nil
		},
	}
}

func peersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved peers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			peers, err := store.NewPeerFileStore(cfg.Home).ListPeers()
			if err != nil {
				return err
			}
			for _, p := range peers {
				fmt.Printf("%-16s %s\n", p.Name, p.Address)
			}
			return nil
		},
	}
}

func peersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Forget a peer",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := store.NewPeerFileStore(cfg.Home).RemovePeer(domain.PeerName(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no peer named %q", args[0])
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		},
	}
}
