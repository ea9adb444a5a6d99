package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"cryptochat/internal/app"
	"cryptochat/internal/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for chat invitations and run the console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context(), "")
		},
	}
}

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <peer>",
		Short: "Invite a peer (saved name or host[:port]) and run the console",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context(), args[0])
		},
	}
}

// runConsole serves and runs the console until /quit or a signal. A
// non-empty target is invited once the console is up.
func runConsole(parent context.Context, target string) error {
	if parent == nil {
		parent = context.Background()
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.File == "")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	console := NewConsole(os.Stdin, os.Stdout, interactive, cfg.Confirm.AutoAccept)

	w, err := app.NewWire(cfg, console, console, log)
	if err != nil {
		return err
	}
	console.Resolve = w.ResolveAddress
	console.Peers = w.Peers

	sigctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Serve(gctx)
	})
	g.Go(func() error {
		defer cancel()
		var startup []string
		if target != "" {
			startup = append(startup, "/connect "+target)
		}
		return console.Run(gctx, w.Coordinator, startup...)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("cryptochat: %w", err)
	}
	return nil
}
