package commands

import (
	"os"

	"github.com/spf13/cobra"

	"cryptochat/internal/app"
)

var (
	home       string
	configPath string
	port       int
	logLevel   string
	autoAccept bool

	cfg app.Config
)

func Execute() error {
	root := &cobra.Command{
		Use:          "cryptochat",
		Short:        "Peer-to-peer encrypted chat",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := app.DefaultHome()
				if err != nil {
					return err
				}
				home = dir
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			if configPath == "" {
				configPath = app.ConfigPath(home)
			}

			c, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := c.ApplyEnv(os.Getenv); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				c.Listen.Port = port
			}
			if flags.Changed("log-level") {
				c.Logging.Level = logLevel
			}
			if flags.Changed("auto-accept") {
				c.Confirm.AutoAccept = autoAccept
			}
			c.Home = home
			cfg = c
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.cryptochat)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/config.yaml)")
	root.PersistentFlags().IntVar(&port, "port", app.DefaultPort, "TCP port to listen on")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&autoAccept, "auto-accept", false, "accept every incoming invitation without asking")

	root.AddCommand(serveCmd(), connectCmd(), peersCmd(), configCmd())
	return root.Execute()
}
