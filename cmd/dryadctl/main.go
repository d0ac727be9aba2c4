// Command dryadctl operates a dryad index from the terminal. It opens the
// same database and vector backend as the API server, configured by the
// same environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dryad/internal/app"
	"dryad/internal/config"
	"dryad/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := &cli{}
	err := c.rootCmd().ExecuteContext(ctx)
	c.close()
	stop()
	if err != nil {
		errorColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the instance opened for the running command.
type cli struct {
	app *app.App
}

func (c *cli) close() {
	if c.app != nil {
		_ = c.app.Close()
		c.app = nil
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dryadctl",
		Short:         "Operate a dryad code index",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			// Keep stdout for command output.
			cfg.LogFile = ""
			logging.Setup(cfg)

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}

	root.AddCommand(
		c.newInitCmd(),
		c.newSyncCmd(),
		c.newSearchCmd(),
		c.newEventsCmd(),
		c.newStatusCmd(),
	)
	return root
}
