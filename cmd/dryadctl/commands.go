package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"dryad/internal/service"
	"dryad/internal/syncer"
)

func (c *cli) newInitCmd() *cobra.Command {
	var settingsFile string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Reset the sync state and seed settings",
		Long: `Reset the sync state to "no commit". Indexed files are kept and
re-confirmed by the next sync. Settings are seeded from --settings (or
SETTINGS_FILE) only when none are stored yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if settingsFile == "" {
				settingsFile = c.app.Config.SettingsFile
			}
			if err := c.app.Init(cmd.Context(), settingsFile); err != nil {
				return err
			}
			settings, err := c.app.Settings.Get(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			successColor.Fprintf(out, "Initialized %s/%s@%s\n", settings.Org, settings.Repo, settings.Branch)
			return nil
		},
	}
	cmd.Flags().StringVar(&settingsFile, "settings", "", "YAML settings file used as seed")
	return cmd
}

func (c *cli) newSyncCmd() *cobra.Command {
	var untilDone bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run sync invocations against the upstream head",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("syncing"),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionClearOnFinish(),
			)

			var total syncer.Result
			for {
				result, err := c.app.Engine.Sync(ctx)
				if err != nil {
					_ = bar.Finish()
					return err
				}
				total.Indexed += result.Indexed
				total.Reclaimed += result.Reclaimed
				total.Phase, total.Commit, total.Done = result.Phase, result.Commit, result.Done

				bar.Describe(fmt.Sprintf("%s %s: %d indexed, %d reclaimed",
					result.Phase, shortSHA(result.Commit), total.Indexed, total.Reclaimed))
				_ = bar.Add(1)

				if result.Done || !untilDone {
					break
				}
			}
			_ = bar.Finish()

			printSyncResult(out, total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&untilDone, "until-done", false, "Keep invoking until the commit has converged")
	return cmd
}

func (c *cli) newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed files by what they do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.app.SearchService.Search(cmd.Context(), service.SearchRequest{Query: args[0]})
			if err != nil {
				return err
			}
			printSearchResults(cmd.OutOrStdout(), resp.Results)
			return nil
		},
	}
}

func (c *cli) newEventsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the most recent sync events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := c.app.SyncService.Events(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printEvents(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", service.DefaultEventLimit, "Number of events to show (max 100)")
	return cmd
}

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync state and index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := c.app.SyncService.Status(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}
