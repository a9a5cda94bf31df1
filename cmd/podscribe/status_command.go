package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podscribe/internal/config"
	"podscribe/internal/ledger"
	"podscribe/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show service, dependency, and ledger status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Services", colorize) {
					fmt.Fprintln(stdout, line)
				}
				services := []preflight.Result{
					preflight.CheckOracleFromConfig(cfg),
					preflight.CheckDiarizerFromConfig(cfg),
				}
				for _, line := range preflightLines(services, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Ledger", statusInfo, store.Path(), colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range dependencyLines(preflight.CheckSystemDeps(cfg), colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Episodes", colorize) {
					fmt.Fprintln(stdout, line)
				}
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if rows := buildLedgerStatusRows(stats); len(rows) == 0 {
					fmt.Fprintln(stdout, "Ledger is empty")
				} else {
					fmt.Fprintln(stdout, renderTable(
						[]string{"Status", "Count"},
						rows,
						[]columnAlignment{alignLeft, alignRight},
					))
				}

				lastRun, err := store.LastRun(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, formatLastRun(lastRun))

				recent, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(recent) > 0 {
					fmt.Fprintln(stdout)
					for _, line := range renderSectionHeader("Recent Episodes", colorize) {
						fmt.Fprintln(stdout, line)
					}
					fmt.Fprintln(stdout, renderTable(
						[]string{"ID", "Podcast", "Episode", "Status", "Updated"},
						buildRecentEpisodeRows(recent),
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 15, "Number of recent episodes to show")
	return cmd
}
