package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"podscribe/internal/logging"
	"podscribe/internal/prune"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove staged audio older than the retention window",
		Long: "Prune deletes downloaded audio from the staging directory once it has aged\n" +
			"past the retention window. Transcripts and metadata in the output tree are\n" +
			"never touched; staged audio can always be downloaded again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			retentionDays := days
			if retentionDays <= 0 {
				retentionDays = cfg.Retention.AudioRetentionDays
			}
			out := cmd.OutOrStdout()
			if retentionDays <= 0 {
				fmt.Fprintln(out, "Audio retention is disabled; nothing to prune")
				return nil
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			maxAge := time.Duration(retentionDays) * 24 * time.Hour
			result := prune.Sweep(cmd.Context(), cfg.Paths.StagingDir, maxAge, dryRun, logger)

			if dryRun {
				fmt.Fprintf(out, "Would remove %d staged audio files, reclaiming %s; %d retained\n",
					len(result.Deleted), humanize.IBytes(result.Freed()), result.Retained)
			} else {
				fmt.Fprintf(out, "Removed %d staged audio files, freed %s; %d retained\n",
					len(result.Deleted), humanize.IBytes(result.Freed()), result.Retained)
			}
			if len(result.Errors) > 0 {
				for _, sweepErr := range result.Errors {
					fmt.Fprintf(out, "Failed to remove %s: %v\n", sweepErr.Path, sweepErr.Err)
				}
				return fmt.Errorf("%d files could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting")
	cmd.Flags().IntVar(&days, "days", 0, "Retention age override in days (defaults to retention.audio_retention_days)")
	return cmd
}
