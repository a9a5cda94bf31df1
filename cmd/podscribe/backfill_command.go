package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"podscribe/internal/pipeline"
)

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	var (
		podcast       string
		urlTemplate   string
		titleTemplate string
		start         int
		end           int
		hosts         []string
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Process a numbered episode range that has aged out of the feed",
		Long: "Backfill transcribes episodes the feed no longer carries by expanding an\n" +
			"audio URL template over an inclusive episode-number range. Episodes that\n" +
			"already have transcript artifacts on disk are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.BackfillRequest{
				Podcast:       podcast,
				URLTemplate:   urlTemplate,
				TitleTemplate: titleTemplate,
				Start:         start,
				End:           end,
				Hosts:         hosts,
				DryRun:        dryRun,
			}
			return ctx.withPipeline(cmd.Context(), func(runCtx context.Context, pipe *pipeline.Pipeline) error {
				summary, err := pipe.Backfill(runCtx, req)
				if err != nil {
					printRunSummary(cmd.OutOrStdout(), summary)
					return err
				}
				if dryRun {
					fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %d episodes would be processed, %d already have transcripts\n",
						summary.Processed, summary.Skipped)
					return nil
				}
				printRunSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&podcast, "podcast", "", "Podcast name used for ledger rows and the output directory")
	cmd.Flags().StringVar(&urlTemplate, "url-template", "", "Audio URL template with a %d episode-number placeholder")
	cmd.Flags().StringVar(&titleTemplate, "title-template", "", `Episode title template with a %d placeholder (default "Episode %d")`)
	cmd.Flags().IntVar(&start, "start", 0, "First episode number, inclusive")
	cmd.Flags().IntVar(&end, "end", 0, "Last episode number, inclusive")
	cmd.Flags().StringSliceVar(&hosts, "host", nil, "Known host name passed to speaker naming (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be processed without downloading anything")
	_ = cmd.MarkFlagRequired("podcast")
	_ = cmd.MarkFlagRequired("url-template")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}
