package main

import (
	"context"

	"github.com/spf13/cobra"

	"podscribe/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Fetch subscribed feeds and transcribe new episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd.Context(), func(runCtx context.Context, pipe *pipeline.Pipeline) error {
				summary, err := pipe.Run(runCtx)
				printRunSummary(cmd.OutOrStdout(), summary)
				return err
			})
		},
	}
}

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess",
		Short: "Re-run speaker naming and export over saved diarized transcripts",
		Long: "Reprocess walks the output tree for diarized transcript artifacts and re-runs\n" +
			"the speaker-naming and export stages against them. No audio is downloaded or\n" +
			"transcribed, so it is the cheap way to apply new naming settings to an\n" +
			"existing library.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd.Context(), func(runCtx context.Context, pipe *pipeline.Pipeline) error {
				summary, err := pipe.Reprocess(runCtx)
				printRunSummary(cmd.OutOrStdout(), summary)
				return err
			})
		},
	}
}
