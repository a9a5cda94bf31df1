package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podscribe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run preflight checks against binaries, directories, and services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			failed := 0

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			depStatuses := preflight.CheckSystemDeps(cfg)
			for _, line := range dependencyLines(depStatuses, colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, dep := range depStatuses {
				if !dep.Available && !dep.Optional {
					failed++
				}
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(stdout, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, line := range preflightLines(results, colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range results {
				if !result.Passed {
					failed++
				}
			}

			fmt.Fprintln(stdout)
			if failed > 0 {
				fmt.Fprintf(stdout, "%d checks failed\n", failed)
				return fmt.Errorf("%d preflight checks failed", failed)
			}
			fmt.Fprintln(stdout, "All checks passed")
			return nil
		},
	}
}
