package preflight

import (
	"context"
	"strings"

	"podscribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, minStagingFree),
	}

	// Naming oracle (when a key is configured; without one episodes get
	// fallback names and there is nothing to probe)
	if cfg.GetOracle().APIKey != "" {
		results = append(results, CheckOracle(ctx, "Naming oracle", cfg.GetOracle()))
	}

	// Diarization sidecar. Enabled with no URL is the shipped default and
	// means "not configured": alignment degrades to the silence-gap
	// rotation, so there is nothing to probe.
	if cfg.Diarization.Enabled && strings.TrimSpace(cfg.Diarization.URL) != "" {
		results = append(results, CheckDiarizer(ctx, cfg))
	}

	return results
}
