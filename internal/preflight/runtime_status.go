package preflight

import (
	"context"
	"strings"

	"podscribe/internal/config"
)

// CheckOracleFromConfig evaluates naming-oracle status from config and
// connectivity. An unconfigured oracle passes: episodes fall back to
// positional speaker names instead of failing.
func CheckOracleFromConfig(cfg *config.Config) Result {
	const name = "Naming oracle"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if cfg.GetOracle().APIKey == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured (fallback names)"}
	}
	check := CheckOracle(context.Background(), name, cfg.GetOracle())
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CheckDiarizerFromConfig evaluates diarization status from config and
// connectivity. Disabled diarization passes: alignment degrades to the
// silence-gap rotation instead of failing.
func CheckDiarizerFromConfig(cfg *config.Config) Result {
	const name = "Diarization"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Diarization.Enabled || strings.TrimSpace(cfg.Diarization.URL) == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured (silence-gap alignment)"}
	}
	check := CheckDiarizer(context.Background(), cfg)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}
