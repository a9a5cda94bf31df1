// Package preflight provides readiness checks for the external tools,
// services, and filesystem paths a transcription run depends on.
//
// These checks run in two contexts:
//   - The CLI "podscribe doctor" command runs the full set and renders
//     the results as a table.
//   - The "podscribe status" command uses the FromConfig variants
//     (CheckOracleFromConfig, CheckDiarizerFromConfig) to display
//     service health alongside ledger counts.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
