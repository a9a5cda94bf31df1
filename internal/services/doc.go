// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp episode IDs, stage names, feed names, and run
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure scope
//     (episode-fatal vs run-fatal vs degradable) consistent across stages.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
