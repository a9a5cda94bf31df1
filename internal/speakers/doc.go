// Package speakers turns anonymous diarization labels into display names.
//
// The stage runs in three steps. The Sampler selects a bounded transcript
// excerpt that favors introductions and speaker handoffs, because full
// transcripts of long panel shows exceed practical prompt sizes. An
// Identifier resolves labels to names: OracleIdentifier asks a chat
// completion model, FallbackNamer assigns deterministic Speaker_N
// placeholders. ApplyMapping then rewrites the transcript, swapping labels
// and any literal label mentions inside the text while preserving the raw
// label for traceability.
//
// Naming is strictly best effort. Oracle failures degrade to the fallback
// namer and never fail an episode.
package speakers
