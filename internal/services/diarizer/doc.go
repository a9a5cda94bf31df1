// Package diarizer talks to the optional diarization sidecar over HTTP.
//
// The sidecar segments an episode's audio into anonymous speaker turns
// (SPEAKER_00, SPEAKER_01, ...) that the aligner merges with transcript
// segments. Diarization is best effort: when the sidecar is disabled,
// unreachable, or returns no turns, callers fall back to heuristic
// speaker rotation rather than failing the episode.
package diarizer
