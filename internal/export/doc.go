// Package export writes the per-episode output artifacts: raw, diarized,
// and speaker-named transcripts in text, SRT, and JSON renderings, plus a
// metadata document describing the episode and how it was processed.
//
// Artifacts live under <output_dir>/<podcast>/<episode>/ and are written
// atomically so readers never observe partial files. The diarized JSON
// artifact doubles as the input for naming-only reprocessing runs.
package export
