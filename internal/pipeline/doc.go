// Package pipeline advances podcast episodes through the processing stages.
//
// A Pipeline fetches the configured feeds, fans episodes out to a bounded
// worker pool, and drives each one through download, WAV extraction,
// transcription, diarization-backed alignment, speaker naming, and artifact
// export while recording progress in the ledger. Episodes whose artifacts
// already exist on disk are skipped outright; ledger rows are bookkeeping,
// never the idempotency criterion.
//
// Failures stay scoped to the episode that raised them and are collected into
// the run summary. Diarization trouble degrades to the silence-gap aligner
// and naming trouble degrades to deterministic fallback names; neither sinks
// an episode. Only configuration and validation problems abort a run.
//
// Besides the feed-driven Run, the pipeline offers Reprocess, which re-runs
// naming over diarized transcripts already on disk, and Backfill, which
// processes a numbered episode range against templated audio URLs.
package pipeline
