// Package prune reclaims staging disk space by deleting downloaded episode
// audio past its retention window. Transcripts and metadata under the output
// tree are never touched; once an episode's artifacts exist the staged audio
// is only useful for reprocessing from scratch, and it can always be
// downloaded again.
package prune
