// Package feed fetches subscribed RSS feeds, extracts episode metadata, and
// stages episode audio for transcription.
//
// Episode identifiers are derived from numbering patterns in titles
// ("SN 1041" becomes SN_1041) so artifact names stay stable across runs even
// when titles are edited. Host names come from the per-feed configuration
// when provided, matched against the episode's author and description text.
package feed
