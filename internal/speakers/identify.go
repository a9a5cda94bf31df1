package speakers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"podscribe/internal/transcript"
)

// Metadata carries the episode descriptors handed to the naming oracle
// alongside the transcript excerpt. All fields are optional.
type Metadata struct {
	PodcastName  string
	EpisodeTitle string
	Description  string
	Hosts        []string
}

// Identifier resolves anonymous diarization labels to display names.
// contextText is the sampled transcript excerpt; speakers lists every
// distinct label observed in the full episode, including ones the excerpt
// may have missed.
type Identifier interface {
	Identify(ctx context.Context, contextText string, speakers []string, meta Metadata) (transcript.SpeakerMapping, error)
}

// IsSpeakerID reports whether id looks like a raw diarization label. Mapping
// keys must stay within this shape; the unknown sentinel and arbitrary
// strings are never mapped.
func IsSpeakerID(id string) bool {
	return strings.Contains(strings.ToUpper(strings.TrimSpace(id)), "SPEAKER_")
}

// FallbackNamer assigns Speaker_1, Speaker_2, ... by lexicographic label
// order. It backs the pipeline when no naming credential is configured and
// when the oracle fails; naming must never sink an episode.
type FallbackNamer struct{}

// Identify ignores the transcript excerpt and metadata and names every
// well-formed label deterministically. It never fails.
func (FallbackNamer) Identify(_ context.Context, _ string, speakers []string, _ Metadata) (transcript.SpeakerMapping, error) {
	ids := make([]string, 0, len(speakers))
	seen := make(map[string]struct{}, len(speakers))
	for _, id := range speakers {
		if !IsSpeakerID(id) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	mapping := make(transcript.SpeakerMapping, len(ids))
	for i, id := range ids {
		mapping[id] = fmt.Sprintf("Speaker_%d", i+1)
	}
	return mapping, nil
}
