package speakers

import (
	"regexp"
	"sort"

	"podscribe/internal/transcript"
)

type textReplacement struct {
	pattern *regexp.Regexp
	name    string
}

// ApplyMapping rewrites segs with the resolved speaker names. Segment labels
// with a mapping entry are replaced and the raw diarization label is kept in
// OriginalSpeakerID. Independently, every case-insensitive literal occurrence
// of any mapped label inside segment text is replaced too; recognized speech
// occasionally contains a label verbatim, and cross-references between
// segments should read naturally.
//
// The label is escaped before pattern construction, so labels carry no
// pattern metacharacter risk. Longer labels substitute first, so SPEAKER_10
// never loses its tail to a SPEAKER_1 rewrite. Because replaced labels no
// longer appear verbatim, applying the same mapping twice is a no-op.
//
// The input slice is not modified.
func ApplyMapping(segs []transcript.DiarizedSegment, mapping transcript.SpeakerMapping) []transcript.DiarizedSegment {
	out := make([]transcript.DiarizedSegment, len(segs))
	copy(out, segs)
	if len(mapping) == 0 {
		return out
	}

	replacements := make([]textReplacement, 0, len(mapping))
	for _, id := range sortedMappingIDs(mapping) {
		replacements = append(replacements, textReplacement{
			pattern: regexp.MustCompile("(?i)" + regexp.QuoteMeta(id)),
			name:    mapping[id],
		})
	}

	for i := range out {
		for _, r := range replacements {
			out[i].Text = r.pattern.ReplaceAllString(out[i].Text, r.name)
		}
		if name, ok := mapping[out[i].Speaker]; ok {
			out[i].OriginalSpeakerID = out[i].Speaker
			out[i].Speaker = name
		}
	}
	return out
}

// sortedMappingIDs orders mapping keys longest first, then lexicographically,
// for deterministic substitution.
func sortedMappingIDs(mapping transcript.SpeakerMapping) []string {
	ids := make([]string, 0, len(mapping))
	for id := range mapping {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) > len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}
