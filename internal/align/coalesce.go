package align

import (
	"strings"

	"podscribe/internal/transcript"
)

// Coalesce merges consecutive segments that share a speaker when the silence
// between them is strictly less than mergeGap seconds. Merged segments keep
// the first start and last end, and their texts join with a single space.
// A gap exactly equal to mergeGap keeps the segments separate, which makes
// the operation idempotent: merged neighbors are always at least mergeGap
// apart.
func Coalesce(segments []transcript.DiarizedSegment, mergeGap float64) []transcript.DiarizedSegment {
	if len(segments) == 0 {
		return nil
	}
	out := make([]transcript.DiarizedSegment, 0, len(segments))
	current := segments[0]
	current.Text = strings.TrimSpace(current.Text)
	for _, seg := range segments[1:] {
		if seg.Speaker == current.Speaker && seg.Start-current.End < mergeGap {
			current.End = seg.End
			current.Text = joinText(current.Text, seg.Text)
			continue
		}
		out = append(out, current)
		current = seg
		current.Text = strings.TrimSpace(current.Text)
	}
	return append(out, current)
}

func joinText(a, b string) string {
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
