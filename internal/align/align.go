// Package align attaches speaker labels to transcription segments. The
// primary strategy matches segments against diarization turns by overlap;
// a rotation fallback covers runs where diarization is unavailable.
package align

import (
	"math"

	"podscribe/internal/transcript"
)

// Aligner labels each transcription segment with one speaker.
type Aligner interface {
	Align(segments []transcript.Segment, turns []transcript.Turn) []transcript.DiarizedSegment
}

// OverlapAligner assigns each segment the speaker whose diarization turns
// overlap it the longest. Overlap per speaker is accumulated across all of
// that speaker's turns, so a segment spanning several short turns still
// resolves to the dominant voice.
type OverlapAligner struct{}

// Align labels segments by dominant overlap. Segments no turn touches get
// transcript.UnknownSpeaker. Ties resolve to the speaker encountered first
// in turn order.
func (OverlapAligner) Align(segments []transcript.Segment, turns []transcript.Turn) []transcript.DiarizedSegment {
	out := make([]transcript.DiarizedSegment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, transcript.DiarizedSegment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: dominantSpeaker(seg, turns),
		})
	}
	return out
}

func dominantSpeaker(seg transcript.Segment, turns []transcript.Turn) string {
	totals := make(map[string]float64, 4)
	var order []string
	for _, turn := range turns {
		overlap := math.Min(seg.End, turn.End) - math.Max(seg.Start, turn.Start)
		if overlap <= 0 {
			continue
		}
		if _, ok := totals[turn.Speaker]; !ok {
			order = append(order, turn.Speaker)
		}
		totals[turn.Speaker] += overlap
	}
	best := transcript.UnknownSpeaker
	bestOverlap := 0.0
	for _, speaker := range order {
		if totals[speaker] > bestOverlap {
			best = speaker
			bestOverlap = totals[speaker]
		}
	}
	return best
}
