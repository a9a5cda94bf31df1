package align

import "podscribe/internal/transcript"

const (
	rotationFirst  = "SPEAKER_01"
	rotationSecond = "SPEAKER_02"
)

// GapRotationAligner approximates diarization when none is available. It
// assumes a two-voice conversation and flips the active speaker whenever the
// silence before a segment exceeds SilenceGap seconds. The rotation starts
// on SPEAKER_01 with the previous end at zero, so an episode that opens with
// a long pause begins on SPEAKER_02.
type GapRotationAligner struct {
	SilenceGap float64
}

// NewGapRotationAligner builds a rotation aligner, substituting a two second
// gap when silenceGap is not positive.
func NewGapRotationAligner(silenceGap float64) GapRotationAligner {
	if silenceGap <= 0 {
		silenceGap = 2.0
	}
	return GapRotationAligner{SilenceGap: silenceGap}
}

// Align labels segments by silence-gap rotation. Diarization turns are
// ignored; the signature matches Aligner so callers can swap strategies.
func (a GapRotationAligner) Align(segments []transcript.Segment, _ []transcript.Turn) []transcript.DiarizedSegment {
	gap := a.SilenceGap
	if gap <= 0 {
		gap = 2.0
	}
	speaker := rotationFirst
	prevEnd := 0.0
	out := make([]transcript.DiarizedSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.Start-prevEnd > gap {
			if speaker == rotationFirst {
				speaker = rotationSecond
			} else {
				speaker = rotationFirst
			}
		}
		out = append(out, transcript.DiarizedSegment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: speaker,
		})
		prevEnd = seg.End
	}
	return out
}
