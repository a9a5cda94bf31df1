package speakers

import (
	"strings"

	"podscribe/internal/transcript"
)

// Sampler reduces a speaker-labeled transcript to a bounded excerpt for the
// naming oracle. Long panel shows overflow practical prompt sizes, so the
// sampler keeps the stretches where names are actually spoken: opening
// introductions and speaker handoffs.
//
// Sampling is best effort. It does not guarantee that every speaker appears
// in the excerpt; callers fall back to placeholder names for labels the
// oracle never saw.
type Sampler struct {
	policy Policy
}

// NewSampler builds a sampler, backfilling unset policy thresholds.
func NewSampler(policy Policy) Sampler {
	return Sampler{policy: policy.normalized()}
}

// Sample selects a bounded, chronologically ordered subset of segs.
//
// Shows with at most SmallShowSpeakers distinct labels pass through whole;
// naming simple shows depends on full context. Larger shows are assumed to
// open with an interview block and settle into panel discussion: the excerpt
// keeps the head of each phase plus a three-segment window around each
// speaker transition, capped for the main phase. When the transcript does
// not split into two phases the sampler keeps the head of the show plus a
// window around each speaker's first appearance. The selection is
// de-duplicated and truncated to a hard cap that shrinks when many speakers
// were observed.
func (s Sampler) Sample(segs []transcript.DiarizedSegment) []transcript.DiarizedSegment {
	if len(segs) == 0 {
		return nil
	}
	distinct := len(transcript.Speakers(segs))
	if distinct <= s.policy.SmallShowSpeakers {
		return segs
	}

	cutoff := s.policy.InterviewCutoffSeconds
	if scaled := segs[len(segs)-1].Start * s.policy.InterviewFraction; scaled < cutoff {
		cutoff = scaled
	}
	boundary := 0
	for boundary < len(segs) && segs[boundary].Start <= cutoff {
		boundary++
	}

	selected := make(map[int]struct{})
	if boundary == 0 || boundary == len(segs) {
		s.selectFlat(selected, segs)
	} else {
		selectPhase(selected, segs, 0, boundary, s.policy.InterviewHead, -1)
		selectPhase(selected, segs, boundary, len(segs), s.policy.MainHead, s.policy.MainTransitions)
	}

	limit := s.policy.CapFewSpeakers
	if distinct > s.policy.ManySpeakers {
		limit = s.policy.CapManySpeakers
	}
	return collectSelection(segs, selected, limit)
}

// selectFlat covers shows that do not fit the interview/panel shape: the
// opening segments plus a four-segment window around each speaker's first
// appearance.
func (s Sampler) selectFlat(selected map[int]struct{}, segs []transcript.DiarizedSegment) {
	for i := 0; i < s.policy.FallbackHead && i < len(segs); i++ {
		selected[i] = struct{}{}
	}
	seen := make(map[string]struct{}, 8)
	for i, seg := range segs {
		if _, ok := seen[seg.Speaker]; ok {
			continue
		}
		seen[seg.Speaker] = struct{}{}
		lo := i - 1
		if lo < 0 {
			lo = 0
		}
		hi := i + 2
		if hi > len(segs)-1 {
			hi = len(segs) - 1
		}
		for j := lo; j <= hi; j++ {
			selected[j] = struct{}{}
		}
	}
}

// selectPhase marks the first head segments of segs[lo:hi], then a
// three-segment window (previous, transition, next) around each speaker
// transition past the head. The scan starts with an empty previous speaker,
// so the first segment past the head always counts as a transition.
// maxWindows < 0 means unlimited.
func selectPhase(selected map[int]struct{}, segs []transcript.DiarizedSegment, lo, hi, head, maxWindows int) {
	for i := lo; i < lo+head && i < hi; i++ {
		selected[i] = struct{}{}
	}
	prev := ""
	windows := 0
	for i := lo + head; i < hi; i++ {
		if segs[i].Speaker != prev {
			if maxWindows >= 0 && windows >= maxWindows {
				break
			}
			windows++
			for j := i - 1; j <= i+1; j++ {
				if j >= lo && j < hi {
					selected[j] = struct{}{}
				}
			}
		}
		prev = segs[i].Speaker
	}
}

type sampleKey struct {
	start   float64
	speaker string
	text    string
}

func collectSelection(segs []transcript.DiarizedSegment, selected map[int]struct{}, limit int) []transcript.DiarizedSegment {
	out := make([]transcript.DiarizedSegment, 0, len(selected))
	seen := make(map[sampleKey]struct{}, len(selected))
	for i, seg := range segs {
		if _, ok := selected[i]; !ok {
			continue
		}
		key := sampleKey{start: seg.Start, speaker: seg.Speaker, text: seg.Text}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, seg)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// BuildContext renders sampled segments as one excerpt line per segment,
// "[MM:SS] SPEAKER_00: text". Segments with blank text are skipped. Minutes
// are not wrapped, so a mention two hours in reads [122:40].
func BuildContext(segs []transcript.DiarizedSegment) string {
	var b strings.Builder
	for _, seg := range segs {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(transcript.FormatMinutes(seg.Start))
		b.WriteString("] ")
		b.WriteString(seg.Speaker)
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
