// Package transcript defines the data model shared by every stage of the
// pipeline: raw transcription segments, diarization turns, and the
// speaker-annotated segments that flow from alignment through export.
package transcript

// UnknownSpeaker is the sentinel label assigned when no diarization turn
// overlaps a segment.
const UnknownSpeaker = "UNKNOWN"

// Segment is one time-coded span of recognized speech. Segments are produced
// by the transcription engine ordered by start time and non-overlapping.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Turn is one diarization interval: an anonymous speaker label over a time
// range. Turns for different speakers may overlap slightly and are not
// aligned to segment boundaries.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// DiarizedSegment is a Segment annotated with exactly one speaker label.
// OriginalSpeakerID is populated only after a name mapping replaced the raw
// diarization label, preserving it for traceability.
type DiarizedSegment struct {
	Start             float64 `json:"start"`
	End               float64 `json:"end"`
	Text              string  `json:"text"`
	Speaker           string  `json:"speaker"`
	OriginalSpeakerID string  `json:"original_speaker_id,omitempty"`
}

// Transcription is the transcription engine's result envelope.
type Transcription struct {
	Segments []Segment
	Language string
	Text     string
}

// SpeakerMapping maps raw diarization speaker IDs to display names. IDs
// absent from the map stay unresolved.
type SpeakerMapping map[string]string

// Speakers returns the distinct speaker labels of segs in order of first
// appearance.
func Speakers(segs []DiarizedSegment) []string {
	seen := make(map[string]struct{}, 4)
	var out []string
	for _, seg := range segs {
		if _, ok := seen[seg.Speaker]; ok {
			continue
		}
		seen[seg.Speaker] = struct{}{}
		out = append(out, seg.Speaker)
	}
	return out
}
