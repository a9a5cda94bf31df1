package speakers

import (
	"reflect"
	"testing"

	"podscribe/internal/transcript"
)

func TestApplyMappingRenamesAndKeepsOriginal(t *testing.T) {
	segs := []transcript.DiarizedSegment{
		{Start: 0, End: 9, Text: "hello world", Speaker: "A"},
	}
	got := ApplyMapping(segs, transcript.SpeakerMapping{"A": "Jane"})
	if got[0].Speaker != "Jane" {
		t.Fatalf("expected speaker Jane, got %s", got[0].Speaker)
	}
	if got[0].OriginalSpeakerID != "A" {
		t.Fatalf("expected original speaker A, got %s", got[0].OriginalSpeakerID)
	}
	if got[0].Text != "hello world" {
		t.Fatalf("text must be untouched when the label never appears in it, got %q", got[0].Text)
	}
}

func TestApplyMappingRewritesTextMentions(t *testing.T) {
	segs := []transcript.DiarizedSegment{
		{Text: "SPEAKER_00 said hi, and speaker_00 laughed", Speaker: "SPEAKER_00"},
	}
	got := ApplyMapping(segs, transcript.SpeakerMapping{"SPEAKER_00": "Leo"})
	if got[0].Text != "Leo said hi, and Leo laughed" {
		t.Fatalf("text substitution failed: %q", got[0].Text)
	}
}

func TestApplyMappingTextPassCoversUnmappedSegments(t *testing.T) {
	segs := []transcript.DiarizedSegment{
		{Text: "back to you, SPEAKER_00", Speaker: "SPEAKER_01"},
	}
	got := ApplyMapping(segs, transcript.SpeakerMapping{"SPEAKER_00": "Leo"})
	if got[0].Text != "back to you, Leo" {
		t.Fatalf("text pass must run for unmapped segments, got %q", got[0].Text)
	}
	if got[0].Speaker != "SPEAKER_01" {
		t.Fatalf("unmapped speaker must stay, got %s", got[0].Speaker)
	}
	if got[0].OriginalSpeakerID != "" {
		t.Fatalf("unmapped segment must not record an original speaker, got %q", got[0].OriginalSpeakerID)
	}
}

func TestApplyMappingRoundTrip(t *testing.T) {
	segs := []transcript.DiarizedSegment{
		{Text: "SPEAKER_00 here", Speaker: "SPEAKER_00"},
		{Text: "hello", Speaker: "SPEAKER_01"},
	}
	mapping := transcript.SpeakerMapping{"SPEAKER_00": "Leo", "SPEAKER_01": "Paris"}
	once := ApplyMapping(segs, mapping)
	twice := ApplyMapping(once, mapping)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("re-applying a mapping must be a no-op: %+v vs %+v", once, twice)
	}
}

func TestApplyMappingEscapesMetacharacters(t *testing.T) {
	segs := []transcript.DiarizedSegment{
		{Text: "label SPEAKER_(1) appeared", Speaker: "SPEAKER_(1)"},
	}
	got := ApplyMapping(segs, transcript.SpeakerMapping{"SPEAKER_(1)": "Ann"})
	if got[0].Text != "label Ann appeared" {
		t.Fatalf("metacharacters must match literally, got %q", got[0].Text)
	}
	if got[0].Speaker != "Ann" {
		t.Fatalf("expected speaker Ann, got %s", got[0].Speaker)
	}
}

func TestApplyMappingLongerLabelsSubstituteFirst(t *testing.T) {
	segs := []transcript.DiarizedSegment{
		{Text: "SPEAKER_10 interrupted SPEAKER_1", Speaker: "SPEAKER_10"},
	}
	mapping := transcript.SpeakerMapping{"SPEAKER_1": "Ann", "SPEAKER_10": "Bob"}
	got := ApplyMapping(segs, mapping)
	if got[0].Text != "Bob interrupted Ann" {
		t.Fatalf("longest-first substitution failed: %q", got[0].Text)
	}
}

func TestApplyMappingDoesNotMutateInput(t *testing.T) {
	segs := []transcript.DiarizedSegment{
		{Text: "SPEAKER_00 speaking", Speaker: "SPEAKER_00"},
	}
	_ = ApplyMapping(segs, transcript.SpeakerMapping{"SPEAKER_00": "Leo"})
	if segs[0].Speaker != "SPEAKER_00" || segs[0].Text != "SPEAKER_00 speaking" {
		t.Fatalf("input slice was mutated: %+v", segs[0])
	}
}

func TestApplyMappingEmptyMapping(t *testing.T) {
	segs := []transcript.DiarizedSegment{{Text: "hello", Speaker: "SPEAKER_00"}}
	got := ApplyMapping(segs, nil)
	if !reflect.DeepEqual(got, segs) {
		t.Fatalf("empty mapping must leave segments unchanged: %+v", got)
	}
}
