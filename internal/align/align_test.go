package align

import (
	"reflect"
	"testing"

	"podscribe/internal/transcript"
)

func TestOverlapAlignerPicksDominantSpeaker(t *testing.T) {
	segments := []transcript.Segment{{Start: 0, End: 10, Text: "hello there"}}
	turns := []transcript.Turn{
		{Start: 0, End: 1.0, Speaker: "SPEAKER_00"},
		{Start: 6, End: 6.5, Speaker: "SPEAKER_01"},
	}
	got := OverlapAligner{}.Align(segments, turns)
	if len(got) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(got))
	}
	if got[0].Speaker != "SPEAKER_00" {
		t.Fatalf("expected SPEAKER_00 (1.0s overlap beats 0.5s), got %s", got[0].Speaker)
	}
}

func TestOverlapAlignerAccumulatesAcrossTurns(t *testing.T) {
	segments := []transcript.Segment{{Start: 0, End: 10, Text: "split turns"}}
	turns := []transcript.Turn{
		{Start: 1, End: 2.5, Speaker: "SPEAKER_01"},
		{Start: 0, End: 1, Speaker: "SPEAKER_00"},
		{Start: 5, End: 6, Speaker: "SPEAKER_00"},
	}
	got := OverlapAligner{}.Align(segments, turns)
	if got[0].Speaker != "SPEAKER_00" {
		t.Fatalf("expected SPEAKER_00 (2.0s accumulated beats 1.5s), got %s", got[0].Speaker)
	}
}

func TestOverlapAlignerTieKeepsFirstTurn(t *testing.T) {
	segments := []transcript.Segment{{Start: 0, End: 10, Text: "tie"}}
	turns := []transcript.Turn{
		{Start: 2, End: 3, Speaker: "SPEAKER_01"},
		{Start: 0, End: 1, Speaker: "SPEAKER_00"},
	}
	got := OverlapAligner{}.Align(segments, turns)
	if got[0].Speaker != "SPEAKER_01" {
		t.Fatalf("expected tie to keep first-encountered SPEAKER_01, got %s", got[0].Speaker)
	}
}

func TestOverlapAlignerUnknownWithoutOverlap(t *testing.T) {
	segments := []transcript.Segment{{Start: 0, End: 1, Text: "orphan"}}
	turns := []transcript.Turn{{Start: 5, End: 6, Speaker: "SPEAKER_00"}}
	got := OverlapAligner{}.Align(segments, turns)
	if got[0].Speaker != transcript.UnknownSpeaker {
		t.Fatalf("expected %s, got %s", transcript.UnknownSpeaker, got[0].Speaker)
	}
}

func TestOverlapAlignerTouchingTurnDoesNotCount(t *testing.T) {
	segments := []transcript.Segment{{Start: 1, End: 2, Text: "edge"}}
	turns := []transcript.Turn{{Start: 0, End: 1, Speaker: "SPEAKER_00"}}
	got := OverlapAligner{}.Align(segments, turns)
	if got[0].Speaker != transcript.UnknownSpeaker {
		t.Fatalf("zero-width overlap should stay unknown, got %s", got[0].Speaker)
	}
}

func TestGapRotationTogglesOnSilence(t *testing.T) {
	segments := []transcript.Segment{
		{Start: 0, End: 1, Text: "a"},
		{Start: 1.2, End: 2, Text: "b"},
		{Start: 5, End: 6, Text: "c"},
		{Start: 9, End: 10, Text: "d"},
	}
	got := NewGapRotationAligner(2.0).Align(segments, nil)
	want := []string{"SPEAKER_01", "SPEAKER_01", "SPEAKER_02", "SPEAKER_01"}
	for i, seg := range got {
		if seg.Speaker != want[i] {
			t.Fatalf("segment %d: got %s, want %s", i, seg.Speaker, want[i])
		}
	}
}

func TestGapRotationLateOpeningToggles(t *testing.T) {
	segments := []transcript.Segment{{Start: 3, End: 4, Text: "late"}}
	got := NewGapRotationAligner(2.0).Align(segments, nil)
	if got[0].Speaker != "SPEAKER_02" {
		t.Fatalf("3s of leading silence should toggle to SPEAKER_02, got %s", got[0].Speaker)
	}
}

func TestGapRotationBoundaryGapDoesNotToggle(t *testing.T) {
	segments := []transcript.Segment{
		{Start: 0, End: 1, Text: "a"},
		{Start: 3, End: 4, Text: "b"},
	}
	got := NewGapRotationAligner(2.0).Align(segments, nil)
	if got[1].Speaker != "SPEAKER_01" {
		t.Fatalf("gap of exactly 2.0s must not toggle, got %s", got[1].Speaker)
	}
}

func TestCoalesceMergesAdjacentSameSpeaker(t *testing.T) {
	segments := []transcript.DiarizedSegment{
		{Start: 0, End: 1, Text: "hello", Speaker: "SPEAKER_00"},
		{Start: 1.5, End: 2, Text: " world", Speaker: "SPEAKER_00"},
	}
	got := Coalesce(segments, 2.0)
	want := []transcript.DiarizedSegment{{Start: 0, End: 2, Text: "hello world", Speaker: "SPEAKER_00"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Coalesce = %+v, want %+v", got, want)
	}
}

func TestCoalesceBoundaryGapStaysSplit(t *testing.T) {
	segments := []transcript.DiarizedSegment{
		{Start: 0, End: 1, Text: "hello", Speaker: "SPEAKER_00"},
		{Start: 3, End: 4, Text: "world", Speaker: "SPEAKER_00"},
	}
	got := Coalesce(segments, 2.0)
	if len(got) != 2 {
		t.Fatalf("gap of exactly 2.0s must not merge, got %d segments", len(got))
	}
}

func TestCoalesceRespectsSpeakerBoundary(t *testing.T) {
	segments := []transcript.DiarizedSegment{
		{Start: 0, End: 1, Text: "hello", Speaker: "SPEAKER_00"},
		{Start: 1.1, End: 2, Text: "hi", Speaker: "SPEAKER_01"},
	}
	got := Coalesce(segments, 2.0)
	if len(got) != 2 {
		t.Fatalf("speaker change must not merge, got %d segments", len(got))
	}
}

func TestCoalesceIdempotent(t *testing.T) {
	segments := []transcript.DiarizedSegment{
		{Start: 0, End: 1, Text: "one", Speaker: "SPEAKER_00"},
		{Start: 1.2, End: 2, Text: "two", Speaker: "SPEAKER_00"},
		{Start: 6, End: 7, Text: "three", Speaker: "SPEAKER_00"},
		{Start: 7.5, End: 8, Text: "four", Speaker: "SPEAKER_01"},
	}
	once := Coalesce(segments, 2.0)
	twice := Coalesce(once, 2.0)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("coalesce not idempotent: %+v vs %+v", once, twice)
	}
}

func TestCoalesceEmpty(t *testing.T) {
	if got := Coalesce(nil, 2.0); got != nil {
		t.Fatalf("Coalesce(nil) = %v, want nil", got)
	}
}

func TestAlignThenCoalesce(t *testing.T) {
	segments := []transcript.Segment{
		{Start: 0, End: 1, Text: "hello"},
		{Start: 1.2, End: 2, Text: "world"},
		{Start: 2.5, End: 3.5, Text: "hi back"},
	}
	turns := []transcript.Turn{
		{Start: 0, End: 2.1, Speaker: "SPEAKER_00"},
		{Start: 2.4, End: 3.6, Speaker: "SPEAKER_01"},
	}
	diarized := OverlapAligner{}.Align(segments, turns)
	got := Coalesce(diarized, 2.0)
	if len(got) != 2 {
		t.Fatalf("expected 2 coalesced segments, got %d: %+v", len(got), got)
	}
	if got[0].Text != "hello world" || got[0].Speaker != "SPEAKER_00" {
		t.Fatalf("first segment = %+v", got[0])
	}
	if got[1].Text != "hi back" || got[1].Speaker != "SPEAKER_01" {
		t.Fatalf("second segment = %+v", got[1])
	}
}
