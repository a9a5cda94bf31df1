package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/feed"
	"podscribe/internal/logging"
	"podscribe/internal/transcript"
)

var testExportTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestExporter(t *testing.T) (*Exporter, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	exporter := NewExporter(&cfg, logging.NewNop())
	exporter.now = func() time.Time { return testExportTime }
	return exporter, &cfg
}

func testEpisode() feed.Episode {
	return feed.Episode{
		Title:       "SN 1041: The Quantum Question",
		PodcastName: "Security Now (Audio)",
		Identifier:  "SN_1041",
	}
}

func readArtifact(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestExporterPaths(t *testing.T) {
	exporter, cfg := newTestExporter(t)
	episode := testEpisode()

	wantDir := filepath.Join(cfg.Paths.OutputDir, "Security_Now__Audio_", "SN_1041__The_Quantum_Question")
	if got := exporter.EpisodeDir(episode); got != wantDir {
		t.Fatalf("EpisodeDir = %q, want %q", got, wantDir)
	}
	if got := exporter.MetadataPath(episode); got != filepath.Join(wantDir, "SN_1041_metadata.json") {
		t.Fatalf("MetadataPath = %q", got)
	}
	if got := exporter.DiarizedJSONPath(episode); got != filepath.Join(wantDir, "SN_1041_diarized.json") {
		t.Fatalf("DiarizedJSONPath = %q", got)
	}

	untitled := feed.Episode{Title: "A Show About Nothing", PodcastName: "Misc"}
	if got := Prefix(untitled); got != "A_Show_About_Nothing" {
		t.Fatalf("Prefix without identifier = %q", got)
	}
}

func TestExporterWriteRaw(t *testing.T) {
	exporter, _ := newTestExporter(t)
	episode := testEpisode()
	transcription := &transcript.Transcription{
		Language: "en",
		Segments: []transcript.Segment{
			{Start: 0, End: 2.5, Text: "Hello there."},
			{Start: 2.5, End: 61.25, Text: "Welcome back to the show."},
		},
	}

	if err := exporter.WriteRaw(episode, transcription); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}

	dir := exporter.EpisodeDir(episode)
	wantText := "[00:00:00] Hello there.\n[00:00:02] Welcome back to the show.\n"
	if got := readArtifact(t, filepath.Join(dir, "SN_1041_raw.txt")); got != wantText {
		t.Fatalf("raw txt = %q, want %q", got, wantText)
	}

	wantSRT := "1\n00:00:00,000 --> 00:00:02,500\nHello there.\n\n" +
		"2\n00:00:02,500 --> 00:01:01,250\nWelcome back to the show.\n\n"
	if got := readArtifact(t, filepath.Join(dir, "SN_1041_raw.srt")); got != wantSRT {
		t.Fatalf("raw srt = %q, want %q", got, wantSRT)
	}

	var doc rawDocument
	if err := json.Unmarshal([]byte(readArtifact(t, filepath.Join(dir, "SN_1041_raw.json"))), &doc); err != nil {
		t.Fatalf("parse raw json: %v", err)
	}
	if doc.Metadata.Type != "raw_transcript" {
		t.Fatalf("raw json type = %q", doc.Metadata.Type)
	}
	if doc.Metadata.Language != "en" || doc.Metadata.NumSegments != 2 {
		t.Fatalf("raw json metadata = %+v", doc.Metadata)
	}
	if doc.Metadata.Duration != 61.25 {
		t.Fatalf("raw json duration = %v, want 61.25", doc.Metadata.Duration)
	}
	if doc.Metadata.ExportTime != "2026-03-01T12:00:00Z" {
		t.Fatalf("raw json export_time = %q", doc.Metadata.ExportTime)
	}
	if len(doc.Segments) != 2 || doc.Segments[1].Text != "Welcome back to the show." {
		t.Fatalf("raw json segments = %+v", doc.Segments)
	}
}

func TestExporterWriteDiarized(t *testing.T) {
	exporter, _ := newTestExporter(t)
	episode := testEpisode()
	segments := []transcript.DiarizedSegment{
		{Start: 0, End: 2.5, Text: "Hello there.", Speaker: "SPEAKER_00"},
		{Start: 2.5, End: 5, Text: "Good to be here.", Speaker: "SPEAKER_01"},
	}

	if err := exporter.WriteDiarized(episode, segments); err != nil {
		t.Fatalf("WriteDiarized: %v", err)
	}

	dir := exporter.EpisodeDir(episode)
	text := readArtifact(t, filepath.Join(dir, "SN_1041_diarized.txt"))
	if !strings.Contains(text, "[00:00:00] SPEAKER_00: Hello there.\n") {
		t.Fatalf("diarized txt missing labeled line: %q", text)
	}
	srt := readArtifact(t, filepath.Join(dir, "SN_1041_diarized.srt"))
	if !strings.Contains(srt, "SPEAKER_01: Good to be here.\n") {
		t.Fatalf("diarized srt missing labeled cue: %q", srt)
	}

	var doc diarizedDocument
	if err := json.Unmarshal([]byte(readArtifact(t, exporter.DiarizedJSONPath(episode))), &doc); err != nil {
		t.Fatalf("parse diarized json: %v", err)
	}
	if doc.Metadata.Type != "diarized_transcript" || doc.Metadata.NumSegments != 2 {
		t.Fatalf("diarized json metadata = %+v", doc.Metadata)
	}
	if doc.Segments[0].Speaker != "SPEAKER_00" {
		t.Fatalf("diarized json segments = %+v", doc.Segments)
	}
}

func TestExporterWriteEnhanced(t *testing.T) {
	exporter, _ := newTestExporter(t)
	episode := testEpisode()
	segments := []transcript.DiarizedSegment{
		{Start: 0, End: 2.5, Text: "Hello there.", Speaker: "Steve Gibson", OriginalSpeakerID: "SPEAKER_00"},
	}
	mapping := transcript.SpeakerMapping{"SPEAKER_00": "Steve Gibson"}

	if err := exporter.WriteEnhanced(episode, segments, mapping); err != nil {
		t.Fatalf("WriteEnhanced: %v", err)
	}

	dir := exporter.EpisodeDir(episode)
	text := readArtifact(t, filepath.Join(dir, "SN_1041_enhanced.txt"))
	if !strings.Contains(text, "[00:00:00] Steve Gibson: Hello there.\n") {
		t.Fatalf("enhanced txt missing named line: %q", text)
	}

	var doc enhancedDocument
	if err := json.Unmarshal([]byte(readArtifact(t, filepath.Join(dir, "SN_1041_enhanced.json"))), &doc); err != nil {
		t.Fatalf("parse enhanced json: %v", err)
	}
	if doc.Metadata.Type != "llm_enhanced_transcript" {
		t.Fatalf("enhanced json type = %q", doc.Metadata.Type)
	}
	if doc.Metadata.SpeakerMappings["SPEAKER_00"] != "Steve Gibson" {
		t.Fatalf("enhanced json mappings = %+v", doc.Metadata.SpeakerMappings)
	}
	if doc.Segments[0].OriginalSpeakerID != "SPEAKER_00" {
		t.Fatalf("enhanced json segments = %+v", doc.Segments)
	}
}

func TestExporterEnhancedRecordsEmptyMapping(t *testing.T) {
	exporter, _ := newTestExporter(t)
	episode := testEpisode()
	segments := []transcript.DiarizedSegment{
		{Start: 0, End: 1, Text: "Solo remark.", Speaker: "SPEAKER_00"},
	}

	if err := exporter.WriteEnhanced(episode, segments, nil); err != nil {
		t.Fatalf("WriteEnhanced: %v", err)
	}

	raw := readArtifact(t, filepath.Join(exporter.EpisodeDir(episode), "SN_1041_enhanced.json"))
	if !strings.Contains(raw, `"speaker_mappings": {}`) {
		t.Fatalf("enhanced json should record an empty mapping object: %s", raw)
	}
}

func TestExporterHonorsFormatSelection(t *testing.T) {
	exporter, cfg := newTestExporter(t)
	cfg.Output.Formats = []string{"json"}
	episode := testEpisode()

	transcription := &transcript.Transcription{
		Segments: []transcript.Segment{{Start: 0, End: 1, Text: "Only JSON."}},
	}
	if err := exporter.WriteRaw(episode, transcription); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}

	dir := exporter.EpisodeDir(episode)
	if _, err := os.Stat(filepath.Join(dir, "SN_1041_raw.json")); err != nil {
		t.Fatalf("expected json artifact: %v", err)
	}
	for _, name := range []string{"SN_1041_raw.txt", "SN_1041_raw.srt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("unexpected %s artifact, stat err %v", name, err)
		}
	}
}

func TestExporterHasArtifacts(t *testing.T) {
	exporter, _ := newTestExporter(t)
	episode := testEpisode()

	if exporter.HasArtifacts(episode) {
		t.Fatal("HasArtifacts should be false before any write")
	}
	segments := []transcript.DiarizedSegment{{Start: 0, End: 1, Text: "hi", Speaker: "SPEAKER_00"}}
	if err := exporter.WriteDiarized(episode, segments); err != nil {
		t.Fatalf("WriteDiarized: %v", err)
	}
	if !exporter.HasArtifacts(episode) {
		t.Fatal("HasArtifacts should be true after a write")
	}
}

func TestExporterFindDiarized(t *testing.T) {
	exporter, _ := newTestExporter(t)
	segments := []transcript.DiarizedSegment{{Start: 0, End: 1, Text: "hi", Speaker: "SPEAKER_00"}}

	first := testEpisode()
	second := feed.Episode{Title: "EP 7: Origins", PodcastName: "Other Show", Identifier: "EP_7"}
	for _, episode := range []feed.Episode{second, first} {
		if err := exporter.WriteDiarized(episode, segments); err != nil {
			t.Fatalf("WriteDiarized: %v", err)
		}
	}

	found, err := exporter.FindDiarized()
	if err != nil {
		t.Fatalf("FindDiarized: %v", err)
	}
	want := []string{exporter.DiarizedJSONPath(second), exporter.DiarizedJSONPath(first)}
	if len(found) != 2 || found[0] != want[0] || found[1] != want[1] {
		t.Fatalf("FindDiarized = %v, want %v", found, want)
	}
}

func TestExporterFindDiarizedMissingRoot(t *testing.T) {
	exporter, cfg := newTestExporter(t)
	cfg.Paths.OutputDir = filepath.Join(cfg.Paths.OutputDir, "never-created")

	found, err := exporter.FindDiarized()
	if err != nil {
		t.Fatalf("FindDiarized on missing root: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("FindDiarized on missing root = %v", found)
	}
}

func TestReadDiarizedSegments(t *testing.T) {
	exporter, _ := newTestExporter(t)
	episode := testEpisode()
	segments := []transcript.DiarizedSegment{
		{Start: 0, End: 2.5, Text: "Hello there.", Speaker: "SPEAKER_00"},
		{Start: 2.5, End: 5, Text: "Good to be here.", Speaker: "SPEAKER_01"},
	}
	if err := exporter.WriteDiarized(episode, segments); err != nil {
		t.Fatalf("WriteDiarized: %v", err)
	}

	loaded, err := ReadDiarizedSegments(exporter.DiarizedJSONPath(episode))
	if err != nil {
		t.Fatalf("ReadDiarizedSegments: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Speaker != "SPEAKER_01" || loaded[1].Text != "Good to be here." {
		t.Fatalf("ReadDiarizedSegments = %+v", loaded)
	}

	if _, err := ReadDiarizedSegments(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing artifact")
	}

	empty := filepath.Join(t.TempDir(), "empty_diarized.json")
	if err := os.WriteFile(empty, []byte(`{"metadata":{},"segments":[]}`), 0o644); err != nil {
		t.Fatalf("write empty artifact: %v", err)
	}
	if _, err := ReadDiarizedSegments(empty); err == nil {
		t.Fatal("expected error for artifact without segments")
	}
}
