package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"podscribe/internal/feed"
	"podscribe/internal/services"
	"podscribe/internal/transcript"
)

type rawMetadata struct {
	ExportTime  string  `json:"export_time"`
	Type        string  `json:"type"`
	Language    string  `json:"language,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	NumSegments int     `json:"num_segments"`
}

type rawDocument struct {
	Metadata rawMetadata          `json:"metadata"`
	Segments []transcript.Segment `json:"segments"`
}

type diarizedMetadata struct {
	ExportTime  string `json:"export_time"`
	Type        string `json:"type"`
	NumSegments int    `json:"num_segments"`
}

type diarizedDocument struct {
	Metadata diarizedMetadata              `json:"metadata"`
	Segments []transcript.DiarizedSegment `json:"segments"`
}

type enhancedMetadata struct {
	ExportTime      string                    `json:"export_time"`
	Type            string                    `json:"type"`
	NumSegments     int                       `json:"num_segments"`
	SpeakerMappings transcript.SpeakerMapping `json:"speaker_mappings"`
}

type enhancedDocument struct {
	Metadata enhancedMetadata              `json:"metadata"`
	Segments []transcript.DiarizedSegment `json:"segments"`
}

// WriteRaw writes the raw transcription artifacts in every enabled format.
func (e *Exporter) WriteRaw(episode feed.Episode, transcription *transcript.Transcription) error {
	segments := transcription.Segments

	if e.cfg.WantsFormat(FormatText) {
		var b strings.Builder
		for _, seg := range segments {
			fmt.Fprintf(&b, "[%s] %s\n", transcript.FormatClock(seg.Start), seg.Text)
		}
		if err := e.write(e.artifactPath(episode, kindRaw, FormatText), b.String()); err != nil {
			return err
		}
	}

	if e.cfg.WantsFormat(FormatSRT) {
		var b strings.Builder
		for i, seg := range segments {
			fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
				i+1, transcript.FormatSRT(seg.Start), transcript.FormatSRT(seg.End), seg.Text)
		}
		if err := e.write(e.artifactPath(episode, kindRaw, FormatSRT), b.String()); err != nil {
			return err
		}
	}

	if e.cfg.WantsFormat(FormatJSON) {
		doc := rawDocument{
			Metadata: rawMetadata{
				ExportTime:  e.now().Format(time.RFC3339),
				Type:        "raw_transcript",
				Language:    transcription.Language,
				Duration:    rawDuration(segments),
				NumSegments: len(segments),
			},
			Segments: segments,
		}
		if err := e.writeJSON(e.artifactPath(episode, kindRaw, FormatJSON), doc); err != nil {
			return err
		}
	}
	return nil
}

// WriteDiarized writes the speaker-labeled transcript artifacts.
func (e *Exporter) WriteDiarized(episode feed.Episode, segments []transcript.DiarizedSegment) error {
	if err := e.writeLabeled(episode, kindDiarized, segments); err != nil {
		return err
	}
	if e.cfg.WantsFormat(FormatJSON) {
		doc := diarizedDocument{
			Metadata: diarizedMetadata{
				ExportTime:  e.now().Format(time.RFC3339),
				Type:        "diarized_transcript",
				NumSegments: len(segments),
			},
			Segments: segments,
		}
		if err := e.writeJSON(e.artifactPath(episode, kindDiarized, FormatJSON), doc); err != nil {
			return err
		}
	}
	return nil
}

// WriteEnhanced writes the name-resolved transcript artifacts. The mapping
// is recorded in the JSON metadata even when empty, so consumers can tell
// "naming ran and found nothing" apart from an absent field.
func (e *Exporter) WriteEnhanced(episode feed.Episode, segments []transcript.DiarizedSegment, mapping transcript.SpeakerMapping) error {
	if err := e.writeLabeled(episode, kindEnhanced, segments); err != nil {
		return err
	}
	if e.cfg.WantsFormat(FormatJSON) {
		if mapping == nil {
			mapping = transcript.SpeakerMapping{}
		}
		doc := enhancedDocument{
			Metadata: enhancedMetadata{
				ExportTime:      e.now().Format(time.RFC3339),
				Type:            "llm_enhanced_transcript",
				NumSegments:     len(segments),
				SpeakerMappings: mapping,
			},
			Segments: segments,
		}
		if err := e.writeJSON(e.artifactPath(episode, kindEnhanced, FormatJSON), doc); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeLabeled(episode feed.Episode, kind string, segments []transcript.DiarizedSegment) error {
	if e.cfg.WantsFormat(FormatText) {
		var b strings.Builder
		for _, seg := range segments {
			fmt.Fprintf(&b, "[%s] %s: %s\n", transcript.FormatClock(seg.Start), seg.Speaker, seg.Text)
		}
		if err := e.write(e.artifactPath(episode, kind, FormatText), b.String()); err != nil {
			return err
		}
	}
	if e.cfg.WantsFormat(FormatSRT) {
		var b strings.Builder
		for i, seg := range segments {
			fmt.Fprintf(&b, "%d\n%s --> %s\n%s: %s\n\n",
				i+1, transcript.FormatSRT(seg.Start), transcript.FormatSRT(seg.End), seg.Speaker, seg.Text)
		}
		if err := e.write(e.artifactPath(episode, kind, FormatSRT), b.String()); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeJSON(path string, doc any) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrExport, "exporting", "encode artifact", "Failed to encode artifact JSON", err)
	}
	return e.write(path, string(payload)+"\n")
}

func rawDuration(segments []transcript.Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].End
}

// ReadDiarizedSegments loads the segments from a diarized JSON artifact.
func ReadDiarizedSegments(path string) ([]transcript.DiarizedSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read diarized artifact: %w", err)
	}
	var doc diarizedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse diarized artifact: %w", err)
	}
	if len(doc.Segments) == 0 {
		return nil, fmt.Errorf("diarized artifact %s contains no segments", path)
	}
	return doc.Segments, nil
}
