package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"podscribe/internal/feed"
	"podscribe/internal/services"
)

const metadataFormatVersion = "1.0"

// PodcastInfo is the feed-level block of the metadata artifact.
type PodcastInfo struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Language    string   `json:"language,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// EpisodeInfo is the episode-level block of the metadata artifact.
type EpisodeInfo struct {
	Title       string   `json:"title,omitempty"`
	Number      string   `json:"number,omitempty"`
	Season      string   `json:"season,omitempty"`
	Identifier  string   `json:"identifier,omitempty"`
	Published   string   `json:"published,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	Hosts       []string `json:"hosts,omitempty"`
	Author      string   `json:"author,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Description string   `json:"description,omitempty"`
	Explicit    bool     `json:"explicit,omitempty"`
	EpisodeType string   `json:"episode_type,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Language    string   `json:"language,omitempty"`
	AudioURL    string   `json:"audio_url,omitempty"`
	GUID        string   `json:"episode_id,omitempty"`
}

// ExportStamp records when and under which layout version the artifact was
// written.
type ExportStamp struct {
	ExportTime    string `json:"export_time"`
	FormatVersion string `json:"format_version"`
}

// MetadataDocument is the persisted <prefix>_metadata.json shape. The
// processing block accumulates across runs: reprocessing merges new keys in
// rather than replacing the object.
type MetadataDocument struct {
	Podcast    PodcastInfo    `json:"podcast"`
	Episode    EpisodeInfo    `json:"episode"`
	Processing map[string]any `json:"processing"`
	Export     ExportStamp    `json:"export"`
}

// ReadMetadata loads a persisted metadata document.
func ReadMetadata(path string) (*MetadataDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var doc MetadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &doc, nil
}

// WriteMetadata writes the metadata artifact for an episode. When a prior
// document exists, its processing block is kept and the new keys are merged
// over it.
func (e *Exporter) WriteMetadata(podcast *feed.Podcast, episode feed.Episode, processing map[string]any) error {
	doc := MetadataDocument{
		Episode: EpisodeInfo{
			Title:       episode.Title,
			Number:      episode.Number,
			Season:      episode.Season,
			Identifier:  episode.Identifier,
			Published:   publishedString(episode.Published),
			Duration:    episode.Duration,
			Hosts:       episode.Hosts,
			Author:      episode.Author,
			Summary:     episode.Summary,
			Subtitle:    episode.Subtitle,
			Description: episode.Description,
			Explicit:    episode.Explicit,
			EpisodeType: episode.Type,
			Categories:  episode.Categories,
			Language:    episode.Language,
			AudioURL:    episode.AudioURL,
			GUID:        episode.GUID,
		},
		Processing: map[string]any{},
		Export: ExportStamp{
			ExportTime:    e.now().Format(time.RFC3339),
			FormatVersion: metadataFormatVersion,
		},
	}
	if podcast != nil {
		doc.Podcast = PodcastInfo{
			Name:        podcast.Name,
			Description: podcast.Description,
			Author:      podcast.Author,
			Language:    podcast.Language,
			Categories:  podcast.Categories,
		}
	}

	path := e.MetadataPath(episode)
	if existing, err := ReadMetadata(path); err == nil && existing.Processing != nil {
		doc.Processing = existing.Processing
	}
	for key, value := range processing {
		doc.Processing[key] = value
	}

	return e.writeJSON(path, &doc)
}

// MergeProcessing merges new processing keys into an existing metadata
// document without touching its podcast and episode blocks. Reprocessing
// uses this so descriptive fields captured at original transcription time
// survive naming re-runs.
func (e *Exporter) MergeProcessing(path string, processing map[string]any) error {
	doc, err := ReadMetadata(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrExport, "exporting", "merge metadata", "Failed to load metadata document", err)
		}
		doc = &MetadataDocument{}
	}
	if doc.Processing == nil {
		doc.Processing = map[string]any{}
	}
	for key, value := range processing {
		doc.Processing[key] = value
	}
	doc.Export = ExportStamp{
		ExportTime:    e.now().Format(time.RFC3339),
		FormatVersion: metadataFormatVersion,
	}
	return e.writeJSON(path, doc)
}

func publishedString(published time.Time) string {
	if published.IsZero() {
		return ""
	}
	return published.Format(time.RFC3339)
}
