package export

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/feed"
	"podscribe/internal/fileutil"
	"podscribe/internal/logging"
	"podscribe/internal/services"
	"podscribe/internal/textutil"
)

// Artifact formats, matching the output.formats config values.
const (
	FormatText = "txt"
	FormatSRT  = "srt"
	FormatJSON = "json"
)

const (
	kindRaw      = "raw"
	kindDiarized = "diarized"
	kindEnhanced = "enhanced"
)

// Exporter writes transcript artifacts into the per-episode output tree:
// <output_root>/<podcast>/<episode>/<prefix>_{raw,diarized,enhanced}.{txt,srt,json}
// plus <prefix>_metadata.json.
type Exporter struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter constructs an exporter from configuration.
func NewExporter(cfg *config.Config, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Prefix returns the artifact filename prefix for an episode: the stable
// episode identifier, or the sanitized title when no identifier was derived.
func Prefix(episode feed.Episode) string {
	if id := strings.TrimSpace(episode.Identifier); id != "" {
		return id
	}
	return textutil.SanitizeFileName(episode.Title)
}

// EpisodeDir returns the output directory for an episode.
func (e *Exporter) EpisodeDir(episode feed.Episode) string {
	return filepath.Join(e.cfg.Paths.OutputDir,
		textutil.SanitizeFileName(episode.PodcastName),
		textutil.SanitizeFileName(episode.Title))
}

// MetadataPath returns the metadata artifact location for an episode.
func (e *Exporter) MetadataPath(episode feed.Episode) string {
	return filepath.Join(e.EpisodeDir(episode), Prefix(episode)+"_metadata.json")
}

// DiarizedJSONPath returns the diarized JSON artifact location for an episode.
func (e *Exporter) DiarizedJSONPath(episode feed.Episode) string {
	return e.artifactPath(episode, kindDiarized, FormatJSON)
}

func (e *Exporter) artifactPath(episode feed.Episode, kind, format string) string {
	return filepath.Join(e.EpisodeDir(episode), fmt.Sprintf("%s_%s.%s", Prefix(episode), kind, format))
}

// HasArtifacts reports whether any transcript artifact already exists for the
// episode. The orchestrator uses this as its idempotency check: an episode
// with any prior artifact is skipped, not reprocessed.
func (e *Exporter) HasArtifacts(episode feed.Episode) bool {
	for _, kind := range []string{kindRaw, kindDiarized, kindEnhanced} {
		for _, format := range []string{FormatText, FormatSRT, FormatJSON} {
			if _, err := os.Stat(e.artifactPath(episode, kind, format)); err == nil {
				return true
			}
		}
	}
	return false
}

// FindDiarized walks the output tree and returns every diarized JSON
// artifact, sorted by path. Reprocessing uses this to locate episodes whose
// naming can be re-run without redoing transcription.
func (e *Exporter) FindDiarized() ([]string, error) {
	root := e.cfg.Paths.OutputDir
	var artifacts []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if entry == nil && path == root {
				return walkErr
			}
			return nil
		}
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), "_diarized.json") {
			artifacts = append(artifacts, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrExport, "exporting", "scan output", "Failed to walk output directory", err)
	}
	sort.Strings(artifacts)
	return artifacts, nil
}

func (e *Exporter) write(path, content string) error {
	if err := fileutil.WriteAtomic(path, []byte(content), 0o644); err != nil {
		return services.Wrap(services.ErrExport, "exporting", "write artifact",
			fmt.Sprintf("Failed to write %s", filepath.Base(path)), err)
	}
	e.logger.Debug("artifact written", logging.String("path", path))
	return nil
}
