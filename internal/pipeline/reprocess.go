package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"podscribe/internal/export"
	"podscribe/internal/feed"
	"podscribe/internal/ledger"
	"podscribe/internal/logging"
	"podscribe/internal/services"
	"podscribe/internal/speakers"
)

// Reprocess re-runs speaker naming over every diarized transcript already on
// disk. Only enhanced artifacts are rewritten; raw and diarized outputs stay
// untouched. Episodes are paced to respect oracle rate limits.
func (p *Pipeline) Reprocess(ctx context.Context) (*Summary, error) {
	started := p.now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := p.logger.With(logging.String(logging.FieldRunID, runID))

	paths, err := p.exporter.FindDiarized()
	if err != nil {
		return nil, services.Wrap(services.ErrExport, string(ledger.StatusNaming), "scan output",
			"Failed to scan the output directory for diarized transcripts", err)
	}
	state := newRunState(runID, ModeReprocess)
	if len(paths) == 0 {
		logger.Info("no diarized transcripts found, nothing to reprocess")
		return state.snapshot(started, p.now()), nil
	}

	if _, err := p.store.StartRun(ctx, runID, ModeReprocess); err != nil {
		return nil, err
	}
	logger.Info("reprocess started", logging.Int("episodes", len(paths)))
	if err := p.notifier.NotifyRunStarted(ctx, ModeReprocess, len(paths)); err != nil {
		logger.Debug("run start notification failed", logging.Error(err))
	}

	for i, path := range paths {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		p.reprocessOne(ctx, logger, state, path)
	}

	return p.finishRun(ctx, logger, state, started)
}

func (p *Pipeline) reprocessOne(ctx context.Context, logger *slog.Logger, state *runState, diarizedPath string) {
	episode, meta := p.reprocessTarget(diarizedPath)
	episodeLogger := logger.With(
		logging.String(logging.FieldFeed, episode.PodcastName),
		logging.String("episode", episode.Title),
	)

	segments, err := export.ReadDiarizedSegments(diarizedPath)
	if err != nil {
		episodeLogger.Error("failed to load diarized transcript", logging.Error(err))
		state.recordFailure(Failure{
			Podcast: episode.PodcastName,
			Episode: episode.Title,
			Stage:   string(ledger.StatusNaming),
			Message: err.Error(),
		})
		return
	}

	started := p.now()
	naming, err := p.resolveSpeakers(ctx, episodeLogger, segments, meta)
	if err != nil {
		episodeLogger.Debug("reprocess canceled")
		return
	}

	named := speakers.ApplyMapping(segments, naming.mapping)
	if err := p.exporter.WriteEnhanced(episode, named, naming.mapping); err != nil {
		p.recordReprocessFailure(episodeLogger, state, episode, err)
		return
	}
	processing := map[string]any{
		"reprocessed_date":          p.now().UTC().Format(time.RFC3339),
		"reprocessing_time_seconds": roundSeconds(p.now().Sub(started)),
		"naming_provider":           naming.provider,
		"speaker_mappings_applied":  naming.identified,
	}
	if err := p.exporter.MergeProcessing(p.exporter.MetadataPath(episode), processing); err != nil {
		p.recordReprocessFailure(episodeLogger, state, episode, err)
		return
	}

	episodeLogger.Info("enhanced transcript rebuilt",
		logging.Int("mappings", len(naming.mapping)),
		logging.String("provider", naming.provider),
	)
	state.recordProcessed()
}

func (p *Pipeline) recordReprocessFailure(logger *slog.Logger, state *runState, episode feed.Episode, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	logger.Error("reprocess failed", logging.Error(err))
	state.recordFailure(Failure{
		Podcast: episode.PodcastName,
		Episode: episode.Title,
		Stage:   string(ledger.StatusExporting),
		Message: err.Error(),
	})
}

// reprocessTarget reconstructs the episode addressed by a diarized transcript
// path. The persisted metadata document supplies display names and oracle
// context when present; otherwise the sanitized path components stand in.
// Either way the derived identifier keeps artifact paths stable.
func (p *Pipeline) reprocessTarget(diarizedPath string) (feed.Episode, speakers.Metadata) {
	prefix := strings.TrimSuffix(filepath.Base(diarizedPath), "_diarized.json")
	episodeDir := filepath.Dir(diarizedPath)
	episode := feed.Episode{
		Title:       filepath.Base(episodeDir),
		PodcastName: filepath.Base(filepath.Dir(episodeDir)),
		Identifier:  prefix,
	}
	meta := speakers.Metadata{
		PodcastName:  episode.PodcastName,
		EpisodeTitle: episode.Title,
	}

	doc, err := export.ReadMetadata(filepath.Join(episodeDir, prefix+"_metadata.json"))
	if err != nil {
		return episode, meta
	}
	if name := strings.TrimSpace(doc.Podcast.Name); name != "" {
		episode.PodcastName = name
		meta.PodcastName = name
	}
	if title := strings.TrimSpace(doc.Episode.Title); title != "" {
		episode.Title = title
		meta.EpisodeTitle = title
	}
	description := strings.TrimSpace(doc.Episode.Description)
	if description == "" {
		description = strings.TrimSpace(doc.Episode.Summary)
	}
	if description == "" {
		description = strings.TrimSpace(doc.Podcast.Description)
	}
	meta.Description = description
	meta.Hosts = doc.Episode.Hosts
	episode.Hosts = doc.Episode.Hosts
	return episode, meta
}
