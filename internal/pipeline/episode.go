package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"podscribe/internal/align"
	"podscribe/internal/feed"
	"podscribe/internal/ledger"
	"podscribe/internal/logging"
	"podscribe/internal/services"
	"podscribe/internal/speakers"
	"podscribe/internal/transcript"
)

// processEpisode drives one episode through the full stage sequence, owning
// its ledger bookkeeping, run accounting, and notifications. Failures stay
// scoped to the episode.
func (p *Pipeline) processEpisode(ctx context.Context, state *runState, podcast *feed.Podcast, episode feed.Episode) {
	logger := p.logger.With(
		logging.String(logging.FieldFeed, podcast.Name),
		logging.String("episode", episode.Title),
		logging.String(logging.FieldRunID, state.runID),
	)

	if p.exporter.HasArtifacts(episode) {
		logger.Info("artifacts already present, skipping episode")
		state.recordSkip()
		return
	}

	record, err := p.store.Register(ctx, state.runID, ledger.Episode{
		Podcast:     podcast.Name,
		EpisodeGUID: episode.GUID,
		Title:       episode.Title,
		Identifier:  episode.Identifier,
		AudioURL:    episode.AudioURL,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error("failed to register episode", logging.Error(err))
		state.recordFailure(Failure{
			Podcast: podcast.Name,
			Episode: episode.Title,
			Stage:   string(ledger.StatusPending),
			Message: strings.TrimSpace(err.Error()),
		})
		return
	}
	logger = logger.With(logging.Int64(logging.FieldEpisodeID, record.ID))

	started := p.now()
	if err := p.runStages(ctx, logger, record, podcast, episode, started); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("episode processing canceled")
			return
		}
		p.failEpisode(ctx, logger, state, record, podcast, episode, err)
		return
	}

	if err := p.transition(ctx, record, ledger.StatusCompleted); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error("failed to persist completion", logging.Error(err))
	}
	logger.Info("episode completed", logging.Duration("duration", p.now().Sub(started)))
	state.recordProcessed()
	if err := p.notifier.NotifyEpisodeCompleted(ctx, podcast.Name, episode.Title); err != nil {
		logger.Debug("completion notification failed", logging.Error(err))
	}
}

// runStages executes the stage sequence for a registered episode. The ledger
// record tracks the stage currently in flight so failures can name it.
func (p *Pipeline) runStages(ctx context.Context, logger *slog.Logger, record *ledger.Episode, podcast *feed.Podcast, episode feed.Episode, started time.Time) error {
	stage := func(status ledger.Status, fn func(stageLogger *slog.Logger) error) error {
		if err := p.transition(ctx, record, status); err != nil {
			return err
		}
		stageLogger := logger.With(logging.String(logging.FieldStage, string(status)))
		stageLogger.Info("stage started")
		stageStarted := time.Now()
		if err := fn(stageLogger); err != nil {
			return err
		}
		stageLogger.Info("stage completed", logging.Duration("duration", time.Since(stageStarted)))
		return nil
	}

	var audioPath string
	if err := stage(ledger.StatusDownloading, func(*slog.Logger) error {
		var err error
		audioPath, err = p.downloader.Download(ctx, episode)
		return err
	}); err != nil {
		return err
	}

	var (
		wavPath       string
		transcription *transcript.Transcription
	)
	if err := stage(ledger.StatusTranscribing, func(*slog.Logger) error {
		wavPath = audioPath + ".wav"
		if err := p.extractor.Extract(ctx, audioPath, wavPath); err != nil {
			wavPath = ""
			return err
		}
		var err error
		transcription, err = p.engine.Transcribe(ctx, wavPath)
		if err != nil {
			return err
		}
		if len(transcription.Segments) == 0 {
			return services.Wrap(services.ErrTranscription, "transcribing", p.engine.Name(),
				"Transcription produced no segments", nil)
		}
		return nil
	}); err != nil {
		removeQuietly(wavPath)
		return err
	}
	defer removeQuietly(wavPath)

	var (
		segments []transcript.DiarizedSegment
		diarized bool
	)
	if err := stage(ledger.StatusAligning, func(stageLogger *slog.Logger) error {
		var turns []transcript.Turn
		if p.diarizer.Enabled() {
			var err error
			turns, err = p.diarizer.Diarize(ctx, wavPath)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				stageLogger.Warn("diarization failed, falling back to gap rotation", logging.Error(err))
			} else {
				diarized = true
			}
		}
		var aligned []transcript.DiarizedSegment
		if diarized {
			aligned = align.OverlapAligner{}.Align(transcription.Segments, turns)
		} else {
			aligned = align.NewGapRotationAligner(p.cfg.Alignment.SilenceGapSeconds).Align(transcription.Segments, nil)
		}
		segments = align.Coalesce(aligned, p.cfg.Alignment.MergeGapSeconds)
		return nil
	}); err != nil {
		return err
	}

	var naming namingResult
	if err := stage(ledger.StatusNaming, func(stageLogger *slog.Logger) error {
		var err error
		naming, err = p.resolveSpeakers(ctx, stageLogger, segments, oracleMetadata(podcast, episode))
		return err
	}); err != nil {
		return err
	}

	if err := stage(ledger.StatusExporting, func(*slog.Logger) error {
		if err := p.exporter.WriteRaw(episode, transcription); err != nil {
			return err
		}
		if err := p.exporter.WriteDiarized(episode, segments); err != nil {
			return err
		}
		named := speakers.ApplyMapping(segments, naming.mapping)
		if err := p.exporter.WriteEnhanced(episode, named, naming.mapping); err != nil {
			return err
		}
		language := strings.TrimSpace(transcription.Language)
		if language == "" {
			language = p.cfg.Transcription.Language
		}
		processing := map[string]any{
			"transcribed_date":         p.now().UTC().Format(time.RFC3339),
			"model_used":               p.cfg.Transcription.Model,
			"language_detected":        language,
			"device_used":              p.cfg.Transcription.Device,
			"diarization_enabled":      diarized,
			"naming_provider":          naming.provider,
			"processing_time_seconds":  roundSeconds(p.now().Sub(started)),
			"speaker_mappings_applied": naming.identified,
		}
		return p.exporter.WriteMetadata(podcast, episode, processing)
	}); err != nil {
		return err
	}

	return nil
}

// transition persists the episode's new status and mirrors it on the record
// so failure reporting can name the stage in flight.
func (p *Pipeline) transition(ctx context.Context, record *ledger.Episode, status ledger.Status) error {
	if err := p.store.SetStatus(ctx, record.ID, status); err != nil {
		return err
	}
	record.Status = status
	return nil
}

func (p *Pipeline) failEpisode(ctx context.Context, logger *slog.Logger, state *runState, record *ledger.Episode, podcast *feed.Podcast, episode feed.Episode, stageErr error) {
	stage := string(record.Status)
	message := strings.TrimSpace(stageErr.Error())
	logger.Error("episode failed",
		logging.String(logging.FieldStage, stage),
		logging.String("category", services.Classify(stageErr)),
		logging.Error(stageErr),
	)
	if err := p.store.MarkFailed(ctx, record.ID, message); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("run canceled before failure could be persisted")
		} else {
			logger.Error("failed to persist episode failure", logging.Error(err))
		}
	}
	state.recordFailure(Failure{
		Podcast: podcast.Name,
		Episode: episode.Title,
		Stage:   stage,
		Message: message,
	})
	if err := p.notifier.NotifyEpisodeFailed(ctx, podcast.Name, episode.Title, stageErr); err != nil {
		logger.Debug("failure notification failed", logging.Error(err))
	}
}

type namingResult struct {
	mapping  transcript.SpeakerMapping
	provider string
	// identified is true only when the oracle produced the mapping; fallback
	// names keep episodes moving but do not count as identification.
	identified bool
}

// resolveSpeakers asks the configured identifier for display names and
// degrades to the deterministic namer on any failure. It only returns an
// error when the context is canceled; naming never fails an episode.
func (p *Pipeline) resolveSpeakers(ctx context.Context, logger *slog.Logger, segments []transcript.DiarizedSegment, meta speakers.Metadata) (namingResult, error) {
	ids := transcript.Speakers(segments)
	if len(ids) == 0 {
		return namingResult{provider: "none"}, nil
	}

	sample := p.sampler.Sample(segments)
	contextText := speakers.BuildContext(sample)
	mapping, err := p.identifier.Identify(ctx, contextText, ids, meta)
	if err == nil && len(mapping) > 0 {
		logger.Info("speakers identified",
			logging.Int("mappings", len(mapping)),
			logging.String("provider", p.provider),
		)
		return namingResult{
			mapping:    mapping,
			provider:   p.provider,
			identified: p.provider != "fallback",
		}, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return namingResult{}, ctx.Err()
		}
		logger.Warn("speaker identification failed, using fallback names", logging.Error(err))
	} else {
		logger.Info("identifier returned no mappings, using fallback names")
	}

	fallback, _ := speakers.FallbackNamer{}.Identify(ctx, contextText, ids, meta)
	return namingResult{mapping: fallback, provider: "fallback"}, nil
}

// oracleMetadata assembles the episode descriptors handed to the naming
// oracle, preferring the richest description available.
func oracleMetadata(podcast *feed.Podcast, episode feed.Episode) speakers.Metadata {
	description := strings.TrimSpace(episode.Description)
	if description == "" {
		description = strings.TrimSpace(episode.Summary)
	}
	if description == "" && podcast != nil {
		description = strings.TrimSpace(podcast.Description)
	}
	name := episode.PodcastName
	if name == "" && podcast != nil {
		name = podcast.Name
	}
	return speakers.Metadata{
		PodcastName:  name,
		EpisodeTitle: episode.Title,
		Description:  description,
		Hosts:        episode.Hosts,
	}
}

func removeQuietly(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
