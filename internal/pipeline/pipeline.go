package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/export"
	"podscribe/internal/feed"
	"podscribe/internal/ledger"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/services/diarizer"
	"podscribe/internal/services/oracle"
	"podscribe/internal/services/whisper"
	"podscribe/internal/speakers"
	"podscribe/internal/transcript"
)

// FeedFetcher retrieves a podcast feed and its processable episodes.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedCfg config.Feed) (*feed.Podcast, error)
}

// AudioDownloader stages episode audio on local disk.
type AudioDownloader interface {
	StagedPath(episode feed.Episode) string
	Download(ctx context.Context, episode feed.Episode) (string, error)
}

// AudioExtractor converts staged audio to the WAV layout the transcription
// and diarization services expect.
type AudioExtractor interface {
	Extract(ctx context.Context, source, destination string) error
}

// Diarizer produces anonymous speaker turns for a WAV file.
type Diarizer interface {
	Enabled() bool
	Diarize(ctx context.Context, wavPath string) ([]transcript.Turn, error)
}

// Pipeline drives episodes through download, transcription, alignment,
// naming, and export. Construction wires the production collaborators;
// options replace them in tests.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *ledger.Store
	notifier notifications.Service

	fetcher    FeedFetcher
	downloader AudioDownloader
	extractor  AudioExtractor
	engine     whisper.Engine
	diarizer   Diarizer
	identifier speakers.Identifier
	provider   string
	exporter   *export.Exporter
	sampler    speakers.Sampler

	now func() time.Time
}

// Option overrides a pipeline collaborator, primarily for tests.
type Option func(*Pipeline)

// WithFetcher replaces the RSS feed fetcher.
func WithFetcher(fetcher FeedFetcher) Option {
	return func(p *Pipeline) {
		if fetcher != nil {
			p.fetcher = fetcher
		}
	}
}

// WithDownloader replaces the audio downloader.
func WithDownloader(downloader AudioDownloader) Option {
	return func(p *Pipeline) {
		if downloader != nil {
			p.downloader = downloader
		}
	}
}

// WithExtractor replaces the WAV extractor.
func WithExtractor(extractor AudioExtractor) Option {
	return func(p *Pipeline) {
		if extractor != nil {
			p.extractor = extractor
		}
	}
}

// WithEngine replaces the transcription engine.
func WithEngine(engine whisper.Engine) Option {
	return func(p *Pipeline) {
		if engine != nil {
			p.engine = engine
		}
	}
}

// WithDiarizer replaces the diarization client.
func WithDiarizer(d Diarizer) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.diarizer = d
		}
	}
}

// WithIdentifier replaces the speaker identifier. The provider label is
// recorded in processing metadata when the identifier succeeds.
func WithIdentifier(identifier speakers.Identifier, provider string) Option {
	return func(p *Pipeline) {
		if identifier != nil {
			p.identifier = identifier
			p.provider = provider
		}
	}
}

// WithNotifier replaces the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(p *Pipeline) {
		if notifier != nil {
			p.notifier = notifier
		}
	}
}

// New constructs a pipeline with production collaborators, applying any
// overrides.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		store:   store,
		sampler: speakers.NewSampler(speakers.PolicyFromConfig(cfg.Sampling)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = feed.NewParser(logger)
	}
	if p.downloader == nil {
		p.downloader = feed.NewDownloader(cfg, logger)
	}
	if p.extractor == nil {
		p.extractor = whisper.NewAudioExtractor(cfg, logger)
	}
	if p.engine == nil {
		p.engine = whisper.NewEngine(cfg, logger)
	}
	if p.diarizer == nil {
		p.diarizer = diarizer.NewClient(cfg, logger)
	}
	if p.identifier == nil {
		p.identifier, p.provider = defaultIdentifier(cfg, logger)
	}
	if p.exporter == nil {
		p.exporter = export.NewExporter(cfg, logger)
	}
	if p.notifier == nil {
		p.notifier = notifications.NewService(cfg)
	}
	return p
}

// defaultIdentifier picks the naming oracle when an API key is configured and
// the deterministic fallback namer otherwise.
func defaultIdentifier(cfg *config.Config, logger *slog.Logger) (speakers.Identifier, string) {
	oracleCfg := cfg.GetOracle()
	if oracleCfg.APIKey == "" {
		return speakers.FallbackNamer{}, "fallback"
	}
	client := oracle.NewClient(oracle.Config{
		APIKey:         oracleCfg.APIKey,
		BaseURL:        oracleCfg.BaseURL,
		Model:          oracleCfg.Model,
		Referer:        oracleCfg.Referer,
		Title:          oracleCfg.Title,
		Temperature:    oracleCfg.Temperature,
		MaxTokens:      oracleCfg.MaxTokens,
		TimeoutSeconds: oracleCfg.TimeoutSeconds,
	})
	provider := strings.TrimSpace(cfg.Naming.Provider)
	if provider == "" {
		provider = "openai"
	}
	return speakers.NewOracleIdentifier(client, logger), provider
}

// pause sleeps for the configured inter-episode delay, aborting promptly when
// the run context is canceled.
func (p *Pipeline) pause(ctx context.Context) error {
	seconds := p.cfg.Workflow.PauseSeconds
	if seconds <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
