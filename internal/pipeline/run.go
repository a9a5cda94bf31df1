package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"podscribe/internal/feed"
	"podscribe/internal/ledger"
	"podscribe/internal/logging"
	"podscribe/internal/services"
)

const finishTimeout = 5 * time.Second

// Run fetches every enabled feed and processes its episodes through the full
// stage sequence. Feeds are handled one at a time; episodes within a feed fan
// out to the worker pool. The returned summary is valid even when the run was
// canceled partway, in which case the context error is returned alongside it.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if len(p.cfg.Feeds) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "", "run", "No feeds configured", nil)
	}

	started := p.now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := p.logger.With(logging.String(logging.FieldRunID, runID))
	state := newRunState(runID, ModeProcess)

	if _, err := p.store.StartRun(ctx, runID, ModeProcess); err != nil {
		return nil, err
	}
	if cleared, err := p.store.ResetStale(ctx, "interrupted by shutdown"); err != nil {
		logger.Warn("failed to reset stale ledger rows", logging.Error(err))
	} else if cleared > 0 {
		logger.Info("reset stale ledger rows", logging.Int64("episodes", cleared))
	}

	work := p.fetchFeeds(ctx, logger, state)
	total := 0
	for _, podcast := range work {
		total += len(podcast.Episodes)
	}
	logger.Info("run started",
		logging.Int("feeds", len(work)),
		logging.Int("episodes", total),
		logging.Int("workers", p.workerCount()),
	)
	if err := p.notifier.NotifyRunStarted(ctx, ModeProcess, total); err != nil {
		logger.Debug("run start notification failed", logging.Error(err))
	}

	for _, podcast := range work {
		if ctx.Err() != nil {
			break
		}
		p.processFeed(ctx, state, podcast)
	}

	return p.finishRun(ctx, logger, state, started)
}

// fetchFeeds resolves every enabled feed up front so the run knows its total
// workload. A feed that fails to fetch is recorded as a failure and skipped;
// it never blocks the others.
func (p *Pipeline) fetchFeeds(ctx context.Context, logger *slog.Logger, state *runState) []*feed.Podcast {
	work := make([]*feed.Podcast, 0, len(p.cfg.Feeds))
	for _, feedCfg := range p.cfg.Feeds {
		if ctx.Err() != nil {
			break
		}
		if !feedCfg.IsEnabled() {
			logger.Debug("feed disabled, skipping", logging.String(logging.FieldFeed, feedCfg.Name))
			continue
		}
		podcast, err := p.fetcher.Fetch(ctx, feedCfg)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			logger.Error("feed fetch failed",
				logging.String(logging.FieldFeed, feedCfg.Name),
				logging.Error(err),
			)
			state.recordFailure(Failure{
				Podcast: feedCfg.Name,
				Stage:   string(ledger.StatusDownloading),
				Message: err.Error(),
			})
			continue
		}
		if len(podcast.Episodes) == 0 {
			logger.Info("feed has no processable episodes", logging.String(logging.FieldFeed, feedCfg.Name))
			continue
		}
		logger.Info("feed fetched",
			logging.String(logging.FieldFeed, podcast.Name),
			logging.Int("episodes", len(podcast.Episodes)),
		)
		work = append(work, podcast)
	}
	return work
}

// processFeed fans a feed's episodes out to the worker pool and waits for
// them all to settle.
func (p *Pipeline) processFeed(ctx context.Context, state *runState, podcast *feed.Podcast) {
	ctx = services.WithFeed(ctx, podcast.Name)
	workers := p.workerCount()
	if workers > len(podcast.Episodes) {
		workers = len(podcast.Episodes)
	}

	jobs := make(chan feed.Episode)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for episode := range jobs {
				p.processEpisode(ctx, state, podcast, episode)
			}
		}()
	}

dispatch:
	for _, episode := range podcast.Episodes {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- episode:
		}
	}
	close(jobs)
	wg.Wait()
}

func (p *Pipeline) workerCount() int {
	workers := p.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	return workers
}

// finishRun persists the run outcome and emits the closing notification. It
// uses a detached context so bookkeeping survives cancellation.
func (p *Pipeline) finishRun(ctx context.Context, logger *slog.Logger, state *runState, started time.Time) (*Summary, error) {
	finished := p.now()
	summary := state.snapshot(started, finished)

	finishCtx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	if err := p.store.FinishRun(finishCtx, state.runID, summary.Processed, summary.Skipped, summary.Failed); err != nil {
		logger.Warn("failed to persist run outcome", logging.Error(err))
	}
	if err := p.notifier.NotifyRunCompleted(finishCtx, state.mode, summary.Processed, summary.Skipped, summary.Failed, summary.Duration); err != nil {
		logger.Debug("run completion notification failed", logging.Error(err))
	}

	if ctx.Err() != nil {
		logger.Warn("run canceled",
			logging.Int("processed", summary.Processed),
			logging.Int("skipped", summary.Skipped),
			logging.Int("failed", summary.Failed),
		)
		return summary, ctx.Err()
	}
	logger.Info("run complete",
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}
