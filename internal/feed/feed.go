package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/services"
)

// Parser fetches and parses subscribed RSS feeds.
type Parser struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewParser constructs a feed parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Parser{
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Fetch retrieves one subscribed feed and returns its podcast metadata plus
// up to MaxEpisodes episodes that carry a playable audio enclosure. Entries
// without audio are logged and skipped, never fatal.
func (p *Parser) Fetch(ctx context.Context, feedCfg config.Feed) (*Podcast, error) {
	parsed, err := p.parser.ParseURLWithContext(feedCfg.URL, ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrAcquisition, "downloading", "parse feed",
			fmt.Sprintf("Failed to fetch feed %q", feedCfg.Name), err)
	}

	podcast := &Podcast{
		Name:        podcastName(parsed, feedCfg),
		Description: strings.TrimSpace(parsed.Description),
		Author:      feedAuthor(parsed),
		Language:    strings.TrimSpace(parsed.Language),
		Categories:  feedCategories(parsed),
	}

	items := parsed.Items
	if feedCfg.MaxEpisodes > 0 && len(items) > feedCfg.MaxEpisodes {
		items = items[:feedCfg.MaxEpisodes]
	}

	for _, item := range items {
		if item == nil {
			continue
		}
		audio := audioURL(item)
		if audio == "" {
			p.logger.Warn("episode has no audio enclosure",
				logging.String("feed", feedCfg.Name),
				logging.String("episode", strings.TrimSpace(item.Title)),
			)
			continue
		}
		podcast.Episodes = append(podcast.Episodes, buildEpisode(podcast, item, audio, feedCfg.Hosts))
	}

	p.logger.Info("feed parsed",
		logging.String("feed", feedCfg.Name),
		logging.String("podcast", podcast.Name),
		logging.Int("episodes", len(podcast.Episodes)),
	)
	return podcast, nil
}

func podcastName(parsed *gofeed.Feed, feedCfg config.Feed) string {
	if name := strings.TrimSpace(parsed.Title); name != "" {
		return name
	}
	if name := strings.TrimSpace(feedCfg.Name); name != "" {
		return name
	}
	return "Unknown Podcast"
}

func feedAuthor(parsed *gofeed.Feed) string {
	if parsed.ITunesExt != nil && strings.TrimSpace(parsed.ITunesExt.Author) != "" {
		return strings.TrimSpace(parsed.ITunesExt.Author)
	}
	if parsed.Author != nil {
		return strings.TrimSpace(parsed.Author.Name)
	}
	return ""
}

func feedCategories(parsed *gofeed.Feed) []string {
	seen := make(map[string]struct{})
	var categories []string
	add := func(category string) {
		category = strings.TrimSpace(category)
		if category == "" {
			return
		}
		key := strings.ToLower(category)
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		categories = append(categories, category)
	}
	for _, category := range parsed.Categories {
		add(category)
	}
	if parsed.ITunesExt != nil {
		for _, category := range parsed.ITunesExt.Categories {
			if category != nil {
				add(category.Text)
			}
		}
	}
	return categories
}
