package feed

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Podcast is the feed-level metadata plus the episodes selected for
// processing.
type Podcast struct {
	Name        string
	Description string
	Author      string
	Language    string
	Categories  []string
	Episodes    []Episode
}

// Episode carries everything the pipeline needs to process one entry:
// identifying attributes, oracle context metadata, and the audio location.
type Episode struct {
	Title       string
	PodcastName string
	Identifier  string
	Number      string
	Season      string
	Published   time.Time
	Duration    int
	Hosts       []string
	Author      string
	Summary     string
	Subtitle    string
	Description string
	Explicit    bool
	Type        string
	Categories  []string
	Language    string
	AudioURL    string
	GUID        string
}

// Identifier patterns in priority order: show-prefixed numbers, episode
// prefixes, hash numbers, then any bare number.
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(SN\s*\d+)`),
	regexp.MustCompile(`(?i)(EP\s*\d+)`),
	regexp.MustCompile(`(#\d+)`),
	regexp.MustCompile(`(\d+)`),
}

var nonWordPattern = regexp.MustCompile(`[^\w]`)

// ExtractIdentifier derives a stable episode identifier from a title, e.g.
// "SN_1041" from "SN 1041: The Quantum Question". When no numbering pattern
// matches, the first three title words are joined with underscores.
func ExtractIdentifier(title string) string {
	for _, pattern := range identifierPatterns {
		if match := pattern.FindString(title); match != "" {
			return strings.ToUpper(strings.ReplaceAll(match, " ", "_"))
		}
	}

	words := strings.Fields(title)
	if len(words) > 3 {
		words = words[:3]
	}
	parts := make([]string, 0, len(words))
	for _, word := range words {
		if cleaned := nonWordPattern.ReplaceAllString(word, ""); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, "_")
}

// ParseDuration converts an itunes:duration value into whole seconds.
// Accepted shapes are bare seconds, MM:SS, and HH:MM:SS; anything else
// yields 0.
func ParseDuration(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if !strings.Contains(value, ":") {
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds < 0 {
			return 0
		}
		return seconds
	}

	parts := strings.Split(value, ":")
	fields := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0
		}
		fields = append(fields, n)
	}
	switch len(fields) {
	case 2:
		return fields[0]*60 + fields[1]
	case 3:
		return fields[0]*3600 + fields[1]*60 + fields[2]
	default:
		return 0
	}
}

var audioExtensions = []string{".mp3", ".wav", ".m4a"}

func hasAudioExtension(rawURL string) bool {
	lowered := strings.ToLower(rawURL)
	if idx := strings.IndexAny(lowered, "?#"); idx >= 0 {
		lowered = lowered[:idx]
	}
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lowered, ext) {
			return true
		}
	}
	return false
}

// audioURL picks the playable audio location from an item's enclosures,
// preferring audio MIME types and falling back to well-known extensions.
func audioURL(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		href := strings.TrimSpace(enclosure.URL)
		if href == "" {
			continue
		}
		if strings.Contains(strings.ToLower(enclosure.Type), "audio") || hasAudioExtension(href) {
			return href
		}
	}
	for _, link := range item.Links {
		if link = strings.TrimSpace(link); link != "" && hasAudioExtension(link) {
			return link
		}
	}
	return ""
}

func itemAuthor(item *gofeed.Item) string {
	if item.ITunesExt != nil && strings.TrimSpace(item.ITunesExt.Author) != "" {
		return strings.TrimSpace(item.ITunesExt.Author)
	}
	if item.Author != nil {
		return strings.TrimSpace(item.Author.Name)
	}
	return ""
}

func itemSummary(item *gofeed.Item) string {
	if item.ITunesExt != nil && strings.TrimSpace(item.ITunesExt.Summary) != "" {
		return strings.TrimSpace(item.ITunesExt.Summary)
	}
	return ""
}

var hostCaser = cases.Title(language.Und)

// hostNames matches the feed's configured host list against the episode's
// author, summary, and description. When nothing matches, the author field
// stands in (unless it just repeats the podcast name). All-lowercase derived
// names are title-cased; mixed case is presumed intentional.
func hostNames(known []string, item *gofeed.Item, podcastName string) []string {
	author := itemAuthor(item)
	haystack := strings.ToLower(author + " " + itemSummary(item) + " " + item.Description)

	hosts := make([]string, 0, len(known))
	for _, host := range known {
		if strings.Contains(haystack, strings.ToLower(host)) {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 && author != "" && !strings.EqualFold(author, podcastName) {
		if author == strings.ToLower(author) {
			author = hostCaser.String(author)
		}
		hosts = append(hosts, author)
	}
	return hosts
}

func itemExplicit(item *gofeed.Item) bool {
	if item.ITunesExt == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(item.ITunesExt.Explicit)) {
	case "true", "yes", "explicit":
		return true
	}
	return false
}

func itemType(item *gofeed.Item) string {
	if item.ITunesExt != nil {
		if episodeType := strings.TrimSpace(item.ITunesExt.EpisodeType); episodeType != "" {
			return episodeType
		}
	}
	return "full"
}

func buildEpisode(podcast *Podcast, item *gofeed.Item, audio string, knownHosts []string) Episode {
	episode := Episode{
		Title:       strings.TrimSpace(item.Title),
		PodcastName: podcast.Name,
		Identifier:  ExtractIdentifier(item.Title),
		Published:   publishedTime(item),
		Hosts:       hostNames(knownHosts, item, podcast.Name),
		Author:      itemAuthor(item),
		Description: strings.TrimSpace(item.Description),
		Explicit:    itemExplicit(item),
		Type:        itemType(item),
		Categories:  item.Categories,
		Language:    podcast.Language,
		AudioURL:    audio,
		GUID:        itemGUID(item),
	}
	if item.ITunesExt != nil {
		episode.Number = strings.TrimSpace(item.ITunesExt.Episode)
		episode.Season = strings.TrimSpace(item.ITunesExt.Season)
		episode.Subtitle = strings.TrimSpace(item.ITunesExt.Subtitle)
		episode.Duration = ParseDuration(item.ITunesExt.Duration)
	}
	episode.Summary = itemSummary(item)
	if episode.Summary == "" {
		episode.Summary = episode.Description
	}
	return episode
}

func publishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func itemGUID(item *gofeed.Item) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	return strings.TrimSpace(item.Link)
}
