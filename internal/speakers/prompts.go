package speakers

import (
	"regexp"
	"strings"
)

const speakerSystemPrompt = `You are an expert at identifying podcast speakers from transcript excerpts.
Use introductions, names spoken in conversation, and the episode metadata to determine the real name behind each anonymous speaker label.
Respond with JSON only, in this exact shape:
{"mappings":[{"speaker_id":"SPEAKER_00","name":"Jane Doe"}]}
Rules:
- Include one entry per label you can identify with reasonable confidence.
- Omit labels you cannot identify; never invent placeholder names.
- Copy speaker_id values exactly as they appear in the transcript.`

var (
	hostsPattern  = regexp.MustCompile(`(?i)<strong>\s*(?:co-?)?hosts?:?\s*</strong>:?\s*([^<]+)`)
	guestsPattern = regexp.MustCompile(`(?i)<strong>\s*guests?:?\s*</strong>:?\s*([^<]+)`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
)

const descriptionLimit = 500

func buildUserPrompt(contextText string, speakers []string, meta Metadata) string {
	var b strings.Builder
	if block := metadataContext(meta); block != "" {
		b.WriteString(block)
		b.WriteString("\n")
	}
	if len(speakers) > 0 {
		b.WriteString("Speaker labels: ")
		b.WriteString(strings.Join(speakers, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString("Transcript sample:\n")
	b.WriteString(contextText)
	return b.String()
}

// metadataContext renders the episode descriptors as prompt lines. Host and
// guest names are pulled from the feed's HTML description when the feed does
// not list hosts explicitly; many networks tag them with <strong> labels.
func metadataContext(meta Metadata) string {
	var lines []string
	if title := strings.TrimSpace(meta.EpisodeTitle); title != "" {
		lines = append(lines, "Episode: "+title)
	}
	if podcast := strings.TrimSpace(meta.PodcastName); podcast != "" {
		lines = append(lines, "Podcast: "+podcast)
	}
	hosts := cleanNames(meta.Hosts)
	if len(hosts) == 0 {
		hosts = extractNames(hostsPattern, meta.Description)
	}
	if len(hosts) > 0 {
		lines = append(lines, "Known Hosts: "+strings.Join(hosts, ", "))
	}
	if guests := extractNames(guestsPattern, meta.Description); len(guests) > 0 {
		lines = append(lines, "Known Guests: "+strings.Join(guests, ", "))
	}
	if desc := plainDescription(meta.Description); desc != "" {
		lines = append(lines, "Description: "+desc)
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func extractNames(pattern *regexp.Regexp, description string) []string {
	var names []string
	for _, match := range pattern.FindAllStringSubmatch(description, -1) {
		names = append(names, splitNames(match[1])...)
	}
	return cleanNames(names)
}

func splitNames(list string) []string {
	list = strings.ReplaceAll(list, " and ", ",")
	list = strings.ReplaceAll(list, "&", ",")
	return strings.Split(list, ",")
}

func cleanNames(names []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// plainDescription strips markup and collapses whitespace, truncating to a
// prompt-friendly length.
func plainDescription(description string) string {
	text := tagPattern.ReplaceAllString(description, " ")
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > descriptionLimit {
		text = strings.TrimSpace(string(runes[:descriptionLimit])) + "..."
	}
	return text
}
