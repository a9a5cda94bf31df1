package speakers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"podscribe/internal/logging"
	"podscribe/internal/services/oracle"
	"podscribe/internal/transcript"
)

// OracleIdentifier resolves speaker names by asking a chat completion model.
// It enforces structural validity of the response (well-formed labels,
// non-empty names), not semantic correctness.
type OracleIdentifier struct {
	client *oracle.Client
	logger *slog.Logger
}

// NewOracleIdentifier wraps an oracle client as an Identifier.
func NewOracleIdentifier(client *oracle.Client, logger *slog.Logger) *OracleIdentifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &OracleIdentifier{client: client, logger: logger}
}

// Identify prompts the model with the transcript excerpt and episode
// metadata and parses the returned mapping. Failures are returned to the
// caller, which degrades to fallback naming rather than failing the episode.
func (o *OracleIdentifier) Identify(ctx context.Context, contextText string, speakers []string, meta Metadata) (transcript.SpeakerMapping, error) {
	if strings.TrimSpace(contextText) == "" {
		return nil, errors.New("identify speakers: empty transcript context")
	}
	content, err := o.client.CompleteJSON(ctx, speakerSystemPrompt, buildUserPrompt(contextText, speakers, meta))
	if err != nil {
		return nil, fmt.Errorf("identify speakers: %w", err)
	}
	mapping, err := parseMappingPayload(content)
	if err != nil {
		return nil, fmt.Errorf("identify speakers: %w", err)
	}
	o.logger.Debug("speaker mapping received",
		logging.Int("labels", len(speakers)),
		logging.Int("mappings", len(mapping)))
	return mapping, nil
}

type mappingResponse struct {
	Mappings []struct {
		SpeakerID string `json:"speaker_id"`
		Name      string `json:"name"`
	} `json:"mappings"`
}

// parseMappingPayload accepts the documented {"mappings":[...]} shape and,
// as a tolerance, a flat {"SPEAKER_00":"Name"} object. Entries with
// malformed labels or blank names are dropped; an entirely invalid payload
// is an error.
func parseMappingPayload(content string) (transcript.SpeakerMapping, error) {
	var parsed mappingResponse
	if err := oracle.DecodeJSON(content, &parsed); err == nil && len(parsed.Mappings) > 0 {
		mapping := make(transcript.SpeakerMapping, len(parsed.Mappings))
		for _, entry := range parsed.Mappings {
			id := strings.TrimSpace(entry.SpeakerID)
			name := strings.TrimSpace(entry.Name)
			if !IsSpeakerID(id) || name == "" {
				continue
			}
			mapping[id] = name
		}
		if len(mapping) == 0 {
			return nil, errors.New("no valid mappings in response")
		}
		return mapping, nil
	}

	var flat map[string]string
	if err := oracle.DecodeJSON(content, &flat); err != nil {
		return nil, fmt.Errorf("parse mapping payload: %w", err)
	}
	mapping := make(transcript.SpeakerMapping, len(flat))
	for id, name := range flat {
		id = strings.TrimSpace(id)
		name = strings.TrimSpace(name)
		if !IsSpeakerID(id) || name == "" {
			continue
		}
		mapping[id] = name
	}
	if len(mapping) == 0 {
		return nil, errors.New("no valid mappings in response")
	}
	return mapping, nil
}
