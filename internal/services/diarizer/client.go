package diarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/transcript"
)

const (
	diarizePath    = "/diarize"
	healthPath     = "/health"
	defaultTimeout = 30 * time.Minute
)

// Client calls the diarization sidecar, a small HTTP service wrapping the
// speaker-embedding model. The sidecar accepts a WAV upload and returns
// anonymous speaker turns; when it is unreachable the pipeline degrades to
// the silence-gap aligner instead of failing the episode.
type Client struct {
	baseURL     string
	authToken   string
	minSpeakers int
	maxSpeakers int
	enabled     bool
	http        *http.Client
	logger      *slog.Logger
}

// Option customizes a client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient constructs a sidecar client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	d := cfg.Diarization
	timeout := defaultTimeout
	if d.TimeoutSeconds > 0 {
		timeout = time.Duration(d.TimeoutSeconds) * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(d.URL), "/")
	client := &Client{
		baseURL:     baseURL,
		authToken:   strings.TrimSpace(d.AuthToken),
		minSpeakers: d.MinSpeakers,
		maxSpeakers: d.MaxSpeakers,
		enabled:     d.Enabled && baseURL != "",
		http:        &http.Client{Timeout: timeout},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Enabled reports whether the sidecar is configured and turned on.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Diarize uploads the WAV at wavPath and returns the speaker turns.
func (c *Client) Diarize(ctx context.Context, wavPath string) ([]transcript.Turn, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("diarizer client: not configured")
	}
	wavPath = strings.TrimSpace(wavPath)
	if wavPath == "" {
		return nil, fmt.Errorf("diarizer client: empty audio path")
	}

	file, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("diarizer client: open audio: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if c.minSpeakers > 0 {
		if err := writer.WriteField("min_speakers", strconv.Itoa(c.minSpeakers)); err != nil {
			return nil, fmt.Errorf("diarizer client: write min_speakers field: %w", err)
		}
	}
	if c.maxSpeakers > 0 {
		if err := writer.WriteField("max_speakers", strconv.Itoa(c.maxSpeakers)); err != nil {
			return nil, fmt.Errorf("diarizer client: write max_speakers field: %w", err)
		}
	}
	field, err := writer.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, fmt.Errorf("diarizer client: create file field: %w", err)
	}
	if _, err := io.Copy(field, file); err != nil {
		return nil, fmt.Errorf("diarizer client: copy audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("diarizer client: close multipart writer: %w", err)
	}

	start := time.Now()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+diarizePath, body)
	if err != nil {
		return nil, fmt.Errorf("diarizer client: build request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	if c.authToken != "" {
		request.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("diarizer client: http request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("diarizer client: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("diarizer client: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed diarizationResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("diarizer client: decode response: %w", err)
	}
	if len(parsed.Turns) == 0 {
		return nil, fmt.Errorf("diarizer client: response contains no turns")
	}

	turns := make([]transcript.Turn, 0, len(parsed.Turns))
	for _, turn := range parsed.Turns {
		turns = append(turns, transcript.Turn{
			Start:   turn.Start,
			End:     turn.End,
			Speaker: strings.TrimSpace(turn.Speaker),
		})
	}
	c.logger.Debug("diarization complete",
		logging.Int("turns", len(turns)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return turns, nil
}

// Health verifies the sidecar is reachable.
func (c *Client) Health(ctx context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("diarizer client: not configured")
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("diarizer client: build request: %w", err)
	}
	if c.authToken != "" {
		request.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.http.Do(request)
	if err != nil {
		return fmt.Errorf("diarizer client: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("diarizer client: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type diarizationResponse struct {
	Turns []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Speaker string  `json:"speaker"`
	} `json:"turns"`
}
