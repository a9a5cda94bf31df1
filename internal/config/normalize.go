package config

import (
	"fmt"
	"os"
	"strings"
)

const defaultFeedMaxEpisodes = 5

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFeeds()
	c.normalizeTranscription()
	c.normalizeDiarization()
	c.normalizeNaming()
	c.normalizeOutput()
	c.normalizeWorkflow()
	c.normalizeRetention()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFeeds() {
	for i := range c.Feeds {
		c.Feeds[i].Name = strings.TrimSpace(c.Feeds[i].Name)
		c.Feeds[i].URL = strings.TrimSpace(c.Feeds[i].URL)
		if c.Feeds[i].MaxEpisodes <= 0 {
			c.Feeds[i].MaxEpisodes = defaultFeedMaxEpisodes
		}
		hosts := make([]string, 0, len(c.Feeds[i].Hosts))
		for _, host := range c.Feeds[i].Hosts {
			if trimmed := strings.TrimSpace(host); trimmed != "" {
				hosts = append(hosts, trimmed)
			}
		}
		c.Feeds[i].Hosts = hosts
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.Device = strings.ToLower(strings.TrimSpace(c.Transcription.Device))
	if c.Transcription.Device == "" {
		c.Transcription.Device = defaultTranscriptionDevice
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
}

func (c *Config) normalizeDiarization() {
	c.Diarization.URL = strings.TrimRight(strings.TrimSpace(c.Diarization.URL), "/")
	c.Diarization.AuthToken = strings.TrimSpace(c.Diarization.AuthToken)
	if c.Diarization.AuthToken == "" {
		if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Diarization.AuthToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HUGGINGFACE_TOKEN"); ok {
			c.Diarization.AuthToken = strings.TrimSpace(value)
		}
	}
	if c.Diarization.MinSpeakers <= 0 {
		c.Diarization.MinSpeakers = defaultDiarizationMinSpeakers
	}
	if c.Diarization.MaxSpeakers <= 0 {
		c.Diarization.MaxSpeakers = defaultDiarizationMaxSpeakers
	}
	if c.Diarization.TimeoutSeconds <= 0 {
		c.Diarization.TimeoutSeconds = defaultDiarizationTimeout
	}
}

func (c *Config) normalizeNaming() {
	c.Naming.Provider = strings.ToLower(strings.TrimSpace(c.Naming.Provider))
	if c.Naming.Provider == "" {
		c.Naming.Provider = defaultNamingProvider
	}
	c.Naming.BaseURL = strings.TrimSpace(c.Naming.BaseURL)
	if c.Naming.BaseURL == "" {
		c.Naming.BaseURL = defaultBaseURLForProvider(c.Naming.Provider)
	}
	c.Naming.Model = strings.TrimSpace(c.Naming.Model)
	if c.Naming.Model == "" {
		c.Naming.Model = defaultModelForProvider(c.Naming.Provider)
	}
	c.Naming.APIKey = strings.TrimSpace(c.Naming.APIKey)
	if c.Naming.APIKey == "" {
		if value, ok := os.LookupEnv(apiKeyEnvForProvider(c.Naming.Provider)); ok {
			c.Naming.APIKey = strings.TrimSpace(value)
		}
	}
	c.Naming.Referer = strings.TrimSpace(c.Naming.Referer)
	c.Naming.Title = strings.TrimSpace(c.Naming.Title)
	if c.Naming.Temperature <= 0 {
		c.Naming.Temperature = defaultNamingTemperature
	}
	if c.Naming.MaxTokens <= 0 {
		c.Naming.MaxTokens = defaultNamingMaxTokens
	}
	if c.Naming.TimeoutSeconds <= 0 {
		c.Naming.TimeoutSeconds = defaultNamingTimeout
	}
}

func defaultBaseURLForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "https://api.anthropic.com/v1/chat/completions"
	case "openrouter":
		return "https://openrouter.ai/api/v1/chat/completions"
	default:
		return "https://api.openai.com/v1/chat/completions"
	}
}

func defaultModelForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-3-5-haiku-latest"
	case "openrouter":
		return "google/gemini-3-flash-preview"
	default:
		return "gpt-4o-mini"
	}
}

func apiKeyEnvForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func (c *Config) normalizeOutput() {
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = defaultOutputFormats()
		return
	}
	formats := make([]string, 0, len(c.Output.Formats))
	seen := make(map[string]struct{}, len(c.Output.Formats))
	for _, format := range c.Output.Formats {
		normalized := strings.ToLower(strings.TrimSpace(format))
		if normalized == "text" {
			normalized = "txt"
		}
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		formats = append(formats, normalized)
	}
	if len(formats) == 0 {
		formats = defaultOutputFormats()
	}
	c.Output.Formats = formats
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.PauseSeconds < 0 {
		c.Workflow.PauseSeconds = defaultPauseSeconds
	}
	if c.Workflow.DownloadTimeoutSeconds <= 0 {
		c.Workflow.DownloadTimeoutSeconds = defaultDownloadTimeout
	}
}

func (c *Config) normalizeRetention() {
	if c.Retention.AudioRetentionDays < 0 {
		c.Retention.AudioRetentionDays = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
