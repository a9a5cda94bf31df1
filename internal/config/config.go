package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	DataDir    string `toml:"data_dir"`
}

// Feed describes one subscribed podcast feed.
type Feed struct {
	Name        string   `toml:"name"`
	URL         string   `toml:"url"`
	MaxEpisodes int      `toml:"max_episodes"`
	Hosts       []string `toml:"hosts"`
	Enabled     *bool    `toml:"enabled"`
}

// IsEnabled reports whether the feed should be processed. Feeds are enabled
// unless explicitly switched off.
func (f Feed) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// Transcription contains configuration for the speech-to-text engine.
type Transcription struct {
	Engine         string `toml:"engine"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	Device         string `toml:"device"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Diarization contains configuration for the speaker-diarization sidecar.
type Diarization struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	MinSpeakers    int    `toml:"min_speakers"`
	MaxSpeakers    int    `toml:"max_speakers"`
	AuthToken      string `toml:"auth_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Naming contains configuration for the speaker-naming oracle.
type Naming struct {
	Provider       string  `toml:"provider"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Alignment contains tolerances for speaker assignment and run merging.
type Alignment struct {
	MergeGapSeconds   float64 `toml:"merge_gap_seconds"`
	SilenceGapSeconds float64 `toml:"silence_gap_seconds"`
}

// Sampling contains the context-sampler thresholds handed to the naming
// oracle path. These are tuned heuristics, not laws; see speakers.Policy.
type Sampling struct {
	SmallShowSpeakers      int     `toml:"small_show_speakers"`
	InterviewCutoffSeconds int     `toml:"interview_cutoff_seconds"`
	InterviewFraction      float64 `toml:"interview_fraction"`
	InterviewHead          int     `toml:"interview_head"`
	MainHead               int     `toml:"main_head"`
	MainTransitions        int     `toml:"main_transitions"`
	FallbackHead           int     `toml:"fallback_head"`
	ManySpeakers           int     `toml:"many_speakers"`
	CapManySpeakers        int     `toml:"cap_many_speakers"`
	CapFewSpeakers         int     `toml:"cap_few_speakers"`
}

// Output contains configuration for artifact writing.
type Output struct {
	Formats []string `toml:"formats"`
}

// Workflow contains batch execution configuration.
type Workflow struct {
	Workers                int `toml:"workers"`
	PauseSeconds           int `toml:"pause_seconds"`
	DownloadTimeoutSeconds int `toml:"download_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Episodes       bool   `toml:"episodes"`
	Runs           bool   `toml:"runs"`
	Errors         bool   `toml:"errors"`
}

// Retention contains cleanup policy for downloaded audio.
type Retention struct {
	AudioRetentionDays int `toml:"audio_retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podscribe.
//
// Configuration sections by subsystem:
//   - Paths: output tree, staging area, logs, and ledger data
//   - Feeds: subscribed podcast feeds ([[feeds]] array)
//   - Transcription: speech-to-text engine selection and model
//   - Diarization: speaker-diarization sidecar endpoint
//   - Naming: speaker-naming oracle connection settings
//   - Alignment: merge-gap and silence-gap tolerances
//   - Sampling: context-sampler thresholds
//   - Output: artifact formats
//   - Workflow: worker pool size, pacing, download timeout
//   - Notifications: ntfy push notification settings
//   - Retention: downloaded-audio cleanup policy
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Feeds         []Feed        `toml:"feeds"`
	Transcription Transcription `toml:"transcription"`
	Diarization   Diarization   `toml:"diarization"`
	Naming        Naming        `toml:"naming"`
	Alignment     Alignment     `toml:"alignment"`
	Sampling      Sampling      `toml:"sampling"`
	Output        Output        `toml:"output"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Retention     Retention     `toml:"retention"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a batch run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		// Best-effort so config load survives temporarily offline storage.
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// LedgerPath returns the SQLite ledger location inside the data directory.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "podscribe.db")
}

// LockPath returns the batch-run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "podscribe.lock")
}

// OracleConfig contains the resolved naming-oracle connection settings.
type OracleConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// GetOracle returns the naming-oracle connection settings with provider
// defaults applied.
func (c *Config) GetOracle() OracleConfig {
	return OracleConfig{
		APIKey:         strings.TrimSpace(c.Naming.APIKey),
		BaseURL:        strings.TrimSpace(c.Naming.BaseURL),
		Model:          strings.TrimSpace(c.Naming.Model),
		Referer:        strings.TrimSpace(c.Naming.Referer),
		Title:          strings.TrimSpace(c.Naming.Title),
		Temperature:    c.Naming.Temperature,
		MaxTokens:      c.Naming.MaxTokens,
		TimeoutSeconds: c.Naming.TimeoutSeconds,
	}
}

// WantsFormat reports whether the given artifact format is enabled.
func (c *Config) WantsFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
