package config

import (
	"errors"
	"fmt"
	"net/url"
)

var supportedNamingProviders = map[string]struct{}{
	"openai":     {},
	"anthropic":  {},
	"openrouter": {},
}

var supportedTranscriptionEngines = map[string]struct{}{
	"":            {},
	"whisperx":    {},
	"whisper-cli": {},
}

// Validate ensures the configuration is usable. Validation failures abort the
// whole run before any episode work starts; a missing oracle API key is not a
// validation failure because naming degrades to the deterministic fallback.
func (c *Config) Validate() error {
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateDiarization(); err != nil {
		return err
	}
	if err := c.validateNaming(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFeeds() error {
	if len(c.Feeds) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/podscribe/config.toml"
		}
		return fmt.Errorf("no feeds configured. Add a [[feeds]] entry to %s (create with 'podscribe config init')", defaultPath)
	}
	enabled := 0
	for i, feed := range c.Feeds {
		if feed.URL == "" {
			return fmt.Errorf("feeds[%d].url must be set", i)
		}
		parsed, err := url.Parse(feed.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("feeds[%d].url %q is not a valid URL", i, feed.URL)
		}
		if feed.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return errors.New("all configured feeds are disabled")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if _, ok := supportedTranscriptionEngines[c.Transcription.Engine]; !ok {
		return fmt.Errorf("transcription.engine %q is not supported (use whisperx or whisper-cli)", c.Transcription.Engine)
	}
	switch c.Transcription.Device {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("transcription.device %q is not supported (use auto, cpu, or cuda)", c.Transcription.Device)
	}
	return nil
}

func (c *Config) validateDiarization() error {
	if !c.Diarization.Enabled {
		return nil
	}
	if c.Diarization.URL != "" {
		parsed, err := url.Parse(c.Diarization.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("diarization.url %q is not a valid URL", c.Diarization.URL)
		}
	}
	if c.Diarization.MinSpeakers > c.Diarization.MaxSpeakers {
		return errors.New("diarization.min_speakers must not exceed diarization.max_speakers")
	}
	return nil
}

func (c *Config) validateNaming() error {
	if _, ok := supportedNamingProviders[c.Naming.Provider]; !ok {
		return fmt.Errorf("naming.provider %q is not supported (use openai, anthropic, or openrouter)", c.Naming.Provider)
	}
	if c.Naming.Temperature < 0 || c.Naming.Temperature > 2 {
		return errors.New("naming.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if c.Alignment.MergeGapSeconds <= 0 {
		return errors.New("alignment.merge_gap_seconds must be positive")
	}
	if c.Alignment.SilenceGapSeconds <= 0 {
		return errors.New("alignment.silence_gap_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSampling() error {
	if err := ensurePositiveMap(map[string]int{
		"sampling.small_show_speakers":      c.Sampling.SmallShowSpeakers,
		"sampling.interview_cutoff_seconds": c.Sampling.InterviewCutoffSeconds,
		"sampling.interview_head":           c.Sampling.InterviewHead,
		"sampling.main_head":                c.Sampling.MainHead,
		"sampling.main_transitions":         c.Sampling.MainTransitions,
		"sampling.fallback_head":            c.Sampling.FallbackHead,
		"sampling.many_speakers":            c.Sampling.ManySpeakers,
		"sampling.cap_many_speakers":        c.Sampling.CapManySpeakers,
		"sampling.cap_few_speakers":         c.Sampling.CapFewSpeakers,
	}); err != nil {
		return err
	}
	if c.Sampling.InterviewFraction <= 0 || c.Sampling.InterviewFraction > 1 {
		return errors.New("sampling.interview_fraction must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateOutput() error {
	for _, format := range c.Output.Formats {
		switch format {
		case "txt", "srt", "json":
		default:
			return fmt.Errorf("output.formats entry %q is not supported (use txt, srt, json)", format)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.workers":                  c.Workflow.Workers,
		"workflow.download_timeout_seconds": c.Workflow.DownloadTimeoutSeconds,
		"notifications.request_timeout":     c.Notifications.RequestTimeout,
		"transcription.timeout_seconds":     c.Transcription.TimeoutSeconds,
		"diarization.timeout_seconds":       c.Diarization.TimeoutSeconds,
		"naming.timeout_seconds":            c.Naming.TimeoutSeconds,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
