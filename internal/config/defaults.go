package config

const (
	defaultOutputDir  = "~/.local/share/podscribe/transcripts"
	defaultStagingDir = "~/.local/share/podscribe/staging"
	defaultLogDir     = "~/.local/share/podscribe/logs"
	defaultDataDir    = "~/.local/share/podscribe/data"

	defaultTranscriptionModel   = "base"
	defaultTranscriptionDevice  = "auto"
	defaultTranscriptionTimeout = 3600

	defaultDiarizationMinSpeakers = 1
	defaultDiarizationMaxSpeakers = 10
	defaultDiarizationTimeout     = 1800

	defaultNamingProvider    = "openai"
	defaultNamingTemperature = 0.1
	defaultNamingMaxTokens   = 4000
	defaultNamingTimeout     = 60
	defaultNamingReferer     = "https://github.com/podscribe/podscribe"
	defaultNamingTitle       = "Podscribe Speaker Naming"

	defaultMergeGapSeconds   = 2.0
	defaultSilenceGapSeconds = 2.0

	defaultSamplingSmallShowSpeakers = 6
	defaultSamplingInterviewCutoff   = 1800
	defaultSamplingFraction          = 0.4
	defaultSamplingInterviewHead     = 30
	defaultSamplingMainHead          = 20
	defaultSamplingMainTransitions   = 15
	defaultSamplingFallbackHead      = 50
	defaultSamplingManySpeakers      = 10
	defaultSamplingCapMany           = 150
	defaultSamplingCapFew            = 200

	defaultWorkers         = 2
	defaultPauseSeconds    = 1
	defaultDownloadTimeout = 600

	defaultNotifyRequestTimeout = 10

	defaultAudioRetentionDays = 30

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

func defaultOutputFormats() []string {
	return []string{"txt", "srt", "json"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			DataDir:    defaultDataDir,
		},
		Transcription: Transcription{
			Model:          defaultTranscriptionModel,
			Device:         defaultTranscriptionDevice,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Diarization: Diarization{
			Enabled:        true,
			MinSpeakers:    defaultDiarizationMinSpeakers,
			MaxSpeakers:    defaultDiarizationMaxSpeakers,
			TimeoutSeconds: defaultDiarizationTimeout,
		},
		Naming: Naming{
			Provider:       defaultNamingProvider,
			Temperature:    defaultNamingTemperature,
			MaxTokens:      defaultNamingMaxTokens,
			TimeoutSeconds: defaultNamingTimeout,
			Referer:        defaultNamingReferer,
			Title:          defaultNamingTitle,
		},
		Alignment: Alignment{
			MergeGapSeconds:   defaultMergeGapSeconds,
			SilenceGapSeconds: defaultSilenceGapSeconds,
		},
		Sampling: Sampling{
			SmallShowSpeakers:      defaultSamplingSmallShowSpeakers,
			InterviewCutoffSeconds: defaultSamplingInterviewCutoff,
			InterviewFraction:      defaultSamplingFraction,
			InterviewHead:          defaultSamplingInterviewHead,
			MainHead:               defaultSamplingMainHead,
			MainTransitions:        defaultSamplingMainTransitions,
			FallbackHead:           defaultSamplingFallbackHead,
			ManySpeakers:           defaultSamplingManySpeakers,
			CapManySpeakers:        defaultSamplingCapMany,
			CapFewSpeakers:         defaultSamplingCapFew,
		},
		Output: Output{
			Formats: defaultOutputFormats(),
		},
		Workflow: Workflow{
			Workers:                defaultWorkers,
			PauseSeconds:           defaultPauseSeconds,
			DownloadTimeoutSeconds: defaultDownloadTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Episodes:       true,
			Runs:           true,
			Errors:         true,
		},
		Retention: Retention{
			AudioRetentionDays: defaultAudioRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
