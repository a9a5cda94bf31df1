package whisper

import (
	"context"
	"log/slog"
	"strings"

	"podscribe/internal/config"
	"podscribe/internal/transcript"
)

const (
	uvxCommand        = "uvx"
	ffmpegCommand     = "ffmpeg"
	whisperCLICommand = "whisper-cli"

	whisperXPackage      = "whisperx"
	whisperXOutputFormat = "json"
	cpuComputeType       = "int8"
)

// Engine produces a time-coded transcription for an audio file.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (*transcript.Transcription, error)
}

// NewEngine selects the transcription engine once at setup time based on
// configuration. The rest of the pipeline never inspects which engine ran.
func NewEngine(cfg *config.Config, logger *slog.Logger) Engine {
	switch strings.ToLower(strings.TrimSpace(cfg.Transcription.Engine)) {
	case "whisper-cli":
		return NewWhisperCLI(cfg, logger)
	default:
		return NewWhisperX(cfg, logger)
	}
}
