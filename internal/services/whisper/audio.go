package whisper

import (
	"context"
	"log/slog"
	"os"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/services"
)

// AudioExtractor converts downloaded episode audio into the 16 kHz mono WAV
// the transcription and diarization models expect.
type AudioExtractor struct {
	tool *toolRunner
}

// NewAudioExtractor builds an extractor that shells out to ffmpeg.
func NewAudioExtractor(cfg *config.Config, logger *slog.Logger) *AudioExtractor {
	return &AudioExtractor{tool: newToolRunner(cfg.Paths.LogDir, logger)}
}

// Extract writes source re-encoded as 16 kHz mono PCM WAV to destination.
func (e *AudioExtractor) Extract(ctx context.Context, source, destination string) error {
	start := time.Now()
	e.tool.logger.Debug("extracting audio",
		logging.String("source_file", source),
		logging.String("destination", destination),
	)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		destination,
	}
	if err := e.tool.run(ctx, ffmpegCommand, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribing", "extract audio", "Failed to convert episode audio with ffmpeg", err)
	}
	attrs := []logging.Attr{
		logging.String("destination", destination),
		logging.Duration("elapsed", time.Since(start)),
	}
	if info, err := os.Stat(destination); err == nil {
		attrs = append(attrs, logging.Float64("size_mb", float64(info.Size())/1_048_576))
	}
	e.tool.logger.Debug("audio extracted", logging.Args(attrs...)...)
	return nil
}
