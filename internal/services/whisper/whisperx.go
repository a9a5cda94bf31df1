package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/services"
	"podscribe/internal/transcript"
)

// WhisperX runs the whisperx CLI through uvx, so the Python toolchain stays
// out of the host environment. Output JSON is written next to the audio file,
// which keeps every artifact of an episode inside its staging directory.
type WhisperX struct {
	cfg  config.Transcription
	tool *toolRunner
}

// NewWhisperX builds the default transcription engine.
func NewWhisperX(cfg *config.Config, logger *slog.Logger) *WhisperX {
	return &WhisperX{cfg: cfg.Transcription, tool: newToolRunner(cfg.Paths.LogDir, logger)}
}

// Name identifies the engine in logs and metadata.
func (w *WhisperX) Name() string { return "whisperx" }

// Transcribe runs whisperx against audioPath and parses its JSON output.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string) (*transcript.Transcription, error) {
	if w.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(w.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	outputDir := filepath.Dir(audioPath)
	start := time.Now()
	w.tool.logger.Debug("starting whisperx",
		logging.String("audio", audioPath),
		logging.String("model", w.cfg.Model),
		logging.String("device", w.deviceArg()),
	)
	if err := w.tool.run(ctx, uvxCommand, w.buildArgs(audioPath, outputDir)...); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribing", "whisperx", "WhisperX invocation failed", err)
	}
	jsonPath := whisperXOutputPath(audioPath, outputDir)
	result, err := loadWhisperXResult(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribing", "parse output", "Failed to read WhisperX output", err)
	}
	if result.Language == "" {
		result.Language = strings.TrimSpace(w.cfg.Language)
	}
	w.tool.logger.Debug("whisperx finished",
		logging.Int("segments", len(result.Segments)),
		logging.String("language", result.Language),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (w *WhisperX) buildArgs(audioPath, outputDir string) []string {
	args := []string{
		whisperXPackage,
		audioPath,
		"--model", w.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", whisperXOutputFormat,
	}
	if w.deviceArg() == "cuda" {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", cpuComputeType)
	}
	if lang := strings.TrimSpace(w.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

// deviceArg maps the configured device to a whisperx flag value. "auto"
// resolves to cpu; CUDA must be requested explicitly because a missing GPU
// fails an hour into a long episode rather than up front.
func (w *WhisperX) deviceArg() string {
	if strings.EqualFold(strings.TrimSpace(w.cfg.Device), "cuda") {
		return "cuda"
	}
	return "cpu"
}

func whisperXOutputPath(audioPath, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(outputDir, base+".json")
}

type whisperXSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
	Language string            `json:"language"`
}

func loadWhisperXResult(path string) (*transcript.Transcription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	if len(payload.Segments) == 0 {
		return nil, errors.New("whisperx output contains no segments")
	}
	segments := make([]transcript.Segment, 0, len(payload.Segments))
	texts := make([]string, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		segments = append(segments, transcript.Segment{Start: seg.Start, End: seg.End, Text: text})
		if text != "" {
			texts = append(texts, text)
		}
	}
	return &transcript.Transcription{
		Segments: segments,
		Language: strings.TrimSpace(payload.Language),
		Text:     strings.Join(texts, " "),
	}, nil
}
