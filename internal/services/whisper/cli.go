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

// WhisperCLI drives a whisper.cpp binary. It is the lightweight alternative
// for hosts without a Python toolchain; configure transcription.model with a
// ggml model path when using it.
type WhisperCLI struct {
	cfg  config.Transcription
	tool *toolRunner
}

// NewWhisperCLI builds the whisper.cpp engine.
func NewWhisperCLI(cfg *config.Config, logger *slog.Logger) *WhisperCLI {
	return &WhisperCLI{cfg: cfg.Transcription, tool: newToolRunner(cfg.Paths.LogDir, logger)}
}

// Name identifies the engine in logs and metadata.
func (w *WhisperCLI) Name() string { return "whisper-cli" }

// Transcribe runs whisper-cli against audioPath and parses its JSON output.
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) (*transcript.Transcription, error) {
	if w.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(w.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	outBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".whisper"
	start := time.Now()
	w.tool.logger.Debug("starting whisper-cli",
		logging.String("audio", audioPath),
		logging.String("model", w.cfg.Model),
	)
	if err := w.tool.run(ctx, whisperCLICommand, w.buildArgs(audioPath, outBase)...); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribing", "whisper-cli", "whisper.cpp invocation failed", err)
	}
	result, err := loadWhisperCLIResult(outBase + ".json")
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribing", "parse output", "Failed to read whisper.cpp output", err)
	}
	if result.Language == "" {
		result.Language = strings.TrimSpace(w.cfg.Language)
	}
	w.tool.logger.Debug("whisper-cli finished",
		logging.Int("segments", len(result.Segments)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (w *WhisperCLI) buildArgs(audioPath, outBase string) []string {
	args := make([]string, 0, 10)
	if model := strings.TrimSpace(w.cfg.Model); model != "" {
		args = append(args, "-m", model)
	}
	args = append(args,
		"-f", audioPath,
		"-oj",
		"-of", outBase,
	)
	if lang := strings.TrimSpace(w.cfg.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	return args
}

type whisperCLIPayload struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func loadWhisperCLIResult(path string) (*transcript.Transcription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload whisperCLIPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisper.cpp json: %w", err)
	}
	if len(payload.Transcription) == 0 {
		return nil, errors.New("whisper.cpp output contains no segments")
	}
	segments := make([]transcript.Segment, 0, len(payload.Transcription))
	texts := make([]string, 0, len(payload.Transcription))
	for _, entry := range payload.Transcription {
		text := strings.TrimSpace(entry.Text)
		segments = append(segments, transcript.Segment{
			Start: float64(entry.Offsets.From) / 1000,
			End:   float64(entry.Offsets.To) / 1000,
			Text:  text,
		})
		if text != "" {
			texts = append(texts, text)
		}
	}
	return &transcript.Transcription{
		Segments: segments,
		Language: strings.TrimSpace(payload.Result.Language),
		Text:     strings.Join(texts, " "),
	}, nil
}
