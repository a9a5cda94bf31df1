package whisper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"podscribe/internal/logging"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// toolRunner executes external commands, capturing stderr to a log file under
// the tool log directory so long model invocations stay debuggable.
type toolRunner struct {
	logDir string
	logger *slog.Logger
	run    commandRunner
}

func newToolRunner(logDir string, logger *slog.Logger) *toolRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &toolRunner{logDir: strings.TrimSpace(logDir), logger: logger}
	t.run = t.defaultRun
	return t
}

func (t *toolRunner) defaultRun(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	// Torch 2.6 changed torch.load default to weights_only=true, breaking
	// WhisperX/pyannote. Force legacy behavior so bundled WhisperX binaries
	// can load checkpoints safely.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if err := cmd.Run(); err != nil {
		raw := strings.TrimSpace(stderr.String())
		detailPath := t.writeToolLog(name, args, raw)
		if detailPath != "" {
			t.logger.Warn("external command failed; stderr captured",
				logging.String("tool", name),
				logging.String("detail_log", detailPath))
		}
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

func (t *toolRunner) writeToolLog(name string, args []string, stderr string) string {
	if t == nil || t.logDir == "" {
		return ""
	}
	toolDir := filepath.Join(t.logDir, "tool")
	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		t.logger.Warn("failed to create tool log directory; tool stderr not captured",
			logging.Error(err))
		return ""
	}
	timestamp := time.Now().UTC().Format("20060102T150405.000Z")
	toolName := sanitizeToolName(name)
	if toolName == "" {
		toolName = "tool"
	}
	path := filepath.Join(toolDir, fmt.Sprintf("%s-%s.log", timestamp, toolName))

	command := strings.TrimSpace(strings.Join(append([]string{name}, args...), " "))
	payload := strings.Builder{}
	payload.Grow(len(command) + len(stderr) + 64)
	payload.WriteString("command: ")
	payload.WriteString(command)
	payload.WriteByte('\n')
	payload.WriteString("stderr:\n")
	payload.WriteString(stderr)
	payload.WriteByte('\n')

	if err := os.WriteFile(path, []byte(payload.String()), 0o644); err != nil {
		t.logger.Warn("failed to write tool log; stderr detail lost",
			logging.Error(err))
		return ""
	}
	return path
}

func sanitizeToolName(value string) string {
	value = strings.TrimSpace(filepath.Base(value))
	if value == "" {
		return ""
	}
	value = strings.ToLower(value)
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	return strings.Trim(replacer.Replace(value), "-")
}
