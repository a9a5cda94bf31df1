package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podscribe/internal/config"
)

const userAgent = "Podscribe/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyRunStarted(ctx context.Context, mode string, episodes int) error
	NotifyRunCompleted(ctx context.Context, mode string, processed, skipped, failed int, duration time.Duration) error
	NotifyEpisodeCompleted(ctx context.Context, podcast, episode string) error
	NotifyEpisodeFailed(ctx context.Context, podcast, episode string, cause error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		episodes: cfg.Notifications.Episodes,
		runs:     cfg.Notifications.Runs,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	episodes bool
	runs     bool
	errors   bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, mode string, episodes int) error {
	if !n.runs {
		return nil
	}
	mode = strings.TrimSpace(mode)
	if mode == "" {
		mode = "process"
	}
	data := payload{
		title:   "Podscribe - Run Started",
		message: fmt.Sprintf("Started %s run with %d episodes", mode, episodes),
		tags:    []string{"podscribe", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, mode string, processed, skipped, failed int, duration time.Duration) error {
	if !n.runs {
		return nil
	}
	mode = strings.TrimSpace(mode)
	if mode == "" {
		mode = "process"
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if failed == 0 {
		title = "Podscribe - Run Complete"
		message = fmt.Sprintf("%s run complete: %d processed, %d skipped in %s", mode, processed, skipped, durationText)
	} else {
		title = "Podscribe - Run Complete (with errors)"
		message = fmt.Sprintf("%s run complete: %d processed, %d skipped, %d failed in %s", mode, processed, skipped, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"podscribe", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyEpisodeCompleted(ctx context.Context, podcast, episode string) error {
	if !n.episodes {
		return nil
	}
	data := payload{
		title:   "Podscribe - Episode Complete",
		message: fmt.Sprintf("✅ Transcript ready: %s", episodeLabel(podcast, episode)),
		tags:    []string{"podscribe", "episode", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyEpisodeFailed(ctx context.Context, podcast, episode string, cause error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Failed: ")
	builder.WriteString(episodeLabel(podcast, episode))
	if cause != nil {
		builder.WriteString("\n")
		builder.WriteString(strings.TrimSpace(cause.Error()))
	}
	data := payload{
		title:    "Podscribe - Episode Failed",
		message:  builder.String(),
		tags:     []string{"podscribe", "episode", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Podscribe - Test",
		message:  "Notification system test",
		tags:     []string{"podscribe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func episodeLabel(podcast, episode string) string {
	podcast = strings.TrimSpace(podcast)
	episode = strings.TrimSpace(episode)
	switch {
	case podcast == "" && episode == "":
		return "unknown episode"
	case podcast == "":
		return episode
	case episode == "":
		return podcast
	default:
		return fmt.Sprintf("%s - %s", podcast, episode)
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, string, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyEpisodeCompleted(context.Context, string, string) error     { return nil }
func (noopService) NotifyEpisodeFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
