package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T, sink *[]capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		*sink = append(*sink, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunStarted(context.Background(), "process", 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsMessages(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run started",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunStarted(context.Background(), "process", 4)
			},
			expectTitle:   "Podscribe - Run Started",
			expectMessage: "Started process run with 4 episodes",
			expectTags:    "podscribe,run,started",
		},
		{
			name: "run completed clean",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), "process", 3, 1, 0, 90*time.Second)
			},
			expectTitle:   "Podscribe - Run Complete",
			expectMessage: "process run complete: 3 processed, 1 skipped in 1m30s",
			expectTags:    "podscribe,run,completed",
		},
		{
			name: "run completed with failures",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), "backfill", 2, 0, 1, 5*time.Second)
			},
			expectTitle:   "Podscribe - Run Complete (with errors)",
			expectMessage: "backfill run complete: 2 processed, 0 skipped, 1 failed in 5s",
			expectTags:    "podscribe,run,completed",
		},
		{
			name: "episode completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyEpisodeCompleted(context.Background(), "Security Now", "SN 1041")
			},
			expectTitle:   "Podscribe - Episode Complete",
			expectMessage: "✅ Transcript ready: Security Now - SN 1041",
			expectTags:    "podscribe,episode,completed",
		},
		{
			name: "episode failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyEpisodeFailed(context.Background(), "Security Now", "SN 1041", errors.New("download timed out"))
			},
			expectTitle:    "Podscribe - Episode Failed",
			expectMessage:  "❌ Failed: Security Now - SN 1041\ndownload timed out",
			expectTags:     "podscribe,episode,failed",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured []capturedRequest
			server := captureServer(t, &captured)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if len(captured) != 1 {
				t.Fatalf("expected one request, got %d", len(captured))
			}
			got := captured[0]
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsCategoryToggles(t *testing.T) {
	var captured []capturedRequest
	server := captureServer(t, &captured)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Runs = false
	cfg.Notifications.Episodes = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyRunStarted(ctx, "process", 2); err != nil {
		t.Fatalf("run started: %v", err)
	}
	if err := svc.NotifyRunCompleted(ctx, "process", 2, 0, 0, time.Second); err != nil {
		t.Fatalf("run completed: %v", err)
	}
	if err := svc.NotifyEpisodeCompleted(ctx, "Show", "Episode"); err != nil {
		t.Fatalf("episode completed: %v", err)
	}
	if err := svc.NotifyEpisodeFailed(ctx, "Show", "Episode", errors.New("boom")); err != nil {
		t.Fatalf("episode failed: %v", err)
	}
	if len(captured) != 0 {
		t.Fatalf("expected suppressed events to skip delivery, got %d requests", len(captured))
	}

	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("test notification: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected test notification to bypass toggles, got %d requests", len(captured))
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.NotifyRunStarted(context.Background(), "process", 1)
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
