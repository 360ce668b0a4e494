package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"curator/internal/config"
	"curator/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunStarted(context.Background(), 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run started",
			send: func(svc notifications.Service) error {
				return svc.NotifyRunStarted(context.Background(), 4)
			},
			expectTitle:   "Curator - Run Started",
			expectMessage: "Started pipeline run with 4 pending items",
			expectTags:    "curator,run,started",
		},
		{
			name: "run completed clean",
			send: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), 4, 0, 90*time.Second)
			},
			expectTitle:   "Curator - Run Complete",
			expectMessage: "Pipeline run complete: 4 items processed in 1m30s",
			expectTags:    "curator,run,completed",
		},
		{
			name: "run completed with failures",
			send: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), 3, 1, 2*time.Second)
			},
			expectTitle:   "Curator - Run Complete (with errors)",
			expectMessage: "Pipeline run complete: 3 succeeded, 1 failed in 2s",
			expectTags:    "curator,run,completed",
		},
		{
			name: "validation repairs",
			send: func(svc notifications.Service) error {
				return svc.NotifyValidationRepairs(context.Background(), 2)
			},
			expectTitle:   "Curator - State Repaired",
			expectMessage: "Validator demoted flags on 2 items for reprocessing",
			expectTags:    "curator,validate,repaired",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("catalog write failed"), "run")
			},
			expectTitle:    "Curator - Error",
			expectMessage:  "Error with run: catalog write failed",
			expectTags:     "curator,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}
