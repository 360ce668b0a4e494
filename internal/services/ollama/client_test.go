package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"curator/internal/testsupport"
)

func noSleep() Option {
	return withSleeper(func(ctx context.Context, d time.Duration) error { return nil })
}

func TestGenerateReturnsTrimmedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "llama3.1:8b" || req["stream"] != false {
			t.Errorf("unexpected request: %v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "  hello world \n"})
	}))
	defer srv.Close()

	client := New(srv.URL, noSleep())
	got, err := client.Generate(context.Background(), "llama3.1:8b", "say hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestGenerateJSONExtractsWrappedObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"response": "Sure, here you go: {\"main_category\": \"software\"} Hope that helps!",
		})
	}))
	defer srv.Close()

	client := New(srv.URL, noSleep())
	var out struct {
		Main string `json:"main_category"`
	}
	if err := client.GenerateJSON(context.Background(), "llama3.1:8b", "categorize", &out); err != nil {
		t.Fatalf("generate json: %v", err)
	}
	if out.Main != "software" {
		t.Fatalf("got %q", out.Main)
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	defer srv.Close()

	client := New(srv.URL, noSleep(), WithMaxAttempts(3))
	got, err := client.Generate(context.Background(), "m", "p")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, noSleep(), WithMaxAttempts(3))
	if _, err := client.Generate(context.Background(), "m", "p"); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls)
	}
}

func TestDescribeSendsImagePayload(t *testing.T) {
	var images int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Images []string `json:"images"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		images = len(req.Images)
		json.NewEncoder(w).Encode(map[string]string{"response": "a picture"})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "media_0.jpg")
	testsupport.WriteFile(t, path, "jpeg bytes")
	client := New(srv.URL, noSleep())
	got, err := client.Describe(context.Background(), "llava:13b", "describe this", path)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if got != "a picture" || images != 1 {
		t.Fatalf("got %q with %d images", got, images)
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{`noise {"a":{"b":"}"}} trailing`, `{"a":{"b":"}"}}`, true},
		{`no object here`, "", false},
		{`{"unterminated":`, "", false},
	}
	for _, tc := range cases {
		got, ok := extractJSONObject(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("extract %q = %q, %v", tc.in, got, ok)
		}
	}
}
