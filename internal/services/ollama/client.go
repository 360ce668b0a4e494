// Package ollama is a minimal client for a local Ollama server, covering the
// text generation and vision description calls the pipeline needs.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"curator/internal/logging"
)

const defaultTimeout = 120 * time.Second

// Client talks to one Ollama server. Requests that fail with transport errors
// or 5xx responses are retried with a fixed backoff.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMaxAttempts sets how many times a request is tried.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the delay between attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func withSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logging.NewNop(),
		maxAttempts: 3,
		backoff:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sleep == nil {
		c.sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	c.logger = c.logger.With(logging.String(logging.FieldComponent, "ollama"))
	return c
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Format string   `json:"format,omitempty"`
	Images []string `json:"images,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs a plain text completion and returns the trimmed response.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	return c.generate(ctx, generateRequest{Model: model, Prompt: prompt})
}

// GenerateJSON runs a completion in JSON mode and decodes the response into
// out. Models occasionally wrap the object in prose even in JSON mode, so the
// first balanced object in the response is used as a fallback.
func (c *Client) GenerateJSON(ctx context.Context, model, prompt string, out any) error {
	text, err := c.generate(ctx, generateRequest{Model: model, Prompt: prompt, Format: "json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}
	extracted, ok := extractJSONObject(text)
	if !ok {
		return fmt.Errorf("ollama: model %s returned no JSON object", model)
	}
	if err := json.Unmarshal([]byte(extracted), out); err != nil {
		return fmt.Errorf("ollama: decode model response: %w", err)
	}
	return nil
}

// Describe sends an image to a vision model along with the prompt and returns
// the textual description.
func (c *Client) Describe(ctx context.Context, model, prompt, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("ollama: read image: %w", err)
	}
	req := generateRequest{
		Model:  model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
	}
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("ollama: encode request: %w", err)
	}
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("retrying request",
				logging.String("model", req.Model),
				logging.Int("attempt", attempt),
				logging.Error(lastErr))
			if err := c.sleep(ctx, c.backoff); err != nil {
				return "", err
			}
		}
		text, retryable, err := c.doGenerate(ctx, payload)
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return "", fmt.Errorf("ollama: generate with %s: %w", req.Model, lastErr)
}

func (c *Client) doGenerate(ctx context.Context, payload []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", true, err
	}
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Response, false, nil
}

// extractJSONObject returns the first balanced top-level JSON object in text.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
