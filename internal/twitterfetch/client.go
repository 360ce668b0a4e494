// Package twitterfetch retrieves tweet text and media references through the
// unauthenticated syndication CDN endpoint.
package twitterfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"curator/internal/logging"
)

const defaultBaseURL = "https://cdn.syndication.twimg.com"

// Tweet is the subset of tweet data the pipeline caches.
type Tweet struct {
	ID        string
	FullText  string
	URL       string
	MediaURLs []string
}

// Client fetches tweets from the syndication CDN.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option adjusts client construction.
type Option func(*Client)

// WithBaseURL overrides the CDN endpoint.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a syndication CDN client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.String(logging.FieldComponent, "twitterfetch"))
	return c
}

type syndicationResponse struct {
	TypeName string `json:"__typename"`
	Text     string `json:"text"`
	User     struct {
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	Photos []struct {
		URL string `json:"url"`
	} `json:"photos"`
	Video struct {
		Variants []struct {
			Type string `json:"type"`
			Src  string `json:"src"`
		} `json:"variants"`
	} `json:"video"`
}

// FetchTweet retrieves one tweet by numeric ID.
func (c *Client) FetchTweet(ctx context.Context, id string) (*Tweet, error) {
	endpoint := fmt.Sprintf("%s/tweet-result?id=%s&token=%s", c.baseURL, url.QueryEscape(id), syndicationToken(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("twitterfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; curator/1.0)")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitterfetch: fetch %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("twitterfetch: tweet %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitterfetch: fetch %s: server returned %d", id, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("twitterfetch: read response: %w", err)
	}
	var decoded syndicationResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("twitterfetch: decode response: %w", err)
	}
	if decoded.TypeName == "TweetTombstone" {
		return nil, fmt.Errorf("twitterfetch: tweet %s is unavailable", id)
	}
	if decoded.Text == "" {
		return nil, fmt.Errorf("twitterfetch: tweet %s has no text", id)
	}

	tweet := &Tweet{
		ID:        id,
		FullText:  decoded.Text,
		MediaURLs: []string{},
	}
	screenName := decoded.User.ScreenName
	if screenName == "" {
		screenName = "i"
	}
	tweet.URL = fmt.Sprintf("https://x.com/%s/status/%s", screenName, id)
	for _, photo := range decoded.Photos {
		if photo.URL != "" {
			tweet.MediaURLs = append(tweet.MediaURLs, photo.URL)
		}
	}
	for _, variant := range decoded.Video.Variants {
		if variant.Type == "video/mp4" && variant.Src != "" {
			tweet.MediaURLs = append(tweet.MediaURLs, variant.Src)
			break
		}
	}
	return tweet, nil
}

// syndicationToken derives the CDN's expected token from the tweet ID.
func syndicationToken(id string) string {
	n, err := strconv.ParseFloat(id, 64)
	if err != nil {
		return ""
	}
	v := n / 1e15 * math.Pi
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	intPart := int64(v)
	b.WriteString(strconv.FormatInt(intPart, 36))
	frac := v - float64(intPart)
	for i := 0; i < 12 && frac > 0; i++ {
		frac *= 36
		digit := int(frac)
		if digit > 35 {
			digit = 35
		}
		b.WriteByte(digits[digit])
		frac -= float64(digit)
	}
	return strings.ReplaceAll(b.String(), "0", "")
}
