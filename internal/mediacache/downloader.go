// Package mediacache downloads remote media into the local cache directory.
package mediacache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"curator/internal/logging"
)

// Downloader fetches media files into a per-item cache directory. Downloads
// land in a temp file first and are renamed into place, so a partial download
// never masquerades as cached media. Re-fetching an already cached file is a
// no-op, keeping the media phase idempotent.
type Downloader struct {
	dir        string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option adjusts downloader construction.
type Option func(*Downloader)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Downloader) { d.httpClient = hc }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) { d.logger = logger }
}

// New returns a downloader caching into dir.
func New(dir string, opts ...Option) *Downloader {
	d := &Downloader{
		dir:        dir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(logging.String(logging.FieldComponent, "mediacache"))
	return d
}

// Fetch downloads rawURL as media file number index for the item and returns
// the cached path.
func (d *Downloader) Fetch(ctx context.Context, itemID string, index int, rawURL string) (string, error) {
	dest := d.destPath(itemID, index, rawURL)
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("mediacache: create item dir: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("mediacache: build request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mediacache: download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mediacache: download %s: server returned %d", rawURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return "", fmt.Errorf("mediacache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("mediacache: write %s: %w", dest, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("mediacache: sync %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("mediacache: close %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("mediacache: finalize %s: %w", dest, err)
	}
	d.logger.Debug("cached media file",
		logging.String(logging.FieldItemID, itemID),
		logging.String("path", dest))
	return dest, nil
}

// destPath places media under <dir>/<itemID>/media_<index><ext>, taking the
// extension from the URL path and falling back to .bin.
func (d *Downloader) destPath(itemID string, index int, rawURL string) string {
	ext := ".bin"
	if parsed, err := url.Parse(rawURL); err == nil {
		if e := strings.ToLower(path.Ext(parsed.Path)); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	return filepath.Join(d.dir, itemID, fmt.Sprintf("media_%d%s", index, ext))
}
