// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"curator/internal/config"
	"curator/internal/logging"
)

// NewConfig returns a validated configuration rooted in a per-test temp
// directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.KnowledgeBaseDir = filepath.Join(root, "kb")
	cfg.Paths.MediaCacheDir = filepath.Join(root, "media")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// NewLogger returns a quiet logger suitable for tests.
func NewLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return logging.NewNop()
}

// WriteFile creates path (and parents) with the given contents.
func WriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
