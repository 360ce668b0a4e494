package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for pipeline data.
type Paths struct {
	DataDir          string `toml:"data_dir"`
	KnowledgeBaseDir string `toml:"knowledge_base_dir"`
	MediaCacheDir    string `toml:"media_cache_dir"`
	LogDir           string `toml:"log_dir"`
}

// Ollama contains connection settings for the local model endpoint used for
// categorization and image interpretation.
type Ollama struct {
	BaseURL        string `toml:"base_url"`
	TextModel      string `toml:"text_model"`
	VisionModel    string `toml:"vision_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GitHub contains settings for syncing the knowledge base to a remote repo.
type GitHub struct {
	Enabled   bool   `toml:"enabled"`
	RepoURL   string `toml:"repo_url"`
	Token     string `toml:"token"`
	UserName  string `toml:"user_name"`
	UserEmail string `toml:"user_email"`
}

// Pipeline contains knobs for the phase batch scheduler.
type Pipeline struct {
	MaxParallelItems int    `toml:"max_parallel_items"`
	BookmarksFile    string `toml:"bookmarks_file"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for curator.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Ollama        Ollama        `toml:"ollama"`
	GitHub        GitHub        `toml:"github"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/curator/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("curator.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.MediaCacheDir, c.Paths.LogDir, c.Paths.KnowledgeBaseDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the location of the persisted item catalog.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.json")
}

// UnprocessedIndexPath returns the location of the rebuildable unprocessed-ID index.
func (c *Config) UnprocessedIndexPath() string {
	return filepath.Join(c.Paths.DataDir, "unprocessed_index.json")
}

// CategoriesPath returns the location of the persisted category taxonomy.
func (c *Config) CategoriesPath() string {
	return filepath.Join(c.Paths.DataDir, "categories.json")
}

// StatsReportPath returns the fixed location of the per-run statistics report.
func (c *Config) StatsReportPath() string {
	return filepath.Join(c.Paths.DataDir, "processing_stats.json")
}

// HistoryDBPath returns the location of the run-history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "runs.db")
}

// LockPath returns the location of the catalog lock file guarding against
// concurrent pipeline runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.lock")
}

// GitBinary returns the git executable name used for knowledge base sync.
func (c *Config) GitBinary() string {
	return "git"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
