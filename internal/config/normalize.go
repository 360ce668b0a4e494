package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOllama(); err != nil {
		return err
	}
	if err := c.normalizeGitHub(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.KnowledgeBaseDir) == "" {
		c.Paths.KnowledgeBaseDir = defaultKnowledgeBaseDir
	}
	if c.Paths.KnowledgeBaseDir, err = expandPath(c.Paths.KnowledgeBaseDir); err != nil {
		return fmt.Errorf("paths.knowledge_base_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MediaCacheDir) == "" {
		c.Paths.MediaCacheDir = defaultMediaCacheDir
	}
	if c.Paths.MediaCacheDir, err = expandPath(c.Paths.MediaCacheDir); err != nil {
		return fmt.Errorf("paths.media_cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOllama() error {
	if c.Ollama.BaseURL == "" {
		if value, ok := os.LookupEnv("CURATOR_OLLAMA_URL"); ok {
			c.Ollama.BaseURL = value
		}
	}
	c.Ollama.BaseURL = strings.TrimRight(strings.TrimSpace(c.Ollama.BaseURL), "/")
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = defaultOllamaBaseURL
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		c.Ollama.TimeoutSeconds = defaultOllamaTimeout
	}
	return nil
}

func (c *Config) normalizeGitHub() error {
	if c.GitHub.Token == "" {
		if value, ok := os.LookupEnv("CURATOR_GITHUB_TOKEN"); ok {
			c.GitHub.Token = value
		}
	}
	c.GitHub.RepoURL = strings.TrimSpace(c.GitHub.RepoURL)
	if strings.TrimSpace(c.GitHub.UserName) == "" {
		c.GitHub.UserName = defaultGitUserName
	}
	if strings.TrimSpace(c.GitHub.UserEmail) == "" {
		c.GitHub.UserEmail = defaultGitUserEmail
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.MaxParallelItems <= 0 {
		c.Pipeline.MaxParallelItems = defaultMaxParallelItems
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}
