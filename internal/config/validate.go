package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOllama(); err != nil {
		return err
	}
	if err := c.validateGitHub(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.KnowledgeBaseDir) == "" {
		return fmt.Errorf("paths.knowledge_base_dir is required")
	}
	if c.Paths.DataDir == c.Paths.KnowledgeBaseDir {
		return fmt.Errorf("paths.data_dir and paths.knowledge_base_dir must differ")
	}
	return nil
}

func (c *Config) validateOllama() error {
	if !strings.HasPrefix(c.Ollama.BaseURL, "http://") && !strings.HasPrefix(c.Ollama.BaseURL, "https://") {
		return fmt.Errorf("ollama.base_url must be an http(s) URL, got %q", c.Ollama.BaseURL)
	}
	if strings.TrimSpace(c.Ollama.TextModel) == "" {
		return fmt.Errorf("ollama.text_model is required")
	}
	if strings.TrimSpace(c.Ollama.VisionModel) == "" {
		return fmt.Errorf("ollama.vision_model is required")
	}
	return nil
}

func (c *Config) validateGitHub() error {
	if !c.GitHub.Enabled {
		return nil
	}
	if c.GitHub.RepoURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/curator/config.toml"
		}
		return fmt.Errorf("github.repo_url is required when github.enabled is true. Edit %s (create with 'curator config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
