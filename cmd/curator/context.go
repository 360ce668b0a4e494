package main

import (
	"strings"
	"sync"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// openCatalog opens the catalog for read-only commands; log output stays
// quiet so tables render cleanly.
func (c *commandContext) openCatalog() (*catalog.Store, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := catalog.Open(cfg, logging.NewNop())
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
