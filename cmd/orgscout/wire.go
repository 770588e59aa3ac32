package main

import (
	"context"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/compose"
	"github.com/TobiSchelling/orgscout/internal/config"
	"github.com/TobiSchelling/orgscout/internal/database"
	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/fetch"
	"github.com/TobiSchelling/orgscout/internal/interpret"
	"github.com/TobiSchelling/orgscout/internal/llm"
	"github.com/TobiSchelling/orgscout/internal/pipeline"
	"github.com/TobiSchelling/orgscout/internal/synthesize"
	"github.com/TobiSchelling/orgscout/internal/tasks"
)

// components holds everything a command needs for research runs.
type components struct {
	db      *database.DB
	runner  *tasks.Runner
	closers []io.Closer
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i].Close()
	}
}

func dbPath(cfg *config.Config) string {
	return filepath.Join(cfg.GetDataDir(), "orgscout.db")
}

func openDB() (*database.DB, error) {
	return database.Open(dbPath(cfg), logger)
}

// build wires the concrete clients and stages from configuration.
func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	db, err := database.Open(dbPath(cfg), logger)
	if err != nil {
		return nil, err
	}
	c := &components{db: db, closers: []io.Closer{db}}

	provider := llm.CreateProvider(ctx, llm.Settings{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		OllamaURL: cfg.LLM.OllamaURL,
		APIKey:    config.APIKey(cfg.LLM.APIKeyEnv),
		Timeout:   cfg.LLM.Timeout,
	}, logger)
	if closer, ok := provider.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}

	var dirProvider directory.Provider
	if key := config.APIKey(cfg.Directory.APIKeyEnv); key != "" {
		dirProvider = directory.NewHTTPProvider(directory.HTTPConfig{
			BaseURL:           cfg.Directory.BaseURL,
			Host:              cfg.Directory.Host,
			APIKey:            key,
			Timeout:           cfg.Directory.Timeout,
			RequestsPerSecond: cfg.Directory.RequestsPerSecond,
			Burst:             cfg.Directory.Burst,
		}, logger)
	} else {
		logger.Warn("no directory API key; using built-in organization data only",
			zap.String("env", cfg.Directory.APIKeyEnv))
	}

	var cache directory.OrganizationCache
	if addr := cfg.Cache.RedisAddr; addr != "" {
		rc, err := directory.DialRedisCache(ctx, addr, cfg.Cache.TTL)
		if err != nil {
			logger.Warn("organization cache unavailable", zap.Error(err))
		} else {
			cache = rc
			c.closers = append(c.closers, rc)
		}
	}

	dir := directory.New(dirProvider, cache, logger)
	if cfg.Directory.DescribeWebsites {
		dir.WithDescriber(fetch.NewSiteDescriber(cfg.Directory.Timeout))
	}

	p := pipeline.New(
		interpret.New(provider, 0, logger),
		dir,
		synthesize.New(provider, cfg.LLM.MaxTokens, logger),
		compose.New(provider, cfg.LLM.MaxTokens, logger),
		pipeline.Options{SyntheticProfiles: cfg.Directory.SyntheticProfiles},
		logger,
	)
	c.runner = tasks.NewRunner(db, p, logger)
	return c, nil
}
