package main

import (
	"log/slog"
	"os"

	"hls-ingest/internal/audit"
	"hls-ingest/internal/catalog"
	"hls-ingest/internal/ladder"
	"hls-ingest/internal/orchestrator"
	"hls-ingest/internal/platform/config"
	"hls-ingest/internal/platform/logger"
)

// commandContext resolves configuration once per invocation. Flags override
// the environment, which overrides defaults.
type commandContext struct {
	envFile  *string
	root     *string
	catalog  *string
	ffmpeg   *string
	logLevel *string

	cfg    *config.Config
	store  *catalog.FileStore
	logger *slog.Logger
}

func newCommandContext(envFile, root, catalogPath, ffmpeg, logLevel *string) *commandContext {
	return &commandContext{envFile: envFile, root: root, catalog: catalogPath, ffmpeg: ffmpeg, logLevel: logLevel}
}

func (c *commandContext) config() config.Config {
	if c.cfg != nil {
		return *c.cfg
	}
	if *c.envFile != "" {
		_ = config.Load(*c.envFile)
	} else {
		_ = config.Load()
	}
	cfg := config.FromEnv()
	if *c.root != "" {
		cfg.PublishedRoot = *c.root
	}
	if *c.catalog != "" {
		cfg.CatalogPath = *c.catalog
	}
	if *c.ffmpeg != "" {
		cfg.FFmpegPath = *c.ffmpeg
	}
	if *c.logLevel != "" {
		cfg.LogLevel = *c.logLevel
	}
	c.cfg = &cfg
	return cfg
}

func (c *commandContext) log() *slog.Logger {
	if c.logger == nil {
		cfg := c.config()
		c.logger = logger.NewWithWriter(os.Stderr, cfg.LogLevel, "text")
	}
	return c.logger
}

func (c *commandContext) shape() catalog.URLShape {
	cfg := c.config()
	return catalog.URLShape{BaseURL: cfg.PublicBaseURL, Prefix: cfg.PublicPrefix}
}

func (c *commandContext) catalogStore() *catalog.FileStore {
	if c.store == nil {
		c.store = catalog.NewFileStore(c.config().CatalogPath, c.shape())
	}
	return c.store
}

func (c *commandContext) engine() *orchestrator.Engine {
	cfg := c.config()
	return orchestrator.NewEngine(cfg.FFmpegPath, cfg.EngineTimeout)
}

func (c *commandContext) auditor() *audit.Auditor {
	cfg := c.config()
	return audit.New(cfg.PublishedRoot, ladder.Default(), c.catalogStore(),
		audit.WithWorkers(cfg.AuditWorkers),
		audit.WithLogger(c.log()))
}
