package service

import (
	"fmt"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"
	"lognarrator/src/internal/version"

	"github.com/lixenwraith/log"
)

// Collector is the entry point used by the process bootstrap
type Collector struct {
	config   *config.Config
	pipeline *Pipeline
	logger   *log.Logger
}

// New creates a collector for a validated configuration
func New(cfg *config.Config, logger *log.Logger) (*Collector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is nil", core.ErrConfiguration)
	}
	return &Collector{
		config:   cfg,
		pipeline: NewPipeline(cfg, logger),
		logger:   logger,
	}, nil
}

// Pipeline exposes the underlying pipeline
func (c *Collector) Pipeline() *Pipeline {
	return c.pipeline
}

func (c *Collector) Start() error {
	c.logger.Info("msg", "Starting collector",
		"component", "collector",
		"version", version.Short(),
		"sources", len(c.config.Sources),
		"processors", len(c.config.Processors),
		"exporters", len(c.config.Exporters))

	if err := c.pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	return nil
}

func (c *Collector) Stop() error {
	if err := c.pipeline.Stop(); err != nil {
		return fmt.Errorf("pipeline stop: %w", err)
	}
	c.logger.Info("msg", "Collector stopped", "component", "collector")
	return nil
}

func (c *Collector) GetStats() map[string]any {
	return map[string]any{
		"version":  version.String(),
		"pipeline": c.pipeline.GetStats(),
	}
}
