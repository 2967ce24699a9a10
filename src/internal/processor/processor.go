package processor

import (
	"fmt"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
)

// Processor transforms or filters one entry
type Processor interface {
	// Name identifies the processor in diagnostics
	Name() string

	// Process returns the entry to forward and true, or false to drop it.
	// Implementations that modify the entry work on a clone.
	Process(entry core.LogEntry) (core.LogEntry, bool, error)

	// GetStats returns processor counters
	GetStats() map[string]any
}

// New creates a processor from its configuration
func New(cfg config.ProcessorConfig, logger *log.Logger) (Processor, error) {
	switch cfg.Type {
	case "resource":
		return NewResource(cfg.Name, cfg.Resource, logger)
	case "filter":
		return NewFilter(cfg.Name, cfg.Filter, logger)
	case "batch":
		return NewBatch(cfg.Name, cfg.Batch, logger)
	case "transform":
		return NewTransform(cfg.Name, cfg.Transform, logger)
	default:
		return nil, fmt.Errorf("%w: unknown processor type: %s", core.ErrConfiguration, cfg.Type)
	}
}
