package processor

import (
	"errors"
	"fmt"
	"sync/atomic"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
)

// Chain applies processors in declaration order
type Chain struct {
	processors []Processor
	logger     *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalPassed    atomic.Uint64
	totalDropped   atomic.Uint64
	totalErrors    atomic.Uint64
}

// NewChain builds every configured processor
func NewChain(configs []config.ProcessorConfig, logger *log.Logger) (*Chain, error) {
	processors := make([]Processor, 0, len(configs))
	for i, cfg := range configs {
		p, err := New(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("processor[%d] '%s': %w", i, cfg.Name, err)
		}
		processors = append(processors, p)
	}

	logger.Info("msg", "Processor chain created",
		"component", "processor_chain",
		"processor_count", len(processors))
	return NewChainOf(processors, logger), nil
}

// NewChainOf wraps already constructed processors
func NewChainOf(processors []Processor, logger *log.Logger) *Chain {
	return &Chain{processors: processors, logger: logger}
}

// Apply runs the entry through every processor. It stops at the first drop.
// A processor error drops the entry and is returned wrapped in core.ErrProcessor.
func (c *Chain) Apply(entry core.LogEntry) (core.LogEntry, bool, error) {
	c.totalProcessed.Add(1)

	for i, p := range c.processors {
		out, keep, err := p.Process(entry)
		if err != nil {
			c.totalErrors.Add(1)
			if !errors.Is(err, core.ErrProcessor) {
				err = fmt.Errorf("%w: %v", core.ErrProcessor, err)
			}
			return core.LogEntry{}, false, fmt.Errorf("processor[%d] '%s': %w", i, p.Name(), err)
		}
		if !keep {
			c.totalDropped.Add(1)
			c.logger.Debug("msg", "Entry dropped",
				"component", "processor_chain",
				"processor_index", i,
				"processor", p.Name())
			return core.LogEntry{}, false, nil
		}
		entry = out
	}

	c.totalPassed.Add(1)
	return entry, true, nil
}

// Len returns the number of processors
func (c *Chain) Len() int {
	return len(c.processors)
}

// GetStats returns aggregated statistics for the chain
func (c *Chain) GetStats() map[string]any {
	stats := make([]map[string]any, len(c.processors))
	for i, p := range c.processors {
		stats[i] = p.GetStats()
	}

	return map[string]any{
		"processor_count": len(c.processors),
		"total_processed": c.totalProcessed.Load(),
		"total_passed":    c.totalPassed.Load(),
		"total_dropped":   c.totalDropped.Load(),
		"total_errors":    c.totalErrors.Load(),
		"processors":      stats,
	}
}
