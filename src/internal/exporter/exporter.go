package exporter

import (
	"fmt"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
)

// Exporter stores or forwards entries
type Exporter interface {
	// Name identifies the exporter in diagnostics
	Name() string

	// Export enqueues or writes one entry. It fails only for local faults.
	Export(entry core.LogEntry) error

	// Flush delivers anything buffered. It is a no-op on an empty buffer.
	Flush() error

	// Close releases resources. Callers flush first.
	Close() error

	// GetStats returns exporter statistics
	GetStats() ExporterStats
}

// ExporterStats contains statistics about an exporter
type ExporterStats struct {
	Type           string
	Name           string
	TotalExported  uint64
	TotalFailed    uint64
	Buffered       int
	StartTime      time.Time
	LastExportTime time.Time
	Details        map[string]any
}

// New creates an exporter from its configuration
func New(cfg config.ExporterConfig, logger *log.Logger) (Exporter, error) {
	switch cfg.Type {
	case "cloud":
		return NewCloudExporter(cfg.Name, cfg.Cloud, logger)
	case "localcache":
		return NewLocalCacheExporter(cfg.Name, cfg.LocalCache, logger)
	case "database":
		return NewDatabaseExporter(cfg.Name, cfg.Database, logger)
	default:
		return nil, fmt.Errorf("%w: unknown exporter type: %s", core.ErrConfiguration, cfg.Type)
	}
}
