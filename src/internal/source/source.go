package source

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
)

// Source produces log entries into a sink channel
type Source interface {
	// Name identifies the source and is stamped on every entry
	Name() string

	// Start begins producing into sink. Sends block until the sink accepts
	// or the source is stopped.
	Start(sink chan<- core.LogEntry) error

	// Stop halts production. No entry is sent after Stop returns.
	Stop() error

	// GetStats returns source statistics
	GetStats() SourceStats
}

// SourceStats contains statistics about a source
type SourceStats struct {
	Type           string
	Name           string
	TotalEntries   uint64
	DroppedEntries uint64
	StartTime      time.Time
	LastEntryTime  time.Time
	Details        map[string]any
}

// New creates a source from its configuration
func New(cfg config.SourceConfig, logger *log.Logger) (Source, error) {
	switch cfg.Type {
	case "file":
		return NewFileSource(cfg.Name, cfg.File, logger)
	case "journald":
		return NewJournaldSource(cfg.Name, cfg.Journald, logger)
	case "docker":
		return NewDockerSource(cfg.Name, cfg.Docker, logger)
	case "http":
		return NewHTTPReceiver(cfg.Name, cfg.HTTP, logger)
	default:
		return nil, fmt.Errorf("%w: unknown source type: %s", core.ErrConfiguration, cfg.Type)
	}
}

// emitter delivers entries to the sink with backpressure and tracks counters
type emitter struct {
	sink          chan<- core.LogEntry
	totalEntries  atomic.Uint64
	lastEntryTime atomic.Value // time.Time
}

func newEmitter() *emitter {
	e := &emitter{}
	e.lastEntryTime.Store(time.Time{})
	return e
}

// emit blocks until the entry is accepted or ctx is done
func (e *emitter) emit(ctx context.Context, entry core.LogEntry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case e.sink <- entry:
		e.totalEntries.Add(1)
		e.lastEntryTime.Store(time.Now())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *emitter) lastEntry() time.Time {
	t, _ := e.lastEntryTime.Load().(time.Time)
	return t
}
