package exporter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"
	"lognarrator/src/internal/store"

	"github.com/lixenwraith/log"
)

// maxBufferedBatches bounds the retry buffer while the store is failing
const maxBufferedBatches = 10

// DatabaseExporter buffers entries and persists them to the SQLite store in batches
type DatabaseExporter struct {
	name      string
	store     *store.Store
	batchSize int
	retention time.Duration
	logger    *log.Logger
	now       func() time.Time

	mu     sync.Mutex
	buffer []core.LogEntry

	// Statistics
	totalExported atomic.Uint64
	totalFailed   atomic.Uint64
	totalDropped  atomic.Uint64
	totalBatches  atomic.Uint64
	totalPurged   atomic.Int64
	startTime     time.Time
	lastExport    atomic.Value // time.Time
}

// NewDatabaseExporter opens the store at the configured path
func NewDatabaseExporter(name string, opts *config.DatabaseExporterOptions, logger *log.Logger) (*DatabaseExporter, error) {
	if opts == nil {
		return nil, fmt.Errorf("database exporter options cannot be nil")
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("database exporter '%s': %w", name, err)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = core.DefaultDatabaseBatchSize
	}
	retention := time.Duration(opts.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = core.DefaultDatabaseRetention
	}

	d := &DatabaseExporter{
		name:      name,
		store:     st,
		batchSize: int(batchSize),
		retention: retention,
		logger:    logger,
		now:       time.Now,
		buffer:    make([]core.LogEntry, 0, batchSize),
		startTime: time.Now(),
	}
	d.lastExport.Store(time.Time{})

	logger.Info("msg", "Database exporter created",
		"component", "database_exporter",
		"name", name,
		"path", opts.DBPath,
		"batch_size", batchSize,
		"retention", retention)
	return d, nil
}

func (d *DatabaseExporter) Name() string {
	return d.name
}

func (d *DatabaseExporter) Export(entry core.LogEntry) error {
	d.mu.Lock()
	d.buffer = append(d.buffer, entry)
	if len(d.buffer) < d.batchSize {
		d.mu.Unlock()
		d.totalExported.Add(1)
		d.lastExport.Store(time.Now())
		return nil
	}
	err := d.persistLocked()
	d.mu.Unlock()

	d.totalExported.Add(1)
	d.lastExport.Store(time.Now())
	return err
}

// persistLocked writes the buffer in one transaction. On failure the buffer
// is kept for the next attempt, trimmed to the newest maxBufferedBatches
// batches.
func (d *DatabaseExporter) persistLocked() error {
	if len(d.buffer) == 0 {
		return nil
	}

	if err := d.store.Append(context.Background(), d.buffer); err != nil {
		d.totalFailed.Add(uint64(len(d.buffer)))
		d.logger.Error("msg", "Failed to persist batch",
			"component", "database_exporter",
			"name", d.name,
			"batch_size", len(d.buffer),
			"error", err)
		d.trimLocked()
		return err
	}

	d.totalBatches.Add(1)
	d.logger.Debug("msg", "Batch persisted",
		"component", "database_exporter",
		"name", d.name,
		"batch_size", len(d.buffer))
	d.buffer = make([]core.LogEntry, 0, d.batchSize)
	return nil
}

// trimLocked drops the oldest entries once the buffer outgrows its limit
func (d *DatabaseExporter) trimLocked() {
	limit := d.batchSize * maxBufferedBatches
	over := len(d.buffer) - limit
	if over <= 0 {
		return
	}

	kept := make([]core.LogEntry, limit, limit+d.batchSize)
	copy(kept, d.buffer[over:])
	d.buffer = kept
	d.totalDropped.Add(uint64(over))

	d.logger.Warn("msg", "Retry buffer full, dropped oldest entries",
		"component", "database_exporter",
		"name", d.name,
		"dropped", over,
		"limit", limit,
		"total_dropped", d.totalDropped.Load())
}

// Flush persists the buffer and purges sent rows past the retention window
func (d *DatabaseExporter) Flush() error {
	d.mu.Lock()
	err := d.persistLocked()
	d.mu.Unlock()
	if err != nil {
		return err
	}

	purged, err := d.store.Cleanup(context.Background(), d.now().Add(-d.retention))
	if err != nil {
		return err
	}
	if purged > 0 {
		d.totalPurged.Add(purged)
		d.logger.Info("msg", "Purged expired rows",
			"component", "database_exporter",
			"name", d.name,
			"rows", purged)
	}
	return nil
}

func (d *DatabaseExporter) Close() error {
	d.mu.Lock()
	pending := len(d.buffer)
	d.mu.Unlock()
	if pending > 0 {
		d.logger.Warn("msg", "Closing database exporter with unpersisted entries",
			"component", "database_exporter",
			"name", d.name,
			"pending", pending)
	}
	return d.store.Close()
}

// Store exposes the underlying store for replay by an uploader
func (d *DatabaseExporter) Store() *store.Store {
	return d.store
}

func (d *DatabaseExporter) GetStats() ExporterStats {
	lastExport, _ := d.lastExport.Load().(time.Time)

	d.mu.Lock()
	pending := len(d.buffer)
	d.mu.Unlock()

	details := map[string]any{
		"batch_size":    d.batchSize,
		"retention":     d.retention.String(),
		"total_batches": d.totalBatches.Load(),
		"total_dropped": d.totalDropped.Load(),
		"total_purged":  d.totalPurged.Load(),
	}
	if unsent, sent, err := d.store.Counts(context.Background()); err == nil {
		details["unsent_rows"] = unsent
		details["sent_rows"] = sent
	}

	return ExporterStats{
		Type:           "database",
		Name:           d.name,
		TotalExported:  d.totalExported.Load(),
		TotalFailed:    d.totalFailed.Load(),
		Buffered:       pending,
		StartTime:      d.startTime,
		LastExportTime: lastExport,
		Details:        details,
	}
}
