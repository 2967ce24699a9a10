package processor

import (
	"sync/atomic"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
)

// Batch forwards entries unchanged. Size and time based grouping happens in
// the exporters, where the transport cost is paid; the configured values are
// kept for diagnostics.
type Batch struct {
	name          string
	timeoutMS     int64
	sendBatchSize int64

	totalProcessed atomic.Uint64
}

func NewBatch(name string, opts *config.BatchProcessorOptions, logger *log.Logger) (*Batch, error) {
	b := &Batch{name: name}
	if opts != nil {
		b.timeoutMS = opts.TimeoutMS
		b.sendBatchSize = opts.SendBatchSize
	}

	logger.Debug("msg", "Batch processor is pass-through, batching is done by exporters",
		"component", "batch",
		"name", name)
	return b, nil
}

func (b *Batch) Name() string {
	return b.name
}

func (b *Batch) Process(entry core.LogEntry) (core.LogEntry, bool, error) {
	b.totalProcessed.Add(1)
	return entry, true, nil
}

func (b *Batch) GetStats() map[string]any {
	return map[string]any{
		"type":            "batch",
		"name":            b.name,
		"timeout_ms":      b.timeoutMS,
		"send_batch_size": b.sendBatchSize,
		"total_processed": b.totalProcessed.Load(),
	}
}
