package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"
	"lognarrator/src/internal/exporter"
	"lognarrator/src/internal/processor"
	"lognarrator/src/internal/source"

	"github.com/lixenwraith/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Pipeline moves entries from sources through the processor chain to every exporter
type Pipeline struct {
	config       *config.Config
	bufferSize   int
	maxParallel  int
	drainTimeout time.Duration
	logger       *log.Logger

	// Components added directly, used alongside the configured ones
	extraSources    []source.Source
	extraProcessors []processor.Processor
	extraExporters  []exporter.Exporter

	// Active components, read by the stage goroutines
	mu        sync.RWMutex
	sources   []source.Source
	chain     *processor.Chain
	exporters []exporter.Exporter

	// Lifecycle, serialized by stateMu
	stateMu  sync.Mutex
	running  atomic.Bool
	started  []source.Source
	ingest   chan core.LogEntry
	outbound chan core.LogEntry
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	Stats *PipelineStats
}

// PipelineStats contains pipeline counters
type PipelineStats struct {
	StartTime            time.Time
	TotalIngested        atomic.Uint64
	TotalDropped         atomic.Uint64
	TotalProcessorErrors atomic.Uint64
	TotalExported        atomic.Uint64
	TotalExportErrors    atomic.Uint64
	TotalLostOnStop      atomic.Uint64
}

// NewPipeline stores the configuration. Components are built on Start.
func NewPipeline(cfg *config.Config, logger *log.Logger) *Pipeline {
	if cfg == nil {
		cfg = &config.Config{}
	}

	p := &Pipeline{
		config:       cfg,
		bufferSize:   int(cfg.Pipeline.BufferSize),
		maxParallel:  int(cfg.Pipeline.MaxParallelExports),
		drainTimeout: time.Duration(cfg.Pipeline.DrainTimeoutMS) * time.Millisecond,
		logger:       logger,
		Stats:        &PipelineStats{},
	}
	if p.bufferSize <= 0 {
		p.bufferSize = core.DefaultChannelSize
	}
	if p.maxParallel <= 0 {
		p.maxParallel = core.DefaultMaxParallelExports
	}
	if p.drainTimeout <= 0 {
		p.drainTimeout = core.DefaultDrainTimeout
	}
	return p
}

// AddSource registers a prebuilt source for the next run. Rejected while
// running.
func (p *Pipeline) AddSource(src source.Source) error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.running.Load() {
		return core.ErrAlreadyRunning
	}
	p.extraSources = append(p.extraSources, src)
	return nil
}

// AddProcessor appends a prebuilt processor after the configured ones
func (p *Pipeline) AddProcessor(proc processor.Processor) error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.running.Load() {
		return core.ErrAlreadyRunning
	}
	p.extraProcessors = append(p.extraProcessors, proc)
	return nil
}

// AddExporter registers a prebuilt exporter. Rejected while running.
func (p *Pipeline) AddExporter(exp exporter.Exporter) error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.running.Load() {
		return core.ErrAlreadyRunning
	}
	p.extraExporters = append(p.extraExporters, exp)
	return nil
}

// Start builds and wires every component. It fails without spawning any
// goroutine when there is nothing to read from or nowhere to deliver.
func (p *Pipeline) Start() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if p.running.Load() {
		return core.ErrAlreadyRunning
	}
	if len(p.config.Sources)+len(p.extraSources) == 0 {
		return core.ErrNoSources
	}
	if len(p.config.Exporters)+len(p.extraExporters) == 0 {
		return core.ErrNoExporters
	}

	sources, chain, exporters, err := p.build()
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.sources = sources
	p.chain = chain
	p.exporters = exporters
	p.mu.Unlock()

	p.Stats.StartTime = time.Now()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.ingest = make(chan core.LogEntry, p.bufferSize)
	p.outbound = make(chan core.LogEntry, p.bufferSize)

	p.wg.Add(2)
	go p.processLoop(p.ctx, p.ingest, p.outbound)
	go p.exportLoop(p.ctx, p.outbound)

	p.started = p.started[:0]
	for i, src := range sources {
		if err := src.Start(p.ingest); err != nil {
			p.logger.Error("msg", "Failed to start source",
				"component", "pipeline",
				"source", fmt.Sprintf("source[%d] '%s'", i, src.Name()),
				"error", err)
			continue
		}
		p.started = append(p.started, src)
	}

	if len(p.started) == 0 {
		close(p.ingest)
		p.wg.Wait()
		p.cancel()
		p.closeExporters(exporters)
		p.releaseExtras()
		return fmt.Errorf("%w: no source could be started", core.ErrSourceStartup)
	}

	p.running.Store(true)
	p.logger.Info("msg", "Pipeline started",
		"component", "pipeline",
		"sources", len(p.started),
		"processors", chain.Len(),
		"exporters", len(exporters),
		"buffer_size", p.bufferSize,
		"max_parallel_exports", p.maxParallel)
	return nil
}

// build instantiates configured components through the type factories
func (p *Pipeline) build() ([]source.Source, *processor.Chain, []exporter.Exporter, error) {
	sources := make([]source.Source, 0, len(p.config.Sources)+len(p.extraSources))
	for i, cfg := range p.config.Sources {
		src, err := source.New(cfg, p.logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("source[%d] '%s': %w", i, cfg.Name, err)
		}
		sources = append(sources, src)
	}
	sources = append(sources, p.extraSources...)

	procs := make([]processor.Processor, 0, len(p.config.Processors)+len(p.extraProcessors))
	for i, cfg := range p.config.Processors {
		proc, err := processor.New(cfg, p.logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("processor[%d] '%s': %w", i, cfg.Name, err)
		}
		procs = append(procs, proc)
	}
	procs = append(procs, p.extraProcessors...)
	chain := processor.NewChainOf(procs, p.logger)

	exporters := make([]exporter.Exporter, 0, len(p.config.Exporters)+len(p.extraExporters))
	for i, cfg := range p.config.Exporters {
		exp, err := exporter.New(cfg, p.logger)
		if err != nil {
			p.closeExporters(exporters)
			return nil, nil, nil, fmt.Errorf("exporter[%d] '%s': %w", i, cfg.Name, err)
		}
		exporters = append(exporters, exp)
	}
	exporters = append(exporters, p.extraExporters...)

	return sources, chain, exporters, nil
}

// Stop halts sources, drains the stages, then flushes and closes every exporter.
// Flush and close failures are combined into the returned error.
func (p *Pipeline) Stop() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if !p.running.Load() {
		return core.ErrNotRunning
	}
	p.logger.Info("msg", "Stopping pipeline", "component", "pipeline")

	var errs error
	var errMu sync.Mutex
	var wg sync.WaitGroup
	for _, src := range p.started {
		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			if err := src.Stop(); err != nil {
				errMu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("source '%s' stop: %w", src.Name(), err))
				errMu.Unlock()
			}
		}(src)
	}
	wg.Wait()

	// No source sends after Stop returned, so closing is safe
	close(p.ingest)

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(p.drainTimeout):
		p.logger.Warn("msg", "Drain timeout reached, cancelling pipeline stages",
			"component", "pipeline",
			"drain_timeout", p.drainTimeout)
		p.cancel()
		<-drained
	}
	p.cancel()

	if lost := uint64(len(p.ingest) + len(p.outbound)); lost > 0 {
		p.Stats.TotalLostOnStop.Add(lost)
		p.logger.Warn("msg", "Entries lost on stop",
			"component", "pipeline",
			"lost", lost)
	}

	p.mu.RLock()
	exporters := p.exporters
	p.mu.RUnlock()

	for i, exp := range exporters {
		if err := exp.Flush(); err != nil {
			p.logger.Error("msg", "Exporter flush failed",
				"component", "pipeline",
				"exporter", exp.Name(),
				"error", err)
			errs = multierr.Append(errs, fmt.Errorf("exporter[%d] '%s' flush: %w", i, exp.Name(), err))
		}
	}
	errs = multierr.Append(errs, p.closeExporters(exporters))
	p.releaseExtras()

	p.running.Store(false)
	p.logger.Info("msg", "Pipeline stopped",
		"component", "pipeline",
		"total_ingested", p.Stats.TotalIngested.Load(),
		"total_exported", p.Stats.TotalExported.Load(),
		"total_dropped", p.Stats.TotalDropped.Load())
	return errs
}

// releaseExtras forgets components registered through Add*. They were
// stopped and closed with this run and must be registered again before the
// next Start. Caller holds stateMu.
func (p *Pipeline) releaseExtras() {
	p.extraSources = nil
	p.extraProcessors = nil
	p.extraExporters = nil
}

func (p *Pipeline) closeExporters(exporters []exporter.Exporter) error {
	var errs error
	for i, exp := range exporters {
		if err := exp.Close(); err != nil {
			p.logger.Error("msg", "Exporter close failed",
				"component", "pipeline",
				"exporter", exp.Name(),
				"error", err)
			errs = multierr.Append(errs, fmt.Errorf("exporter[%d] '%s' close: %w", i, exp.Name(), err))
		}
	}
	return errs
}

// Running reports whether the pipeline is started
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// processLoop applies the chain and forwards survivors. It closes out on exit.
func (p *Pipeline) processLoop(ctx context.Context, in <-chan core.LogEntry, out chan<- core.LogEntry) {
	defer p.wg.Done()
	defer close(out)

	p.mu.RLock()
	chain := p.chain
	p.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-in:
			if !ok {
				return
			}
			p.Stats.TotalIngested.Add(1)
			if ctx.Err() != nil {
				p.Stats.TotalLostOnStop.Add(1)
				return
			}

			result, keep, err := chain.Apply(entry)
			if err != nil {
				p.Stats.TotalProcessorErrors.Add(1)
				p.logger.Warn("msg", "Dropping entry after processor error",
					"component", "pipeline",
					"source", entry.Source,
					"error", err)
				continue
			}
			if !keep {
				p.Stats.TotalDropped.Add(1)
				continue
			}

			select {
			case out <- result:
			case <-ctx.Done():
				p.Stats.TotalLostOnStop.Add(1)
				return
			}
		}
	}
}

// exportLoop hands each entry to every exporter and waits for all of them
// before taking the next, so each exporter sees entries in order.
func (p *Pipeline) exportLoop(ctx context.Context, in <-chan core.LogEntry) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-in:
			if !ok {
				return
			}
			// Cancelled stages stop at entry boundaries
			if ctx.Err() != nil {
				p.Stats.TotalLostOnStop.Add(1)
				return
			}
			p.fanOut(entry)
		}
	}
}

func (p *Pipeline) fanOut(entry core.LogEntry) {
	p.mu.RLock()
	exporters := p.exporters
	p.mu.RUnlock()

	var g errgroup.Group
	g.SetLimit(p.maxParallel)

	for _, exp := range exporters {
		exp := exp
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					p.Stats.TotalExportErrors.Add(1)
					p.logger.Error("msg", "Panic in exporter",
						"component", "pipeline",
						"exporter", exp.Name(),
						"panic", r)
				}
			}()

			if err := exp.Export(entry.Clone()); err != nil {
				p.Stats.TotalExportErrors.Add(1)
				p.logger.Warn("msg", "Export failed",
					"component", "pipeline",
					"exporter", exp.Name(),
					"error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	p.Stats.TotalExported.Add(1)
}

// GetStats returns pipeline counters and per-component statistics
func (p *Pipeline) GetStats() map[string]any {
	p.mu.RLock()
	sources := p.sources
	chain := p.chain
	exporters := p.exporters
	p.mu.RUnlock()

	sourceStats := make([]map[string]any, 0, len(sources))
	for _, src := range sources {
		stats := src.GetStats()
		sourceStats = append(sourceStats, map[string]any{
			"type":            stats.Type,
			"name":            stats.Name,
			"total_entries":   stats.TotalEntries,
			"dropped_entries": stats.DroppedEntries,
			"start_time":      stats.StartTime,
			"last_entry_time": stats.LastEntryTime,
			"details":         stats.Details,
		})
	}

	exporterStats := make([]map[string]any, 0, len(exporters))
	for _, exp := range exporters {
		stats := exp.GetStats()
		exporterStats = append(exporterStats, map[string]any{
			"type":             stats.Type,
			"name":             stats.Name,
			"total_exported":   stats.TotalExported,
			"total_failed":     stats.TotalFailed,
			"buffered":         stats.Buffered,
			"last_export_time": stats.LastExportTime,
			"details":          stats.Details,
		})
	}

	var processorStats map[string]any
	if chain != nil {
		processorStats = chain.GetStats()
	}

	var uptime int
	if !p.Stats.StartTime.IsZero() {
		uptime = int(time.Since(p.Stats.StartTime).Seconds())
	}

	return map[string]any{
		"running":                p.Running(),
		"uptime_seconds":         uptime,
		"total_ingested":         p.Stats.TotalIngested.Load(),
		"total_dropped":          p.Stats.TotalDropped.Load(),
		"total_processor_errors": p.Stats.TotalProcessorErrors.Load(),
		"total_exported":         p.Stats.TotalExported.Load(),
		"total_export_errors":    p.Stats.TotalExportErrors.Load(),
		"total_lost_on_stop":     p.Stats.TotalLostOnStop.Load(),
		"sources":                sourceStats,
		"processors":             processorStats,
		"exporters":              exporterStats,
		"source_count":           len(sources),
		"exporter_count":         len(exporters),
	}
}
