package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"
	"lognarrator/src/internal/format"
	"lognarrator/src/internal/signing"
	"lognarrator/src/internal/version"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

const cloudContentType = "application/json+encrypted"

// CloudExporter batches entries, signs each batch and posts it to a remote endpoint.
type CloudExporter struct {
	// Configuration
	name          string
	endpoint      string
	batchSize     int
	flushInterval time.Duration
	timeout       time.Duration
	maxRetries    uint64
	retryInitial  time.Duration

	// Network
	client *fasthttp.Client

	// Application
	signer   *signing.Signer
	encoder  *zstd.Encoder
	fallback *LocalCacheExporter
	logger   *log.Logger
	now      func() time.Time

	// Runtime
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	// Batching
	buffer    []core.LogEntry
	lastFlush time.Time
	bufferMu  sync.Mutex
	sendMu    sync.Mutex

	// Statistics
	totalExported  atomic.Uint64
	totalFailed    atomic.Uint64
	totalBatches   atomic.Uint64
	failedBatches  atomic.Uint64
	spilledEntries atomic.Uint64
	lastExport     atomic.Value // time.Time
	lastBatchSent  atomic.Value // time.Time
}

// NewCloudExporter creates a cloud exporter. The signing key is loaded eagerly.
func NewCloudExporter(name string, opts *config.CloudExporterOptions, logger *log.Logger) (*CloudExporter, error) {
	if opts == nil {
		return nil, fmt.Errorf("cloud exporter options cannot be nil")
	}

	signer, err := signing.NewSigner(opts.ClientID, opts.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("cloud exporter '%s': %w", name, err)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = core.DefaultCloudBatchSize
	}
	flushInterval := time.Duration(opts.FlushIntervalSeconds) * time.Second
	if flushInterval <= 0 {
		flushInterval = core.DefaultCloudFlushInterval
	}
	timeout := time.Duration(opts.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = core.DefaultCloudTimeout
	}
	var maxRetries uint64
	if opts.MaxRetries > 0 {
		maxRetries = uint64(opts.MaxRetries)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &CloudExporter{
		name:          name,
		endpoint:      opts.Endpoint,
		batchSize:     int(batchSize),
		flushInterval: flushInterval,
		timeout:       timeout,
		maxRetries:    maxRetries,
		retryInitial:  500 * time.Millisecond,
		signer:        signer,
		logger:        logger,
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
		startTime:     time.Now(),
		buffer:        make([]core.LogEntry, 0, batchSize),
		lastFlush:     time.Now(),
	}
	c.lastExport.Store(time.Time{})
	c.lastBatchSent.Store(time.Time{})

	c.client = &fasthttp.Client{
		MaxConnsPerHost:               10,
		MaxIdleConnDuration:           10 * time.Second,
		ReadTimeout:                   timeout,
		WriteTimeout:                  timeout,
		DisableHeaderNamesNormalizing: true,
	}

	if opts.Compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("cloud exporter '%s': failed to create zstd encoder: %w", name, err)
		}
		c.encoder = enc
	}

	if opts.FallbackDirectory != "" {
		fallback, err := NewLocalCacheExporter(name+"-fallback", &config.LocalCacheExporterOptions{
			Directory: opts.FallbackDirectory,
			MaxSizeMB: core.DefaultCacheMaxSizeMB,
		}, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("cloud exporter '%s': %w", name, err)
		}
		c.fallback = fallback
	}

	logger.Info("msg", "Cloud exporter created",
		"component", "cloud_exporter",
		"name", name,
		"endpoint", opts.Endpoint,
		"client_id", opts.ClientID,
		"batch_size", batchSize,
		"flush_interval", flushInterval,
		"compress", opts.Compress,
		"fallback", opts.FallbackDirectory != "")
	return c, nil
}

func (c *CloudExporter) Name() string {
	return c.name
}

// Export buffers the entry and flushes when the batch is full or the flush
// interval elapsed. A failed delivery is logged, not returned.
func (c *CloudExporter) Export(entry core.LogEntry) error {
	c.bufferMu.Lock()
	c.buffer = append(c.buffer, entry)
	due := len(c.buffer) >= c.batchSize || c.now().Sub(c.lastFlush) >= c.flushInterval
	c.bufferMu.Unlock()

	c.totalExported.Add(1)
	c.lastExport.Store(time.Now())

	if !due {
		return nil
	}
	if err := c.Flush(); err != nil {
		c.logger.Warn("msg", "Cloud batch delivery failed",
			"component", "cloud_exporter",
			"name", c.name,
			"error", err)
	}
	return nil
}

// Flush sends the buffered batch. Deliveries are serialized.
func (c *CloudExporter) Flush() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.bufferMu.Lock()
	batch := c.buffer
	c.buffer = make([]core.LogEntry, 0, c.batchSize)
	c.lastFlush = c.now()
	c.bufferMu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := c.sendBatch(batch); err != nil {
		c.failedBatches.Add(1)
		c.totalFailed.Add(uint64(len(batch)))
		c.spill(batch)
		return err
	}
	return nil
}

func (c *CloudExporter) sendBatch(batch []core.LogEntry) error {
	c.totalBatches.Add(1)
	c.lastBatchSent.Store(time.Now())

	payload, err := format.MarshalBatch(batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	compressed := false
	if c.encoder != nil {
		payload = c.encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
		compressed = true
	}

	body, err := json.Marshal(c.signer.Seal(payload, compressed))
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInitial
	policy.MaxInterval = c.timeout
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), c.ctx)

	attempt := 0
	err = backoff.RetryNotify(func() error {
		attempt++
		return c.post(body)
	}, retry, func(err error, wait time.Duration) {
		c.logger.Warn("msg", "Cloud request failed, retrying",
			"component", "cloud_exporter",
			"name", c.name,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"retry_in", wait,
			"error", err)
	})
	if err != nil {
		c.logger.Error("msg", "Failed to send batch after retries",
			"component", "cloud_exporter",
			"name", c.name,
			"batch_size", len(batch),
			"attempts", attempt,
			"error", err)
		return err
	}

	c.logger.Debug("msg", "Batch sent successfully",
		"component", "cloud_exporter",
		"name", c.name,
		"batch_size", len(batch),
		"bytes", len(body),
		"compressed", compressed)
	return nil
}

// post performs one delivery attempt. Client errors other than 429 are not retried.
func (c *CloudExporter) post(body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(cloudContentType)
	req.Header.Set("User-Agent", fmt.Sprintf("LogNarrator/%s", version.Short()))
	req.SetBody(body)

	if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return fmt.Errorf("%w: request failed: %v", core.ErrExportTransport, err)
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}

	err := fmt.Errorf("%w: endpoint returned status %d: %s",
		core.ErrExportTransport, status, strings.TrimSpace(string(truncate(resp.Body(), 256))))
	if status >= 400 && status < 500 && status != fasthttp.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

func (c *CloudExporter) spill(batch []core.LogEntry) {
	if c.fallback == nil {
		c.logger.Error("msg", "Dropping undeliverable batch",
			"component", "cloud_exporter",
			"name", c.name,
			"batch_size", len(batch))
		return
	}

	spilled := 0
	for _, entry := range batch {
		if err := c.fallback.Export(entry); err != nil {
			c.logger.Error("msg", "Failed to spill entry to fallback cache",
				"component", "cloud_exporter",
				"name", c.name,
				"error", err)
			continue
		}
		spilled++
	}
	c.spilledEntries.Add(uint64(spilled))

	c.logger.Warn("msg", "Undeliverable batch spilled to fallback cache",
		"component", "cloud_exporter",
		"name", c.name,
		"spilled", spilled,
		"batch_size", len(batch))
}

// Close aborts pending retries and releases the encoder and fallback cache.
func (c *CloudExporter) Close() error {
	c.cancel()
	c.client.CloseIdleConnections()
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.fallback != nil {
		return c.fallback.Close()
	}
	return nil
}

func (c *CloudExporter) GetStats() ExporterStats {
	lastExport, _ := c.lastExport.Load().(time.Time)
	lastBatch, _ := c.lastBatchSent.Load().(time.Time)

	c.bufferMu.Lock()
	pending := len(c.buffer)
	c.bufferMu.Unlock()

	return ExporterStats{
		Type:           "cloud",
		Name:           c.name,
		TotalExported:  c.totalExported.Load(),
		TotalFailed:    c.totalFailed.Load(),
		Buffered:       pending,
		StartTime:      c.startTime,
		LastExportTime: lastExport,
		Details: map[string]any{
			"endpoint":        c.endpoint,
			"batch_size":      c.batchSize,
			"total_batches":   c.totalBatches.Load(),
			"failed_batches":  c.failedBatches.Load(),
			"spilled_entries": c.spilledEntries.Load(),
			"last_batch_sent": lastBatch,
			"compressed":      c.encoder != nil,
		},
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
