package source

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lognarrator/src/internal/auth"
	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"
	"lognarrator/src/internal/limit"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fastjson"
)

const (
	ingestPath = "/v1/logs"
	healthPath = "/health"
)

// HTTPReceiver accepts log pushes over HTTP
type HTTPReceiver struct {
	name         string
	address      string
	maxBodyBytes int64
	limiter      *limit.Limiter
	validator    *auth.Validator
	listen       func(addr string) (net.Listener, error)
	parsers      fastjson.ParserPool
	emitter      *emitter
	logger       *log.Logger

	mu      sync.Mutex
	running bool
	server  *fasthttp.Server
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Statistics
	totalRequests    atomic.Uint64
	rejectedRequests atomic.Uint64
	invalidRequests  atomic.Uint64
	opaquePayloads   atomic.Uint64
	opaqueBytes      atomic.Uint64
	startTime        time.Time
}

// NewHTTPReceiver creates the receiver. The port is bound on Start.
func NewHTTPReceiver(name string, opts *config.HTTPSourceOptions, logger *log.Logger) (*HTTPReceiver, error) {
	if opts == nil {
		return nil, fmt.Errorf("http source options cannot be nil")
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, fmt.Errorf("%w: http source '%s' has invalid port %d", core.ErrConfiguration, name, opts.Port)
	}

	iface := opts.Interface
	if iface == "" {
		iface = core.DefaultReceiverInterface
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = core.DefaultMaxBodyBytes
	}

	validator, err := auth.NewValidator(opts.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: http source '%s': %v", core.ErrConfiguration, name, err)
	}

	return &HTTPReceiver{
		name:         name,
		address:      net.JoinHostPort(iface, fmt.Sprintf("%d", opts.Port)),
		maxBodyBytes: maxBody,
		limiter:      limit.New(opts.RateLimit),
		validator:    validator,
		listen: func(addr string) (net.Listener, error) {
			return net.Listen("tcp", addr)
		},
		emitter:   newEmitter(),
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

func (h *HTTPReceiver) Name() string {
	return h.name
}

// Start binds the listener synchronously and serves in the background
func (h *HTTPReceiver) Start(sink chan<- core.LogEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return core.ErrAlreadyRunning
	}

	ln, err := h.listen(h.address)
	if err != nil {
		return fmt.Errorf("%w: http source '%s': cannot listen on %s: %v", core.ErrSourceStartup, h.name, h.address, err)
	}

	h.emitter.sink = sink
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.server = &fasthttp.Server{
		Name:               "lognarrator",
		Handler:            h.requestHandler,
		MaxRequestBodySize: int(h.maxBodyBytes),
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		CloseOnShutdown:    true,
	}
	h.running = true
	h.startTime = time.Now()

	server := h.server
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := server.Serve(ln); err != nil {
			h.logger.Error("msg", "HTTP receiver server failed",
				"component", "http_receiver",
				"name", h.name,
				"address", h.address,
				"error", err)
		}
	}()

	h.logger.Info("msg", "HTTP receiver started",
		"component", "http_receiver",
		"name", h.name,
		"address", ln.Addr().String(),
		"rate_limited", h.limiter != nil,
		"auth", h.validator != nil)
	return nil
}

// Stop aborts pending sends and shuts the server down
func (h *HTTPReceiver) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return core.ErrNotRunning
	}
	h.running = false
	h.cancel()
	server := h.server
	h.mu.Unlock()

	err := server.Shutdown()
	h.wg.Wait()

	if h.limiter != nil {
		h.limiter.Stop()
	}

	h.logger.Info("msg", "HTTP receiver stopped",
		"component", "http_receiver",
		"name", h.name)
	return err
}

func (h *HTTPReceiver) GetStats() SourceStats {
	details := map[string]any{
		"address":           h.address,
		"total_requests":    h.totalRequests.Load(),
		"rejected_requests": h.rejectedRequests.Load(),
		"invalid_requests":  h.invalidRequests.Load(),
		"opaque_payloads":   h.opaquePayloads.Load(),
		"opaque_bytes":      h.opaqueBytes.Load(),
	}
	if h.limiter != nil {
		details["rate_limit"] = h.limiter.GetStats()
	}
	if h.validator != nil {
		details["auth"] = h.validator.GetStats()
	}

	return SourceStats{
		Type:          "http",
		Name:          h.name,
		TotalEntries:  h.emitter.totalEntries.Load(),
		StartTime:     h.startTime,
		LastEntryTime: h.emitter.lastEntry(),
		Details:       details,
	}
}

func (h *HTTPReceiver) requestHandler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == healthPath && ctx.IsGet():
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"ok"}`)
	case path == ingestPath && ctx.IsPost():
		h.handleIngest(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (h *HTTPReceiver) handleIngest(ctx *fasthttp.RequestCtx) {
	h.totalRequests.Add(1)
	remote := ctx.RemoteIP().String()

	if h.limiter != nil && !h.limiter.Allow(remote) {
		h.rejectedRequests.Add(1)
		ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
		ctx.Response.Header.Set("Retry-After", "1")
		return
	}

	if h.validator != nil {
		if _, err := h.validator.Authenticate(string(ctx.Request.Header.Peek("Authorization"))); err != nil {
			h.rejectedRequests.Add(1)
			h.logger.Debug("msg", "Rejected unauthenticated request",
				"component", "http_receiver",
				"remote_addr", remote,
				"error", err)
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.Response.Header.Set("WWW-Authenticate", `Bearer realm="lognarrator"`)
			return
		}
	}

	body := ctx.PostBody()
	contentType := string(ctx.Request.Header.ContentType())
	if !isJSONContent(contentType) {
		h.opaquePayloads.Add(1)
		h.opaqueBytes.Add(uint64(len(body)))
		h.logger.Debug("msg", "Accepted opaque payload",
			"component", "http_receiver",
			"content_type", contentType,
			"bytes", len(body))
		ctx.SetStatusCode(fasthttp.StatusOK)
		return
	}

	p := h.parsers.Get()
	entries, err := decodeEntries(p, body, h.name)
	h.parsers.Put(p)
	if err != nil {
		h.invalidRequests.Add(1)
		h.logger.Warn("msg", "Failed to decode log payload",
			"component", "http_receiver",
			"remote_addr", remote,
			"bytes", len(body),
			"error", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	for _, entry := range entries {
		if err := h.emitter.emit(h.ctx, entry); err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			return
		}
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
}

// isJSONContent treats a missing content type as JSON
func isJSONContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	media, _, _ := strings.Cut(contentType, ";")
	media = strings.ToLower(strings.TrimSpace(media))
	return media == "application/x-ndjson" || strings.HasSuffix(media, "/json") || strings.HasSuffix(media, "+json")
}
