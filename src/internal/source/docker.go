package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/lixenwraith/log"
)

// dockerAPI is the subset of the engine client used by the source
type dockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	Close() error
}

type containerTarget struct {
	id   string
	name string
	tty  bool
}

// DockerSource follows stdout and stderr of running containers
type DockerSource struct {
	name           string
	config         *config.DockerSourceOptions
	rescanInterval time.Duration
	newClient      func() (dockerAPI, error)
	emitter        *emitter
	logger         *log.Logger

	mu       sync.Mutex
	running  bool
	cli      dockerAPI
	tailers  map[string]context.CancelFunc
	lastSeen map[string]time.Time
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	startTime time.Time
}

// NewDockerSource creates a docker source. The engine is contacted on Start.
func NewDockerSource(name string, opts *config.DockerSourceOptions, logger *log.Logger) (*DockerSource, error) {
	if opts == nil {
		return nil, fmt.Errorf("docker source options cannot be nil")
	}
	if !opts.AllContainers && len(opts.Containers) == 0 {
		return nil, fmt.Errorf("%w: docker source '%s' needs containers or all_containers", core.ErrConfiguration, name)
	}

	d := &DockerSource{
		name:           name,
		config:         opts,
		rescanInterval: core.DefaultDockerRescan,
		emitter:        newEmitter(),
		logger:         logger,
		tailers:        make(map[string]context.CancelFunc),
		lastSeen:       make(map[string]time.Time),
		startTime:      time.Now(),
	}
	if opts.RescanIntervalMS > 0 {
		d.rescanInterval = time.Duration(opts.RescanIntervalMS) * time.Millisecond
	}
	d.newClient = func() (dockerAPI, error) {
		clientOpts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
		if opts.Host != "" {
			clientOpts = append(clientOpts, client.WithHost(opts.Host))
		}
		return client.NewClientWithOpts(clientOpts...)
	}
	return d, nil
}

func (d *DockerSource) Name() string {
	return d.name
}

func (d *DockerSource) Start(sink chan<- core.LogEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return core.ErrAlreadyRunning
	}

	cli, err := d.newClient()
	if err != nil {
		return fmt.Errorf("%w: docker source '%s': %v", core.ErrSourceStartup, d.name, err)
	}

	d.cli = cli
	d.emitter.sink = sink
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.running = true
	d.startTime = time.Now()

	d.wg.Add(1)
	go d.monitorLoop(ctx)

	d.logger.Info("msg", "Docker source started",
		"component", "docker_source",
		"name", d.name,
		"containers", d.config.Containers,
		"all_containers", d.config.AllContainers,
		"rescan_interval", d.rescanInterval)
	return nil
}

func (d *DockerSource) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return core.ErrNotRunning
	}
	d.running = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()

	d.mu.Lock()
	d.tailers = make(map[string]context.CancelFunc)
	err := d.cli.Close()
	d.cli = nil
	d.mu.Unlock()

	d.logger.Info("msg", "Docker source stopped",
		"component", "docker_source",
		"name", d.name)
	return err
}

func (d *DockerSource) GetStats() SourceStats {
	d.mu.Lock()
	attached := make([]string, 0, len(d.tailers))
	for id := range d.tailers {
		attached = append(attached, shortID(id))
	}
	d.mu.Unlock()

	return SourceStats{
		Type:          "docker",
		Name:          d.name,
		TotalEntries:  d.emitter.totalEntries.Load(),
		StartTime:     d.startTime,
		LastEntryTime: d.emitter.lastEntry(),
		Details: map[string]any{
			"attached_containers": attached,
			"all_containers":      d.config.AllContainers,
		},
	}
}

// monitorLoop attaches to targets now and again on every rescan tick
func (d *DockerSource) monitorLoop(ctx context.Context) {
	defer d.wg.Done()

	d.rescan(ctx)

	ticker := time.NewTicker(d.rescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.rescan(ctx)
		}
	}
}

func (d *DockerSource) rescan(ctx context.Context) {
	targets, err := d.targets(ctx)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("msg", "Failed to list containers",
				"component", "docker_source",
				"name", d.name,
				"error", err)
		}
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	for _, target := range targets {
		if _, attached := d.tailers[target.id]; attached {
			continue
		}
		d.attachLocked(ctx, target)
	}
}

// targets resolves configured containers or lists all running ones
func (d *DockerSource) targets(ctx context.Context) ([]containerTarget, error) {
	if d.config.AllContainers {
		containers, err := d.cli.ContainerList(ctx, container.ListOptions{})
		if err != nil {
			return nil, err
		}
		targets := make([]containerTarget, 0, len(containers))
		for _, c := range containers {
			info, err := d.cli.ContainerInspect(ctx, c.ID)
			if err != nil {
				continue
			}
			targets = append(targets, targetFromInspect(info))
		}
		return targets, nil
	}

	var targets []containerTarget
	for _, ref := range d.config.Containers {
		info, err := d.cli.ContainerInspect(ctx, ref)
		if err != nil {
			d.logger.Debug("msg", "Container not available",
				"component", "docker_source",
				"container", ref,
				"error", err)
			continue
		}
		if info.State == nil || !info.State.Running {
			continue
		}
		targets = append(targets, targetFromInspect(info))
	}
	return targets, nil
}

func targetFromInspect(info types.ContainerJSON) containerTarget {
	t := containerTarget{id: info.ID, name: strings.TrimPrefix(info.Name, "/")}
	if info.Config != nil {
		t.tty = info.Config.Tty
	}
	return t
}

func (d *DockerSource) attachLocked(ctx context.Context, target containerTarget) {
	since := time.Now()
	if last, ok := d.lastSeen[target.id]; ok {
		since = last.Add(time.Nanosecond)
	}

	tailCtx, cancel := context.WithCancel(ctx)
	d.tailers[target.id] = cancel

	d.logger.Info("msg", "Attached to container",
		"component", "docker_source",
		"name", d.name,
		"container", target.name,
		"id", shortID(target.id))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		err := d.tail(tailCtx, target, since)
		if err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("msg", "Container log stream ended",
				"component", "docker_source",
				"container", target.name,
				"error", err)
		}

		d.mu.Lock()
		delete(d.tailers, target.id)
		d.mu.Unlock()
	}()
}

// tail follows one container's log stream until it ends or ctx is cancelled
func (d *DockerSource) tail(ctx context.Context, target containerTarget, since time.Time) error {
	reader, err := d.cli.ContainerLogs(ctx, target.id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Timestamps: true,
		Since:      fmt.Sprintf("%d.%09d", since.Unix(), since.Nanosecond()),
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	stdout := &lineWriter{ctx: ctx, stream: "stdout", target: target, source: d}
	stderr := &lineWriter{ctx: ctx, stream: "stderr", target: target, source: d}

	if target.tty {
		_, err = io.Copy(stdout, reader)
	} else {
		_, err = stdcopy.StdCopy(stdout, stderr, reader)
	}
	stdout.flush()
	stderr.flush()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *DockerSource) emitLine(ctx context.Context, target containerTarget, stream string, line []byte) error {
	ts := time.Now()
	text := string(line)
	if stamp, rest, ok := strings.Cut(text, " "); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
			ts = parsed
			text = rest
		}
	}

	level := extractLogLevel(text)
	if stream == "stderr" && level == "" {
		level = "ERROR"
	}

	entry := core.LogEntry{
		Time:    ts,
		Source:  d.name,
		Level:   level,
		Message: text,
		RawSize: int64(len(line)),
	}
	entry.SetAttribute("container.id", shortID(target.id))
	entry.SetAttribute("container.name", target.name)
	entry.SetAttribute("stream", stream)

	if err := d.emitter.emit(ctx, entry); err != nil {
		return err
	}

	d.mu.Lock()
	d.lastSeen[target.id] = ts
	d.mu.Unlock()
	return nil
}

// lineWriter splits a demultiplexed stream into lines
type lineWriter struct {
	ctx    context.Context
	stream string
	target containerTarget
	source *DockerSource
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			return len(p), nil
		}
		line := bytes.TrimRight(w.buf[:idx], "\r")
		if len(line) > 0 {
			if err := w.source.emitLine(w.ctx, w.target, w.stream, line); err != nil {
				return 0, err
			}
		}
		w.buf = w.buf[idx+1:]
	}
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 && w.ctx.Err() == nil {
		_ = w.source.emitLine(w.ctx, w.target, w.stream, w.buf)
	}
	w.buf = nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
