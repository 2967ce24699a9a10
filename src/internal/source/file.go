package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/fsnotify/fsnotify"
	"github.com/lixenwraith/log"
)

// FileSource tails files matching include globs
type FileSource struct {
	// Configuration
	name           string
	config         *config.FileSourceOptions
	exclude        *regexp.Regexp
	pollInterval   time.Duration
	rescanInterval time.Duration

	// Application
	watchers map[string]*fileWatcher
	emitter  *emitter
	notifier *fsnotify.Watcher
	logger   *log.Logger

	// Runtime
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	startTime time.Time
}

// NewFileSource validates the options and creates a file source
func NewFileSource(name string, opts *config.FileSourceOptions, logger *log.Logger) (*FileSource, error) {
	if opts == nil {
		return nil, fmt.Errorf("file source options cannot be nil")
	}
	if len(opts.Include) == 0 {
		return nil, fmt.Errorf("%w: file source '%s' has no include patterns", core.ErrConfiguration, name)
	}
	for _, pattern := range opts.Include {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("%w: invalid include pattern '%s': %v", core.ErrConfiguration, pattern, err)
		}
	}

	fs := &FileSource{
		name:           name,
		config:         opts,
		pollInterval:   core.DefaultFilePollInterval,
		rescanInterval: core.DefaultFileRescanInterval,
		watchers:       make(map[string]*fileWatcher),
		emitter:        newEmitter(),
		logger:         logger,
		startTime:      time.Now(),
	}

	if opts.ExcludeFilenamePattern != "" {
		re, err := regexp.Compile(opts.ExcludeFilenamePattern)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid exclude_filename_pattern: %v", core.ErrConfiguration, err)
		}
		fs.exclude = re
	}
	if opts.PollIntervalMS > 0 {
		fs.pollInterval = time.Duration(opts.PollIntervalMS) * time.Millisecond
	}
	if opts.RescanIntervalMS > 0 {
		fs.rescanInterval = time.Duration(opts.RescanIntervalMS) * time.Millisecond
	}

	return fs, nil
}

func (fs *FileSource) Name() string {
	return fs.name
}

// Start scans for files and begins tailing them
func (fs *FileSource) Start(sink chan<- core.LogEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.running {
		return core.ErrAlreadyRunning
	}

	fs.emitter.sink = sink
	fs.ctx, fs.cancel = context.WithCancel(context.Background())
	fs.startTime = time.Now()

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		fs.logger.Warn("msg", "Filesystem notifications unavailable, polling only",
			"component", "file_source",
			"name", fs.name,
			"error", err)
	} else {
		for _, dir := range fs.watchDirs() {
			if err := notifier.Add(dir); err != nil {
				fs.logger.Debug("msg", "Cannot watch directory",
					"component", "file_source",
					"directory", dir,
					"error", err)
			}
		}
		fs.notifier = notifier
	}

	// Files present now honor start_at, later discoveries are read from the start
	fromEnd := fs.config.StartAt == "end"
	for _, path := range fs.scanFiles() {
		fs.ensureWatcherLocked(path, fromEnd)
	}

	fs.running = true
	fs.wg.Add(1)
	go fs.monitorLoop(fs.ctx, fs.notifier)

	fs.logger.Info("msg", "File source started",
		"component", "file_source",
		"name", fs.name,
		"include", fs.config.Include,
		"start_at", fs.config.StartAt,
		"files", len(fs.watchers))
	return nil
}

// Stop cancels all watchers and waits for them to exit
func (fs *FileSource) Stop() error {
	fs.mu.Lock()
	if !fs.running {
		fs.mu.Unlock()
		return core.ErrNotRunning
	}
	fs.running = false
	fs.cancel()
	fs.mu.Unlock()

	fs.wg.Wait()

	fs.mu.Lock()
	if fs.notifier != nil {
		fs.notifier.Close()
		fs.notifier = nil
	}
	fs.watchers = make(map[string]*fileWatcher)
	fs.mu.Unlock()

	fs.logger.Info("msg", "File source stopped",
		"component", "file_source",
		"name", fs.name)
	return nil
}

func (fs *FileSource) GetStats() SourceStats {
	fs.mu.RLock()
	watchers := make([]map[string]any, 0, len(fs.watchers))
	for _, w := range fs.watchers {
		snap := w.snapshot()
		watchers = append(watchers, map[string]any{
			"path":       snap.Path,
			"size":       snap.Size,
			"offset":     snap.Offset,
			"lines_read": snap.LinesRead,
			"rotations":  snap.Rotations,
			"last_read":  snap.LastRead,
		})
	}
	fs.mu.RUnlock()

	return SourceStats{
		Type:          "file",
		Name:          fs.name,
		TotalEntries:  fs.emitter.totalEntries.Load(),
		StartTime:     fs.startTime,
		LastEntryTime: fs.emitter.lastEntry(),
		Details: map[string]any{
			"watchers":        watchers,
			"active_watchers": len(watchers),
		},
	}
}

// monitorLoop rescans on a ticker and on directory events
func (fs *FileSource) monitorLoop(ctx context.Context, notifier *fsnotify.Watcher) {
	defer fs.wg.Done()

	ticker := time.NewTicker(fs.rescanInterval)
	defer ticker.Stop()

	var events chan fsnotify.Event
	var errs chan error
	if notifier != nil {
		events = notifier.Events
		errs = notifier.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fs.checkTargets(ctx)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			fs.handleEvent(ctx, event)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fs.logger.Warn("msg", "Filesystem watcher error",
				"component", "file_source",
				"name", fs.name,
				"error", err)
		}
	}
}

func (fs *FileSource) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		fs.checkTargets(ctx)
		return
	}

	fs.mu.RLock()
	w, ok := fs.watchers[event.Name]
	fs.mu.RUnlock()
	if ok {
		w.notify()
	}
}

// checkTargets starts watchers for new matches and drops those whose file vanished
func (fs *FileSource) checkTargets(ctx context.Context) {
	files := fs.scanFiles()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	for _, path := range files {
		fs.ensureWatcherLocked(path, false)
	}

	for path, w := range fs.watchers {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			w.stop()
			delete(fs.watchers, path)
			fs.logger.Debug("msg", "Removed watcher for missing file",
				"component", "file_source",
				"path", path)
		}
	}
}

func (fs *FileSource) ensureWatcherLocked(path string, fromEnd bool) {
	if _, exists := fs.watchers[path]; exists {
		return
	}

	ctx, cancel := context.WithCancel(fs.ctx)
	w := newFileWatcher(path, fs.name, fromEnd, fs.pollInterval, fs.emitter.emit, fs.logger)
	w.cancel = cancel
	fs.watchers[path] = w

	fs.logger.Debug("msg", "Created file watcher",
		"component", "file_source",
		"path", path,
		"from_end", fromEnd)

	fs.wg.Add(1)
	go func() {
		defer fs.wg.Done()
		defer cancel()

		if err := w.watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fs.logger.Error("msg", "Watcher failed",
				"component", "file_source",
				"path", path,
				"error", err)
		}

		fs.mu.Lock()
		if fs.watchers[path] == w {
			delete(fs.watchers, path)
		}
		fs.mu.Unlock()
	}()
}

// scanFiles expands include globs and applies the exclude pattern to base names
func (fs *FileSource) scanFiles() []string {
	seen := make(map[string]struct{})
	var files []string

	for _, pattern := range fs.config.Include {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			if _, dup := seen[path]; dup {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			if fs.exclude != nil && fs.exclude.MatchString(filepath.Base(path)) {
				continue
			}
			seen[path] = struct{}{}
			files = append(files, path)
		}
	}

	sort.Strings(files)
	return files
}

// watchDirs returns the literal parent directories of include patterns
func (fs *FileSource) watchDirs() []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, pattern := range fs.config.Include {
		dir := filepath.Dir(pattern)
		if hasGlobMeta(dir) {
			continue
		}
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

func hasGlobMeta(path string) bool {
	for _, c := range path {
		switch c {
		case '*', '?', '[', '\\':
			return true
		}
	}
	return false
}
