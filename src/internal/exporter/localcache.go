package exporter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"
	"lognarrator/src/internal/format"

	"github.com/lixenwraith/log"
)

const cacheTimeLayout = "20060102150405"

// LocalCacheExporter appends entries as lines to size-rotated files
type LocalCacheExporter struct {
	name      string
	directory string
	maxBytes  int64
	formatter format.Formatter
	logger    *log.Logger
	now       func() time.Time

	// Rotation cursor, single writer
	mu          sync.Mutex
	file        *os.File
	currentPath string
	currentSize int64
	closed      bool

	// Statistics
	totalExported atomic.Uint64
	totalFailed   atomic.Uint64
	rotations     atomic.Uint64
	startTime     time.Time
	lastExport    atomic.Value // time.Time
}

// NewLocalCacheExporter creates the cache directory and the exporter
func NewLocalCacheExporter(name string, opts *config.LocalCacheExporterOptions, logger *log.Logger) (*LocalCacheExporter, error) {
	if opts == nil {
		return nil, fmt.Errorf("localcache options cannot be nil")
	}
	maxSizeMB := opts.MaxSizeMB
	if maxSizeMB <= 0 {
		maxSizeMB = core.DefaultCacheMaxSizeMB
	}
	return newLocalCache(name, opts.Directory, maxSizeMB*1024*1024, logger)
}

func newLocalCache(name, directory string, maxBytes int64, logger *log.Logger) (*LocalCacheExporter, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create cache directory %s: %v", core.ErrFilesystem, directory, err)
	}

	e := &LocalCacheExporter{
		name:      name,
		directory: directory,
		maxBytes:  maxBytes,
		formatter: format.NewJSONFormatter(),
		logger:    logger,
		now:       time.Now,
		startTime: time.Now(),
	}
	e.lastExport.Store(time.Time{})

	logger.Info("msg", "Local cache exporter created",
		"component", "localcache_exporter",
		"name", name,
		"directory", directory,
		"max_bytes", maxBytes)
	return e, nil
}

func (e *LocalCacheExporter) Name() string {
	return e.name
}

// Export appends one line. When the active file reaches the size limit it is
// closed and the next write opens a fresh file.
func (e *LocalCacheExporter) Export(entry core.LogEntry) error {
	line, err := e.formatter.Format(entry)
	if err != nil {
		e.totalFailed.Add(1)
		return err
	}
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.totalFailed.Add(1)
		return fmt.Errorf("%w: cache exporter '%s' is closed", core.ErrFilesystem, e.name)
	}

	if e.file == nil {
		if err := e.openNext(); err != nil {
			e.totalFailed.Add(1)
			return err
		}
	}

	n, err := e.file.Write(line)
	e.currentSize += int64(n)
	if err != nil {
		e.totalFailed.Add(1)
		return fmt.Errorf("%w: write to %s failed: %v", core.ErrFilesystem, e.currentPath, err)
	}

	e.totalExported.Add(1)
	e.lastExport.Store(time.Now())

	if e.currentSize >= e.maxBytes {
		e.rotate()
	}
	return nil
}

// openNext creates a new file named by the UTC timestamp. Names already
// taken within the same second get a numeric suffix.
func (e *LocalCacheExporter) openNext() error {
	stamp := e.now().UTC().Format(cacheTimeLayout)
	ext := e.formatter.Extension()

	for seq := 0; ; seq++ {
		name := fmt.Sprintf("logs_%s.%s", stamp, ext)
		if seq > 0 {
			name = fmt.Sprintf("logs_%s_%d.%s", stamp, seq, ext)
		}
		path := filepath.Join(e.directory, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: cannot create cache file %s: %v", core.ErrFilesystem, path, err)
		}

		e.file = f
		e.currentPath = path
		e.currentSize = 0

		e.logger.Debug("msg", "Opened cache file",
			"component", "localcache_exporter",
			"name", e.name,
			"path", path)
		return nil
	}
}

func (e *LocalCacheExporter) rotate() {
	if err := e.file.Close(); err != nil {
		e.logger.Warn("msg", "Failed to close cache file",
			"component", "localcache_exporter",
			"path", e.currentPath,
			"error", err)
	}
	e.logger.Info("msg", "Cache file rotated",
		"component", "localcache_exporter",
		"name", e.name,
		"path", e.currentPath,
		"size", e.currentSize)

	e.file = nil
	e.rotations.Add(1)
}

// Flush is a no-op, every Export writes through to the file
func (e *LocalCacheExporter) Flush() error {
	return nil
}

func (e *LocalCacheExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}

// Files lists cache files in the directory, oldest name first
func (e *LocalCacheExporter) Files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(e.directory, "logs_*."+e.formatter.Extension()))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (e *LocalCacheExporter) GetStats() ExporterStats {
	lastExport, _ := e.lastExport.Load().(time.Time)

	e.mu.Lock()
	current := e.currentPath
	size := e.currentSize
	e.mu.Unlock()

	return ExporterStats{
		Type:           "localcache",
		Name:           e.name,
		TotalExported:  e.totalExported.Load(),
		TotalFailed:    e.totalFailed.Load(),
		StartTime:      e.startTime,
		LastExportTime: lastExport,
		Details: map[string]any{
			"directory":    e.directory,
			"current_file": current,
			"current_size": size,
			"max_bytes":    e.maxBytes,
			"rotations":    e.rotations.Load(),
		},
	}
}
