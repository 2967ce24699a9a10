package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/valyala/fastjson"
)

const tailReadBuffer = 64 * 1024

// fileStamp identifies one generation of a file on disk
type fileStamp struct {
	inode   uint64
	size    int64
	modTime time.Time
}

func stampOf(info os.FileInfo) fileStamp {
	s := fileStamp{size: info.Size(), modTime: info.ModTime()}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		s.inode = st.Ino
	}
	return s
}

// detectRotation compares the last seen stamp and read offset against the
// current one. It returns the reason, or "" when reading can continue.
// A different inode always restarts at offset 0: rename-and-create rotation
// may have grown the new file past the old offset before the next poll.
func detectRotation(prev fileStamp, offset int64, cur fileStamp) string {
	switch {
	case prev.inode != 0 && cur.inode != 0 && prev.inode != cur.inode:
		return "replaced"
	case cur.size < prev.size:
		return "truncated"
	case cur.modTime.Before(prev.modTime) && cur.size <= prev.size:
		return "mtime went backwards"
	case offset > cur.size:
		return "offset past end"
	}
	return ""
}

// tailSnapshot is the per-file view reported in source stats
type tailSnapshot struct {
	Path      string
	Size      int64
	Offset    int64
	LinesRead uint64
	Rotations int
	LastRead  time.Time
}

// fileWatcher follows one file. The owning FileSource runs watch in its own
// goroutine and may call notify from any goroutine.
type fileWatcher struct {
	path         string
	sourceName   string
	emit         func(context.Context, core.LogEntry) error
	pollInterval time.Duration
	fromEnd      bool
	wake         chan struct{}
	cancel       context.CancelFunc
	parser       fastjson.Parser
	logger       *log.Logger

	mu        sync.Mutex
	offset    int64 // -1 until the first open
	stamp     fileStamp
	rotations int

	linesRead atomic.Uint64
	lastRead  atomic.Int64 // unix nanos
}

func newFileWatcher(path, sourceName string, fromEnd bool, pollInterval time.Duration,
	emit func(context.Context, core.LogEntry) error, logger *log.Logger) *fileWatcher {
	return &fileWatcher{
		path:         path,
		sourceName:   sourceName,
		emit:         emit,
		pollInterval: pollInterval,
		fromEnd:      fromEnd,
		wake:         make(chan struct{}, 1),
		offset:       -1,
		logger:       logger,
	}
}

func (w *fileWatcher) watch(ctx context.Context) error {
	if err := w.open(); err != nil {
		return fmt.Errorf("initial seek failed: %w", err)
	}

	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()

	for {
		if err := w.readNew(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("msg", "Cannot read file",
				"component", "file_watcher",
				"path", w.path,
				"error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
		case <-w.wake:
		}
	}
}

// notify requests an immediate read without blocking
func (w *fileWatcher) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// open records the starting stamp and offset. A missing file starts at zero.
func (w *fileWatcher) open() error {
	info, err := os.Stat(w.path)
	if errors.Is(err, os.ErrNotExist) {
		w.mu.Lock()
		w.offset = 0
		w.stamp = fileStamp{modTime: time.Now()}
		w.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamp = stampOf(info)
	if w.offset < 0 {
		w.offset = 0
		if w.fromEnd {
			w.offset = info.Size()
		}
	}
	return nil
}

// readNew restarts from zero after a rotation and emits every complete line
// past the saved offset. A line without its newline is left for the next pass.
func (w *fileWatcher) readNew(ctx context.Context) error {
	file, err := os.Open(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	cur := stampOf(info)

	w.mu.Lock()
	prev, offset := w.stamp, w.offset
	if prev.inode == 0 {
		// File appeared after the watcher started
		prev.inode = cur.inode
	}
	reason := detectRotation(prev, offset, cur)
	if reason != "" {
		offset = 0
		w.rotations++
	}
	w.stamp.inode = cur.inode
	rotations := w.rotations
	w.mu.Unlock()

	if reason != "" {
		w.logger.Info("msg", "Log rotation detected",
			"component", "file_watcher",
			"path", w.path,
			"rotations", rotations,
			"reason", reason)
	}

	if cur.size > offset {
		offset, err = w.emitLines(ctx, file, offset)
	}

	w.mu.Lock()
	w.offset = offset
	w.stamp = cur
	w.mu.Unlock()
	return err
}

// emitLines returns the offset just past the last line handed to emit
func (w *fileWatcher) emitLines(ctx context.Context, file *os.File, offset int64) (int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, err
	}

	reader := bufio.NewReaderSize(file, tailReadBuffer)
	for {
		raw, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			return offset, nil
		}
		if err != nil {
			return offset, err
		}

		if line := strings.TrimRight(string(raw), "\r\n"); line != "" {
			entry := w.parseLine(line)
			entry.RawSize = int64(len(raw))
			if err := w.emit(ctx, entry); err != nil {
				return offset, err
			}
			w.linesRead.Add(1)
			w.lastRead.Store(time.Now().UnixNano())
		}
		offset += int64(len(raw))
	}
}

// parseLine reads JSON log lines (time, level, msg and scalar fields as
// attributes) and falls back to plain text with level sniffing.
func (w *fileWatcher) parseLine(line string) core.LogEntry {
	entry := core.LogEntry{
		Time:   time.Now(),
		Source: w.sourceName,
	}

	if v, err := w.parser.Parse(line); err == nil && v.Type() == fastjson.TypeObject {
		obj, _ := v.Object()
		obj.Visit(func(key []byte, val *fastjson.Value) {
			k := string(key)
			switch k {
			case "time", "timestamp", "ts":
				if s := val.GetStringBytes(); s != nil {
					if ts, err := time.Parse(time.RFC3339Nano, string(s)); err == nil {
						entry.Time = ts
					}
				}
			case "level", "severity":
				entry.Level = strings.ToUpper(string(val.GetStringBytes()))
			case "msg", "message":
				entry.Message = string(val.GetStringBytes())
			default:
				switch val.Type() {
				case fastjson.TypeString:
					entry.SetAttribute(k, string(val.GetStringBytes()))
				case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
					entry.SetAttribute(k, val.String())
				}
			}
		})
		if entry.Message == "" {
			entry.Message = line
		}
	} else {
		entry.Message = line
		entry.Level = extractLogLevel(line)
	}

	entry.SetAttribute("file.path", w.path)
	entry.SetAttribute("file.name", filepath.Base(w.path))
	return entry
}

// levelMarkers is checked in order, so the most severe match wins
var levelMarkers = []struct {
	level   string
	markers []string
}{
	{"FATAL", []string{"[FATAL]", "FATAL:", " FATAL ", "[CRIT]", "CRITICAL:"}},
	{"ERROR", []string{"[ERROR]", "ERROR:", " ERROR ", "[ERR]", "ERR:"}},
	{"WARN", []string{"[WARN]", "[WARNING]", "WARN:", "WARNING:", " WARN "}},
	{"INFO", []string{"[INFO]", "[INF]", "INFO:", "INF:", " INFO "}},
	{"DEBUG", []string{"[DEBUG]", "[DBG]", "DEBUG:", "DBG:", " DEBUG "}},
	{"TRACE", []string{"[TRACE]", "TRACE:", " TRACE "}},
}

// extractLogLevel sniffs a severity marker from a plain text line
func extractLogLevel(line string) string {
	upper := strings.ToUpper(line)
	for _, lm := range levelMarkers {
		for _, m := range lm.markers {
			if strings.Contains(upper, m) {
				return lm.level
			}
		}
	}
	return ""
}

func (w *fileWatcher) snapshot() tailSnapshot {
	w.mu.Lock()
	s := tailSnapshot{
		Path:      w.path,
		Size:      w.stamp.size,
		Offset:    w.offset,
		Rotations: w.rotations,
	}
	w.mu.Unlock()

	s.LinesRead = w.linesRead.Load()
	if ns := w.lastRead.Load(); ns != 0 {
		s.LastRead = time.Unix(0, ns)
	}
	return s
}

func (w *fileWatcher) stop() {
	if w.cancel != nil {
		w.cancel()
	}
}
