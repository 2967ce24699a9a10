//go:build linux && cgo

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/coreos/go-systemd/v22/sdjournal"
	"github.com/lixenwraith/log"
)

// journalWait bounds each blocking wait for new journal entries
const journalWait = time.Second

// JournaldSource follows the systemd journal
type JournaldSource struct {
	name    string
	config  *config.JournaldSourceOptions
	emitter *emitter
	logger  *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	startTime time.Time
}

// NewJournaldSource creates a journald source
func NewJournaldSource(name string, opts *config.JournaldSourceOptions, logger *log.Logger) (*JournaldSource, error) {
	if opts == nil {
		opts = &config.JournaldSourceOptions{}
	}
	return &JournaldSource{
		name:      name,
		config:    opts,
		emitter:   newEmitter(),
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

func (j *JournaldSource) Name() string {
	return j.name
}

// Start opens the journal, applies unit matches and seeks to the tail
func (j *JournaldSource) Start(sink chan<- core.LogEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return core.ErrAlreadyRunning
	}

	journal, err := j.open()
	if err != nil {
		return fmt.Errorf("%w: journald source '%s': %v", core.ErrSourceStartup, j.name, err)
	}

	j.emitter.sink = sink
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.running = true
	j.startTime = time.Now()

	j.wg.Add(1)
	go j.tail(ctx, journal)

	j.logger.Info("msg", "Journald source started",
		"component", "journald_source",
		"name", j.name,
		"directory", j.journalPath(),
		"units", j.config.Units)
	return nil
}

func (j *JournaldSource) open() (*sdjournal.Journal, error) {
	var journal *sdjournal.Journal
	var err error
	if j.config.Directory == "" {
		journal, err = sdjournal.NewJournal()
	} else {
		journal, err = sdjournal.NewJournalFromDir(j.config.Directory)
	}
	if err != nil {
		return nil, err
	}

	for i, unit := range j.config.Units {
		if i > 0 {
			if err := journal.AddDisjunction(); err != nil {
				journal.Close()
				return nil, err
			}
		}
		match := sdjournal.SD_JOURNAL_FIELD_SYSTEMD_UNIT + "=" + unit
		if err := journal.AddMatch(match); err != nil {
			journal.Close()
			return nil, fmt.Errorf("could not add filter %s: %w", match, err)
		}
	}

	if err := journal.SeekTail(); err != nil {
		journal.Close()
		return nil, err
	}
	// Step back onto the last entry so Next only yields new ones
	if _, err := journal.Previous(); err != nil {
		journal.Close()
		return nil, err
	}
	return journal, nil
}

// tail reads entries until ctx is cancelled
func (j *JournaldSource) tail(ctx context.Context, journal *sdjournal.Journal) {
	defer j.wg.Done()
	defer journal.Close()

	for ctx.Err() == nil {
		n, err := journal.Next()
		if err != nil && !errors.Is(err, io.EOF) {
			j.logger.Error("msg", "Cannot tail journal",
				"component", "journald_source",
				"name", j.name,
				"directory", j.journalPath(),
				"error", err)
			return
		}
		if n < 1 {
			journal.Wait(journalWait)
			continue
		}

		raw, err := journal.GetEntry()
		if err != nil {
			j.logger.Warn("msg", "Could not retrieve journal entry",
				"component", "journald_source",
				"name", j.name,
				"error", err)
			continue
		}

		if err := j.emitter.emit(ctx, j.toEntry(raw)); err != nil {
			return
		}
	}
}

func (j *JournaldSource) toEntry(raw *sdjournal.JournalEntry) core.LogEntry {
	message := raw.Fields[sdjournal.SD_JOURNAL_FIELD_MESSAGE]
	entry := core.LogEntry{
		Time:    time.UnixMicro(int64(raw.RealtimeTimestamp)),
		Source:  j.name,
		Level:   priorityLevel(raw.Fields[sdjournal.SD_JOURNAL_FIELD_PRIORITY]),
		Message: message,
		RawSize: int64(len(message)),
	}

	if unit := raw.Fields[sdjournal.SD_JOURNAL_FIELD_SYSTEMD_UNIT]; unit != "" {
		entry.SetAttribute("systemd.unit", unit)
	}
	if ident := raw.Fields[sdjournal.SD_JOURNAL_FIELD_SYSLOG_IDENTIFIER]; ident != "" {
		entry.SetAttribute("syslog.identifier", ident)
	}
	if host := raw.Fields[sdjournal.SD_JOURNAL_FIELD_HOSTNAME]; host != "" {
		entry.SetAttribute("host.name", host)
	}
	if pid := raw.Fields[sdjournal.SD_JOURNAL_FIELD_PID]; pid != "" {
		entry.SetAttribute("process.pid", pid)
	}
	return entry
}

func (j *JournaldSource) Stop() error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return core.ErrNotRunning
	}
	j.running = false
	j.cancel()
	j.mu.Unlock()

	j.wg.Wait()

	j.logger.Info("msg", "Journald source stopped",
		"component", "journald_source",
		"name", j.name)
	return nil
}

func (j *JournaldSource) GetStats() SourceStats {
	return SourceStats{
		Type:          "journald",
		Name:          j.name,
		TotalEntries:  j.emitter.totalEntries.Load(),
		StartTime:     j.startTime,
		LastEntryTime: j.emitter.lastEntry(),
		Details: map[string]any{
			"directory": j.journalPath(),
			"units":     j.config.Units,
		},
	}
}

func (j *JournaldSource) journalPath() string {
	if j.config.Directory != "" {
		return j.config.Directory
	}
	return "default"
}
