//go:build !linux || !cgo

package source

import (
	"fmt"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
)

// JournaldSource is unavailable on this platform
type JournaldSource struct{}

// NewJournaldSource always fails: the journal requires linux with cgo
func NewJournaldSource(name string, _ *config.JournaldSourceOptions, _ *log.Logger) (*JournaldSource, error) {
	return nil, fmt.Errorf("%w: journald source '%s' requires linux with cgo", core.ErrSourceStartup, name)
}

func (j *JournaldSource) Name() string                       { return "" }
func (j *JournaldSource) Start(_ chan<- core.LogEntry) error { return core.ErrSourceStartup }
func (j *JournaldSource) Stop() error                        { return core.ErrNotRunning }
func (j *JournaldSource) GetStats() SourceStats              { return SourceStats{Type: "journald"} }
